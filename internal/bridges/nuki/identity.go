package nuki

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
)

// Identity addresses one lock behind one bridge.
//
// It is built once at startup and passed to NewClient. The token is
// unexported and only read when the client encodes a request; String,
// GoString and LogValue all leave it out, and encoding/json skips it.
type Identity struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	DeviceID   string `json:"device_id"`
	DeviceType int    `json:"device_type"`

	token string
}

// NewIdentity returns an Identity for the given bridge address and lock.
func NewIdentity(host string, port int, deviceID string, deviceType int, token string) Identity {
	return Identity{
		Host:       host,
		Port:       port,
		DeviceID:   deviceID,
		DeviceType: deviceType,
		token:      token,
	}
}

// HasToken reports whether a token is configured.
func (id Identity) HasToken() bool {
	return id.token != ""
}

// Addr returns host:port of the bridge.
func (id Identity) Addr() string {
	return net.JoinHostPort(id.Host, strconv.Itoa(id.Port))
}

// String implements fmt.Stringer.
func (id Identity) String() string {
	return fmt.Sprintf("nuki %s@%s (type %d)", id.DeviceID, id.Addr(), id.DeviceType)
}

// GoString keeps %#v from printing the token.
func (id Identity) GoString() string {
	return fmt.Sprintf("nuki.Identity{Host:%q, Port:%d, DeviceID:%q, DeviceType:%d, token:<redacted>}",
		id.Host, id.Port, id.DeviceID, id.DeviceType)
}

// LogValue implements slog.LogValuer.
func (id Identity) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("bridge", id.Addr()),
		slog.String("device_id", id.DeviceID),
		slog.Int("device_type", id.DeviceType),
	)
}
