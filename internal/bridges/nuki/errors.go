package nuki

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per failure kind. Every *BridgeError unwraps to
// exactly one of these so callers can branch with errors.Is.
var (
	// ErrUnreachable is returned when the bridge cannot be connected to.
	ErrUnreachable = errors.New("nuki: bridge unreachable")

	// ErrTimeout is returned when a bridge call exceeds its deadline.
	ErrTimeout = errors.New("nuki: bridge timeout")

	// ErrUpstreamStatus is returned when the bridge answers with a non-2xx status.
	ErrUpstreamStatus = errors.New("nuki: bridge returned error status")

	// ErrUnexpected covers every other bridge failure (DNS, malformed body, ...).
	ErrUnexpected = errors.New("nuki: unexpected bridge failure")

	// ErrUnknownCommand is returned for command names outside the exposed set.
	ErrUnknownCommand = errors.New("nuki: unknown command")
)

// ErrorKind classifies a bridge failure. The set is closed.
type ErrorKind string

// Error kinds.
const (
	KindUnreachable    ErrorKind = "unreachable"
	KindTimeout        ErrorKind = "timeout"
	KindUpstreamHTTP   ErrorKind = "upstream_http"
	KindUnexpected     ErrorKind = "unexpected"
	KindUnknownCommand ErrorKind = "unknown_command"
)

// Endpoint names a bridge operation for diagnostics.
type Endpoint string

// Bridge endpoints.
const (
	EndpointLockState  Endpoint = "lock-state"
	EndpointLockAction Endpoint = "lock-action"
)

// BridgeError is the only error type returned by Client and Controller.
//
// Its message is rendered from a fixed template using Kind, Status,
// Endpoint and Command only. It never holds the underlying transport
// error, because that error embeds the request URL and with it the
// bridge token.
type BridgeError struct {
	Kind     ErrorKind
	Endpoint Endpoint
	// Status is set for KindUpstreamHTTP.
	Status int
	// Command is set for KindUnknownCommand.
	Command string
}

// Error implements the error interface.
func (e *BridgeError) Error() string {
	switch e.Kind {
	case KindUnreachable:
		return fmt.Sprintf("bridge unreachable while calling %s", e.Endpoint)
	case KindTimeout:
		return fmt.Sprintf("bridge timeout while calling %s", e.Endpoint)
	case KindUpstreamHTTP:
		return fmt.Sprintf("bridge returned HTTP %d while calling %s", e.Status, e.Endpoint)
	case KindUnknownCommand:
		if e.Command == "" {
			return "unknown command"
		}
		return fmt.Sprintf("unknown command %q", e.Command)
	default:
		return fmt.Sprintf("unexpected bridge failure while calling %s", e.Endpoint)
	}
}

// Unwrap returns the sentinel matching Kind.
func (e *BridgeError) Unwrap() error {
	switch e.Kind {
	case KindUnreachable:
		return ErrUnreachable
	case KindTimeout:
		return ErrTimeout
	case KindUpstreamHTTP:
		return ErrUpstreamStatus
	case KindUnknownCommand:
		return ErrUnknownCommand
	default:
		return ErrUnexpected
	}
}

// KindOf extracts the failure kind from err. Errors that are not a
// *BridgeError are reported as KindUnexpected.
func KindOf(err error) ErrorKind {
	var be *BridgeError
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindUnexpected
}
