package nuki

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MQTT message types exchanged with automation clients.

// Protocol identifies this bridge in MQTT payloads and topics.
const Protocol = "nuki"

// CommandMessage asks the bridge to dispatch a lock command.
// Topic: {prefix}/command/nuki/{device_id}
type CommandMessage struct {
	// ID correlates the command with its acknowledgment.
	ID string `json:"id"`

	Timestamp time.Time `json:"timestamp"`

	// Command is one of the exposed command names ("unlock", "lock", ...).
	Command string `json:"command"`

	// Source indicates where the command originated ("automation", "voice", ...).
	Source string `json:"source,omitempty"`
}

// AckStatus represents the acknowledgment status of a command.
type AckStatus string

const (
	// AckAccepted indicates the bridge accepted and performed the command.
	AckAccepted AckStatus = "accepted"

	// AckFailed indicates the command could not be executed.
	AckFailed AckStatus = "failed"

	// AckTimeout indicates the bridge did not answer in time.
	AckTimeout AckStatus = "timeout"
)

// AckMessage acknowledges a command.
// Topic: {prefix}/ack/nuki/{device_id}
type AckMessage struct {
	CommandID string    `json:"command_id"`
	Timestamp time.Time `json:"timestamp"`
	DeviceID  string    `json:"device_id"`
	Status    AckStatus `json:"status"`
	Protocol  string    `json:"protocol"`

	// Command and Action echo what was sent to the bridge.
	Command string     `json:"command,omitempty"`
	Action  ActionCode `json:"action,omitempty"`

	BatteryCritical bool `json:"battery_critical,omitempty"`

	// Error contains details if status is "failed" or "timeout".
	Error *AckError `json:"error,omitempty"`
}

// AckError contains error details for failed commands.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Status is the bridge HTTP status for UPSTREAM_HTTP_ERROR.
	Status int `json:"status,omitempty"`
}

// Error codes for command and request failures.
const (
	ErrCodeUnknownCommand    = "UNKNOWN_COMMAND"
	ErrCodeDeviceUnreachable = "DEVICE_UNREACHABLE"
	ErrCodeTimeout           = "TIMEOUT"
	ErrCodeUpstreamHTTP      = "UPSTREAM_HTTP_ERROR"
	ErrCodeBridgeError       = "BRIDGE_ERROR"
	ErrCodeActionRejected    = "ACTION_REJECTED"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
)

// ErrorCode maps a failure kind to its MQTT error code.
func ErrorCode(kind ErrorKind) string {
	switch kind {
	case KindUnknownCommand:
		return ErrCodeUnknownCommand
	case KindUnreachable:
		return ErrCodeDeviceUnreachable
	case KindTimeout:
		return ErrCodeTimeout
	case KindUpstreamHTTP:
		return ErrCodeUpstreamHTTP
	default:
		return ErrCodeBridgeError
	}
}

// StateMessage carries the latest normalised lock state.
// Topic: {prefix}/state/nuki/{device_id}
// QoS: 1, Retained: Yes
type StateMessage struct {
	DeviceID        string          `json:"device_id"`
	Timestamp       time.Time       `json:"timestamp"`
	Protocol        string          `json:"protocol"`
	State           NormalizedState `json:"state"`
	BatterySeverity Severity        `json:"battery_severity"`
	Summary         string          `json:"summary"`
}

// RequestMessage asks for a request/response operation.
// Topic: {prefix}/request/nuki/{request_id}
type RequestMessage struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`

	// Action is the requested operation. Values: "read_state", "list_commands".
	Action string `json:"action"`
}

// Request actions.
const (
	RequestReadState    = "read_state"
	RequestListCommands = "list_commands"
)

// ResponseMessage answers a RequestMessage.
// Topic: {prefix}/response/nuki/{request_id}
type ResponseMessage struct {
	RequestID string         `json:"request_id"`
	Timestamp time.Time      `json:"timestamp"`
	Success   bool           `json:"success"`
	Data      map[string]any `json:"data,omitempty"`
	Error     *ResponseError `json:"error,omitempty"`
}

// ResponseError contains error details for failed requests.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HealthStatus represents the operational status of the bridge service.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthOffline  HealthStatus = "offline"
	HealthStarting HealthStatus = "starting"
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage reports operational status.
// Topic: {prefix}/health/nuki
// QoS: 1, Retained: Yes
type HealthMessage struct {
	Bridge        string       `json:"bridge"`
	DeviceID      string       `json:"device_id"`
	Timestamp     time.Time    `json:"timestamp"`
	Status        HealthStatus `json:"status"`
	Version       string       `json:"version"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	Statistics    *Stats       `json:"statistics,omitempty"`
	Reason        string       `json:"reason,omitempty"`
}

// NewAckMessage creates a successful acknowledgment.
func NewAckMessage(cmd CommandMessage, deviceID string, outcome *ActionOutcome) AckMessage {
	return AckMessage{
		CommandID:       cmd.ID,
		Timestamp:       time.Now().UTC(),
		DeviceID:        deviceID,
		Status:          AckAccepted,
		Protocol:        Protocol,
		Command:         outcome.Command,
		Action:          outcome.Action,
		BatteryCritical: outcome.BatteryCritical,
	}
}

// NewAckError creates a failed acknowledgment. A timeout code yields
// status "timeout"; everything else "failed".
func NewAckError(cmd CommandMessage, deviceID, code, message string, status int) AckMessage {
	ackStatus := AckFailed
	if code == ErrCodeTimeout {
		ackStatus = AckTimeout
	}
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		DeviceID:  deviceID,
		Status:    ackStatus,
		Protocol:  Protocol,
		Command:   cmd.Command,
		Error: &AckError{
			Code:    code,
			Message: message,
			Status:  status,
		},
	}
}

// NewLWTMessage creates the Last Will message published by the broker
// when the service disconnects unexpectedly.
func NewLWTMessage(deviceID string) HealthMessage {
	return HealthMessage{
		Bridge:    Protocol,
		DeviceID:  deviceID,
		Timestamp: time.Now().UTC(),
		Status:    HealthOffline,
		Reason:    "unexpected disconnect",
	}
}

// Topics builds MQTT topics under a prefix for one lock.
type Topics struct {
	Prefix   string
	DeviceID string
}

// Command returns the topic this lock's commands arrive on.
// Example: nukicontrol/command/nuki/123456
func (t Topics) Command() string {
	return fmt.Sprintf("%s/command/%s/%s", t.Prefix, Protocol, t.DeviceID)
}

// Ack returns the topic command acknowledgments are published on.
func (t Topics) Ack() string {
	return fmt.Sprintf("%s/ack/%s/%s", t.Prefix, Protocol, t.DeviceID)
}

// State returns the retained state topic.
func (t Topics) State() string {
	return fmt.Sprintf("%s/state/%s/%s", t.Prefix, Protocol, t.DeviceID)
}

// Health returns the retained health topic.
func (t Topics) Health() string {
	return fmt.Sprintf("%s/health/%s", t.Prefix, Protocol)
}

// Request returns the topic for one request.
func (t Topics) Request(requestID string) string {
	return fmt.Sprintf("%s/request/%s/%s", t.Prefix, Protocol, requestID)
}

// RequestSubscribe returns the subscription pattern for all requests.
func (t Topics) RequestSubscribe() string {
	return fmt.Sprintf("%s/request/%s/+", t.Prefix, Protocol)
}

// maxRequestIDLen bounds the request ID copied into a response topic.
const maxRequestIDLen = 128

// ValidRequestID reports whether id can be used as a single topic level.
// Empty IDs, wildcards, level separators and NUL are rejected.
func ValidRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen || !utf8.ValidString(id) {
		return false
	}
	return !strings.ContainsAny(id, "/+#\x00")
}

// Response returns the topic for the answer to one request. requestID must
// pass ValidRequestID.
func (t Topics) Response(requestID string) string {
	return fmt.Sprintf("%s/response/%s/%s", t.Prefix, Protocol, requestID)
}
