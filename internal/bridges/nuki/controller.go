package nuki

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Dispatch sources recorded in the audit log.
const (
	SourceAPI  = "api"
	SourceMQTT = "mqtt"
	SourceCLI  = "cli"
)

// LockClient is the bridge surface the controller depends on.
// Satisfied by *Client.
type LockClient interface {
	QueryState(ctx context.Context) (RawResponse, error)
	SendAction(ctx context.Context, code ActionCode) (RawResponse, error)
}

// TelemetryRecorder receives every successfully read state.
// Implementations must not block.
type TelemetryRecorder interface {
	RecordState(deviceID string, state NormalizedState, at time.Time)
}

// ActionRecord describes one dispatch attempt for the audit log.
type ActionRecord struct {
	DeviceID string
	Command  string
	Action   ActionCode
	Source   string
	Success  bool
	// ErrorKind and Status are set when the dispatch failed.
	ErrorKind ErrorKind
	Status    int
	At        time.Time
}

// AuditRecorder persists dispatch attempts.
type AuditRecorder interface {
	RecordAction(ctx context.Context, rec ActionRecord) error
}

// StateReport is the result of a state read.
type StateReport struct {
	DeviceID string          `json:"device_id"`
	State    NormalizedState `json:"state"`
	Severity Severity        `json:"battery_severity"`
	// BatteryRaw echoes batteryChargeState in whatever shape it arrived.
	BatteryRaw json.RawMessage `json:"battery_raw,omitempty"`
	Trigger    json.RawMessage `json:"trigger,omitempty"`
	Raw        RawResponse     `json:"raw"`
	ReadAt     time.Time       `json:"read_at"`
}

// ActionOutcome is the result of a dispatched command.
type ActionOutcome struct {
	Command         string      `json:"command"`
	Action          ActionCode  `json:"action"`
	Success         bool        `json:"success"`
	BatteryCritical bool        `json:"battery_critical"`
	Raw             RawResponse `json:"raw"`
}

// Stats counts controller activity since start.
type Stats struct {
	StateReads     uint64    `json:"state_reads"`
	StateFailures  uint64    `json:"state_failures"`
	Actions        uint64    `json:"actions"`
	ActionFailures uint64    `json:"action_failures"`
	LastErrorKind  ErrorKind `json:"last_error_kind,omitempty"`
	LastErrorAt    time.Time `json:"last_error_at,omitzero"`
	// LastCallFailed is true when the most recent bridge call failed.
	LastCallFailed bool `json:"last_call_failed"`
}

// ControllerOptions holds configuration for creating a Controller.
type ControllerOptions struct {
	// Client talks to the bridge. Required.
	Client LockClient

	// DeviceID labels telemetry and audit records.
	DeviceID string

	// Telemetry is optional.
	Telemetry TelemetryRecorder

	// Audit is optional.
	Audit AuditRecorder

	// Logger is optional.
	Logger Logger
}

// Controller is the single entry point used by the HTTP API, the MQTT
// bridge and the CLI. It adds command resolution, outcome parsing and the
// optional sinks on top of the bare Client.
//
// Thread Safety: All methods are safe for concurrent use.
type Controller struct {
	client    LockClient
	deviceID  string
	telemetry TelemetryRecorder
	audit     AuditRecorder
	logger    Logger
	now       func() time.Time

	stateReads     atomic.Uint64
	stateFailures  atomic.Uint64
	actions        atomic.Uint64
	actionFailures atomic.Uint64

	lastErrMu      sync.RWMutex
	lastErrKind    ErrorKind
	lastErrAt      time.Time
	lastCallFailed bool
}

// NewController creates a controller.
func NewController(opts ControllerOptions) (*Controller, error) {
	if opts.Client == nil {
		return nil, errors.New("nuki: client is required")
	}
	return &Controller{
		client:    opts.Client,
		deviceID:  opts.DeviceID,
		telemetry: opts.Telemetry,
		audit:     opts.Audit,
		logger:    opts.Logger,
		now:       time.Now,
	}, nil
}

// DeviceID returns the lock identifier this controller serves.
func (c *Controller) DeviceID() string {
	return c.deviceID
}

// ReadState polls the bridge and normalises the answer.
func (c *Controller) ReadState(ctx context.Context) (*StateReport, error) {
	c.stateReads.Add(1)

	raw, err := c.client.QueryState(ctx)
	if err != nil {
		c.stateFailures.Add(1)
		c.noteResult(err)
		return nil, err
	}
	c.noteResult(nil)

	now := c.now().UTC()
	state := Normalize(raw)

	if c.telemetry != nil {
		c.telemetry.RecordState(c.deviceID, state, now)
	}

	return &StateReport{
		DeviceID:   c.deviceID,
		State:      state,
		Severity:   state.Severity(),
		BatteryRaw: ExtractBatteryRaw(raw),
		Trigger:    ExtractTrigger(raw),
		Raw:        raw,
		ReadAt:     now,
	}, nil
}

// Dispatch resolves name to an action code and sends it. Unknown names are
// rejected before any bridge call. source labels the audit record.
//
// A bridge answer with success=false is not an error: the outcome is
// returned with Success false.
func (c *Controller) Dispatch(ctx context.Context, name, source string) (*ActionOutcome, error) {
	rec := ActionRecord{
		DeviceID: c.deviceID,
		Command:  name,
		Source:   source,
		At:       c.now().UTC(),
	}

	code, err := ParseCommand(name)
	if err != nil {
		rec.ErrorKind = KindUnknownCommand
		c.record(ctx, rec)
		c.logWarn("rejected unknown command", "command", name, "source", source)
		return nil, err
	}
	rec.Action = code

	c.actions.Add(1)
	raw, err := c.client.SendAction(ctx, code)
	if err != nil {
		c.actionFailures.Add(1)
		c.noteResult(err)
		rec.ErrorKind = KindOf(err)
		var be *BridgeError
		if errors.As(err, &be) {
			rec.Status = be.Status
		}
		c.record(ctx, rec)
		return nil, err
	}
	c.noteResult(nil)

	result := ParseActionResult(raw)
	outcome := &ActionOutcome{
		Command: code.String(),
		Action:  code,
		Success: result.Success,
		Raw:     raw,
	}
	if result.BatteryCritical != nil {
		outcome.BatteryCritical = *result.BatteryCritical
	}

	rec.Success = result.Success
	c.record(ctx, rec)

	c.logInfo("command dispatched",
		"command", outcome.Command,
		"action", int(code),
		"success", outcome.Success,
		"source", source)

	return outcome, nil
}

// Stats returns a snapshot of the activity counters.
func (c *Controller) Stats() Stats {
	c.lastErrMu.RLock()
	defer c.lastErrMu.RUnlock()
	return Stats{
		StateReads:     c.stateReads.Load(),
		StateFailures:  c.stateFailures.Load(),
		Actions:        c.actions.Load(),
		ActionFailures: c.actionFailures.Load(),
		LastErrorKind:  c.lastErrKind,
		LastErrorAt:    c.lastErrAt,
		LastCallFailed: c.lastCallFailed,
	}
}

func (c *Controller) noteResult(err error) {
	c.lastErrMu.Lock()
	defer c.lastErrMu.Unlock()
	if err == nil {
		c.lastCallFailed = false
		return
	}
	c.lastCallFailed = true
	c.lastErrKind = KindOf(err)
	c.lastErrAt = c.now().UTC()
}

// record writes an audit entry. Audit failures never fail the dispatch.
func (c *Controller) record(ctx context.Context, rec ActionRecord) {
	if c.audit == nil {
		return
	}
	if err := c.audit.RecordAction(ctx, rec); err != nil && c.logger != nil {
		c.logger.Error("failed to record action", "command", rec.Command, "error", err)
	}
}

func (c *Controller) logInfo(msg string, keysAndValues ...any) {
	if c.logger != nil {
		c.logger.Info(msg, keysAndValues...)
	}
}

func (c *Controller) logWarn(msg string, keysAndValues ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, keysAndValues...)
	}
}
