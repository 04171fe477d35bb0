package nuki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error
	IsConnected() bool
}

// Service is the controller surface the MQTT bridge drives.
// Satisfied by *Controller.
type Service interface {
	ReadState(ctx context.Context) (*StateReport, error)
	Dispatch(ctx context.Context, name, source string) (*ActionOutcome, error)
	Stats() Stats
}

// BridgeOptions holds configuration for creating a Bridge.
type BridgeOptions struct {
	// Service handles reads and commands. Required.
	Service Service

	// MQTTClient is the MQTT client implementation. Required.
	MQTTClient MQTTClient

	// DeviceID is the lock identifier used in topics. Required.
	DeviceID string

	// TopicPrefix defaults to "nukicontrol".
	TopicPrefix string

	// QoS for subscriptions and publishes. Defaults to 1.
	QoS byte

	// Labels and Location render the summary in state messages.
	Labels   SummaryLabels
	Location *time.Location

	// Version is reported in health messages.
	Version string

	// HealthInterval defaults to 30 seconds.
	HealthInterval time.Duration

	// Logger is optional.
	Logger Logger
}

// Bridge exposes the lock on MQTT. It handles:
//   - Commands on the command topic, acknowledged on the ack topic
//   - read_state requests, answered on the response topic and mirrored
//     to the retained state topic
//   - Health reporting and graceful shutdown
//
// The bridge never polls the lock on its own.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	service  Service
	mqtt     MQTTClient
	deviceID string
	topics   Topics
	qos      byte
	labels   SummaryLabels
	location *time.Location
	health   *HealthReporter
	logger   Logger

	// Shutdown coordination. mu guards stopped and every wg.Add, so no
	// handler is added once Stop has started waiting.
	mu        sync.Mutex
	stopped   bool
	wg        sync.WaitGroup
	stopOnce  sync.Once
	ctx       context.Context
	ctxCancel context.CancelFunc
}

// NewBridge creates a bridge. Call Start to subscribe.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.Service == nil {
		return nil, fmt.Errorf("service is required")
	}
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.DeviceID == "" {
		return nil, fmt.Errorf("device ID is required")
	}

	prefix := opts.TopicPrefix
	if prefix == "" {
		prefix = "nukicontrol"
	}
	qos := opts.QoS
	if qos == 0 {
		qos = 1
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	ctx, cancel := context.WithCancel(context.Background())
	topics := Topics{Prefix: prefix, DeviceID: opts.DeviceID}

	b := &Bridge{
		service:   opts.Service,
		mqtt:      opts.MQTTClient,
		deviceID:  opts.DeviceID,
		topics:    topics,
		qos:       qos,
		labels:    opts.Labels,
		location:  loc,
		logger:    opts.Logger,
		ctx:       ctx,
		ctxCancel: cancel,
	}

	b.health = NewHealthReporter(HealthReporterConfig{
		DeviceID:  opts.DeviceID,
		Version:   opts.Version,
		Interval:  opts.HealthInterval,
		Topic:     topics.Health(),
		Publisher: opts.MQTTClient,
		Stats:     opts.Service,
	})
	if opts.Logger != nil {
		b.health.SetLogger(opts.Logger)
	}

	return b, nil
}

// Topics returns the topic builder in use.
func (b *Bridge) Topics() Topics {
	return b.topics
}

// Health returns the health reporter, for LWT wiring.
func (b *Bridge) Health() *HealthReporter {
	return b.health
}

// Start subscribes to the command and request topics and begins health
// reporting.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.health.PublishStarting(); err != nil {
		b.logError("failed to publish starting status", err)
	}

	if err := b.mqtt.Subscribe(b.topics.Command(), b.qos, b.handleCommand); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.logInfo("subscribed to commands", "topic", b.topics.Command())

	if err := b.mqtt.Subscribe(b.topics.RequestSubscribe(), b.qos, b.handleRequest); err != nil {
		return fmt.Errorf("subscribe to requests: %w", err)
	}
	b.logInfo("subscribed to requests", "topic", b.topics.RequestSubscribe())

	b.health.Start(ctx)

	b.logInfo("mqtt bridge started", "device_id", b.deviceID)
	return nil
}

// Stop cancels in-flight bridge calls and publishes a final health status.
// Safe to call multiple times.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.mu.Lock()
		b.stopped = true
		b.mu.Unlock()

		b.ctxCancel()
		b.wg.Wait()
		b.health.Stop()
		b.logInfo("mqtt bridge stopped")
	})
}

// enter registers an in-flight handler. It returns false once Stop has
// been called.
func (b *Bridge) enter() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return false
	}
	b.wg.Add(1)
	return true
}

// handleCommand processes a command message.
func (b *Bridge) handleCommand(_ string, payload []byte) {
	if !b.enter() {
		return
	}
	defer b.wg.Done()

	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.logError("failed to parse command", err)
		return
	}

	b.logInfo("received command",
		"command_id", cmd.ID,
		"command", cmd.Command,
		"source", cmd.Source)

	outcome, err := b.service.Dispatch(b.ctx, cmd.Command, SourceMQTT)
	if err != nil {
		var be *BridgeError
		status := 0
		if errors.As(err, &be) {
			status = be.Status
		}
		b.publishAck(NewAckError(cmd, b.deviceID, ErrorCode(KindOf(err)), err.Error(), status))
		return
	}

	if !outcome.Success {
		b.publishAck(NewAckError(cmd, b.deviceID, ErrCodeActionRejected, "bridge reported success=false", 0))
		return
	}

	b.publishAck(NewAckMessage(cmd, b.deviceID, outcome))
}

// handleRequest processes a request message.
func (b *Bridge) handleRequest(topic string, payload []byte) {
	if !b.enter() {
		return
	}
	defer b.wg.Done()

	var req RequestMessage
	if err := json.Unmarshal(payload, &req); err != nil {
		b.logError("failed to parse request", err)
		return
	}
	if req.RequestID == "" {
		// Fall back to the last topic segment.
		if i := strings.LastIndex(topic, "/"); i >= 0 {
			req.RequestID = topic[i+1:]
		}
	}

	if !ValidRequestID(req.RequestID) {
		b.logError("dropping request", fmt.Errorf("invalid request id %q", req.RequestID))
		return
	}

	b.logInfo("received request",
		"request_id", req.RequestID,
		"action", req.Action)

	var resp ResponseMessage
	switch req.Action {
	case RequestReadState:
		resp = b.handleReadState(req)
	case RequestListCommands:
		resp = ResponseMessage{
			RequestID: req.RequestID,
			Timestamp: time.Now().UTC(),
			Success:   true,
			Data:      map[string]any{"commands": Commands},
		}
	default:
		resp = ResponseMessage{
			RequestID: req.RequestID,
			Timestamp: time.Now().UTC(),
			Error: &ResponseError{
				Code:    ErrCodeInvalidRequest,
				Message: fmt.Sprintf("unknown action: %s", req.Action),
			},
		}
	}

	respPayload, err := json.Marshal(resp)
	if err != nil {
		b.logError("failed to marshal response", err)
		return
	}
	if err := b.mqtt.Publish(b.topics.Response(req.RequestID), respPayload, b.qos, false); err != nil {
		b.logError("failed to publish response", err)
	}
}

// handleReadState reads the lock and mirrors the result to the state topic.
func (b *Bridge) handleReadState(req RequestMessage) ResponseMessage {
	report, err := b.service.ReadState(b.ctx)
	if err != nil {
		return ResponseMessage{
			RequestID: req.RequestID,
			Timestamp: time.Now().UTC(),
			Error: &ResponseError{
				Code:    ErrorCode(KindOf(err)),
				Message: err.Error(),
			},
		}
	}

	summary := BuildSummary(report.State, b.labels, b.location)
	b.publishState(report, summary)

	return ResponseMessage{
		RequestID: req.RequestID,
		Timestamp: time.Now().UTC(),
		Success:   true,
		Data: map[string]any{
			"state":            report.State,
			"battery_severity": report.Severity,
			"summary":          summary,
		},
	}
}

func (b *Bridge) publishState(report *StateReport, summary string) {
	msg := StateMessage{
		DeviceID:        b.deviceID,
		Timestamp:       report.ReadAt,
		Protocol:        Protocol,
		State:           report.State,
		BatterySeverity: report.Severity,
		Summary:         summary,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		b.logError("failed to marshal state", err)
		return
	}
	if err := b.mqtt.Publish(b.topics.State(), payload, b.qos, true); err != nil {
		b.logError("failed to publish state", err)
	}
}

func (b *Bridge) publishAck(ack AckMessage) {
	payload, err := json.Marshal(ack)
	if err != nil {
		b.logError("failed to marshal ack", err)
		return
	}
	if err := b.mqtt.Publish(b.topics.Ack(), payload, b.qos, false); err != nil {
		b.logError("failed to publish ack", err)
	}
}

func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if b.logger != nil {
		b.logger.Info(msg, keysAndValues...)
	}
}

func (b *Bridge) logError(msg string, err error) {
	if b.logger != nil {
		b.logger.Error(msg, "error", err)
	}
}
