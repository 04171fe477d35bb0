package nuki

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/savaki/jq"
)

// RawResponse is an unparsed bridge response body. Its shape varies
// between bridge firmware versions and is not trusted.
type RawResponse = json.RawMessage

// NormalizedState is the stable subset of a lockState response.
// Every field is independently optional; nil means the bridge did not
// send it or sent it with an unusable type.
type NormalizedState struct {
	State              *int     `json:"state"`
	StateName          *string  `json:"state_name"`
	DoorState          *int     `json:"door_state"`
	DoorStateName      *string  `json:"door_state_name"`
	BatteryPercent     *float64 `json:"battery_percent"`
	BatteryStatusLabel *string  `json:"battery_status_label"`
	BatteryCritical    *bool    `json:"battery_critical"`
	TimestampRaw       *string  `json:"timestamp_raw"`
}

// IsEmpty reports whether no field was extracted.
func (s NormalizedState) IsEmpty() bool {
	return s.State == nil && s.StateName == nil &&
		s.DoorState == nil && s.DoorStateName == nil &&
		s.BatteryPercent == nil && s.BatteryStatusLabel == nil &&
		s.BatteryCritical == nil && s.TimestampRaw == nil
}

// Severity grades battery health for display.
type Severity string

// Battery severities.
const (
	SeverityOK      Severity = "ok"
	SeverityWarn    Severity = "warn"
	SeverityDanger  Severity = "danger"
	SeverityUnknown Severity = "unknown"
)

// Battery thresholds, inclusive upper bounds.
const (
	dangerPercent = 20
	warnPercent   = 40
)

// Compiled selectors.
var (
	opState         = mustParse(".state")
	opStateName     = mustParse(".stateName")
	opDoorState     = mustParse(".doorState")
	opDoorStateName = mustParse(".doorStateName")

	opBatteryCharge      = mustParse(".batteryCharge")
	opBatteryChargeState = mustParse(".batteryChargeState")
	opChargeLevel        = mustParse(".batteryChargeState.chargeLevel")
	opBatteryLevel       = mustParse(".batteryLevel")
	opBatteryStateLabel  = mustParse(".batteryChargeState.state")
	opBatteryCritical    = mustParse(".batteryCritical")

	opTimestamp = mustParse(".timestamp")
	opTrigger   = mustParse(".trigger")
	opSuccess   = mustParse(".success")
)

// percentExtractor reads one battery encoding.
type percentExtractor func(raw RawResponse) (float64, bool)

// batteryPercentExtractors lists the known battery encodings, newest first.
// The first extractor that matches wins.
var batteryPercentExtractors = []percentExtractor{
	percentAt(opBatteryCharge),      // batteryCharge: 87
	percentAt(opBatteryChargeState), // batteryChargeState: 87
	percentAt(opChargeLevel),        // batteryChargeState: {chargeLevel: 87}
	percentAt(opBatteryLevel),       // batteryLevel: 87
}

func percentAt(op jq.Op) percentExtractor {
	return func(raw RawResponse) (float64, bool) {
		v, ok := lookupNumber(raw, op)
		if !ok || v < 0 || v > 100 {
			return 0, false
		}
		return v, true
	}
}

// ExtractBatteryPercent returns the battery charge in percent from the
// first matching encoding, or nil if none matches.
func ExtractBatteryPercent(raw RawResponse) *float64 {
	for _, extract := range batteryPercentExtractors {
		if v, ok := extract(raw); ok {
			return &v
		}
	}
	return nil
}

// ExtractBatteryStatusLabel returns batteryChargeState.state when it is a
// string. It does not depend on whether a percentage was found.
func ExtractBatteryStatusLabel(raw RawResponse) *string {
	if s, ok := lookupString(raw, opBatteryStateLabel); ok {
		return &s
	}
	return nil
}

// ClassifyBatterySeverity grades battery health. A critical flag always
// wins; otherwise the percentage decides.
func ClassifyBatterySeverity(percent *float64, critical *bool) Severity {
	if critical != nil && *critical {
		return SeverityDanger
	}
	if percent == nil {
		return SeverityUnknown
	}
	switch p := *percent; {
	case p <= dangerPercent:
		return SeverityDanger
	case p <= warnPercent:
		return SeverityWarn
	default:
		return SeverityOK
	}
}

// Severity grades the battery of s.
func (s NormalizedState) Severity() Severity {
	return ClassifyBatterySeverity(s.BatteryPercent, s.BatteryCritical)
}

// Normalize extracts the canonical fields from a lockState body. It never
// fails: malformed input yields a partially or fully empty state.
func Normalize(raw RawResponse) NormalizedState {
	var s NormalizedState

	if v, ok := lookupInt(raw, opState); ok {
		s.State = &v
	}
	if v, ok := lookupString(raw, opStateName); ok {
		s.StateName = &v
	}
	if v, ok := lookupInt(raw, opDoorState); ok {
		s.DoorState = &v
	}
	if v, ok := lookupString(raw, opDoorStateName); ok {
		s.DoorStateName = &v
	}
	s.BatteryPercent = ExtractBatteryPercent(raw)
	s.BatteryStatusLabel = ExtractBatteryStatusLabel(raw)
	if v, ok := lookupBool(raw, opBatteryCritical); ok {
		s.BatteryCritical = &v
	}
	if v, ok := lookupString(raw, opTimestamp); ok {
		s.TimestampRaw = &v
	}

	return s
}

// ExtractTrigger returns the raw trigger value, or nil.
func ExtractTrigger(raw RawResponse) json.RawMessage {
	return lookupRaw(raw, opTrigger)
}

// ExtractBatteryRaw returns batteryChargeState verbatim, whatever its shape.
func ExtractBatteryRaw(raw RawResponse) json.RawMessage {
	return lookupRaw(raw, opBatteryChargeState)
}

// lookup applies op and returns the selected JSON value, or nil when the
// path is missing, the input is malformed, or the value is null. Input is
// compacted first so the selector only ever sees canonical JSON.
func lookup(raw RawResponse, op jq.Op) (out []byte) {
	if len(raw) == 0 {
		return nil
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return nil
	}
	defer func() {
		if recover() != nil {
			out = nil
		}
	}()
	v, err := op.Apply(compact.Bytes())
	if err != nil || len(v) == 0 || string(v) == "null" {
		return nil
	}
	return v
}

func lookupRaw(raw RawResponse, op jq.Op) json.RawMessage {
	v := lookup(raw, op)
	if v == nil || !json.Valid(v) {
		return nil
	}
	return json.RawMessage(v)
}

func lookupNumber(raw RawResponse, op jq.Op) (float64, bool) {
	v := lookup(raw, op)
	if v == nil {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		return 0, false
	}
	return f, true
}

// lookupInt accepts integral JSON numbers only.
func lookupInt(raw RawResponse, op jq.Op) (int, bool) {
	f, ok := lookupNumber(raw, op)
	if !ok || f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

func lookupString(raw RawResponse, op jq.Op) (string, bool) {
	v := lookup(raw, op)
	if v == nil {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", false
	}
	return s, true
}

func lookupBool(raw RawResponse, op jq.Op) (bool, bool) {
	v := lookup(raw, op)
	if v == nil {
		return false, false
	}
	var b bool
	if err := json.Unmarshal(v, &b); err != nil {
		return false, false
	}
	return b, true
}

func mustParse(selector string) jq.Op {
	op, err := jq.Parse(selector)
	if err != nil {
		panic("nuki: invalid selector " + selector + ": " + err.Error())
	}
	return op
}
