package nuki

import (
	"strconv"
	"strings"
	"time"
)

// SummaryDelimiter separates summary fragments.
const SummaryDelimiter = " • "

// SummaryLabels holds the localised prefixes used by BuildSummary.
type SummaryLabels struct {
	Lock            string // "Lock: " followed by the state name
	LockState       string // "Lock: state=" followed by the bare code
	Door            string
	DoorState       string
	Battery         string
	BatteryCritical string
	LastUpdate      string
	NoData          string
	// DateLayout formats parsed timestamps. Empty means time.RFC3339.
	DateLayout string
}

// timestampLayouts are tried in order when parsing the bridge timestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// BuildSummary renders s as one line. Fragments always appear in the order
// lock, door, battery, timestamp; absent fields are skipped. When nothing
// is present the NoData label is returned.
func BuildSummary(s NormalizedState, labels SummaryLabels, loc *time.Location) string {
	parts := make([]string, 0, 4)

	switch {
	case s.StateName != nil && *s.StateName != "":
		frag := labels.Lock + *s.StateName
		if s.State != nil {
			frag += " (state=" + strconv.Itoa(*s.State) + ")"
		}
		parts = append(parts, frag)
	case s.State != nil:
		parts = append(parts, labels.LockState+strconv.Itoa(*s.State))
	}

	switch {
	case s.DoorStateName != nil && *s.DoorStateName != "":
		frag := labels.Door + *s.DoorStateName
		if s.DoorState != nil {
			frag += " (doorState=" + strconv.Itoa(*s.DoorState) + ")"
		}
		parts = append(parts, frag)
	case s.DoorState != nil:
		parts = append(parts, labels.DoorState+strconv.Itoa(*s.DoorState))
	}

	switch {
	case s.BatteryPercent != nil:
		parts = append(parts, labels.Battery+FormatPercent(*s.BatteryPercent)+"%")
	case s.BatteryCritical != nil:
		parts = append(parts, labels.BatteryCritical+strconv.FormatBool(*s.BatteryCritical))
	}

	if s.TimestampRaw != nil && *s.TimestampRaw != "" {
		parts = append(parts, labels.LastUpdate+FormatTimestamp(*s.TimestampRaw, labels.DateLayout, loc))
	}

	if len(parts) == 0 {
		return labels.NoData
	}
	return strings.Join(parts, SummaryDelimiter)
}

// FormatPercent renders a percentage without trailing zeros (87, 87.5).
func FormatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatTimestamp parses a bridge timestamp and renders it in loc using
// layout. Timestamps without an offset are taken as UTC. Unparsable input
// is returned unchanged.
func FormatTimestamp(raw, layout string, loc *time.Location) string {
	if layout == "" {
		layout = time.RFC3339
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, l := range timestampLayouts {
		if t, err := time.Parse(l, raw); err == nil {
			return t.In(loc).Format(layout)
		}
	}
	return raw
}
