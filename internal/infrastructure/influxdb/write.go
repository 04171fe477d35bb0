package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/nuki-control/internal/bridges/nuki"
)

// MeasurementLockState is the measurement written for each state read.
const MeasurementLockState = "lock_state"

// RecordState writes one lock_state point. Fields absent from state are
// omitted; a state with none of them writes nothing.
func (c *Client) RecordState(deviceID string, state nuki.NormalizedState, at time.Time) {
	if !c.IsConnected() {
		return
	}

	point := lockStatePoint(deviceID, state, at)
	if point == nil {
		return
	}
	c.writeAPI.WritePoint(point)
	c.written.Add(1)
}

// lockStatePoint builds the point for one read, or nil when there is
// nothing numeric to record.
func lockStatePoint(deviceID string, state nuki.NormalizedState, at time.Time) *write.Point {
	fields := make(map[string]interface{}, 4)
	if state.BatteryPercent != nil {
		fields["battery_percent"] = *state.BatteryPercent
	}
	if state.BatteryCritical != nil {
		fields["battery_critical"] = *state.BatteryCritical
	}
	if state.State != nil {
		fields["state"] = *state.State
	}
	if state.DoorState != nil {
		fields["door_state"] = *state.DoorState
	}
	if len(fields) == 0 {
		return nil
	}

	return write.NewPoint(
		MeasurementLockState,
		map[string]string{"device_id": deviceID},
		fields,
		at,
	)
}
