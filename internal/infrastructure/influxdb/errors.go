package influxdb

import "errors"

var (
	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	ErrDisabled = errors.New("influxdb: telemetry disabled")

	// ErrConnectionFailed wraps a failed or unhealthy ping at connect time.
	ErrConnectionFailed = errors.New("influxdb: cannot reach server")

	// ErrNotConnected is returned by operations on a closed or unconnected client.
	ErrNotConnected = errors.New("influxdb: client not connected")
)
