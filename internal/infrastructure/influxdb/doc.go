// Package influxdb records lock telemetry in InfluxDB v2.
//
// Every successful state read becomes one lock_state point tagged with
// device_id and carrying battery_percent, battery_critical, state and
// door_state when the bridge reported them. Writes are batched and
// non-blocking; asynchronous failures reach the SetOnError callback.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	controller, err := nuki.NewController(nuki.ControllerOptions{
//	    Client:    bridgeClient,
//	    Telemetry: client,
//	})
package influxdb
