// Package nuki talks to a Nuki bridge over its local HTTP API and turns the
// answers into a stable, typed and secret-free form.
//
// The package has three layers:
//
//   - Client performs the two bridge calls, lockState and lockAction, each
//     as a single GET with its own deadline. Every failure is reduced to a
//     *BridgeError of one of a closed set of kinds.
//   - Normalize, BuildSummary and ClassifyBatterySeverity interpret a
//     lockState body. They never fail; missing or oddly typed fields simply
//     come out absent. Battery charge is read from four encodings, tried
//     newest first.
//   - Controller resolves command names, parses action results and feeds
//     the optional telemetry and audit sinks. Bridge puts a Controller on
//     MQTT.
//
// # Token handling
//
// The bridge token is part of every request URL. It lives only in the
// unexported field of Identity and in the URL built inside Client.call.
// Errors are rendered from fixed templates and never wrap the transport
// error, so neither the token nor the URL can reach a log line, an API
// response or an MQTT payload.
//
// # Usage
//
//	client := nuki.NewClient(nuki.ClientOptions{Identity: cfg.Identity(), Logger: log})
//	ctrl, _ := nuki.NewController(nuki.ControllerOptions{Client: client, DeviceID: cfg.Nuki.ID})
//	report, err := ctrl.ReadState(ctx)
//	if err != nil {
//	    // errors.Is(err, nuki.ErrTimeout), ...
//	}
//	fmt.Println(nuki.BuildSummary(report.State, labels, loc))
package nuki
