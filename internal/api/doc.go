// Package api provides the HTTP REST API for nukicontrol.
//
// It exposes the lock state (normalised, summarised and localised) and the
// lock commands to LAN clients, plus the action audit log when the
// database is enabled. Routes under /api/v1 are the primary surface; /api/state
// and /action/{command} remain for the original web client.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
