// Package panel serves the browser control page for the lock.
//
// The page is plain HTML and JavaScript embedded into the binary with
// go:embed. It talks only to the REST API (/api/v1/state, /api/v1/actions)
// and never sees the bridge token. A bearer token for the API, when
// authentication is enabled, is kept in the browser's localStorage.
package panel
