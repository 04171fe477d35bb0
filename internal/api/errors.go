package api

import (
	"encoding/json"
	"net/http"

	"github.com/nerrad567/nuki-control/internal/bridges/nuki"
	"github.com/nerrad567/nuki-control/internal/locale"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeUnauthorized   = "unauthorised"
	ErrCodeForbidden      = "forbidden"
	ErrCodeInternal       = "internal_error"
	ErrCodeMethodNotAllow = "method_not_allowed"
	ErrCodeNotEnabled     = "not_enabled"

	ErrCodeUnknownCommand    = "unknown_command"
	ErrCodeBridgeUnreachable = "bridge_unreachable"
	ErrCodeBridgeTimeout     = "bridge_timeout"
	ErrCodeBridgeHTTP        = "bridge_http_error"
	ErrCodeBridgeUnexpected  = "bridge_unexpected"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeBridgeError maps a controller failure to status and code and
// renders the message from the caller's language table. The upstream URL
// and token never reach the response.
func writeBridgeError(w http.ResponseWriter, tbl *locale.Table, err error) {
	status, code := http.StatusBadGateway, ErrCodeBridgeUnexpected
	switch nuki.KindOf(err) {
	case nuki.KindUnknownCommand:
		status, code = http.StatusBadRequest, ErrCodeUnknownCommand
	case nuki.KindUnreachable:
		code = ErrCodeBridgeUnreachable
	case nuki.KindTimeout:
		status, code = http.StatusGatewayTimeout, ErrCodeBridgeTimeout
	case nuki.KindUpstreamHTTP:
		code = ErrCodeBridgeHTTP
	}
	writeError(w, status, code, tbl.ErrorMessage(err))
}
