package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/nuki-control/internal/audit"
	"github.com/nerrad567/nuki-control/internal/auth"
	"github.com/nerrad567/nuki-control/internal/infrastructure/config"
)

func bearer(t *testing.T, role auth.Role, secret string) http.Header {
	t.Helper()
	token, err := auth.GenerateAccessToken("usr-test", role, secret, time.Minute)
	require.NoError(t, err)
	return http.Header{"Authorization": {"Bearer " + token}}
}

func TestAuth_Disabled(t *testing.T) {
	fb := newFakeBridge(t, http.StatusOK, `{"success":true}`)
	srv, _ := testServer(t, fb.URL, serverOpts{})

	rec := do(t, srv, http.MethodPost, "/api/v1/actions/lock", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_Required(t *testing.T) {
	fb := newFakeBridge(t, http.StatusOK, `{"success":true}`)
	srv, _ := testServer(t, fb.URL, serverOpts{secret: testSecret})

	tests := []struct {
		name   string
		method string
		path   string
		header http.Header
		want   int
	}{
		{"missing token", http.MethodGet, "/api/v1/state", nil, http.StatusUnauthorized},
		{"not bearer", http.MethodGet, "/api/v1/state", http.Header{"Authorization": {"Basic abc"}}, http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/api/v1/state", http.Header{"Authorization": {"Bearer nope"}}, http.StatusUnauthorized},
		{"wrong secret", http.MethodGet, "/api/v1/state", bearer(t, auth.RoleAdmin, "another-secret-key-at-least-32-chars!"), http.StatusUnauthorized},
		{"viewer reads state", http.MethodGet, "/api/v1/state", bearer(t, auth.RoleViewer, testSecret), http.StatusOK},
		{"viewer cannot operate", http.MethodPost, "/api/v1/actions/unlock", bearer(t, auth.RoleViewer, testSecret), http.StatusForbidden},
		{"operator operates", http.MethodPost, "/api/v1/actions/unlock", bearer(t, auth.RoleOperator, testSecret), http.StatusOK},
		{"operator cannot read audit", http.MethodGet, "/api/v1/audit", bearer(t, auth.RoleOperator, testSecret), http.StatusForbidden},
		{"legacy route protected", http.MethodPost, "/action/lock", nil, http.StatusUnauthorized},
		{"health is open", http.MethodGet, "/api/v1/health", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, tt.method, tt.path, tt.header)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestAuth_UserRecordedInAudit(t *testing.T) {
	fb := newFakeBridge(t, http.StatusOK, `{"success":true}`)
	srv, repo := testServer(t, fb.URL, serverOpts{secret: testSecret, audit: true})

	rec := do(t, srv, http.MethodPost, "/api/v1/actions/lock", bearer(t, auth.RoleAdmin, testSecret))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/v1/audit", bearer(t, auth.RoleAdmin, testSecret))
	require.Equal(t, http.StatusOK, rec.Code)

	entries, err := repo.List(context.Background(), audit.Filter{})
	require.NoError(t, err)
	require.Len(t, entries.Logs, 1)
	assert.Equal(t, "usr-test", entries.Logs[0].UserID)
	assert.Contains(t, rec.Body.String(), `"user_id":"usr-test"`)
}

func TestRequestID(t *testing.T) {
	fb := newFakeBridge(t, http.StatusOK, "")
	srv, _ := testServer(t, fb.URL, serverOpts{})

	rec := do(t, srv, http.MethodGet, "/api/v1/health", http.Header{"X-Request-Id": {"req-42"}})
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))

	rec = do(t, srv, http.MethodGet, "/api/v1/health", nil)
	assert.Len(t, rec.Header().Get("X-Request-ID"), 2*requestIDBytes)
}

func TestCORS(t *testing.T) {
	fb := newFakeBridge(t, http.StatusOK, "")
	srv, _ := testServer(t, fb.URL, serverOpts{})
	srv.cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://panel.local"}}

	rec := do(t, srv, http.MethodOptions, "/api/v1/state", http.Header{"Origin": {"http://panel.local"}})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://panel.local", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Accept-Language")
	assert.Zero(t, fb.stateCalls.Load())

	rec = do(t, srv, http.MethodGet, "/api/v1/health", http.Header{"Origin": {"http://evil.example"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoveryMiddleware(t *testing.T) {
	fb := newFakeBridge(t, http.StatusOK, "")
	srv, _ := testServer(t, fb.URL, serverOpts{})

	h := srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, ErrCodeInternal, decode[Error](t, rec).Code)
}

func TestNotFoundAndMethod(t *testing.T) {
	fb := newFakeBridge(t, http.StatusOK, "")
	srv, _ := testServer(t, fb.URL, serverOpts{})

	rec := do(t, srv, http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodDelete, "/api/v1/state", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
