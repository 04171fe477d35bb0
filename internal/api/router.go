package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/nuki-control/internal/auth"
	"github.com/nerrad567/nuki-control/internal/panel"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	// Browser control page
	r.Handle("/panel/*", http.StripPrefix("/panel", panel.Handler(s.cfg.PanelDir)))
	r.Handle("/panel", http.RedirectHandler("/panel/", http.StatusMovedPermanently))
	r.Handle("/", http.RedirectHandler("/panel/", http.StatusFound))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.With(s.require(auth.PermStateRead)).Get("/state", s.handleGetState)
			r.With(s.require(auth.PermStateRead)).Get("/actions", s.handleListActions)
			r.With(s.require(auth.PermLockOperate)).Post("/actions/{command}", s.handleAction)
			r.With(s.require(auth.PermAuditRead)).Get("/audit", s.handleListAuditLogs)
		})
	})

	// Routes used by the original web client.
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.With(s.require(auth.PermStateRead)).Get("/api/state", s.handleGetState)
		r.With(s.require(auth.PermLockOperate)).Post("/action/{command}", s.handleAction)
	})

	return r
}

// handleHealth returns the server health status. It never calls the bridge.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"lock":    s.service.Stats(),
	})
}
