package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/nuki-control/internal/bridges/nuki"
	"github.com/nerrad567/nuki-control/internal/locale"
)

// stateResponse is the body of GET /api/v1/state.
type stateResponse struct {
	DeviceID        string               `json:"device_id"`
	State           nuki.NormalizedState `json:"state"`
	Summary         string               `json:"summary"`
	BatterySeverity nuki.Severity        `json:"battery_severity"`
	// Battery is the chip text: percent when known, else the critical/ok label.
	Battery    string           `json:"battery,omitempty"`
	BatteryRaw json.RawMessage  `json:"battery_raw,omitempty"`
	Trigger    json.RawMessage  `json:"trigger,omitempty"`
	Raw        nuki.RawResponse `json:"raw"`
}

// actionResponse is the body of POST /api/v1/actions/{command}.
type actionResponse struct {
	Command         string          `json:"command"`
	Action          nuki.ActionCode `json:"action"`
	Success         bool            `json:"success"`
	BatteryCritical bool            `json:"battery_critical"`
	Message         string          `json:"message"`
}

// commandInfo describes one exposed command.
type commandInfo struct {
	Name   string          `json:"name"`
	Action nuki.ActionCode `json:"action"`
	Label  string          `json:"label"`
}

// language picks the string table for r.
func (s *Server) language(r *http.Request) *locale.Table {
	return s.negotiator.Negotiate(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"))
}

// handleGetState queries the bridge once and returns the normalised view.
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	tbl := s.language(r)

	report, err := s.service.ReadState(r.Context())
	if err != nil {
		writeBridgeError(w, tbl, err)
		return
	}

	writeJSON(w, http.StatusOK, stateResponse{
		DeviceID:        report.DeviceID,
		State:           report.State,
		Summary:         nuki.BuildSummary(report.State, tbl.Summary, s.location),
		BatterySeverity: report.Severity,
		Battery:         batteryChip(report.State, tbl),
		BatteryRaw:      report.BatteryRaw,
		Trigger:         report.Trigger,
		Raw:             report.Raw,
	})
}

// handleAction dispatches one command. Unknown names are rejected before
// the bridge is contacted.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	tbl := s.language(r)
	name := chi.URLParam(r, "command")

	outcome, err := s.service.Dispatch(r.Context(), name, nuki.SourceAPI)
	if err != nil {
		writeBridgeError(w, tbl, err)
		return
	}

	writeJSON(w, http.StatusOK, actionResponse{
		Command:         outcome.Command,
		Action:          outcome.Action,
		Success:         outcome.Success,
		BatteryCritical: outcome.BatteryCritical,
		Message:         tbl.OutcomeMessage(outcome),
	})
}

// handleListActions lists the exposed commands with localised labels.
func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	tbl := s.language(r)

	commands := make([]commandInfo, 0, len(nuki.Commands))
	for _, c := range nuki.Commands {
		commands = append(commands, commandInfo{
			Name:   c.Name,
			Action: c.Action,
			Label:  tbl.CommandLabel(c.Name),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"commands": commands})
}

func batteryChip(state nuki.NormalizedState, tbl *locale.Table) string {
	switch {
	case state.BatteryPercent != nil:
		return nuki.FormatPercent(*state.BatteryPercent) + "%"
	case state.BatteryCritical != nil:
		return tbl.BatteryFlagLabel(*state.BatteryCritical)
	default:
		return ""
	}
}
