package audit

import (
	"context"

	"github.com/nerrad567/nuki-control/internal/bridges/nuki"
)

// Audit vocabulary for lock commands.
const (
	ActionCommand  = "command"
	EntityTypeLock = "lock"
)

type userKey struct{}

// WithUser attaches the authenticated subject to ctx so recorded entries
// carry it.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserFromContext returns the subject set by WithUser, or "".
func UserFromContext(ctx context.Context) string {
	u, _ := ctx.Value(userKey{}).(string) //nolint:errcheck // type assertion, not an error
	return u
}

// Recorder writes nuki dispatch attempts to a Repository. It satisfies
// nuki.AuditRecorder.
type Recorder struct {
	repo Repository
}

// NewRecorder creates a Recorder on repo.
func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo}
}

// RecordAction stores rec. Details never include the bridge token.
func (r *Recorder) RecordAction(ctx context.Context, rec nuki.ActionRecord) error {
	outcome := "success"
	if !rec.Success {
		outcome = "failure"
	}

	details := map[string]any{
		"command": rec.Command,
		"outcome": outcome,
	}
	if rec.Action.Valid() {
		details["action_code"] = int(rec.Action)
	}
	if rec.ErrorKind != "" {
		details["error_kind"] = string(rec.ErrorKind)
	}
	if rec.Status != 0 {
		details["status"] = rec.Status
	}

	return r.repo.Create(ctx, &Entry{
		Action:     ActionCommand,
		EntityType: EntityTypeLock,
		EntityID:   rec.DeviceID,
		UserID:     UserFromContext(ctx),
		Source:     rec.Source,
		Details:    details,
		CreatedAt:  rec.At,
	})
}
