package state

import (
	"context"
	"log/slog"

	"github.com/af-corp/aireader-gateway/internal/types"
)

// RouteState is the per-credential, per-kind cursor table: the model index
// a credential resumes from on its next request.
type RouteState struct {
	store  Store
	logger *slog.Logger
}

func NewRouteState(store Store, logger *slog.Logger) *RouteState {
	return &RouteState{store: store, logger: logger}
}

// CursorFor returns the stored cursor, or 0 if unset. Read failures are
// logged and treated as 0. The value may be past the end of the current
// model stack; callers reset it before use.
func (r *RouteState) CursorFor(ctx context.Context, kind types.Kind, key string) int {
	idx, err := r.store.Cursor(ctx, kind, key)
	if err != nil {
		r.logger.Warn("failed to read model cursor", "kind", kind, "credential", key, "error", err)
		return 0
	}
	if idx < 0 {
		return 0
	}
	return idx
}

// Advance overwrites the cursor unconditionally.
func (r *RouteState) Advance(ctx context.Context, kind types.Kind, key string, index int) error {
	return r.store.SetCursor(ctx, kind, key, index)
}

func (r *RouteState) Reset(ctx context.Context, kind types.Kind, key string) error {
	return r.store.SetCursor(ctx, kind, key, 0)
}
