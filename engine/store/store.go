// Package store provides persistence for engine session history: periodic
// snapshots of SessionState keyed by run id, and a transactional outbox for
// the diagnostic events produced by engine/emit.
//
// Specialized from the teacher's generic Store[S] (graph/store/store.go) to
// a single concrete state type, since the flow engine has no deterministic
// replay requirement: a session resumes from its latest snapshot, not from a
// frontier of pending work items, so the teacher's CheckpointV2/idempotency
// machinery (built for graph-execution replay) has no component to bind to
// here and is dropped rather than carried unused. See DESIGN.md.
package store

import (
	"context"
	"errors"

	"github.com/flowcore/flowengine/engine/emit"
)

// ErrNotFound is returned when a requested run id has no saved state.
var ErrNotFound = errors.New("not found")

// RunRecord is one persisted snapshot of a run's session state.
type RunRecord struct {
	RunID string
	Step  int
	State interface{} // engine.SessionState, kept as interface{} to avoid an import cycle
}

// Store persists SessionState snapshots and the engine's diagnostic event
// outbox.
type Store interface {
	// SaveStep persists state as the current snapshot for runID at step.
	SaveStep(ctx context.Context, runID string, step int, state interface{}) error

	// LoadLatest retrieves the most recently saved snapshot for runID.
	LoadLatest(ctx context.Context, runID string) (state interface{}, step int, err error)

	// PendingEvents retrieves up to limit not-yet-emitted events, oldest first.
	PendingEvents(ctx context.Context, limit int) ([]emit.Event, error)

	// MarkEventsEmitted removes eventIDs from the pending outbox.
	MarkEventsEmitted(ctx context.Context, eventIDs []string) error

	// EnqueueEvent appends ev to the outbox under eventID.
	EnqueueEvent(ctx context.Context, eventID string, ev emit.Event) error

	Close() error
}
