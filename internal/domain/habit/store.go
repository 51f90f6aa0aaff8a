package habit

import (
	"context"

	"github.com/google/uuid"
)

// SnapshotStore persists one habit snapshot per user. The progression engine
// itself stays pure; load/save/clear are collaborators passed in from outside.
type SnapshotStore interface {
	// Load returns the user's habit snapshot, or a not-found domain error.
	Load(ctx context.Context, userID uuid.UUID) (*Habit, error)

	// Save persists the full snapshot, replacing any previous one.
	Save(ctx context.Context, userID uuid.UUID, h *Habit) error

	// Clear removes the snapshot. Clearing a missing snapshot is not an error.
	Clear(ctx context.Context, userID uuid.UUID) error
}
