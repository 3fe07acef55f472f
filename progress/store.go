package progress

import (
	"context"

	"github.com/jghoshh/trailhead/models"
)

// Store is the narrow contract the sync controller needs from the hosted
// document store. The MongoDB backend implements it; tests use an in-memory
// fake.
//
// GetProgress is a point read: a missing record is (nil, nil), not an error.
// MergeProgress upserts the given top-level fields of the user's document
// without clobbering untouched ones, and substitutes server timestamps for
// the analytics last_active/updated_at fields. WatchProgress delivers every
// subsequent full-document snapshot, at least once, including echoes of the
// caller's own writes; filtering is the controller's job. The returned
// function stops the subscription.
type Store interface {
	GetProgress(ctx context.Context, userID string) (*models.UserProgress, error)
	MergeProgress(ctx context.Context, userID string, record *models.UserProgress) error
	WatchProgress(ctx context.Context, userID string, onChange func(*models.UserProgress)) (func(), error)
}

// Emitter is the fire-and-forget analytics side channel. Track must never
// block and its outcome is never observed by the caller.
type Emitter interface {
	Track(userID string, eventType models.EventType, data map[string]interface{})
	Device() models.DeviceInfo
}
