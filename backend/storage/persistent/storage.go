package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jghoshh/trailhead/models"
)

// ErrStoreUnavailable wraps transport or backend failures on reads and
// writes, so callers can treat every store outage uniformly.
var ErrStoreUnavailable = errors.New("store unavailable")

// StorageInterface defines the set of methods that any persistent storage
// backend needs to implement.
type StorageInterface interface {
	// Establishes a connection to the storage backend.
	Connect(dbName, uri string) error
	// Disconnects from the storage backend.
	Disconnect() error
	// Adds a new user to the storage backend.
	AddUser(ctx context.Context, user *models.User) (*models.User, error)
	// Finds a user in the storage backend using a filter.
	FindUser(ctx context.Context, filter interface{}) (*models.User, error)
	// Returns the count of users in the storage backend using a filter.
	UserCount(ctx context.Context, filter interface{}) (int64, error)
	// Stores a refresh token for a user, replacing any previous one.
	AddRefreshToken(ctx context.Context, token *models.RefreshToken) error
	// Finds a refresh token in the storage backend using a filter.
	FindRefreshToken(ctx context.Context, filter interface{}) (*models.RefreshToken, error)
	// Deletes refresh tokens matching the filter.
	DeleteRefreshToken(ctx context.Context, filter interface{}) error
	// Point read of a user's progress record; (nil, nil) when absent.
	GetProgress(ctx context.Context, userID string) (*models.UserProgress, error)
	// Merge-writes the given fields of a user's progress record, upserting
	// when absent and stamping server timestamps on the analytics block.
	MergeProgress(ctx context.Context, userID string, record *models.UserProgress) error
	// Subscribes to full-document snapshots of a user's progress record.
	// The returned function stops the subscription.
	WatchProgress(ctx context.Context, userID string, onChange func(*models.UserProgress)) (func(), error)
	// Appends an event to the analytics log.
	AppendEvent(ctx context.Context, event *models.AnalyticsEvent) error
}

// NewStorage creates a new StorageInterface with a MongoDB backend,
// using the provided URI to connect to the MongoDB server.
func NewStorage(dbName, uri string) (StorageInterface, error) {
	storage := NewMongoStorage()
	err := storage.Connect(dbName, uri)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return storage, nil
}
