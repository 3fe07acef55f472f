package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jghoshh/trailhead/models"
)

// fakeStore is an in-memory Store for controller tests.
type fakeStore struct {
	records    map[string]*models.UserProgress
	getErr     error
	mergeErr   error
	watchErr   error
	merges     int
	onChange   func(*models.UserProgress)
	unsubbed   bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*models.UserProgress)}
}

func (f *fakeStore) GetProgress(_ context.Context, userID string) (*models.UserProgress, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.records[userID], nil
}

func (f *fakeStore) MergeProgress(_ context.Context, userID string, record *models.UserProgress) error {
	if f.mergeErr != nil {
		return f.mergeErr
	}
	f.merges++
	f.records[userID] = record
	return nil
}

func (f *fakeStore) WatchProgress(_ context.Context, _ string, onChange func(*models.UserProgress)) (func(), error) {
	if f.watchErr != nil {
		return nil, f.watchErr
	}
	f.onChange = onChange
	return func() { f.unsubbed = true }, nil
}

// fakeEmitter records tracked events.
type fakeEmitter struct {
	events []models.EventType
}

func (f *fakeEmitter) Track(_ string, eventType models.EventType, _ map[string]interface{}) {
	f.events = append(f.events, eventType)
}

func (f *fakeEmitter) Device() models.DeviceInfo {
	return models.DeviceInfo{Platform: "test"}
}

func newTestController(store Store) (*Controller, *fakeEmitter) {
	emitter := &fakeEmitter{}
	c := NewController(store, emitter, testTemplate())
	return c, emitter
}

func TestSignInFirstTimeSynthesizesBaseline(t *testing.T) {
	store := newFakeStore()
	c, _ := newTestController(store)

	err := c.SignIn(context.Background(), "u1", "u1@example.com")
	assert.NoError(t, err)
	assert.Equal(t, StateReady, c.State())

	// The baseline write happened and carries zeroed completion counts.
	baseline := store.records["u1"]
	assert.NotNil(t, baseline)
	assert.Equal(t, "u1", baseline.UserID)
	assert.Equal(t, "u1@example.com", baseline.Email)
	assert.Equal(t, 2, baseline.Analytics.TotalTasks)
	assert.Equal(t, 0, baseline.Analytics.CompletedTasks)
	assert.Equal(t, 0, baseline.Analytics.ProgressPercentage)

	// First-time view model equals the raw template.
	assert.Equal(t, testTemplate(), c.Phases())
}

func TestSignInMergesStoredRecord(t *testing.T) {
	store := newFakeStore()
	store.records["u1"] = &models.UserProgress{
		UserID: "u1",
		Phases: map[string]models.PhaseProgress{
			"phase-1": {Tasks: map[string]models.TaskProgress{"task-a": {Completed: true}}},
		},
	}
	c, _ := newTestController(store)

	assert.NoError(t, c.SignIn(context.Background(), "u1", "u1@example.com"))
	assert.True(t, FindTask(c.Phases(), "phase-1", "task-a").Completed)
	assert.Equal(t, 0, store.merges, "existing record must not be rewritten on load")
}

func TestSignInLoadFailureFallsBackToTemplate(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("store unavailable")
	c, _ := newTestController(store)

	err := c.SignIn(context.Background(), "u1", "u1@example.com")
	assert.Error(t, err)
	assert.Equal(t, StateError, c.State())
	assert.NotEmpty(t, c.ErrorMessage())
	assert.Equal(t, testTemplate(), c.Phases())
}

func TestToggleTaskPersistsAndEmits(t *testing.T) {
	store := newFakeStore()
	c, emitter := newTestController(store)
	assert.NoError(t, c.SignIn(context.Background(), "u1", "u1@example.com"))

	assert.NoError(t, c.ToggleTask(context.Background(), "phase-1", "task-b"))
	assert.Equal(t, StateReady, c.State())
	assert.True(t, FindTask(c.Phases(), "phase-1", "task-b").Completed)

	saved := store.records["u1"]
	assert.True(t, saved.Phases["phase-1"].Tasks["task-b"].Completed)
	assert.Equal(t, 1, saved.Analytics.CompletedTasks)
	assert.Equal(t, 50, saved.Analytics.ProgressPercentage)
	assert.Equal(t, []models.EventType{models.EventTaskCompleted}, emitter.events)
}

func TestToggleSaveFailureKeepsOptimisticState(t *testing.T) {
	store := newFakeStore()
	c, _ := newTestController(store)
	assert.NoError(t, c.SignIn(context.Background(), "u1", "u1@example.com"))

	store.mergeErr = errors.New("store unavailable")
	err := c.ToggleTask(context.Background(), "phase-1", "task-a")
	assert.Error(t, err)
	assert.Equal(t, StateError, c.State())
	assert.NotEmpty(t, c.ErrorMessage())
	// No rollback: the toggle the user made stays visible.
	assert.True(t, FindTask(c.Phases(), "phase-1", "task-a").Completed)

	// The next successful toggle clears the error state.
	store.mergeErr = nil
	assert.NoError(t, c.ToggleTask(context.Background(), "phase-1", "task-b"))
	assert.Equal(t, StateReady, c.State())
	assert.Empty(t, c.ErrorMessage())
}

func TestToggleWhileUnauthenticatedIsLocalNoOp(t *testing.T) {
	store := newFakeStore()
	c, emitter := newTestController(store)

	assert.NoError(t, c.ToggleTask(context.Background(), "phase-1", "task-a"))
	assert.True(t, FindTask(c.Phases(), "phase-1", "task-a").Completed)
	assert.Equal(t, 0, store.merges)
	assert.Empty(t, emitter.events)
}

func TestToggleUnknownIDs(t *testing.T) {
	store := newFakeStore()
	c, _ := newTestController(store)
	assert.Error(t, c.ToggleTask(context.Background(), "phase-1", "nope"))
	assert.Error(t, c.ToggleSubtask(context.Background(), "phase-1", "task-a", "nope"))
}

func TestSnapshotWithinGraceWindowReplaces(t *testing.T) {
	store := newFakeStore()
	c, _ := newTestController(store)
	assert.NoError(t, c.SignIn(context.Background(), "u1", "u1@example.com"))

	fresh := &models.UserProgress{
		UserID: "u1",
		Phases: map[string]models.PhaseProgress{
			"phase-1": {Tasks: map[string]models.TaskProgress{"task-a": {Completed: true}}},
		},
		Analytics: models.ProgressAnalytics{UpdatedAt: time.Now()},
	}
	store.onChange(fresh)

	assert.True(t, FindTask(c.Phases(), "phase-1", "task-a").Completed)
}

func TestStaleSnapshotIgnored(t *testing.T) {
	store := newFakeStore()
	c, _ := newTestController(store)
	assert.NoError(t, c.SignIn(context.Background(), "u1", "u1@example.com"))

	stale := &models.UserProgress{
		UserID: "u1",
		Phases: map[string]models.PhaseProgress{
			"phase-1": {Tasks: map[string]models.TaskProgress{"task-a": {Completed: true}}},
		},
		Analytics: models.ProgressAnalytics{UpdatedAt: time.Now().Add(-DefaultGraceWindow - time.Second)},
	}
	store.onChange(stale)

	assert.False(t, FindTask(c.Phases(), "phase-1", "task-a").Completed)
}

func TestSnapshotForOtherUserIgnored(t *testing.T) {
	store := newFakeStore()
	c, _ := newTestController(store)
	assert.NoError(t, c.SignIn(context.Background(), "u1", "u1@example.com"))

	store.onChange(&models.UserProgress{
		UserID: "u2",
		Phases: map[string]models.PhaseProgress{
			"phase-1": {Tasks: map[string]models.TaskProgress{"task-a": {Completed: true}}},
		},
		Analytics: models.ProgressAnalytics{UpdatedAt: time.Now()},
	})

	assert.False(t, FindTask(c.Phases(), "phase-1", "task-a").Completed)
}

func TestSignOutResetsToTemplate(t *testing.T) {
	store := newFakeStore()
	c, _ := newTestController(store)
	assert.NoError(t, c.SignIn(context.Background(), "u1", "u1@example.com"))
	assert.NoError(t, c.ToggleTask(context.Background(), "phase-1", "task-a"))

	c.SignOut()
	assert.Equal(t, StateUnauthenticated, c.State())
	assert.Equal(t, testTemplate(), c.Phases())
	assert.True(t, store.unsubbed)
	assert.Empty(t, c.UserID())
}
