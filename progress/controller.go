package progress

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jghoshh/trailhead/models"
	"github.com/jghoshh/trailhead/roadmap"
)

// DefaultGraceWindow is the recency threshold for incoming snapshots. A
// snapshot whose updated_at is older than now minus this window is treated
// as an echo of this session's own recent write, or as stale, and ignored.
const DefaultGraceWindow = 5 * time.Second

// State is the sync controller's session state.
type State int

const (
	StateUnauthenticated State = iota
	StateLoading
	StateReady
	StateSaving
	StateError
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateSaving:
		return "saving"
	case StateError:
		return "error"
	}
	return "unknown"
}

const (
	loadErrMsg = "Failed to load your progress. Your roadmap is shown without saved state."
	saveErrMsg = "Failed to save your progress. Please try again."
)

// Controller orchestrates a single authenticated session: load on sign-in,
// optimistic toggle with a merge-write behind it, and a background change
// subscription that pulls in fresher records written by other sessions.
// Convergence is last-write-wins by timestamp; there is no field-level
// conflict resolution between two devices writing at nearly the same time.
type Controller struct {
	mu      sync.Mutex
	store   Store
	emitter Emitter

	graceWindow time.Duration
	now         func() time.Time

	template []models.Phase
	phases   []models.Phase

	userID      string
	email       string
	state       State
	errMsg      string
	unsubscribe func()
}

// NewController returns a controller in the unauthenticated state, showing
// the bare template.
func NewController(store Store, emitter Emitter, template []models.Phase) *Controller {
	return &Controller{
		store:       store,
		emitter:     emitter,
		graceWindow: DefaultGraceWindow,
		now:         time.Now,
		template:    roadmap.Clone(template),
		phases:      roadmap.Clone(template),
		state:       StateUnauthenticated,
	}
}

// SignIn loads the user's stored record, synthesizing and writing a baseline
// record for a first-time user, and starts the change subscription. A load
// failure is not fatal: the controller enters the error state with the
// template-only view model and the session stays usable.
func (c *Controller) SignIn(ctx context.Context, userID, email string) error {
	c.mu.Lock()
	c.userID = userID
	c.email = email
	c.state = StateLoading
	c.errMsg = ""
	c.mu.Unlock()

	record, err := c.store.GetProgress(ctx, userID)
	if err != nil {
		c.mu.Lock()
		c.phases = roadmap.Clone(c.template)
		c.state = StateError
		c.errMsg = loadErrMsg
		c.mu.Unlock()
		return fmt.Errorf("loading progress for %s: %w", userID, err)
	}

	if record == nil {
		// First authenticated load: establish the baseline document so
		// other sessions have something to subscribe against.
		baseline := c.buildRecord(roadmap.Clone(c.template))
		if err := c.store.MergeProgress(ctx, userID, baseline); err != nil {
			log.Printf("initializing progress record for %s: %v", userID, err)
		}
	}

	c.mu.Lock()
	c.phases = Merge(c.template, record)
	c.state = StateReady
	c.mu.Unlock()

	unsubscribe, err := c.store.WatchProgress(ctx, userID, c.applySnapshot)
	if err != nil {
		log.Printf("subscribing to progress changes for %s: %v", userID, err)
	} else {
		c.mu.Lock()
		c.unsubscribe = unsubscribe
		c.mu.Unlock()
	}
	return nil
}

// SignOut stops the subscription, discards the record and resets the view
// model to the bare template.
func (c *Controller) SignOut() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.userID = ""
	c.email = ""
	c.phases = roadmap.Clone(c.template)
	c.state = StateUnauthenticated
	c.errMsg = ""
	c.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// ToggleTask flips one task, renders the change immediately, and persists
// the updated record. The local state is never rolled back: a failed save
// surfaces an error message and the user's toggle stays in place.
func (c *Controller) ToggleTask(ctx context.Context, phaseID, taskID string) error {
	c.mu.Lock()
	task := FindTask(c.phases, phaseID, taskID)
	if task == nil {
		c.mu.Unlock()
		return fmt.Errorf("unknown task %s/%s", phaseID, taskID)
	}
	title, nowCompleted := task.Title, !task.Completed
	c.phases = ToggleTask(c.phases, phaseID, taskID, c.now())
	if c.userID == "" {
		c.mu.Unlock()
		return nil
	}
	c.state = StateSaving
	record := c.buildRecord(c.phases)
	userID := c.userID
	c.mu.Unlock()

	c.emitter.Track(userID, models.EventTaskCompleted, map[string]interface{}{
		"phaseId":   phaseID,
		"taskId":    taskID,
		"taskTitle": title,
		"completed": nowCompleted,
	})
	return c.save(ctx, userID, record)
}

// ToggleSubtask is ToggleTask scoped to one subtask. The parent task's flag
// is never touched.
func (c *Controller) ToggleSubtask(ctx context.Context, phaseID, taskID, subtaskID string) error {
	c.mu.Lock()
	sub := FindSubtask(c.phases, phaseID, taskID, subtaskID)
	if sub == nil {
		c.mu.Unlock()
		return fmt.Errorf("unknown subtask %s/%s/%s", phaseID, taskID, subtaskID)
	}
	title, nowCompleted := sub.Title, !sub.Completed
	c.phases = ToggleSubtask(c.phases, phaseID, taskID, subtaskID, c.now())
	if c.userID == "" {
		c.mu.Unlock()
		return nil
	}
	c.state = StateSaving
	record := c.buildRecord(c.phases)
	userID := c.userID
	c.mu.Unlock()

	c.emitter.Track(userID, models.EventSubtaskCompleted, map[string]interface{}{
		"phaseId":      phaseID,
		"taskId":       taskID,
		"subtaskId":    subtaskID,
		"subtaskTitle": title,
		"completed":    nowCompleted,
	})
	return c.save(ctx, userID, record)
}

func (c *Controller) save(ctx context.Context, userID string, record *models.UserProgress) error {
	err := c.store.MergeProgress(ctx, userID, record)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.userID != userID {
		// Signed out while the write was in flight.
		return err
	}
	if err != nil {
		c.state = StateError
		c.errMsg = saveErrMsg
		return fmt.Errorf("saving progress for %s: %w", userID, err)
	}
	c.state = StateReady
	c.errMsg = ""
	return nil
}

// applySnapshot is the change-subscription callback. Snapshots updated
// within the grace window replace the view model wholesale; anything older
// is dropped as an echo or stale data.
func (c *Controller) applySnapshot(record *models.UserProgress) {
	if record == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.userID == "" || record.UserID != c.userID {
		return
	}
	if !record.Analytics.UpdatedAt.After(c.now().Add(-c.graceWindow)) {
		return
	}
	c.phases = Merge(c.template, record)
}

func (c *Controller) buildRecord(phases []models.Phase) *models.UserProgress {
	agg := ComputeAggregates(phases)
	now := c.now().UTC()
	return &models.UserProgress{
		UserID: c.userID,
		Email:  c.email,
		Phases: BuildRecord(phases),
		Analytics: models.ProgressAnalytics{
			TotalTasks:         agg.TotalTasks,
			CompletedTasks:     agg.CompletedTasks,
			TotalSubtasks:      agg.TotalSubtasks,
			CompletedSubtasks:  agg.CompletedSubtasks,
			ProgressPercentage: agg.ProgressPercentage,
			LastActive:         now,
			CreatedAt:          now,
			UpdatedAt:          now,
		},
		DeviceInfo: c.emitter.Device(),
	}
}

// Phases returns a copy of the current view model.
func (c *Controller) Phases() []models.Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return roadmap.Clone(c.phases)
}

// Aggregates returns the derived counts of the current view model.
func (c *Controller) Aggregates() Aggregates {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ComputeAggregates(c.phases)
}

// State returns the session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ErrorMessage returns the user-visible message of the last load or save
// failure, or the empty string.
func (c *Controller) ErrorMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// UserID returns the signed-in user id, or the empty string.
func (c *Controller) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}
