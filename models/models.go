package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Subtask is a checklist item nested under a Task. In the static roadmap
// template Completed is always false; completion state is overlaid from the
// user's stored progress record at read time.
type Subtask struct {
	ID          string     `bson:"id" json:"id"`
	Title       string     `bson:"title" json:"title"`
	Completed   bool       `bson:"completed" json:"completed"`
	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completedAt,omitempty"`
}

// Task is a checklist item within a Phase. A nil CompletedAt means the task
// has no completion timestamp; there is no distinct "null" representation.
type Task struct {
	ID          string     `bson:"id" json:"id"`
	Title       string     `bson:"title" json:"title"`
	Description string     `bson:"description,omitempty" json:"description,omitempty"`
	Completed   bool       `bson:"completed" json:"completed"`
	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completedAt,omitempty"`
	Subtasks    []Subtask  `bson:"subtasks,omitempty" json:"subtasks,omitempty"`
}

// Phase is a top-level roadmap section. The template shape is immutable;
// only the nested completion flags differ between users.
type Phase struct {
	ID          string `bson:"id" json:"id"`
	Title       string `bson:"title" json:"title"`
	Period      string `bson:"period" json:"period"`
	Description string `bson:"description" json:"description"`
	Color       string `bson:"color" json:"color"`
	Icon        string `bson:"icon" json:"icon"`
	Tasks       []Task `bson:"tasks" json:"tasks"`
}

// SubtaskProgress is the persisted completion state of a single subtask,
// keyed by subtask id inside TaskProgress.
type SubtaskProgress struct {
	Completed   bool       `bson:"completed" json:"completed"`
	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completedAt,omitempty"`
}

// TaskProgress is the persisted completion state of a single task.
type TaskProgress struct {
	Completed   bool                       `bson:"completed" json:"completed"`
	CompletedAt *time.Time                 `bson:"completed_at,omitempty" json:"completedAt,omitempty"`
	Subtasks    map[string]SubtaskProgress `bson:"subtasks,omitempty" json:"subtasks,omitempty"`
}

// PhaseProgress groups the stored task states of one phase.
type PhaseProgress struct {
	Tasks map[string]TaskProgress `bson:"tasks" json:"tasks"`
}

// ProgressAnalytics is the derived aggregate block of a progress record.
// The counts always reflect the completion flags at the moment of the last
// successful write; they are never edited independently.
type ProgressAnalytics struct {
	TotalTasks         int       `bson:"total_tasks" json:"totalTasks"`
	CompletedTasks     int       `bson:"completed_tasks" json:"completedTasks"`
	TotalSubtasks      int       `bson:"total_subtasks" json:"totalSubtasks"`
	CompletedSubtasks  int       `bson:"completed_subtasks" json:"completedSubtasks"`
	ProgressPercentage int       `bson:"progress_percentage" json:"progressPercentage"`
	LastActive         time.Time `bson:"last_active" json:"lastActive"`
	CreatedAt          time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt          time.Time `bson:"updated_at" json:"updatedAt"`
}

// DeviceInfo is a static snapshot of the environment a session runs in.
type DeviceInfo struct {
	UserAgent        string `bson:"user_agent" json:"userAgent"`
	Platform         string `bson:"platform" json:"platform"`
	ScreenResolution string `bson:"screen_resolution" json:"screenResolution"`
	Timezone         string `bson:"timezone" json:"timezone"`
	Language         string `bson:"language" json:"language"`
}

// Location is a coarse geolocation resolved from the session's IP address.
// Latitude and longitude keep the raw halves of the lookup service's
// "lat,lon" pair.
type Location struct {
	Country   string `bson:"country,omitempty" json:"country,omitempty"`
	Region    string `bson:"region,omitempty" json:"region,omitempty"`
	City      string `bson:"city,omitempty" json:"city,omitempty"`
	Latitude  string `bson:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude string `bson:"longitude,omitempty" json:"longitude,omitempty"`
}

// UserProgress is the single mutable persisted entity: one document per user
// in the userProgress collection, keyed by the user's id.
type UserProgress struct {
	UserID     string                   `bson:"_id" json:"userId"`
	Email      string                   `bson:"email" json:"email"`
	Phases     map[string]PhaseProgress `bson:"phases" json:"phases"`
	Analytics  ProgressAnalytics        `bson:"analytics" json:"analytics"`
	DeviceInfo DeviceInfo               `bson:"device_info" json:"deviceInfo"`
	Location   *Location                `bson:"location,omitempty" json:"location,omitempty"`
}

// EventType enumerates the kinds of analytics events the system emits.
type EventType string

const (
	EventTaskCompleted    EventType = "task_completed"
	EventSubtaskCompleted EventType = "subtask_completed"
	EventPhaseStarted     EventType = "phase_started"
	EventLogin            EventType = "login"
	EventRegister         EventType = "register"
)

// AnalyticsEvent is an append-only entry in the analytics collection.
// Events are never read back by this system.
type AnalyticsEvent struct {
	ID         string                 `bson:"event_id" json:"id"`
	UserID     string                 `bson:"user_id" json:"userId"`
	EventType  EventType              `bson:"event_type" json:"eventType"`
	EventData  map[string]interface{} `bson:"event_data,omitempty" json:"eventData,omitempty"`
	Timestamp  time.Time              `bson:"timestamp" json:"timestamp"`
	DeviceInfo DeviceInfo             `bson:"device_info" json:"deviceInfo"`
	Location   *Location              `bson:"location,omitempty" json:"location,omitempty"`
}

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	PasswordHash string             `bson:"password_hash" json:"password_hash"`
	Email        string             `bson:"email" json:"email"`
}

type RefreshToken struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID primitive.ObjectID `bson:"user_id" json:"user_id"`
	Token  string             `bson:"token" json:"token"`
	Expiry time.Time          `bson:"expiry" json:"expiry"`
}
