// Package progress implements the progress merge engine and the per-session
// sync controller. The merge engine is a set of pure transforms over the
// phase tree: overlaying a stored record onto the template, recomputing
// aggregate counts, and toggling single items. None of them mutate their
// inputs; every transform returns a new tree.
package progress

import (
	"math"
	"time"

	"github.com/jghoshh/trailhead/models"
	"github.com/jghoshh/trailhead/roadmap"
)

// Aggregates holds the derived counts of a phase tree.
type Aggregates struct {
	TotalTasks         int `json:"totalTasks"`
	CompletedTasks     int `json:"completedTasks"`
	TotalSubtasks      int `json:"totalSubtasks"`
	CompletedSubtasks  int `json:"completedSubtasks"`
	ProgressPercentage int `json:"progressPercentage"`
}

// Merge overlays a stored progress record onto the template and returns the
// resulting view model. For every task and subtask the rule is the same:
// if the record has an entry for the id, its completed flag and timestamp
// win; otherwise the template default stays. Stored ids with no matching
// template id are dropped, which keeps old records forward compatible with
// template changes. A nil record yields the template unchanged.
func Merge(template []models.Phase, record *models.UserProgress) []models.Phase {
	phases := roadmap.Clone(template)
	if record == nil {
		return phases
	}
	for i := range phases {
		saved, ok := record.Phases[phases[i].ID]
		if !ok {
			continue
		}
		for j := range phases[i].Tasks {
			task := &phases[i].Tasks[j]
			savedTask, ok := saved.Tasks[task.ID]
			if !ok {
				continue
			}
			task.Completed = savedTask.Completed
			task.CompletedAt = copyTime(savedTask.CompletedAt)
			for k := range task.Subtasks {
				sub := &task.Subtasks[k]
				savedSub, ok := savedTask.Subtasks[sub.ID]
				if !ok {
					continue
				}
				sub.Completed = savedSub.Completed
				sub.CompletedAt = copyTime(savedSub.CompletedAt)
			}
		}
	}
	return phases
}

// ComputeAggregates counts tasks and subtasks by traversal. The percentage
// is completed tasks over total tasks, rounded; a template with zero tasks
// yields zero rather than a division error.
func ComputeAggregates(phases []models.Phase) Aggregates {
	var a Aggregates
	for _, phase := range phases {
		for _, task := range phase.Tasks {
			a.TotalTasks++
			if task.Completed {
				a.CompletedTasks++
			}
			for _, sub := range task.Subtasks {
				a.TotalSubtasks++
				if sub.Completed {
					a.CompletedSubtasks++
				}
			}
		}
	}
	if a.TotalTasks > 0 {
		a.ProgressPercentage = int(math.Round(float64(a.CompletedTasks) / float64(a.TotalTasks) * 100))
	}
	return a
}

// ToggleTask flips the completed flag of one task and returns a new tree.
// The false to true edge stamps CompletedAt with now; the reverse edge
// clears it. Subtasks are never cascaded.
func ToggleTask(phases []models.Phase, phaseID, taskID string, now time.Time) []models.Phase {
	out := roadmap.Clone(phases)
	for i := range out {
		if out[i].ID != phaseID {
			continue
		}
		for j := range out[i].Tasks {
			task := &out[i].Tasks[j]
			if task.ID != taskID {
				continue
			}
			if task.Completed {
				task.Completed = false
				task.CompletedAt = nil
			} else {
				task.Completed = true
				ts := now
				task.CompletedAt = &ts
			}
		}
	}
	return out
}

// ToggleSubtask is ToggleTask scoped to one subtask. Completing every
// subtask does not complete the parent task; that is deliberate, so the
// user is never surprised by a task checking itself.
func ToggleSubtask(phases []models.Phase, phaseID, taskID, subtaskID string, now time.Time) []models.Phase {
	out := roadmap.Clone(phases)
	for i := range out {
		if out[i].ID != phaseID {
			continue
		}
		for j := range out[i].Tasks {
			task := &out[i].Tasks[j]
			if task.ID != taskID {
				continue
			}
			for k := range task.Subtasks {
				sub := &task.Subtasks[k]
				if sub.ID != subtaskID {
					continue
				}
				if sub.Completed {
					sub.Completed = false
					sub.CompletedAt = nil
				} else {
					sub.Completed = true
					ts := now
					sub.CompletedAt = &ts
				}
			}
		}
	}
	return out
}

// BuildRecord converts a view model into the persisted map shape used for
// merge-writes.
func BuildRecord(phases []models.Phase) map[string]models.PhaseProgress {
	record := make(map[string]models.PhaseProgress, len(phases))
	for _, phase := range phases {
		tasks := make(map[string]models.TaskProgress, len(phase.Tasks))
		for _, task := range phase.Tasks {
			entry := models.TaskProgress{
				Completed:   task.Completed,
				CompletedAt: copyTime(task.CompletedAt),
			}
			if len(task.Subtasks) > 0 {
				entry.Subtasks = make(map[string]models.SubtaskProgress, len(task.Subtasks))
				for _, sub := range task.Subtasks {
					entry.Subtasks[sub.ID] = models.SubtaskProgress{
						Completed:   sub.Completed,
						CompletedAt: copyTime(sub.CompletedAt),
					}
				}
			}
			tasks[task.ID] = entry
		}
		record[phase.ID] = models.PhaseProgress{Tasks: tasks}
	}
	return record
}

// FindTask returns the task matching the ids, or nil.
func FindTask(phases []models.Phase, phaseID, taskID string) *models.Task {
	for i := range phases {
		if phases[i].ID != phaseID {
			continue
		}
		for j := range phases[i].Tasks {
			if phases[i].Tasks[j].ID == taskID {
				return &phases[i].Tasks[j]
			}
		}
	}
	return nil
}

// FindSubtask returns the subtask matching the ids, or nil.
func FindSubtask(phases []models.Phase, phaseID, taskID, subtaskID string) *models.Subtask {
	task := FindTask(phases, phaseID, taskID)
	if task == nil {
		return nil
	}
	for i := range task.Subtasks {
		if task.Subtasks[i].ID == subtaskID {
			return &task.Subtasks[i]
		}
	}
	return nil
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	ts := *t
	return &ts
}
