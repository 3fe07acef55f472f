package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jghoshh/trailhead/models"
	"github.com/jghoshh/trailhead/roadmap"
)

// testTemplate returns 1 phase with 2 tasks; the first task has 2 subtasks.
func testTemplate() []models.Phase {
	return []models.Phase{
		{
			ID:     "phase-1",
			Title:  "Phase One",
			Period: "July 2025",
			Tasks: []models.Task{
				{
					ID:    "task-a",
					Title: "Task A",
					Subtasks: []models.Subtask{
						{ID: "sub-1", Title: "Subtask 1"},
						{ID: "sub-2", Title: "Subtask 2"},
					},
				},
				{ID: "task-b", Title: "Task B"},
			},
		},
	}
}

func TestMergeAbsentRecord(t *testing.T) {
	template := testTemplate()
	merged := Merge(template, nil)

	assert.Equal(t, template, merged)
	for _, phase := range merged {
		for _, task := range phase.Tasks {
			assert.False(t, task.Completed)
			assert.Nil(t, task.CompletedAt)
		}
	}
}

func TestMergeOverlaysStoredState(t *testing.T) {
	completedAt := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	record := &models.UserProgress{
		UserID: "u1",
		Phases: map[string]models.PhaseProgress{
			"phase-1": {
				Tasks: map[string]models.TaskProgress{
					"task-a": {Completed: true, CompletedAt: &completedAt},
				},
			},
		},
	}

	merged := Merge(testTemplate(), record)

	taskA := FindTask(merged, "phase-1", "task-a")
	taskB := FindTask(merged, "phase-1", "task-b")
	assert.True(t, taskA.Completed)
	assert.Equal(t, completedAt, *taskA.CompletedAt)
	assert.False(t, taskB.Completed)

	agg := ComputeAggregates(merged)
	assert.Equal(t, 2, agg.TotalTasks)
	assert.Equal(t, 1, agg.CompletedTasks)
	assert.Equal(t, 50, agg.ProgressPercentage)
}

func TestMergeDropsUnknownIDs(t *testing.T) {
	record := &models.UserProgress{
		Phases: map[string]models.PhaseProgress{
			"retired-phase": {Tasks: map[string]models.TaskProgress{"x": {Completed: true}}},
			"phase-1": {
				Tasks: map[string]models.TaskProgress{
					"retired-task": {Completed: true},
					"task-a": {
						Completed: true,
						Subtasks: map[string]models.SubtaskProgress{
							"retired-sub": {Completed: true},
							"sub-1":       {Completed: true},
						},
					},
				},
			},
		},
	}

	merged := Merge(testTemplate(), record)

	agg := ComputeAggregates(merged)
	assert.Equal(t, 2, agg.TotalTasks)
	assert.Equal(t, 1, agg.CompletedTasks)
	assert.Equal(t, 1, agg.CompletedSubtasks)
}

func TestMergeIdempotent(t *testing.T) {
	completedAt := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	record := &models.UserProgress{
		Phases: map[string]models.PhaseProgress{
			"phase-1": {
				Tasks: map[string]models.TaskProgress{
					"task-a": {
						Completed:   true,
						CompletedAt: &completedAt,
						Subtasks: map[string]models.SubtaskProgress{
							"sub-2": {Completed: true, CompletedAt: &completedAt},
						},
					},
				},
			},
		},
	}

	once := Merge(testTemplate(), record)
	twice := Merge(testTemplate(), &models.UserProgress{Phases: BuildRecord(once)})
	assert.Equal(t, once, twice)
}

func TestMergeDoesNotMutateTemplate(t *testing.T) {
	template := testTemplate()
	record := &models.UserProgress{
		Phases: map[string]models.PhaseProgress{
			"phase-1": {Tasks: map[string]models.TaskProgress{"task-a": {Completed: true}}},
		},
	}

	Merge(template, record)

	assert.False(t, template[0].Tasks[0].Completed)
}

func TestComputeAggregatesEmptyTemplate(t *testing.T) {
	agg := ComputeAggregates(nil)
	assert.Equal(t, 0, agg.TotalTasks)
	assert.Equal(t, 0, agg.ProgressPercentage)

	agg = ComputeAggregates([]models.Phase{{ID: "empty"}})
	assert.Equal(t, 0, agg.ProgressPercentage)
}

func TestComputeAggregatesRounding(t *testing.T) {
	phases := []models.Phase{
		{
			ID: "p",
			Tasks: []models.Task{
				{ID: "1", Completed: true},
				{ID: "2"},
				{ID: "3"},
			},
		},
	}
	// 1/3 rounds to 33, 2/3 rounds to 67.
	assert.Equal(t, 33, ComputeAggregates(phases).ProgressPercentage)
	phases[0].Tasks[1].Completed = true
	assert.Equal(t, 67, ComputeAggregates(phases).ProgressPercentage)
}

func TestToggleTaskRoundTrip(t *testing.T) {
	now := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
	phases := testTemplate()

	on := ToggleTask(phases, "phase-1", "task-b", now)
	taskB := FindTask(on, "phase-1", "task-b")
	assert.True(t, taskB.Completed)
	assert.Equal(t, now, *taskB.CompletedAt)

	off := ToggleTask(on, "phase-1", "task-b", now.Add(time.Minute))
	taskB = FindTask(off, "phase-1", "task-b")
	assert.False(t, taskB.Completed)
	assert.Nil(t, taskB.CompletedAt)

	// Everything else is untouched.
	assert.Equal(t, phases, off)
}

func TestToggleTaskLeavesSubtasksAlone(t *testing.T) {
	now := time.Now()
	phases := ToggleSubtask(testTemplate(), "phase-1", "task-a", "sub-1", now)
	phases = ToggleTask(phases, "phase-1", "task-a", now)

	taskA := FindTask(phases, "phase-1", "task-a")
	assert.True(t, taskA.Completed)
	assert.True(t, taskA.Subtasks[0].Completed)
	assert.False(t, taskA.Subtasks[1].Completed)
}

func TestToggleSubtaskNoCascade(t *testing.T) {
	now := time.Now()
	phases := testTemplate()
	phases = ToggleSubtask(phases, "phase-1", "task-a", "sub-1", now)
	phases = ToggleSubtask(phases, "phase-1", "task-a", "sub-2", now)

	taskA := FindTask(phases, "phase-1", "task-a")
	assert.True(t, taskA.Subtasks[0].Completed)
	assert.True(t, taskA.Subtasks[1].Completed)
	// All subtasks done, but the parent task stays unchecked.
	assert.False(t, taskA.Completed)
	assert.Nil(t, taskA.CompletedAt)
}

func TestToggleDoesNotMutateInput(t *testing.T) {
	phases := testTemplate()
	ToggleTask(phases, "phase-1", "task-a", time.Now())
	assert.False(t, phases[0].Tasks[0].Completed)
}

func TestBuildRecordRoundTrip(t *testing.T) {
	now := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
	phases := ToggleTask(roadmap.Phases(), "foundations", "calculus", now)
	phases = ToggleSubtask(phases, "foundations", "linear-algebra", "la-1", now)

	merged := Merge(roadmap.Phases(), &models.UserProgress{Phases: BuildRecord(phases)})
	assert.Equal(t, phases, merged)
}
