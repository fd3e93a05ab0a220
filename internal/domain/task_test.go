package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGenerationTask(t *testing.T) {
	t.Parallel()

	jobID, employeeID := uuid.New(), uuid.New()
	task, err := NewGenerationTask(jobID, employeeID)
	require.NoError(t, err)

	assert.Equal(t, jobID, task.JobID)
	assert.Equal(t, employeeID, task.EmployeeID)
	assert.Equal(t, TaskStatusQueued, task.Status)
	assert.False(t, task.IsTerminal())

	_, err = NewGenerationTask(uuid.Nil, employeeID)
	assert.ErrorIs(t, err, ErrEmptyTaskJobID)

	_, err = NewGenerationTask(jobID, uuid.Nil)
	assert.ErrorIs(t, err, ErrEmptyTaskEmployeeID)
}

func TestGenerationTaskValidate_Outcome(t *testing.T) {
	t.Parallel()

	task, err := NewGenerationTask(uuid.New(), uuid.New())
	require.NoError(t, err)
	contentID := uuid.New()

	task.Status = TaskStatusCompleted
	assert.ErrorIs(t, task.Validate(), ErrTaskOutcomeMismatch)
	task.ContentID = &contentID
	assert.NoError(t, task.Validate())
	task.Error = "boom"
	assert.ErrorIs(t, task.Validate(), ErrTaskOutcomeMismatch)

	task.Status = TaskStatusFailed
	assert.ErrorIs(t, task.Validate(), ErrTaskOutcomeMismatch)
	task.ContentID = nil
	assert.NoError(t, task.Validate())
}

func TestCountTasks(t *testing.T) {
	t.Parallel()

	tasks := []*GenerationTask{
		{Status: TaskStatusQueued},
		{Status: TaskStatusRunning},
		{Status: TaskStatusCompleted},
		{Status: TaskStatusCompleted},
		{Status: TaskStatusFailed},
	}

	c := CountTasks(tasks)
	assert.Equal(t, TaskCounts{Queued: 1, Running: 1, Completed: 2, Failed: 1}, c)
	assert.Equal(t, 3, c.Finished())
	assert.Equal(t, 2, c.Remaining())
}
