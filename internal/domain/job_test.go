package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJob(t *testing.T) {
	t.Parallel()

	groupID := uuid.New()
	job, err := NewJob(GroupTypeDepartment, groupID, "  Secure Coding  ", "OWASP basics", "", 3)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, job.ID)
	assert.Equal(t, "Secure Coding", job.Title)
	assert.Equal(t, DifficultyIntermediate, job.DifficultyLevel)
	assert.Equal(t, JobStatusQueued, job.Status)
	assert.Equal(t, 3, job.TotalEmployees)
	assert.Nil(t, job.CompletedAt)
	assert.False(t, job.CreatedAt.IsZero())
}

func TestNewJob_Invalid(t *testing.T) {
	t.Parallel()

	groupID := uuid.New()
	tests := []struct {
		name       string
		groupType  GroupType
		groupID    uuid.UUID
		title      string
		difficulty DifficultyLevel
		total      int
		wantErr    error
	}{
		{"blank title", GroupTypeDepartment, groupID, "   ", DifficultyBeginner, 1, ErrEmptyJobTitle},
		{"bad group type", GroupType("team"), groupID, "T", DifficultyBeginner, 1, ErrInvalidGroupType},
		{"nil group", GroupTypePosition, uuid.Nil, "T", DifficultyBeginner, 1, ErrEmptyGroupID},
		{"bad difficulty", GroupTypePosition, groupID, "T", DifficultyLevel("expert"), 1, ErrInvalidDifficulty},
		{"no employees", GroupTypePosition, groupID, "T", DifficultyBeginner, 0, ErrEmptyEmployeeSet},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewJob(tc.groupType, tc.groupID, tc.title, "", tc.difficulty, tc.total)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestJobValidate_CompletedAtInvariant(t *testing.T) {
	t.Parallel()

	job, err := NewJob(GroupTypeDepartment, uuid.New(), "T", "", DifficultyAdvanced, 2)
	require.NoError(t, err)

	job.Status = JobStatusCompleted
	assert.ErrorIs(t, job.Validate(), ErrCompletedAtMismatch)

	now := time.Now()
	job.CompletedAt = &now
	assert.NoError(t, job.Validate())

	job.Status = JobStatusRunning
	assert.ErrorIs(t, job.Validate(), ErrCompletedAtMismatch)
}

func TestAggregateJobStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                     string
		total, completed, failed int
		want                     JobStatus
		done                     bool
	}{
		{"all completed", 3, 3, 0, JobStatusCompleted, true},
		{"all failed", 3, 0, 3, JobStatusFailed, true},
		{"mixed", 3, 2, 1, JobStatusCompletedWithErrors, true},
		{"unfinished", 3, 1, 1, "", false},
		{"empty", 0, 0, 0, "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, done := AggregateJobStatus(tc.total, tc.completed, tc.failed)
			assert.Equal(t, tc.done, done)
			assert.Equal(t, tc.want, got)
			if done {
				assert.True(t, got.IsTerminal())
			}
		})
	}
}
