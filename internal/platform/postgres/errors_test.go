package postgres_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/skillforge-api/internal/platform/postgres"
	"github.com/phrazzld/skillforge-api/internal/store"
	"github.com/stretchr/testify/assert"
)

func newPgError(code string) *pgconn.PgError {
	return &pgconn.PgError{
		Code:           code,
		Message:        "error message",
		TableName:      "generation_tasks",
		ColumnName:     "employee_id",
		ConstraintName: "idx_generation_tasks_job_employee",
	}
}

type mockResult struct {
	rowsAffected int64
	err          error
}

func (m mockResult) LastInsertId() (int64, error) { return 0, m.err }
func (m mockResult) RowsAffected() (int64, error) { return m.rowsAffected, m.err }

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", sql.ErrNoRows, store.ErrNotFound},
		{"unique", newPgError("23505"), store.ErrDuplicate},
		{"foreign key", newPgError("23503"), store.ErrInvalidEntity},
		{"check", newPgError("23514"), store.ErrInvalidEntity},
		{"not null", newPgError("23502"), store.ErrInvalidEntity},
		{"wrapped unique", fmt.Errorf("insert: %w", newPgError("23505")), store.ErrDuplicate},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, postgres.MapError(tc.err), tc.want)
		})
	}

	assert.NoError(t, postgres.MapError(nil))

	other := errors.New("connection reset")
	assert.Same(t, other, postgres.MapError(other))

	syntax := newPgError("42601")
	assert.Equal(t, error(syntax), postgres.MapError(syntax))
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	assert.True(t, postgres.IsUniqueViolation(newPgError("23505")))
	assert.True(t, postgres.IsUniqueViolation(fmt.Errorf("wrapped: %w", newPgError("23505"))))
	assert.False(t, postgres.IsUniqueViolation(newPgError("23503")))
	assert.False(t, postgres.IsUniqueViolation(errors.New("plain")))
	assert.False(t, postgres.IsUniqueViolation(nil))
}

func TestCheckRowsAffected(t *testing.T) {
	t.Parallel()

	assert.NoError(t, postgres.CheckRowsAffected(mockResult{rowsAffected: 1}, "job"))

	err := postgres.CheckRowsAffected(mockResult{}, "job")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Contains(t, err.Error(), "job not found")

	assert.ErrorIs(t, postgres.CheckRowsAffected(mockResult{}, ""), store.ErrNotFound)

	err = postgres.CheckRowsAffected(mockResult{err: errors.New("driver")}, "job")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrNotFound)

	assert.Error(t, postgres.CheckRowsAffected(nil, "job"))
}

func TestMapUniqueViolation(t *testing.T) {
	t.Parallel()

	unique := newPgError("23505")

	err := postgres.MapUniqueViolation(unique, "", "", store.ErrDuplicateTask)
	assert.ErrorIs(t, err, store.ErrDuplicateTask)
	assert.ErrorIs(t, err, store.ErrDuplicate)

	err = postgres.MapUniqueViolation(unique, "generation task", "", nil)
	assert.ErrorIs(t, err, store.ErrDuplicate)
	assert.Contains(t, err.Error(), "generation task already exists")

	err = postgres.MapUniqueViolation(unique, "", "uq_x", nil)
	assert.Contains(t, err.Error(), "uq_x")

	fk := newPgError("23503")
	assert.Equal(t, error(fk), postgres.MapUniqueViolation(fk, "x", "", store.ErrDuplicateTask))
}
