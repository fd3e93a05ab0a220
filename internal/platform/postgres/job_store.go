package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/skillforge-api/internal/domain"
	"github.com/phrazzld/skillforge-api/internal/platform/logger"
	"github.com/phrazzld/skillforge-api/internal/store"
)

const jobColumns = `id, group_type, group_id, title, description, difficulty_level, total_employees,
	status, created_by, course_id, regenerates_content_id, params, created_at, updated_at, completed_at`

const taskColumns = `id, job_id, employee_id, status, content_id, error,
	started_at, completed_at, created_at, updated_at`

// finalizeJobQuery moves a job to its aggregate status in one statement.
// The status predicate makes concurrent finishers race safely: the row lock
// serializes them and only the first sees a non-terminal job.
const finalizeJobQuery = `
	WITH counts AS (
		SELECT COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'completed') AS completed,
			COUNT(*) FILTER (WHERE status = 'failed') AS failed
		FROM generation_tasks
		WHERE job_id = $1
	)
	UPDATE generation_jobs j
	SET status = CASE
			WHEN counts.completed = counts.total THEN 'completed'
			WHEN counts.failed = counts.total THEN 'failed'
			ELSE 'completed_with_errors'
		END,
		completed_at = $2,
		updated_at = $2
	FROM counts
	WHERE j.id = $1
		AND j.status IN ('queued', 'running')
		AND counts.total > 0
		AND counts.completed + counts.failed = counts.total
	RETURNING j.status
`

// PostgresJobStore implements the store.JobStore interface
// using a PostgreSQL database as the storage backend.
type PostgresJobStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresJobStore creates a new PostgreSQL implementation of the JobStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresJobStore(db *sql.DB, logger *slog.Logger) *PostgresJobStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresJobStore{
		db:     db,
		logger: logger.With(slog.String("component", "job_store")),
	}
}

// Ensure PostgresJobStore implements store.JobStore interface
var _ store.JobStore = (*PostgresJobStore)(nil)

// CreateWithTasks implements store.JobStore.CreateWithTasks
func (s *PostgresJobStore) CreateWithTasks(
	ctx context.Context,
	job *domain.Job,
	tasks []*domain.GenerationTask,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := job.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	if len(tasks) != job.TotalEmployees {
		return fmt.Errorf("%w: job expects %d tasks, got %d",
			store.ErrInvalidEntity, job.TotalEmployees, len(tasks))
	}
	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		}
		if t.JobID != job.ID {
			return fmt.Errorf("%w: task %s belongs to another job", store.ErrInvalidEntity, t.ID)
		}
	}

	params, err := json.Marshal(job.Params)
	if err != nil {
		return fmt.Errorf("failed to marshal job params: %w", err)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO generation_jobs (`+jobColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		`,
			job.ID, job.GroupType, job.GroupID, job.Title, job.Description, job.DifficultyLevel,
			job.TotalEmployees, job.Status, nullUUID(job.CreatedBy), nullUUID(job.CourseID),
			nullUUID(job.RegeneratesContentID), params, job.CreatedAt, job.UpdatedAt, job.CompletedAt,
		)
		if err != nil {
			return MapError(err)
		}

		for _, t := range tasks {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO generation_tasks (id, job_id, employee_id, status, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, t.ID, t.JobID, t.EmployeeID, t.Status, t.CreatedAt, t.UpdatedAt)
			if IsUniqueViolation(err) {
				return MapUniqueViolation(err, "generation task", "", store.ErrDuplicateTask)
			}
			if err != nil {
				return MapError(err)
			}
		}
		return nil
	})
	if err != nil {
		log.Error("failed to create job with tasks",
			slog.String("job_id", job.ID.String()),
			slog.Int("task_count", len(tasks)),
			slog.String("error", err.Error()))
		return err
	}

	log.Info("job created",
		slog.String("job_id", job.ID.String()),
		slog.Int("total_employees", job.TotalEmployees))
	return nil
}

// GetJob implements store.JobStore.GetJob
func (s *PostgresJobStore) GetJob(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM generation_jobs WHERE id = $1`, id)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", MapError(err))
	}
	return job, nil
}

// ListJobs implements store.JobStore.ListJobs
func (s *PostgresJobStore) ListJobs(ctx context.Context, limit, offset int) ([]*domain.Job, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+jobColumns+`
		FROM generation_jobs
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	jobs := make([]*domain.Job, 0, limit)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating job rows: %w", err)
	}
	return jobs, nil
}

// GetTask implements store.JobStore.GetTask
func (s *PostgresJobStore) GetTask(ctx context.Context, id uuid.UUID) (*domain.GenerationTask, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM generation_tasks WHERE id = $1`, id)

	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", MapError(err))
	}
	return task, nil
}

// ListTasks implements store.JobStore.ListTasks
func (s *PostgresJobStore) ListTasks(ctx context.Context, jobID uuid.UUID) ([]*domain.GenerationTask, error) {
	return s.queryTasks(ctx, `
		SELECT `+taskColumns+`
		FROM generation_tasks
		WHERE job_id = $1
		ORDER BY created_at, id
	`, jobID)
}

// ListQueuedTasks implements store.JobStore.ListQueuedTasks
func (s *PostgresJobStore) ListQueuedTasks(ctx context.Context) ([]*domain.GenerationTask, error) {
	return s.queryTasks(ctx, `
		SELECT `+taskColumns+`
		FROM generation_tasks
		WHERE status = 'queued'
		ORDER BY created_at, id
	`)
}

func (s *PostgresJobStore) queryTasks(ctx context.Context, query string, args ...any) ([]*domain.GenerationTask, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.GenerationTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}
	return tasks, nil
}

// ResetRunningTasks implements store.JobStore.ResetRunningTasks
func (s *PostgresJobStore) ResetRunningTasks(ctx context.Context) (int, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE generation_tasks
		SET status = 'queued', started_at = NULL, updated_at = $1
		WHERE status = 'running'
	`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to reset running tasks: %w", MapError(err))
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

// ListUnfinishedJobIDs implements store.JobStore.ListUnfinishedJobIDs
func (s *PostgresJobStore) ListUnfinishedJobIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM generation_jobs
		WHERE status IN ('queued', 'running')
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list unfinished jobs: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan job id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating job ids: %w", err)
	}
	return ids, nil
}

// MarkTaskRunning implements store.JobStore.MarkTaskRunning
// Returns store.ErrUpdateFailed if the task is no longer queued, which lets
// a worker skip a task that was dispatched twice.
func (s *PostgresJobStore) MarkTaskRunning(ctx context.Context, taskID uuid.UUID) error {
	now := time.Now().UTC()

	var jobID uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		UPDATE generation_tasks
		SET status = 'running', started_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'queued'
		RETURNING job_id
	`, taskID, now).Scan(&jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s.explainMissedTaskUpdate(ctx, taskID, "queued")
		}
		return fmt.Errorf("failed to mark task running: %w", MapError(err))
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE generation_jobs
		SET status = 'running', updated_at = $2
		WHERE id = $1 AND status = 'queued'
	`, jobID, now)
	if err != nil {
		return fmt.Errorf("failed to mark job running: %w", MapError(err))
	}
	return nil
}

// MarkTaskCompleted implements store.JobStore.MarkTaskCompleted
func (s *PostgresJobStore) MarkTaskCompleted(ctx context.Context, taskID, contentID uuid.UUID) error {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE generation_tasks
		SET status = 'completed', content_id = $2, error = NULL, completed_at = $3, updated_at = $3
		WHERE id = $1 AND status IN ('queued', 'running')
	`, taskID, contentID, now)
	if err != nil {
		return fmt.Errorf("failed to mark task completed: %w", MapError(err))
	}
	return s.checkTaskUpdate(ctx, result, taskID)
}

// MarkTaskFailed implements store.JobStore.MarkTaskFailed
func (s *PostgresJobStore) MarkTaskFailed(ctx context.Context, taskID uuid.UUID, errMsg string) error {
	if errMsg == "" {
		errMsg = "unknown error"
	}

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE generation_tasks
		SET status = 'failed', content_id = NULL, error = $2, completed_at = $3, updated_at = $3
		WHERE id = $1 AND status IN ('queued', 'running')
	`, taskID, errMsg, now)
	if err != nil {
		return fmt.Errorf("failed to mark task failed: %w", MapError(err))
	}
	return s.checkTaskUpdate(ctx, result, taskID)
}

func (s *PostgresJobStore) checkTaskUpdate(ctx context.Context, result sql.Result, taskID uuid.UUID) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return s.explainMissedTaskUpdate(ctx, taskID, "in progress")
	}
	return nil
}

// explainMissedTaskUpdate distinguishes a missing task from one in the wrong state.
func (s *PostgresJobStore) explainMissedTaskUpdate(ctx context.Context, taskID uuid.UUID, expected string) error {
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM generation_tasks WHERE id = $1`, taskID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrTaskNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read task status: %w", MapError(err))
	}
	return fmt.Errorf("%w: task %s is %s, not %s", store.ErrUpdateFailed, taskID, status, expected)
}

// FinalizeJob implements store.JobStore.FinalizeJob
func (s *PostgresJobStore) FinalizeJob(ctx context.Context, jobID uuid.UUID) (domain.JobStatus, bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var status domain.JobStatus
	err := s.db.QueryRowContext(ctx, finalizeJobQuery, jobID, time.Now().UTC()).Scan(&status)
	if err == nil {
		log.Info("job finalized",
			slog.String("job_id", jobID.String()),
			slog.String("status", string(status)))
		return status, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", false, fmt.Errorf("failed to finalize job: %w", MapError(err))
	}

	// Nothing changed: the job is unfinished, already terminal, or missing.
	err = s.db.QueryRowContext(ctx, `SELECT status FROM generation_jobs WHERE id = $1`, jobID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, store.ErrJobNotFound
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read job status: %w", MapError(err))
	}
	return status, false, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var (
		job                                domain.Job
		createdBy, courseID, regeneratesID uuid.NullUUID
		params                             []byte
		completedAt                        sql.NullTime
	)

	err := row.Scan(
		&job.ID, &job.GroupType, &job.GroupID, &job.Title, &job.Description, &job.DifficultyLevel,
		&job.TotalEmployees, &job.Status, &createdBy, &courseID, &regeneratesID, &params,
		&job.CreatedAt, &job.UpdatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	job.CreatedBy = uuidPtr(createdBy)
	job.CourseID = uuidPtr(courseID)
	job.RegeneratesContentID = uuidPtr(regeneratesID)
	job.CompletedAt = timePtr(completedAt)
	if len(params) > 0 {
		if err := json.Unmarshal(params, &job.Params); err != nil {
			return nil, fmt.Errorf("failed to decode job params: %w", err)
		}
	}
	return &job, nil
}

func scanTask(row rowScanner) (*domain.GenerationTask, error) {
	var (
		task                   domain.GenerationTask
		contentID              uuid.NullUUID
		errMsg                 sql.NullString
		startedAt, completedAt sql.NullTime
	)

	err := row.Scan(
		&task.ID, &task.JobID, &task.EmployeeID, &task.Status, &contentID, &errMsg,
		&startedAt, &completedAt, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.ContentID = uuidPtr(contentID)
	task.Error = errMsg.String
	task.StartedAt = timePtr(startedAt)
	task.CompletedAt = timePtr(completedAt)
	return &task, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func uuidPtr(id uuid.NullUUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	v := id.UUID
	return &v
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
