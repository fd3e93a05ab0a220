package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/skillforge-api/internal/domain"
	"github.com/phrazzld/skillforge-api/internal/store"
)

// InMemoryJobStore implements store.JobStore over maps guarded by a mutex.
// State transitions follow the same predicates as the PostgreSQL store, so
// concurrency tests exercise the same guards.
type InMemoryJobStore struct {
	mu    sync.Mutex
	jobs  map[uuid.UUID]*domain.Job
	tasks map[uuid.UUID]*domain.GenerationTask
	seq   map[uuid.UUID]int
	next  int

	// CreateErr, when set, is returned by CreateWithTasks before anything is written.
	CreateErr error

	// MarkRunningFn, when set, replaces MarkTaskRunning.
	MarkRunningFn func(ctx context.Context, taskID uuid.UUID) error

	// OnTransition is called, outside the lock, after a task changes status.
	OnTransition func(taskID uuid.UUID, status domain.TaskStatus)
}

// NewInMemoryJobStore creates an empty job store.
func NewInMemoryJobStore() *InMemoryJobStore {
	return &InMemoryJobStore{
		jobs:  make(map[uuid.UUID]*domain.Job),
		tasks: make(map[uuid.UUID]*domain.GenerationTask),
		seq:   make(map[uuid.UUID]int),
	}
}

var _ store.JobStore = (*InMemoryJobStore)(nil)

// CreateWithTasks implements store.JobStore.
func (s *InMemoryJobStore) CreateWithTasks(
	_ context.Context,
	job *domain.Job,
	tasks []*domain.GenerationTask,
) error {
	if s.CreateErr != nil {
		return s.CreateErr
	}
	if err := job.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	if len(tasks) != job.TotalEmployees {
		return fmt.Errorf("%w: job expects %d tasks, got %d",
			store.ErrInvalidEntity, job.TotalEmployees, len(tasks))
	}

	seen := make(map[uuid.UUID]struct{}, len(tasks))
	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		}
		if _, dup := seen[t.EmployeeID]; dup {
			return store.ErrDuplicateTask
		}
		seen[t.EmployeeID] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return store.ErrDuplicate
	}
	jobCopy := *job
	s.jobs[job.ID] = &jobCopy
	s.seq[job.ID] = s.nextSeq()
	for _, t := range tasks {
		taskCopy := *t
		s.tasks[t.ID] = &taskCopy
		s.seq[t.ID] = s.nextSeq()
	}
	return nil
}

func (s *InMemoryJobStore) nextSeq() int {
	s.next++
	return s.next
}

// GetJob implements store.JobStore.
func (s *InMemoryJobStore) GetJob(_ context.Context, id uuid.UUID) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrJobNotFound
	}
	jobCopy := *job
	return &jobCopy, nil
}

// ListJobs implements store.JobStore.
func (s *InMemoryJobStore) ListJobs(_ context.Context, limit, offset int) ([]*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]*domain.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobCopy := *j
		jobs = append(jobs, &jobCopy)
	}
	sort.Slice(jobs, func(a, b int) bool { return s.seq[jobs[a].ID] > s.seq[jobs[b].ID] })

	if offset >= len(jobs) {
		return []*domain.Job{}, nil
	}
	jobs = jobs[offset:]
	if limit > 0 && limit < len(jobs) {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

// GetTask implements store.JobStore.
func (s *InMemoryJobStore) GetTask(_ context.Context, id uuid.UUID) (*domain.GenerationTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	taskCopy := *t
	return &taskCopy, nil
}

// ListTasks implements store.JobStore.
func (s *InMemoryJobStore) ListTasks(_ context.Context, jobID uuid.UUID) ([]*domain.GenerationTask, error) {
	return s.filterTasks(func(t *domain.GenerationTask) bool { return t.JobID == jobID }), nil
}

// ListQueuedTasks implements store.JobStore.
func (s *InMemoryJobStore) ListQueuedTasks(_ context.Context) ([]*domain.GenerationTask, error) {
	return s.filterTasks(func(t *domain.GenerationTask) bool { return t.Status == domain.TaskStatusQueued }), nil
}

func (s *InMemoryJobStore) filterTasks(keep func(*domain.GenerationTask) bool) []*domain.GenerationTask {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := []*domain.GenerationTask{}
	for _, t := range s.tasks {
		if keep(t) {
			taskCopy := *t
			tasks = append(tasks, &taskCopy)
		}
	}
	sort.Slice(tasks, func(a, b int) bool { return s.seq[tasks[a].ID] < s.seq[tasks[b].ID] })
	return tasks
}

// ResetRunningTasks implements store.JobStore.
func (s *InMemoryJobStore) ResetRunningTasks(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, t := range s.tasks {
		if t.Status == domain.TaskStatusRunning {
			t.Status = domain.TaskStatusQueued
			t.StartedAt = nil
			t.UpdatedAt = time.Now().UTC()
			n++
		}
	}
	return n, nil
}

// ListUnfinishedJobIDs implements store.JobStore.
func (s *InMemoryJobStore) ListUnfinishedJobIDs(_ context.Context) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := []uuid.UUID{}
	for id, j := range s.jobs {
		if !j.IsTerminal() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(a, b int) bool { return s.seq[ids[a]] < s.seq[ids[b]] })
	return ids, nil
}

// MarkTaskRunning implements store.JobStore.
func (s *InMemoryJobStore) MarkTaskRunning(ctx context.Context, taskID uuid.UUID) error {
	if s.MarkRunningFn != nil {
		return s.MarkRunningFn(ctx, taskID)
	}

	s.mu.Lock()
	t, ok := s.tasks[taskID]
	if !ok {
		s.mu.Unlock()
		return store.ErrTaskNotFound
	}
	if t.Status != domain.TaskStatusQueued {
		status := t.Status
		s.mu.Unlock()
		return fmt.Errorf("%w: task %s is %s, not queued", store.ErrUpdateFailed, taskID, status)
	}

	now := time.Now().UTC()
	t.Status = domain.TaskStatusRunning
	t.StartedAt = &now
	t.UpdatedAt = now
	if j, ok := s.jobs[t.JobID]; ok && j.Status == domain.JobStatusQueued {
		j.Status = domain.JobStatusRunning
		j.UpdatedAt = now
	}
	s.mu.Unlock()

	s.notify(taskID, domain.TaskStatusRunning)
	return nil
}

// MarkTaskCompleted implements store.JobStore.
func (s *InMemoryJobStore) MarkTaskCompleted(_ context.Context, taskID, contentID uuid.UUID) error {
	return s.finishTask(taskID, func(t *domain.GenerationTask) {
		t.Status = domain.TaskStatusCompleted
		t.ContentID = &contentID
		t.Error = ""
	})
}

// MarkTaskFailed implements store.JobStore.
func (s *InMemoryJobStore) MarkTaskFailed(_ context.Context, taskID uuid.UUID, errMsg string) error {
	return s.finishTask(taskID, func(t *domain.GenerationTask) {
		t.Status = domain.TaskStatusFailed
		t.ContentID = nil
		t.Error = errMsg
	})
}

func (s *InMemoryJobStore) finishTask(taskID uuid.UUID, apply func(*domain.GenerationTask)) error {
	s.mu.Lock()
	t, ok := s.tasks[taskID]
	if !ok {
		s.mu.Unlock()
		return store.ErrTaskNotFound
	}
	if t.IsTerminal() {
		status := t.Status
		s.mu.Unlock()
		return fmt.Errorf("%w: task %s is already %s", store.ErrUpdateFailed, taskID, status)
	}

	now := time.Now().UTC()
	apply(t)
	t.CompletedAt = &now
	t.UpdatedAt = now
	status := t.Status
	s.mu.Unlock()

	s.notify(taskID, status)
	return nil
}

// FinalizeJob implements store.JobStore.
func (s *InMemoryJobStore) FinalizeJob(_ context.Context, jobID uuid.UUID) (domain.JobStatus, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok {
		return "", false, store.ErrJobNotFound
	}
	if j.IsTerminal() {
		return j.Status, false, nil
	}

	var completed, failed int
	for _, t := range s.tasks {
		if t.JobID != jobID {
			continue
		}
		switch t.Status {
		case domain.TaskStatusCompleted:
			completed++
		case domain.TaskStatusFailed:
			failed++
		}
	}

	status, done := domain.AggregateJobStatus(j.TotalEmployees, completed, failed)
	if !done {
		return j.Status, false, nil
	}

	now := time.Now().UTC()
	j.Status = status
	j.CompletedAt = &now
	j.UpdatedAt = now
	return status, true, nil
}

// SetTaskStatus forces a task into status, bypassing the transition guards.
// Tests use it to simulate a crash that left a task running.
func (s *InMemoryJobStore) SetTaskStatus(taskID uuid.UUID, status domain.TaskStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[taskID]; ok {
		t.Status = status
	}
}

// JobCount returns the number of stored jobs.
func (s *InMemoryJobStore) JobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// TaskCount returns the number of stored tasks.
func (s *InMemoryJobStore) TaskCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *InMemoryJobStore) notify(taskID uuid.UUID, status domain.TaskStatus) {
	if s.OnTransition != nil {
		s.OnTransition(taskID, status)
	}
}
