package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/skillforge-api/internal/domain"
	"github.com/phrazzld/skillforge-api/internal/events"
	"github.com/phrazzld/skillforge-api/internal/generation"
	"github.com/phrazzld/skillforge-api/internal/mocks"
	"github.com/phrazzld/skillforge-api/internal/task"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

// pipeline wires the orchestrator and status service to a real runner over
// in-memory stores.
type pipeline struct {
	jobs         *mocks.InMemoryJobStore
	contents     *mocks.InMemoryContentStore
	directory    *mocks.InMemoryDirectory
	generator    *mocks.MockGenerator
	runner       *task.TaskRunner
	orchestrator *JobOrchestrator
	status       *StatusService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newPipeline(t *testing.T, workers int) *pipeline {
	t.Helper()
	logger := discardLogger()

	p := &pipeline{
		jobs:      mocks.NewInMemoryJobStore(),
		contents:  mocks.NewInMemoryContentStore(),
		directory: mocks.NewInMemoryDirectory(),
		generator: &mocks.MockGenerator{},
	}

	prompts, err := generation.NewPromptBuilder("")
	require.NoError(t, err)

	factory, err := task.NewPersonalizationTaskFactory(task.PersonalizationDeps{
		Contents:  p.contents,
		Directory: p.directory,
		Documents: p.directory,
		Generator: p.generator,
		Prompts:   prompts,
	}, task.ExecutorConfig{MaxAttempts: 2}, logger)
	require.NoError(t, err)

	emitter := events.NewInMemoryEventEmitter(logger)
	p.runner = task.NewTaskRunner(p.jobs, task.TaskRunnerConfig{WorkerCount: workers, QueueSize: 10}, logger)

	p.orchestrator, err = NewJobOrchestrator(p.jobs, p.directory, p.contents, emitter, OrchestratorConfig{}, logger)
	require.NoError(t, err)

	p.runner.SetCompletionHandler(p.orchestrator.TaskFinished)
	emitter.RegisterHandler(events.TypePersonalization,
		task.NewTaskFactoryEventHandler(p.jobs, factory, p.runner, logger))

	p.status, err = NewStatusService(p.jobs, p.contents, p.directory, p.directory, p.orchestrator,
		StatusConfig{}, logger)
	require.NoError(t, err)
	p.status.now = func() time.Time { return fixedNow }

	require.NoError(t, p.runner.Start())
	t.Cleanup(func() {
		p.runner.Stop()
		p.orchestrator.WaitForDispatch()
	})
	return p
}

// addEmployee registers an active employee of the department.
func (p *pipeline) addEmployee(name string, departmentID uuid.UUID) *domain.EmployeeProfile {
	profile := &domain.EmployeeProfile{
		Employee: domain.Employee{
			ID:             uuid.New(),
			FullName:       name,
			DepartmentID:   departmentID,
			DepartmentName: "Engineering",
			PositionID:     uuid.New(),
			PositionName:   "Backend Engineer",
			IsActive:       true,
		},
		Skills:    []domain.Skill{{Name: "Go", Proficiency: "advanced"}},
		SkillGaps: []string{"threat modeling"},
	}
	p.directory.AddEmployee(profile)
	return profile
}

func (p *pipeline) waitForJob(t *testing.T, jobID uuid.UUID) *domain.Job {
	t.Helper()
	var job *domain.Job
	require.Eventually(t, func() bool {
		var err error
		job, err = p.jobs.GetJob(context.Background(), jobID)
		return err == nil && job.IsTerminal()
	}, 5*time.Second, 5*time.Millisecond, "job did not reach a terminal status")
	return job
}

func (p *pipeline) tasksByEmployee(t *testing.T, jobID uuid.UUID) map[uuid.UUID]*domain.GenerationTask {
	t.Helper()
	tasks, err := p.jobs.ListTasks(context.Background(), jobID)
	require.NoError(t, err)
	byEmployee := make(map[uuid.UUID]*domain.GenerationTask, len(tasks))
	for _, tk := range tasks {
		byEmployee[tk.EmployeeID] = tk
	}
	return byEmployee
}

// gate blocks generator calls until released.
type gate chan struct{}

func (g gate) generate(ctx context.Context, _ string) (*generation.CourseDraft, error) {
	select {
	case <-g:
		return mocks.NewCourseDraft(generation.MinModules, generation.MinSections), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
