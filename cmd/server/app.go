package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/skillforge-api/internal/config"
	"github.com/phrazzld/skillforge-api/internal/events"
	"github.com/phrazzld/skillforge-api/internal/generation"
	"github.com/phrazzld/skillforge-api/internal/platform/gemini"
	"github.com/phrazzld/skillforge-api/internal/platform/openai"
	"github.com/phrazzld/skillforge-api/internal/platform/postgres"
	"github.com/phrazzld/skillforge-api/internal/service"
	"github.com/phrazzld/skillforge-api/internal/service/auth"
	"github.com/phrazzld/skillforge-api/internal/store"
	"github.com/phrazzld/skillforge-api/internal/task"
)

// directoryStore is the read side of the HR directory and course catalog.
type directoryStore interface {
	store.EmployeeDirectory
	store.DocumentStore
	store.CourseCatalog
}

// appStores groups the persistence dependencies so tests can substitute
// in-memory implementations.
type appStores struct {
	jobs      store.JobStore
	contents  store.ContentStore
	directory directoryStore
}

// newPostgresStores builds the Postgres-backed stores on db.
func newPostgresStores(db *sql.DB, logger *slog.Logger) appStores {
	return appStores{
		jobs:      postgres.NewPostgresJobStore(db, logger),
		contents:  postgres.NewPostgresContentStore(db, logger),
		directory: postgres.NewPostgresDirectoryStore(db, logger),
	}
}

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	stores     appStores
	jwtService auth.JWTService

	emitter      *events.InMemoryEventEmitter
	taskRunner   *task.TaskRunner
	orchestrator *service.JobOrchestrator
	status       *service.StatusService
}

// newApplication wires the generation pipeline: the orchestrator emits one
// personalization event per task, the event handler turns each into an
// executable task on the runner, and the runner reports every terminal task
// back to the orchestrator so the job can be finalized.
// db may be nil when stores are not Postgres-backed.
func newApplication(
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
	stores appStores,
	generator generation.Generator,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
		stores: stores,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		slog.Int("token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes))

	prompts, err := generation.NewPromptBuilder(cfg.LLM.PromptTemplatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt template: %w", err)
	}

	limited := generation.NewRateLimitedGenerator(generator, cfg.LLM.RequestsPerMinute)

	app.taskRunner = task.NewTaskRunner(stores.jobs, task.TaskRunnerConfig{
		WorkerCount: cfg.Generation.WorkerCount,
		QueueSize:   cfg.Generation.QueueSize,
	}, logger)

	app.emitter = events.NewInMemoryEventEmitter(logger)

	app.orchestrator, err = service.NewJobOrchestrator(
		stores.jobs,
		stores.directory,
		stores.contents,
		app.emitter,
		service.OrchestratorConfig{MinutesPerEmployee: cfg.Generation.MinutesPerEmployee},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job orchestrator: %w", err)
	}
	app.taskRunner.SetCompletionHandler(app.orchestrator.TaskFinished)

	factory, err := task.NewPersonalizationTaskFactory(task.PersonalizationDeps{
		Contents:  stores.contents,
		Directory: stores.directory,
		Documents: stores.directory,
		Generator: limited,
		Prompts:   prompts,
	}, task.ExecutorConfig{
		MaxAttempts:          cfg.Generation.MaxAttempts,
		RetryDelay:           cfg.Generation.RetryDelay,
		DocumentExcerptChars: cfg.Generation.DocumentExcerptChars,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create personalization task factory: %w", err)
	}

	app.emitter.RegisterHandler(events.TypePersonalization,
		task.NewTaskFactoryEventHandler(stores.jobs, factory, app.taskRunner, logger))

	app.status, err = service.NewStatusService(
		stores.jobs,
		stores.contents,
		stores.directory,
		stores.directory,
		app.orchestrator,
		service.StatusConfig{
			MinutesPerEmployee: cfg.Generation.MinutesPerEmployee,
			PollInterval:       cfg.Generation.PollInterval,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create status service: %w", err)
	}

	logger.Info("application initialized",
		slog.Int("workers", cfg.Generation.WorkerCount),
		slog.Int("max_attempts", cfg.Generation.MaxAttempts))
	return app, nil
}

// newGenerator creates the content generator for the configured provider.
func newGenerator(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (generation.Generator, error) {
	var (
		generator generation.Generator
		err       error
	)
	switch cfg.Provider {
	case config.ProviderGemini:
		generator, err = gemini.NewGenerator(ctx, logger, cfg)
	case config.ProviderOpenAI:
		generator, err = openai.NewGenerator(logger, cfg, nil)
	default:
		err = fmt.Errorf("%w: unknown LLM provider %q", generation.ErrInvalidConfig, cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM generator: %w", err)
	}

	logger.Info("LLM generator initialized",
		slog.String("provider", cfg.Provider),
		slog.String("model", cfg.ModelName))
	return generator, nil
}

// start launches the workers and picks up work a previous process left
// unfinished.
func (app *application) start(ctx context.Context) error {
	if err := app.taskRunner.Start(); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}
	if err := app.orchestrator.Resume(ctx); err != nil {
		return fmt.Errorf("failed to resume generation work: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
// In-flight tasks finish; queued tasks stay queued for the next Resume.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}
	if app.orchestrator != nil {
		app.orchestrator.WaitForDispatch()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}

	app.logger.Info("application shutdown completed")
}
