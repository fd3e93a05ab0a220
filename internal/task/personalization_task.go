package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/skillforge-api/internal/domain"
	"github.com/phrazzld/skillforge-api/internal/generation"
	"github.com/phrazzld/skillforge-api/internal/platform/logger"
	"github.com/phrazzld/skillforge-api/internal/store"
	"golang.org/x/sync/errgroup"
)

// Common errors
var (
	ErrNilContentStore  = errors.New("content store cannot be nil")
	ErrNilDirectory     = errors.New("employee directory cannot be nil")
	ErrNilDocumentStore = errors.New("document store cannot be nil")
	ErrNilGenerator     = errors.New("generator cannot be nil")
	ErrNilPromptBuilder = errors.New("prompt builder cannot be nil")
	ErrTaskJobMismatch  = errors.New("task does not belong to job")
)

// ExecutorConfig tunes how a PersonalizationTask calls the generator.
type ExecutorConfig struct {
	// MaxAttempts is the total number of generator calls per task, including
	// the first. Values below 1 mean 1.
	MaxAttempts int

	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration

	// DocumentExcerptChars caps how much of each reference document is
	// embedded in the prompt.
	DocumentExcerptChars int
}

// personalizationPayload represents the serialized data stored in the task
type personalizationPayload struct {
	JobID      uuid.UUID `json:"job_id"`
	TaskID     uuid.UUID `json:"task_id"`
	EmployeeID uuid.UUID `json:"employee_id"`
}

// personalizationParams is the request a content record was generated from.
type personalizationParams struct {
	Title           string                 `json:"title"`
	Description     string                 `json:"description,omitempty"`
	DifficultyLevel domain.DifficultyLevel `json:"difficulty_level"`
	CourseID        *uuid.UUID             `json:"course_id,omitempty"`
	SkillGaps       []string               `json:"skill_gaps,omitempty"`
	DocumentIDs     []uuid.UUID            `json:"document_ids,omitempty"`
}

// personalizationContext is the resolved employee data the prompt embedded.
type personalizationContext struct {
	EmployeeName    string         `json:"employee_name"`
	Department      string         `json:"department"`
	Position        string         `json:"position"`
	ExperienceYears int            `json:"experience_years,omitempty"`
	LearningStyle   string         `json:"learning_style,omitempty"`
	Skills          []domain.Skill `json:"skills"`
	SkillGaps       []string       `json:"skill_gaps"`
	Documents       []string       `json:"documents,omitempty"`
}

// PersonalizationTask implements the Task interface for generating one
// employee's personalized course within a job
type PersonalizationTask struct {
	record *domain.GenerationTask
	job    *domain.Job
	deps   *PersonalizationTaskFactory
	logger *slog.Logger
}

// ID returns the task's unique identifier
func (t *PersonalizationTask) ID() uuid.UUID {
	return t.record.ID
}

// JobID returns the job the task belongs to
func (t *PersonalizationTask) JobID() uuid.UUID {
	return t.job.ID
}

// EmployeeID returns the employee the course is generated for
func (t *PersonalizationTask) EmployeeID() uuid.UUID {
	return t.record.EmployeeID
}

// Type returns the task type identifier
func (t *PersonalizationTask) Type() string {
	return TaskTypePersonalization
}

// Payload returns the task data as a byte slice
func (t *PersonalizationTask) Payload() []byte {
	data, err := json.Marshal(personalizationPayload{
		JobID:      t.job.ID,
		TaskID:     t.record.ID,
		EmployeeID: t.record.EmployeeID,
	})
	if err != nil {
		t.logger.Error("failed to marshal task payload", slog.String("error", err.Error()))
		return []byte{}
	}
	return data
}

// Execute generates and stores the employee's course.
//
// If this job already produced active content for the employee, that content
// is reported without calling the generator, so re-running a task after a
// crash never creates a second record.
func (t *PersonalizationTask) Execute(ctx context.Context) (Outcome, error) {
	log := logger.FromContextOrDefault(ctx, t.logger).With(
		slog.String("employee_id", t.record.EmployeeID.String()))

	if err := ctx.Err(); err != nil {
		return Outcome{}, fmt.Errorf("task cancelled by context: %w", err)
	}

	existing, err := t.deps.contents.FindActiveForJob(ctx, t.record.EmployeeID, t.job.ID)
	switch {
	case err == nil:
		log.Info("content already generated by this job, reusing",
			slog.String("content_id", existing.ID.String()))
		return Outcome{ContentID: existing.ID, Reused: true}, nil
	case !errors.Is(err, store.ErrContentNotFound):
		return Outcome{}, fmt.Errorf("failed to check existing content: %w", err)
	}

	profile, docs, err := t.load(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if err := profile.Validate(); err != nil {
		log.Warn("employee profile is incomplete, skipping generation", slog.String("error", err.Error()))
		return Outcome{}, err
	}

	data := t.promptData(profile, docs)
	prompt, err := t.deps.prompts.Build(data)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to build prompt: %w", err)
	}

	draft, err := t.generate(ctx, log, prompt)
	if err != nil {
		return Outcome{}, err
	}

	content := draft.ToContent(generation.ContentTarget{
		EmployeeID: t.record.EmployeeID,
		CourseID:   t.job.CourseID,
		JobID:      &t.job.ID,
	})
	if content.PersonalizationParams, err = json.Marshal(t.params()); err != nil {
		return Outcome{}, fmt.Errorf("failed to marshal personalization params: %w", err)
	}
	if content.PersonalizationContext, err = json.Marshal(newPersonalizationContext(data)); err != nil {
		return Outcome{}, fmt.Errorf("failed to marshal personalization context: %w", err)
	}

	if err := t.deps.contents.SaveActive(ctx, content); err != nil {
		return Outcome{}, fmt.Errorf("failed to save generated content: %w", err)
	}

	saved, failed := 0, 0
	for _, m := range content.Modules {
		for _, s := range m.Sections {
			if err := t.deps.contents.SaveSection(ctx, s); err != nil {
				failed++
				log.Error("failed to save section",
					slog.String("content_id", content.ID.String()),
					slog.String("section_id", s.ID.String()),
					slog.Int("module_index", m.OrderIndex),
					slog.Int("section_index", s.OrderIndex),
					slog.String("error", err.Error()))
				continue
			}
			saved++
		}
	}

	log.Info("personalized content generated",
		slog.String("content_id", content.ID.String()),
		slog.Int("modules", len(content.Modules)),
		slog.Int("sections_saved", saved),
		slog.Int("sections_failed", failed))
	return Outcome{ContentID: content.ID}, nil
}

// load fetches the employee profile and reference documents concurrently.
func (t *PersonalizationTask) load(ctx context.Context) (*domain.EmployeeProfile, []*domain.Document, error) {
	var (
		profile *domain.EmployeeProfile
		docs    []*domain.Document
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if profile, err = t.deps.directory.GetProfile(gctx, t.record.EmployeeID); err != nil {
			return fmt.Errorf("failed to load employee profile: %w", err)
		}
		return nil
	})
	if ids := t.job.Params.DocumentIDs; len(ids) > 0 {
		g.Go(func() error {
			var err error
			if docs, err = t.deps.documents.GetDocuments(gctx, ids); err != nil {
				return fmt.Errorf("failed to load reference documents: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return profile, docs, nil
}

func (t *PersonalizationTask) promptData(
	profile *domain.EmployeeProfile,
	docs []*domain.Document,
) generation.PromptData {
	gaps := profile.SkillGaps
	if len(t.job.Params.SkillGaps) > 0 {
		gaps = t.job.Params.SkillGaps
	}

	excerpts := make([]generation.DocumentExcerpt, 0, len(docs))
	for _, d := range docs {
		excerpts = append(excerpts, generation.DocumentExcerpt{
			Title:   d.Title,
			Excerpt: d.Excerpt(t.deps.config.DocumentExcerptChars),
		})
	}

	return generation.PromptData{
		Profile: profile,
		Course: generation.CourseBrief{
			Title:           t.job.Title,
			Description:     t.job.Description,
			DifficultyLevel: t.job.DifficultyLevel,
		},
		SkillGaps: gaps,
		Documents: excerpts,
	}
}

// generate calls the generator until it returns a valid draft or the attempts
// run out. Every attempt uses the same prompt, so errors the generator would
// repeat end the loop early.
func (t *PersonalizationTask) generate(
	ctx context.Context,
	log *slog.Logger,
	prompt string,
) (*generation.CourseDraft, error) {
	attempts := max(t.deps.config.MaxAttempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		draft, err := t.deps.generator.GenerateCourse(ctx, prompt)
		if err == nil && draft == nil {
			err = fmt.Errorf("%w: generator returned no course", generation.ErrInvalidResponse)
		}
		if err == nil {
			err = draft.Validate()
		}
		if err == nil {
			return draft, nil
		}

		lastErr = err
		log.Warn("course generation attempt failed",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.String("error", err.Error()))

		if !generation.IsRetryable(err) {
			return nil, fmt.Errorf("course generation failed: %w", err)
		}
		if attempt < attempts {
			if err := sleep(ctx, t.deps.config.RetryDelay); err != nil {
				return nil, fmt.Errorf("course generation interrupted: %w", err)
			}
		}
	}

	return nil, fmt.Errorf("course generation failed after %d attempts: %w", attempts, lastErr)
}

func (t *PersonalizationTask) params() personalizationParams {
	return personalizationParams{
		Title:           t.job.Title,
		Description:     t.job.Description,
		DifficultyLevel: t.job.DifficultyLevel,
		CourseID:        t.job.CourseID,
		SkillGaps:       t.job.Params.SkillGaps,
		DocumentIDs:     t.job.Params.DocumentIDs,
	}
}

func newPersonalizationContext(data generation.PromptData) personalizationContext {
	pc := personalizationContext{
		EmployeeName:    data.Profile.FullName,
		Department:      data.Profile.DepartmentName,
		Position:        data.Profile.PositionName,
		ExperienceYears: data.Profile.ExperienceYears,
		LearningStyle:   data.Profile.LearningStyle,
		Skills:          data.Profile.Skills,
		SkillGaps:       data.SkillGaps,
	}
	for _, d := range data.Documents {
		pc.Documents = append(pc.Documents, d.Title)
	}
	return pc
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
