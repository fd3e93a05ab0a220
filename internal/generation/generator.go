package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/skillforge-api/internal/domain"
)

// Course shape bounds requested from the model and enforced on its output.
const (
	MinModules  = 3
	MaxModules  = 5
	MinSections = 2
	MaxSections = 4
)

// Generator defines the interface for generating personalized courses.
// This interface serves as a boundary between the application core and
// external AI/LLM services, following the hexagonal architecture pattern.
type Generator interface {
	// GenerateCourse sends the rendered prompt to the model and returns the
	// parsed course. Errors wrap ErrInvalidResponse, ErrContentBlocked,
	// ErrTransientFailure or ErrGenerationFailed.
	GenerateCourse(ctx context.Context, prompt string) (*CourseDraft, error)
}

// CourseDraft is the course structure the model is asked to return.
type CourseDraft struct {
	Title              string        `json:"title"`
	Description        string        `json:"description"`
	LearningObjectives []string      `json:"learning_objectives"`
	Modules            []ModuleDraft `json:"modules"`
}

// ModuleDraft is one module of a CourseDraft.
type ModuleDraft struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Sections    []SectionDraft `json:"sections"`
}

// SectionDraft is one section of a ModuleDraft.
type SectionDraft struct {
	Title              string      `json:"title"`
	Content            string      `json:"content"`
	CaseStudy          string      `json:"case_study"`
	ActionableTakeaway string      `json:"actionable_takeaway"`
	Quiz               domain.Quiz `json:"quiz"`
}

// Validate checks the draft against the required course shape.
// Every violation wraps ErrInvalidResponse.
func (d *CourseDraft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("%w: course title is missing", ErrInvalidResponse)
	}
	if len(d.LearningObjectives) == 0 {
		return fmt.Errorf("%w: learning objectives are missing", ErrInvalidResponse)
	}
	if n := len(d.Modules); n < MinModules || n > MaxModules {
		return fmt.Errorf("%w: expected %d-%d modules, got %d", ErrInvalidResponse, MinModules, MaxModules, n)
	}

	for i, m := range d.Modules {
		if strings.TrimSpace(m.Title) == "" {
			return fmt.Errorf("%w: module %d has no title", ErrInvalidResponse, i+1)
		}
		if n := len(m.Sections); n < MinSections || n > MaxSections {
			return fmt.Errorf("%w: module %d: expected %d-%d sections, got %d",
				ErrInvalidResponse, i+1, MinSections, MaxSections, n)
		}
		for j, s := range m.Sections {
			if err := s.validate(); err != nil {
				return fmt.Errorf("%w: module %d section %d: %v", ErrInvalidResponse, i+1, j+1, err)
			}
		}
	}

	return nil
}

func (s SectionDraft) validate() error {
	switch {
	case strings.TrimSpace(s.Title) == "":
		return errors.New("title is missing")
	case strings.TrimSpace(s.Content) == "":
		return errors.New("content is missing")
	case strings.TrimSpace(s.CaseStudy) == "":
		return errors.New("case study is missing")
	case strings.TrimSpace(s.ActionableTakeaway) == "":
		return errors.New("actionable takeaway is missing")
	}
	return s.Quiz.Validate()
}

// ContentTarget identifies who and what a draft is being materialized for.
type ContentTarget struct {
	EmployeeID uuid.UUID
	CourseID   *uuid.UUID
	JobID      *uuid.UUID
}

// ToContent materializes the draft as an active GeneratedContent record with
// fresh ids. Order indexes follow the draft's ordering.
func (d *CourseDraft) ToContent(target ContentTarget) *domain.GeneratedContent {
	now := time.Now().UTC()
	content := &domain.GeneratedContent{
		ID:                 uuid.New(),
		EmployeeID:         target.EmployeeID,
		CourseID:           target.CourseID,
		JobID:              target.JobID,
		Title:              strings.TrimSpace(d.Title),
		Description:        strings.TrimSpace(d.Description),
		LearningObjectives: d.LearningObjectives,
		Modules:            make([]*domain.Module, 0, len(d.Modules)),
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	for i, m := range d.Modules {
		module := &domain.Module{
			ID:          uuid.New(),
			Title:       strings.TrimSpace(m.Title),
			Description: strings.TrimSpace(m.Description),
			OrderIndex:  i,
			Sections:    make([]*domain.Section, 0, len(m.Sections)),
		}
		for j, s := range m.Sections {
			module.Sections = append(module.Sections, &domain.Section{
				ID:                 uuid.New(),
				ContentID:          content.ID,
				ModuleID:           module.ID,
				Title:              strings.TrimSpace(s.Title),
				Content:            s.Content,
				CaseStudy:          s.CaseStudy,
				ActionableTakeaway: s.ActionableTakeaway,
				Quiz:               s.Quiz,
				OrderIndex:         j,
			})
		}
		content.Modules = append(content.Modules, module)
	}

	return content
}
