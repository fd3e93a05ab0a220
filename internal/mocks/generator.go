package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/phrazzld/skillforge-api/internal/domain"
	"github.com/phrazzld/skillforge-api/internal/generation"
)

// MockGenerator implements generation.Generator for testing
type MockGenerator struct {
	// GenerateCourseFn allows test cases to mock the GenerateCourse behavior
	GenerateCourseFn func(ctx context.Context, prompt string) (*generation.CourseDraft, error)

	// Default response values
	Draft *generation.CourseDraft
	Err   error

	mu      sync.Mutex
	prompts []string
}

var _ generation.Generator = (*MockGenerator)(nil)

// GenerateCourse implements the generation.Generator interface
func (m *MockGenerator) GenerateCourse(ctx context.Context, prompt string) (*generation.CourseDraft, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.GenerateCourseFn != nil {
		return m.GenerateCourseFn(ctx, prompt)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Draft == nil {
		return NewCourseDraft(generation.MinModules, generation.MinSections), nil
	}
	draftCopy := *m.Draft
	return &draftCopy, nil
}

// Calls returns how many times GenerateCourse was called.
func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// Prompts returns every prompt passed to GenerateCourse.
func (m *MockGenerator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// NewMockGeneratorWithError creates a MockGenerator that returns the specified error
func NewMockGeneratorWithError(err error) *MockGenerator {
	return &MockGenerator{Err: err}
}

// NewCourseDraft builds a valid draft with the given shape.
func NewCourseDraft(modules, sections int) *generation.CourseDraft {
	draft := &generation.CourseDraft{
		Title:              "Secure Coding in Practice",
		Description:        "Hands-on habits for writing code that resists attack.",
		LearningObjectives: []string{"Spot injection risks", "Apply least privilege"},
	}
	for i := 0; i < modules; i++ {
		m := generation.ModuleDraft{
			Title:       fmt.Sprintf("Module %d", i+1),
			Description: "Why it matters and how to apply it.",
		}
		for j := 0; j < sections; j++ {
			m.Sections = append(m.Sections, generation.SectionDraft{
				Title:              fmt.Sprintf("Section %d.%d", i+1, j+1),
				Content:            "Explanation tailored to the reader.",
				CaseStudy:          "A team shipped a fix after a review caught the flaw.",
				ActionableTakeaway: "Review one pull request with this checklist.",
				Quiz: domain.Quiz{
					Question:      "Which input should be trusted?",
					Options:       []string{"None without validation", "All internal input"},
					CorrectAnswer: 0,
					Explanation:   "Every input is validated at the boundary.",
				},
			})
		}
		draft.Modules = append(draft.Modules, m)
	}
	return draft
}
