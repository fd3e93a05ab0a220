package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RegenerationPlaceholder replaces section bodies while new content is generated.
const RegenerationPlaceholder = "This section is being regenerated with updated, personalized content. Please check back shortly."

// Common validation errors for GeneratedContent
var (
	ErrEmptyContentID         = errors.New("content ID cannot be empty")
	ErrEmptyContentEmployeeID = errors.New("content employee ID cannot be empty")
	ErrEmptyContentTitle      = errors.New("content title cannot be empty")
	ErrEmptyModules           = errors.New("content must contain at least one module")
	ErrEmptySections          = errors.New("module must contain at least one section")
	ErrDuplicateOrderIndex    = errors.New("section order index must be unique within a module")
	ErrInvalidQuiz            = errors.New("invalid quiz")
)

// Quiz is a single multiple-choice question closing a section.
type Quiz struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

// Validate checks that the quiz has a question and a correct answer within
// the range of its options.
func (q Quiz) Validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return fmt.Errorf("%w: question is empty", ErrInvalidQuiz)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: at least two options are required", ErrInvalidQuiz)
	}
	if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
		return fmt.Errorf("%w: correct answer %d out of range", ErrInvalidQuiz, q.CorrectAnswer)
	}
	return nil
}

// Section is one readable unit of a module.
type Section struct {
	ID                 uuid.UUID `json:"id"`
	ContentID          uuid.UUID `json:"content_id"`
	ModuleID           uuid.UUID `json:"module_id"`
	Title              string    `json:"title"`
	Content            string    `json:"content"`
	CaseStudy          string    `json:"case_study"`
	ActionableTakeaway string    `json:"actionable_takeaway"`
	Quiz               Quiz      `json:"quiz"`
	OrderIndex         int       `json:"order_index"`
}

// Module groups ordered sections under a heading.
type Module struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	OrderIndex  int        `json:"order_index"`
	Sections    []*Section `json:"sections"`
}

// GeneratedContent is a personalized course generated for one employee.
// Records are superseded by newer ones through IsActive and never deleted.
type GeneratedContent struct {
	ID                     uuid.UUID       `json:"id"`
	EmployeeID             uuid.UUID       `json:"employee_id"`
	CourseID               *uuid.UUID      `json:"course_id,omitempty"`
	JobID                  *uuid.UUID      `json:"job_id,omitempty"`
	Title                  string          `json:"title"`
	Description            string          `json:"description"`
	LearningObjectives     []string        `json:"learning_objectives"`
	Modules                []*Module       `json:"modules"`
	PersonalizationParams  json.RawMessage `json:"personalization_params,omitempty"`
	PersonalizationContext json.RawMessage `json:"personalization_context,omitempty"`
	IsActive               bool            `json:"is_active"`
	IsRegenerating         bool            `json:"is_regenerating"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

// Validate checks if the GeneratedContent has valid data, including the
// ordering invariant of every module's sections.
func (c *GeneratedContent) Validate() error {
	if c.ID == uuid.Nil {
		return ErrEmptyContentID
	}
	if c.EmployeeID == uuid.Nil {
		return ErrEmptyContentEmployeeID
	}
	if strings.TrimSpace(c.Title) == "" {
		return ErrEmptyContentTitle
	}
	if len(c.Modules) == 0 {
		return ErrEmptyModules
	}

	for _, m := range c.Modules {
		if len(m.Sections) == 0 {
			return fmt.Errorf("%w: module %q", ErrEmptySections, m.Title)
		}
		seen := make(map[int]struct{}, len(m.Sections))
		for _, s := range m.Sections {
			if _, dup := seen[s.OrderIndex]; dup {
				return fmt.Errorf("%w: module %q index %d", ErrDuplicateOrderIndex, m.Title, s.OrderIndex)
			}
			seen[s.OrderIndex] = struct{}{}
		}
	}

	return nil
}

// SectionCount returns the number of sections across all modules.
func (c *GeneratedContent) SectionCount() int {
	n := 0
	for _, m := range c.Modules {
		n += len(m.Sections)
	}
	return n
}

// MarkRegenerating flags the content as being regenerated and swaps every
// section body for the regeneration placeholder.
func (c *GeneratedContent) MarkRegenerating() {
	c.IsRegenerating = true
	c.UpdatedAt = time.Now().UTC()
	for _, m := range c.Modules {
		for _, s := range m.Sections {
			s.Content = RegenerationPlaceholder
			s.CaseStudy = ""
			s.ActionableTakeaway = ""
		}
	}
}
