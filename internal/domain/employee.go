package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ErrMalformedProfile is returned when an employee profile lacks the facts a
// personalized prompt needs.
var ErrMalformedProfile = errors.New("malformed employee profile")

// Employee is a directory entry.
type Employee struct {
	ID             uuid.UUID `json:"id"`
	FullName       string    `json:"full_name"`
	Email          string    `json:"email"`
	DepartmentID   uuid.UUID `json:"department_id"`
	DepartmentName string    `json:"department_name"`
	PositionID     uuid.UUID `json:"position_id"`
	PositionName   string    `json:"position_name"`
	IsActive       bool      `json:"is_active"`
}

// Skill is an existing competency with an optional proficiency label.
type Skill struct {
	Name        string `json:"name"`
	Proficiency string `json:"proficiency,omitempty"`
}

// EmployeeProfile is everything the directory knows that shapes a
// personalized course.
type EmployeeProfile struct {
	Employee
	ExperienceYears int      `json:"experience_years,omitempty"`
	LearningStyle   string   `json:"learning_style,omitempty"`
	WeeklyHours     int      `json:"weekly_hours,omitempty"`
	Skills          []Skill  `json:"skills"`
	SkillGaps       []string `json:"skill_gaps"`
}

// Validate reports ErrMalformedProfile when identity, department or position
// facts are missing.
func (p *EmployeeProfile) Validate() error {
	var missing []string
	if p.ID == uuid.Nil {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(p.FullName) == "" {
		missing = append(missing, "full name")
	}
	if strings.TrimSpace(p.DepartmentName) == "" {
		missing = append(missing, "department")
	}
	if strings.TrimSpace(p.PositionName) == "" {
		missing = append(missing, "position")
	}

	if len(missing) > 0 {
		return &ProfileError{EmployeeID: p.ID, Missing: missing}
	}
	return nil
}

// ProfileError lists the profile fields that are missing.
type ProfileError struct {
	EmployeeID uuid.UUID
	Missing    []string
}

// Error implements the error interface.
func (e *ProfileError) Error() string {
	return "employee profile " + e.EmployeeID.String() + " is missing " + strings.Join(e.Missing, ", ")
}

// Unwrap allows errors.Is(err, ErrMalformedProfile).
func (e *ProfileError) Unwrap() error {
	return ErrMalformedProfile
}

// Document is a reference document whose excerpt can ground a prompt.
type Document struct {
	ID      uuid.UUID `json:"id"`
	Title   string    `json:"title"`
	Content string    `json:"content"`
}

// Excerpt returns at most limit characters of the document body.
// A non-positive limit returns the whole body.
func (d *Document) Excerpt(limit int) string {
	body := strings.TrimSpace(d.Content)
	if limit <= 0 {
		return body
	}
	runes := []rune(body)
	if len(runes) <= limit {
		return body
	}
	return string(runes[:limit])
}

// Course is a catalog entry that generated content can be published against.
type Course struct {
	ID              uuid.UUID       `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	DifficultyLevel DifficultyLevel `json:"difficulty_level"`
}
