package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/skillforge-api/internal/domain"
)

// EmployeeDirectory resolves employee groups and profiles.
type EmployeeDirectory interface {
	// ListActiveByGroup returns the IDs of active employees in a department or
	// position. An unknown group yields an empty slice.
	ListActiveByGroup(ctx context.Context, groupType domain.GroupType, groupID uuid.UUID) ([]uuid.UUID, error)

	// GetProfile returns an employee with skills and skill gaps.
	// Returns ErrEmployeeNotFound if the employee does not exist.
	GetProfile(ctx context.Context, employeeID uuid.UUID) (*domain.EmployeeProfile, error)
}

// DocumentStore fetches reference documents.
type DocumentStore interface {
	// GetDocuments returns the documents that exist among ids, in the order
	// requested. Unknown ids are skipped.
	GetDocuments(ctx context.Context, ids []uuid.UUID) ([]*domain.Document, error)
}

// CourseCatalog looks up course records.
type CourseCatalog interface {
	// GetCourse returns a course by ID.
	// Returns ErrCourseNotFound if the course does not exist.
	GetCourse(ctx context.Context, id uuid.UUID) (*domain.Course, error)
}
