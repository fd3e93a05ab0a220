package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/skillforge-api/internal/domain"
)

// ContentStore defines persistence for generated course content.
// Content is never deleted; newer records supersede older ones through the
// active flag.
type ContentStore interface {
	// SaveActive writes a content record and its module headers as the active
	// record for its employee and course, deactivating any previously active
	// record in the same transaction. Sections are not written; see SaveSection.
	SaveActive(ctx context.Context, content *domain.GeneratedContent) error

	// SaveSection writes one section of a previously saved content record.
	SaveSection(ctx context.Context, section *domain.Section) error

	// GetByID retrieves a content record with its modules and sections.
	// Returns ErrContentNotFound if the record does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.GeneratedContent, error)

	// GetActive retrieves the active record for an employee and course.
	// Returns ErrContentNotFound if there is none.
	GetActive(ctx context.Context, employeeID, courseID uuid.UUID) (*domain.GeneratedContent, error)

	// FindActiveForJob retrieves the active record an employee received from a
	// given job. Returns ErrContentNotFound if there is none.
	FindActiveForJob(ctx context.Context, employeeID, jobID uuid.UUID) (*domain.GeneratedContent, error)

	// MarkRegenerating flags a record as regenerating and replaces its section
	// bodies with the regeneration placeholder, atomically.
	MarkRegenerating(ctx context.Context, contentID uuid.UUID) error

	// ClearRegenerating removes the regenerating flag from a record.
	ClearRegenerating(ctx context.Context, contentID uuid.UUID) error
}
