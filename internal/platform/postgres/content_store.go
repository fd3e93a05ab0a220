package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/skillforge-api/internal/domain"
	"github.com/phrazzld/skillforge-api/internal/platform/logger"
	"github.com/phrazzld/skillforge-api/internal/store"
)

const contentColumns = `id, employee_id, course_id, job_id, title, description, learning_objectives,
	personalization_params, personalization_context, is_active, is_regenerating, created_at, updated_at`

// PostgresContentStore implements the store.ContentStore interface
// using a PostgreSQL database as the storage backend.
type PostgresContentStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresContentStore creates a new PostgreSQL implementation of the ContentStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresContentStore(db *sql.DB, logger *slog.Logger) *PostgresContentStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresContentStore{
		db:     db,
		logger: logger.With(slog.String("component", "content_store")),
	}
}

// Ensure PostgresContentStore implements store.ContentStore interface
var _ store.ContentStore = (*PostgresContentStore)(nil)

// SaveActive implements store.ContentStore.SaveActive
func (s *PostgresContentStore) SaveActive(ctx context.Context, content *domain.GeneratedContent) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := content.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	objectives, err := json.Marshal(content.LearningObjectives)
	if err != nil {
		return fmt.Errorf("failed to marshal learning objectives: %w", err)
	}

	var superseded int64
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if content.CourseID != nil {
			result, err := tx.ExecContext(ctx, `
				UPDATE generated_content
				SET is_active = FALSE, is_regenerating = FALSE, updated_at = $3
				WHERE employee_id = $1 AND course_id = $2 AND is_active
			`, content.EmployeeID, *content.CourseID, content.UpdatedAt)
			if err != nil {
				return MapError(err)
			}
			if superseded, err = result.RowsAffected(); err != nil {
				return fmt.Errorf("failed to get rows affected: %w", err)
			}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO generated_content (`+contentColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE, FALSE, $10, $11)
		`,
			content.ID, content.EmployeeID, nullUUID(content.CourseID), nullUUID(content.JobID),
			content.Title, content.Description, objectives,
			nullJSON(content.PersonalizationParams), nullJSON(content.PersonalizationContext),
			content.CreatedAt, content.UpdatedAt,
		)
		if err != nil {
			return MapError(err)
		}

		for _, m := range content.Modules {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO content_modules (id, content_id, title, description, order_index)
				VALUES ($1, $2, $3, $4, $5)
			`, m.ID, content.ID, m.Title, m.Description, m.OrderIndex)
			if err != nil {
				return MapError(err)
			}
		}
		return nil
	})
	if err != nil {
		log.Error("failed to save content",
			slog.String("content_id", content.ID.String()),
			slog.String("employee_id", content.EmployeeID.String()),
			slog.String("error", err.Error()))
		return err
	}

	content.IsActive = true
	content.IsRegenerating = false
	log.Info("content saved",
		slog.String("content_id", content.ID.String()),
		slog.String("employee_id", content.EmployeeID.String()),
		slog.Int("modules", len(content.Modules)),
		slog.Int64("superseded", superseded))
	return nil
}

// SaveSection implements store.ContentStore.SaveSection
func (s *PostgresContentStore) SaveSection(ctx context.Context, section *domain.Section) error {
	quiz, err := json.Marshal(section.Quiz)
	if err != nil {
		return fmt.Errorf("failed to marshal quiz: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO content_sections
			(id, content_id, module_id, title, content, case_study, actionable_takeaway, quiz, order_index)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		section.ID, section.ContentID, section.ModuleID, section.Title, section.Content,
		section.CaseStudy, section.ActionableTakeaway, quiz, section.OrderIndex,
	)
	if err != nil {
		return fmt.Errorf("failed to save section: %w", MapError(err))
	}
	return nil
}

// GetByID implements store.ContentStore.GetByID
func (s *PostgresContentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.GeneratedContent, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+contentColumns+` FROM generated_content WHERE id = $1`, id)
	return s.load(ctx, row)
}

// GetActive implements store.ContentStore.GetActive
func (s *PostgresContentStore) GetActive(
	ctx context.Context,
	employeeID, courseID uuid.UUID,
) (*domain.GeneratedContent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+contentColumns+`
		FROM generated_content
		WHERE employee_id = $1 AND course_id = $2 AND is_active
	`, employeeID, courseID)
	return s.load(ctx, row)
}

// FindActiveForJob implements store.ContentStore.FindActiveForJob
func (s *PostgresContentStore) FindActiveForJob(
	ctx context.Context,
	employeeID, jobID uuid.UUID,
) (*domain.GeneratedContent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+contentColumns+`
		FROM generated_content
		WHERE employee_id = $1 AND job_id = $2 AND is_active
		ORDER BY created_at DESC
		LIMIT 1
	`, employeeID, jobID)
	return s.load(ctx, row)
}

// MarkRegenerating implements store.ContentStore.MarkRegenerating
func (s *PostgresContentStore) MarkRegenerating(ctx context.Context, contentID uuid.UUID) error {
	now := time.Now().UTC()
	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE generated_content
			SET is_regenerating = TRUE, updated_at = $2
			WHERE id = $1
		`, contentID, now)
		if err != nil {
			return MapError(err)
		}
		if err := CheckRowsAffected(result, "generated content"); err != nil {
			return store.ErrContentNotFound
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE content_sections
			SET content = $2, case_study = '', actionable_takeaway = ''
			WHERE content_id = $1
		`, contentID, domain.RegenerationPlaceholder)
		return MapError(err)
	})
}

// ClearRegenerating implements store.ContentStore.ClearRegenerating
func (s *PostgresContentStore) ClearRegenerating(ctx context.Context, contentID uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE generated_content
		SET is_regenerating = FALSE, updated_at = $2
		WHERE id = $1
	`, contentID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to clear regenerating flag: %w", MapError(err))
	}
	if err := CheckRowsAffected(result, "generated content"); err != nil {
		return store.ErrContentNotFound
	}
	return nil
}

// load scans a content header row and attaches its modules and sections.
func (s *PostgresContentStore) load(ctx context.Context, row *sql.Row) (*domain.GeneratedContent, error) {
	content, err := scanContent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrContentNotFound
		}
		return nil, fmt.Errorf("failed to get content: %w", MapError(err))
	}

	modules, err := s.loadModules(ctx, content.ID)
	if err != nil {
		return nil, err
	}
	content.Modules = modules
	return content, nil
}

func (s *PostgresContentStore) loadModules(ctx context.Context, contentID uuid.UUID) ([]*domain.Module, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, order_index
		FROM content_modules
		WHERE content_id = $1
		ORDER BY order_index
	`, contentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query modules: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var modules []*domain.Module
	byID := make(map[uuid.UUID]*domain.Module)
	for rows.Next() {
		m := &domain.Module{Sections: []*domain.Section{}}
		if err := rows.Scan(&m.ID, &m.Title, &m.Description, &m.OrderIndex); err != nil {
			return nil, fmt.Errorf("failed to scan module row: %w", err)
		}
		modules = append(modules, m)
		byID[m.ID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating module rows: %w", err)
	}

	sectionRows, err := s.db.QueryContext(ctx, `
		SELECT id, module_id, title, content, case_study, actionable_takeaway, quiz, order_index
		FROM content_sections
		WHERE content_id = $1
		ORDER BY order_index
	`, contentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sections: %w", MapError(err))
	}
	defer func() { _ = sectionRows.Close() }()

	for sectionRows.Next() {
		sec := &domain.Section{ContentID: contentID}
		var quiz []byte
		if err := sectionRows.Scan(
			&sec.ID, &sec.ModuleID, &sec.Title, &sec.Content, &sec.CaseStudy,
			&sec.ActionableTakeaway, &quiz, &sec.OrderIndex,
		); err != nil {
			return nil, fmt.Errorf("failed to scan section row: %w", err)
		}
		if len(quiz) > 0 {
			if err := json.Unmarshal(quiz, &sec.Quiz); err != nil {
				return nil, fmt.Errorf("failed to decode quiz: %w", err)
			}
		}
		if m, ok := byID[sec.ModuleID]; ok {
			m.Sections = append(m.Sections, sec)
		}
	}
	if err := sectionRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating section rows: %w", err)
	}

	return modules, nil
}

func scanContent(row rowScanner) (*domain.GeneratedContent, error) {
	var (
		c                   domain.GeneratedContent
		courseID, jobID     uuid.NullUUID
		objectives          []byte
		params, personalCtx []byte
	)

	err := row.Scan(
		&c.ID, &c.EmployeeID, &courseID, &jobID, &c.Title, &c.Description, &objectives,
		&params, &personalCtx, &c.IsActive, &c.IsRegenerating, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.CourseID = uuidPtr(courseID)
	c.JobID = uuidPtr(jobID)
	if len(params) > 0 {
		c.PersonalizationParams = params
	}
	if len(personalCtx) > 0 {
		c.PersonalizationContext = personalCtx
	}
	if len(objectives) > 0 {
		if err := json.Unmarshal(objectives, &c.LearningObjectives); err != nil {
			return nil, fmt.Errorf("failed to decode learning objectives: %w", err)
		}
	}
	return &c, nil
}

// nullJSON stores an absent document as SQL NULL rather than an empty string.
func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
