package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/skillforge-api/internal/domain"
	"github.com/phrazzld/skillforge-api/internal/store"
)

// PostgresDirectoryStore implements the read-only collaborators of the
// pipeline: the employee directory, the document store and the course
// catalog.
type PostgresDirectoryStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresDirectoryStore creates a directory store over db.
// If logger is nil, a default logger will be used.
func NewPostgresDirectoryStore(db store.DBTX, logger *slog.Logger) *PostgresDirectoryStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresDirectoryStore{
		db:     db,
		logger: logger.With(slog.String("component", "directory_store")),
	}
}

var (
	_ store.EmployeeDirectory = (*PostgresDirectoryStore)(nil)
	_ store.DocumentStore     = (*PostgresDirectoryStore)(nil)
	_ store.CourseCatalog     = (*PostgresDirectoryStore)(nil)
)

// ListActiveByGroup implements store.EmployeeDirectory.ListActiveByGroup
func (s *PostgresDirectoryStore) ListActiveByGroup(
	ctx context.Context,
	groupType domain.GroupType,
	groupID uuid.UUID,
) ([]uuid.UUID, error) {
	var column string
	switch groupType {
	case domain.GroupTypeDepartment:
		column = "department_id"
	case domain.GroupTypePosition:
		column = "position_id"
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidGroupType, groupType)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM employees
		WHERE `+column+` = $1 AND is_active
		ORDER BY full_name, id
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan employee id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating employee rows: %w", err)
	}

	s.logger.DebugContext(ctx, "resolved employee group",
		slog.String("group_type", string(groupType)),
		slog.String("group_id", groupID.String()),
		slog.Int("employees", len(ids)))
	return ids, nil
}

// GetProfile implements store.EmployeeDirectory.GetProfile
func (s *PostgresDirectoryStore) GetProfile(ctx context.Context, employeeID uuid.UUID) (*domain.EmployeeProfile, error) {
	var (
		p                        domain.EmployeeProfile
		departmentID, positionID uuid.NullUUID
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT e.id, e.full_name, e.email, e.department_id, COALESCE(d.name, ''),
			e.position_id, COALESCE(p.name, ''), e.is_active,
			e.experience_years, e.learning_style, e.weekly_hours
		FROM employees e
		LEFT JOIN departments d ON d.id = e.department_id
		LEFT JOIN positions p ON p.id = e.position_id
		WHERE e.id = $1
	`, employeeID).Scan(
		&p.ID, &p.FullName, &p.Email, &departmentID, &p.DepartmentName,
		&positionID, &p.PositionName, &p.IsActive,
		&p.ExperienceYears, &p.LearningStyle, &p.WeeklyHours,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("failed to get employee: %w", MapError(err))
	}
	p.DepartmentID = departmentID.UUID
	p.PositionID = positionID.UUID

	skillRows, err := s.db.QueryContext(ctx, `
		SELECT name, proficiency FROM employee_skills
		WHERE employee_id = $1
		ORDER BY name
	`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query skills: %w", MapError(err))
	}
	defer func() { _ = skillRows.Close() }()

	p.Skills = []domain.Skill{}
	for skillRows.Next() {
		var sk domain.Skill
		if err := skillRows.Scan(&sk.Name, &sk.Proficiency); err != nil {
			return nil, fmt.Errorf("failed to scan skill row: %w", err)
		}
		p.Skills = append(p.Skills, sk)
	}
	if err := skillRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating skill rows: %w", err)
	}

	gapRows, err := s.db.QueryContext(ctx, `
		SELECT name FROM employee_skill_gaps
		WHERE employee_id = $1
		ORDER BY name
	`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query skill gaps: %w", MapError(err))
	}
	defer func() { _ = gapRows.Close() }()

	p.SkillGaps = []string{}
	for gapRows.Next() {
		var gap string
		if err := gapRows.Scan(&gap); err != nil {
			return nil, fmt.Errorf("failed to scan skill gap row: %w", err)
		}
		p.SkillGaps = append(p.SkillGaps, gap)
	}
	if err := gapRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating skill gap rows: %w", err)
	}

	return &p, nil
}

// GetDocuments implements store.DocumentStore.GetDocuments
func (s *PostgresDirectoryStore) GetDocuments(ctx context.Context, ids []uuid.UUID) ([]*domain.Document, error) {
	if len(ids) == 0 {
		return []*domain.Document{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, content FROM documents
		WHERE id IN (`+strings.Join(placeholders, ", ")+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	found := make(map[uuid.UUID]*domain.Document, len(ids))
	for rows.Next() {
		var d domain.Document
		if err := rows.Scan(&d.ID, &d.Title, &d.Content); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		found[d.ID] = &d
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document rows: %w", err)
	}

	docs := make([]*domain.Document, 0, len(found))
	for _, id := range ids {
		if d, ok := found[id]; ok {
			docs = append(docs, d)
			delete(found, id)
		}
	}
	if len(docs) < len(ids) {
		s.logger.WarnContext(ctx, "some reference documents were not found",
			slog.Int("requested", len(ids)),
			slog.Int("found", len(docs)))
	}
	return docs, nil
}

// GetCourse implements store.CourseCatalog.GetCourse
func (s *PostgresDirectoryStore) GetCourse(ctx context.Context, id uuid.UUID) (*domain.Course, error) {
	var c domain.Course
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, difficulty_level
		FROM courses
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Title, &c.Description, &c.DifficultyLevel)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", MapError(err))
	}
	return &c, nil
}
