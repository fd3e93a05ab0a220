package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/skillforge-api/internal/domain"
	"github.com/phrazzld/skillforge-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var contentColumnNames = []string{
	"id", "employee_id", "course_id", "job_id", "title", "description", "learning_objectives",
	"personalization_params", "personalization_context", "is_active", "is_regenerating",
	"created_at", "updated_at",
}

func newTestContent(courseID *uuid.UUID) *domain.GeneratedContent {
	now := time.Now().UTC()
	c := &domain.GeneratedContent{
		ID:                 uuid.New(),
		EmployeeID:         uuid.New(),
		CourseID:           courseID,
		Title:              "Negotiation Basics",
		LearningObjectives: []string{"Prepare a BATNA"},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	for i := 0; i < 2; i++ {
		m := &domain.Module{ID: uuid.New(), Title: "Module", OrderIndex: i}
		for j := 0; j < 2; j++ {
			m.Sections = append(m.Sections, &domain.Section{
				ID: uuid.New(), ContentID: c.ID, ModuleID: m.ID, Title: "Section", Content: "Body", OrderIndex: j,
			})
		}
		c.Modules = append(c.Modules, m)
	}
	return c
}

func TestPostgresContentStore_SaveActive_SupersedesPrior(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresContentStore(db, nil)
	courseID := uuid.New()
	content := newTestContent(&courseID)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE generated_content SET is_active = FALSE").
		WithArgs(content.EmployeeID, courseID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO generated_content").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO content_modules").
		WithArgs(content.Modules[0].ID, content.ID, "Module", "", 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO content_modules").
		WithArgs(content.Modules[1].ID, content.ID, "Module", "", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.SaveActive(context.Background(), content))
	assert.True(t, content.IsActive)
}

func TestPostgresContentStore_SaveActive_WithoutCourse(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresContentStore(db, nil)
	content := newTestContent(nil)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO generated_content").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO content_modules").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO content_modules").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.SaveActive(context.Background(), content))
}

func TestPostgresContentStore_SaveActive_RollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresContentStore(db, nil)
	courseID := uuid.New()
	content := newTestContent(&courseID)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE generated_content").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO generated_content").WillReturnError(pgError("23505"))
	mock.ExpectRollback()

	err := s.SaveActive(context.Background(), content)
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestPostgresContentStore_SaveActive_Invalid(t *testing.T) {
	db, _ := newMockDB(t)
	s := NewPostgresContentStore(db, nil)
	content := newTestContent(nil)
	content.Modules[0].Sections[1].OrderIndex = 0

	err := s.SaveActive(context.Background(), content)
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
	assert.Contains(t, err.Error(), domain.ErrDuplicateOrderIndex.Error())
}

func TestPostgresContentStore_SaveSection(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresContentStore(db, nil)
	section := newTestContent(nil).Modules[0].Sections[0]

	mock.ExpectExec("INSERT INTO content_sections").
		WithArgs(section.ID, section.ContentID, section.ModuleID, section.Title, section.Content,
			"", "", sqlmock.AnyArg(), 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.SaveSection(context.Background(), section))

	mock.ExpectExec("INSERT INTO content_sections").WillReturnError(pgError("23505"))
	err := s.SaveSection(context.Background(), section)
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestPostgresContentStore_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresContentStore(db, nil)

	id, employeeID, jobID := uuid.New(), uuid.New(), uuid.New()
	m1, m2 := uuid.New(), uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery("FROM generated_content WHERE id").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(contentColumnNames).AddRow(
			id.String(), employeeID.String(), nil, jobID.String(), "Negotiation", "", []byte(`["Prepare"]`),
			[]byte(`{"title":"Negotiation"}`), nil, true, false, now, now,
		))
	mock.ExpectQuery("FROM content_modules").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "order_index"}).
			AddRow(m1.String(), "Intro", "", int64(0)).
			AddRow(m2.String(), "Practice", "", int64(1)))
	mock.ExpectQuery("FROM content_sections").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "module_id", "title", "content", "case_study", "actionable_takeaway", "quiz", "order_index",
		}).
			AddRow(uuid.NewString(), m1.String(), "Why", "Body", "Case", "Do", []byte(`{"question":"Q","options":["a","b"],"correct_answer":1}`), int64(0)).
			AddRow(uuid.NewString(), m2.String(), "How", "Body", "Case", "Do", []byte(`{}`), int64(0)).
			AddRow(uuid.NewString(), m1.String(), "What", "Body", "Case", "Do", []byte(`{}`), int64(1)))

	content, err := s.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, employeeID, content.EmployeeID)
	assert.Nil(t, content.CourseID)
	require.NotNil(t, content.JobID)
	assert.Equal(t, jobID, *content.JobID)
	assert.Equal(t, []string{"Prepare"}, content.LearningObjectives)
	assert.JSONEq(t, `{"title":"Negotiation"}`, string(content.PersonalizationParams))
	assert.Nil(t, content.PersonalizationContext)

	require.Len(t, content.Modules, 2)
	require.Len(t, content.Modules[0].Sections, 2)
	assert.Equal(t, "Why", content.Modules[0].Sections[0].Title)
	assert.Equal(t, 1, content.Modules[0].Sections[0].Quiz.CorrectAnswer)
	assert.Equal(t, "What", content.Modules[0].Sections[1].Title)
	require.Len(t, content.Modules[1].Sections, 1)
	assert.Equal(t, id, content.Modules[1].Sections[0].ContentID)
}

func TestPostgresContentStore_GetActive_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresContentStore(db, nil)

	mock.ExpectQuery("FROM generated_content WHERE employee_id = \\$1 AND course_id").
		WillReturnRows(sqlmock.NewRows(contentColumnNames))

	_, err := s.GetActive(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, store.ErrContentNotFound)

	mock.ExpectQuery("FROM generated_content WHERE employee_id = \\$1 AND job_id").
		WillReturnRows(sqlmock.NewRows(contentColumnNames))

	_, err = s.FindActiveForJob(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, store.ErrContentNotFound)
}

func TestPostgresContentStore_MarkRegenerating(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresContentStore(db, nil)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE generated_content SET is_regenerating = TRUE").
		WithArgs(id, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE content_sections").
		WithArgs(id, domain.RegenerationPlaceholder).
		WillReturnResult(sqlmock.NewResult(0, 6))
	mock.ExpectCommit()

	require.NoError(t, s.MarkRegenerating(context.Background(), id))
}

func TestPostgresContentStore_MarkRegenerating_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresContentStore(db, nil)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE generated_content").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.MarkRegenerating(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrContentNotFound)
}

func TestPostgresContentStore_ClearRegenerating(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresContentStore(db, nil)
	id := uuid.New()

	mock.ExpectExec("UPDATE generated_content SET is_regenerating = FALSE").
		WithArgs(id, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.ClearRegenerating(context.Background(), id))

	mock.ExpectExec("UPDATE generated_content").WillReturnError(errors.New("connection reset"))
	assert.Error(t, s.ClearRegenerating(context.Background(), id))
}
