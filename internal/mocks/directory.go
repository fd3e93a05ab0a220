package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/skillforge-api/internal/domain"
	"github.com/phrazzld/skillforge-api/internal/store"
)

// InMemoryDirectory implements the read-only collaborators: the employee
// directory, the document store and the course catalog.
type InMemoryDirectory struct {
	mu        sync.RWMutex
	profiles  map[uuid.UUID]*domain.EmployeeProfile
	order     []uuid.UUID
	documents map[uuid.UUID]*domain.Document
	courses   map[uuid.UUID]*domain.Course

	// GetProfileFn, when set, replaces GetProfile.
	GetProfileFn func(ctx context.Context, employeeID uuid.UUID) (*domain.EmployeeProfile, error)
}

// NewInMemoryDirectory creates an empty directory.
func NewInMemoryDirectory() *InMemoryDirectory {
	return &InMemoryDirectory{
		profiles:  make(map[uuid.UUID]*domain.EmployeeProfile),
		documents: make(map[uuid.UUID]*domain.Document),
		courses:   make(map[uuid.UUID]*domain.Course),
	}
}

var (
	_ store.EmployeeDirectory = (*InMemoryDirectory)(nil)
	_ store.DocumentStore     = (*InMemoryDirectory)(nil)
	_ store.CourseCatalog     = (*InMemoryDirectory)(nil)
)

// AddEmployee registers a profile.
func (d *InMemoryDirectory) AddEmployee(p *domain.EmployeeProfile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.profiles[p.ID]; !exists {
		d.order = append(d.order, p.ID)
	}
	profileCopy := *p
	d.profiles[p.ID] = &profileCopy
}

// AddDocument registers a reference document.
func (d *InMemoryDirectory) AddDocument(doc *domain.Document) {
	d.mu.Lock()
	defer d.mu.Unlock()
	docCopy := *doc
	d.documents[doc.ID] = &docCopy
}

// AddCourse registers a catalog course.
func (d *InMemoryDirectory) AddCourse(c *domain.Course) {
	d.mu.Lock()
	defer d.mu.Unlock()
	courseCopy := *c
	d.courses[c.ID] = &courseCopy
}

// ListActiveByGroup implements store.EmployeeDirectory.
func (d *InMemoryDirectory) ListActiveByGroup(
	_ context.Context,
	groupType domain.GroupType,
	groupID uuid.UUID,
) ([]uuid.UUID, error) {
	if !groupType.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidGroupType, groupType)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	ids := []uuid.UUID{}
	for _, id := range d.order {
		p := d.profiles[id]
		if !p.IsActive {
			continue
		}
		if (groupType == domain.GroupTypeDepartment && p.DepartmentID == groupID) ||
			(groupType == domain.GroupTypePosition && p.PositionID == groupID) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// GetProfile implements store.EmployeeDirectory.
func (d *InMemoryDirectory) GetProfile(ctx context.Context, employeeID uuid.UUID) (*domain.EmployeeProfile, error) {
	if d.GetProfileFn != nil {
		return d.GetProfileFn(ctx, employeeID)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.profiles[employeeID]
	if !ok {
		return nil, store.ErrEmployeeNotFound
	}
	profileCopy := *p
	profileCopy.Skills = append([]domain.Skill{}, p.Skills...)
	profileCopy.SkillGaps = append([]string{}, p.SkillGaps...)
	return &profileCopy, nil
}

// GetDocuments implements store.DocumentStore.
func (d *InMemoryDirectory) GetDocuments(_ context.Context, ids []uuid.UUID) ([]*domain.Document, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	docs := []*domain.Document{}
	for _, id := range ids {
		if doc, ok := d.documents[id]; ok {
			docCopy := *doc
			docs = append(docs, &docCopy)
		}
	}
	return docs, nil
}

// GetCourse implements store.CourseCatalog.
func (d *InMemoryDirectory) GetCourse(_ context.Context, id uuid.UUID) (*domain.Course, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.courses[id]
	if !ok {
		return nil, store.ErrCourseNotFound
	}
	courseCopy := *c
	return &courseCopy, nil
}
