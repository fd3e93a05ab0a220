package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/skillforge-api/internal/domain"
	"github.com/phrazzld/skillforge-api/internal/store"
)

// InMemoryContentStore implements store.ContentStore. Like the PostgreSQL
// store, SaveActive writes the record and module headers and SaveSection adds
// sections one at a time.
type InMemoryContentStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*domain.GeneratedContent
	order   []uuid.UUID

	// SaveActiveFn, when set, is consulted first; a non-nil error aborts the save.
	SaveActiveFn func(ctx context.Context, content *domain.GeneratedContent) error

	// SaveSectionFn, when set, is consulted first; a non-nil error aborts the save.
	SaveSectionFn func(ctx context.Context, section *domain.Section) error
}

// NewInMemoryContentStore creates an empty content store.
func NewInMemoryContentStore() *InMemoryContentStore {
	return &InMemoryContentStore{records: make(map[uuid.UUID]*domain.GeneratedContent)}
}

var _ store.ContentStore = (*InMemoryContentStore)(nil)

// SaveActive implements store.ContentStore.
func (s *InMemoryContentStore) SaveActive(ctx context.Context, content *domain.GeneratedContent) error {
	if s.SaveActiveFn != nil {
		if err := s.SaveActiveFn(ctx, content); err != nil {
			return err
		}
	}
	if err := content.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[content.ID]; exists {
		return store.ErrDuplicate
	}
	if content.CourseID != nil {
		for _, r := range s.records {
			if r.IsActive && r.EmployeeID == content.EmployeeID &&
				r.CourseID != nil && *r.CourseID == *content.CourseID {
				r.IsActive = false
				r.IsRegenerating = false
				r.UpdatedAt = time.Now().UTC()
			}
		}
	}

	header := copyContent(content)
	for _, m := range header.Modules {
		m.Sections = []*domain.Section{}
	}
	header.IsActive = true
	header.IsRegenerating = false
	s.records[content.ID] = header
	s.order = append(s.order, content.ID)

	content.IsActive = true
	content.IsRegenerating = false
	return nil
}

// SaveSection implements store.ContentStore.
func (s *InMemoryContentStore) SaveSection(ctx context.Context, section *domain.Section) error {
	if s.SaveSectionFn != nil {
		if err := s.SaveSectionFn(ctx, section); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[section.ContentID]
	if !ok {
		return fmt.Errorf("%w: content %s does not exist", store.ErrInvalidEntity, section.ContentID)
	}
	for _, m := range r.Modules {
		if m.ID != section.ModuleID {
			continue
		}
		for _, existing := range m.Sections {
			if existing.OrderIndex == section.OrderIndex {
				return fmt.Errorf("%w: section order index %d", store.ErrDuplicate, section.OrderIndex)
			}
		}
		sectionCopy := *section
		m.Sections = append(m.Sections, &sectionCopy)
		sort.Slice(m.Sections, func(a, b int) bool { return m.Sections[a].OrderIndex < m.Sections[b].OrderIndex })
		return nil
	}
	return fmt.Errorf("%w: module %s does not exist", store.ErrInvalidEntity, section.ModuleID)
}

// GetByID implements store.ContentStore.
func (s *InMemoryContentStore) GetByID(_ context.Context, id uuid.UUID) (*domain.GeneratedContent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return nil, store.ErrContentNotFound
	}
	return copyContent(r), nil
}

// GetActive implements store.ContentStore.
func (s *InMemoryContentStore) GetActive(
	_ context.Context,
	employeeID, courseID uuid.UUID,
) (*domain.GeneratedContent, error) {
	return s.findLatest(func(r *domain.GeneratedContent) bool {
		return r.IsActive && r.EmployeeID == employeeID && r.CourseID != nil && *r.CourseID == courseID
	})
}

// FindActiveForJob implements store.ContentStore.
func (s *InMemoryContentStore) FindActiveForJob(
	_ context.Context,
	employeeID, jobID uuid.UUID,
) (*domain.GeneratedContent, error) {
	return s.findLatest(func(r *domain.GeneratedContent) bool {
		return r.IsActive && r.EmployeeID == employeeID && r.JobID != nil && *r.JobID == jobID
	})
}

func (s *InMemoryContentStore) findLatest(match func(*domain.GeneratedContent) bool) (*domain.GeneratedContent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.order) - 1; i >= 0; i-- {
		if r := s.records[s.order[i]]; match(r) {
			return copyContent(r), nil
		}
	}
	return nil, store.ErrContentNotFound
}

// MarkRegenerating implements store.ContentStore.
func (s *InMemoryContentStore) MarkRegenerating(_ context.Context, contentID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[contentID]
	if !ok {
		return store.ErrContentNotFound
	}
	r.MarkRegenerating()
	return nil
}

// ClearRegenerating implements store.ContentStore.
func (s *InMemoryContentStore) ClearRegenerating(_ context.Context, contentID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[contentID]
	if !ok {
		return store.ErrContentNotFound
	}
	r.IsRegenerating = false
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// Put stores content as-is, bypassing validation and supersede logic.
func (s *InMemoryContentStore) Put(content *domain.GeneratedContent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[content.ID]; !exists {
		s.order = append(s.order, content.ID)
	}
	s.records[content.ID] = copyContent(content)
}

// Records returns every record for an employee, oldest first.
func (s *InMemoryContentStore) Records(employeeID uuid.UUID) []*domain.GeneratedContent {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.GeneratedContent
	for _, id := range s.order {
		if r := s.records[id]; r.EmployeeID == employeeID {
			out = append(out, copyContent(r))
		}
	}
	return out
}

// Len returns the number of stored records.
func (s *InMemoryContentStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func copyContent(c *domain.GeneratedContent) *domain.GeneratedContent {
	out := *c
	out.LearningObjectives = append([]string(nil), c.LearningObjectives...)
	out.Modules = make([]*domain.Module, len(c.Modules))
	for i, m := range c.Modules {
		mc := *m
		mc.Sections = make([]*domain.Section, len(m.Sections))
		for j, sec := range m.Sections {
			sc := *sec
			sc.Quiz.Options = append([]string(nil), sec.Quiz.Options...)
			mc.Sections[j] = &sc
		}
		out.Modules[i] = &mc
	}
	return &out
}
