package routing

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"docflow_app_go/models"
)

// MemoryStore is an in-process Store for development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	cases map[string]*models.Correspondence
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cases: make(map[string]*models.Correspondence)}
}

func (s *MemoryStore) Create(_ context.Context, c *models.Correspondence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.cases[c.ID]; exists {
		return fmt.Errorf("correspondence %s already exists", c.ID)
	}
	s.cases[c.ID] = c.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.Correspondence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cases[id]
	if !ok {
		return nil, ErrCaseNotFound
	}
	return c.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, c *models.Correspondence, expectedState models.CorrespondenceState, expectedVersion int, appended []models.CorrespondenceHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.cases[c.ID]
	if !ok {
		return ErrCaseNotFound
	}
	if current.Estado != expectedState || current.Version != expectedVersion {
		return ErrStaleWrite
	}
	next := c.Clone()
	next.History = append(append([]models.CorrespondenceHistory(nil), current.History...), appended...)
	s.cases[c.ID] = next
	return nil
}

func (s *MemoryStore) List(_ context.Context, f ListFilter) ([]models.Correspondence, int64, error) {
	s.mu.RLock()
	matched := make([]models.Correspondence, 0)
	for _, c := range s.cases {
		if f.Matches(c) {
			cp := c.Clone()
			cp.History = nil
			matched = append(matched, *cp)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if f.Desc {
			return lessBy(f.Sort, &matched[j], &matched[i])
		}
		return lessBy(f.Sort, &matched[i], &matched[j])
	})

	total := int64(len(matched))
	start := f.Offset()
	if start >= len(matched) {
		return []models.Correspondence{}, total, nil
	}
	end := len(matched)
	if f.Limit > 0 && start+f.Limit < end {
		end = start + f.Limit
	}
	return matched[start:end], total, nil
}

func lessBy(field string, a, b *models.Correspondence) bool {
	switch field {
	case SortUpdatedAt:
		return a.UpdatedAt.Before(b.UpdatedAt)
	case SortRegExpediente:
		return a.RegExpediente < b.RegExpediente
	default:
		return a.CreatedAt.Before(b.CreatedAt)
	}
}

func matchesQuery(c *models.Correspondence, q string) bool {
	needle := strings.ToLower(q)
	for _, field := range SearchableText(c) {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}
