package routing

import (
	"context"
	"time"

	"docflow_app_go/models"
)

// Store persists cases. Update is a conditional write: it succeeds only when
// the stored case still has expectedState and expectedVersion, and it
// appends the given history records in the same atomic unit. A lost race
// returns ErrStaleWrite; a missing case returns ErrCaseNotFound.
type Store interface {
	Create(ctx context.Context, c *models.Correspondence) error
	Get(ctx context.Context, id string) (*models.Correspondence, error)
	Update(ctx context.Context, c *models.Correspondence, expectedState models.CorrespondenceState, expectedVersion int, appended []models.CorrespondenceHistory) error
	List(ctx context.Context, f ListFilter) ([]models.Correspondence, int64, error)
}

// Sort fields accepted by List
const (
	SortCreatedAt     = "createdAt"
	SortUpdatedAt     = "updatedAt"
	SortRegExpediente = "regExpediente"
)

// ListFilter is a store-neutral query built by BuildListFilter.
type ListFilter struct {
	Query       string
	States      []models.CorrespondenceState
	OwnerDept   string
	OwnerRole   string
	OwnerUserID string
	CreatedBy   string

	// DateField is SortCreatedAt or SortUpdatedAt. DateFrom is inclusive,
	// DateTo is exclusive.
	DateField string
	DateFrom  *time.Time
	DateTo    *time.Time

	Page  int
	Limit int
	Sort  string
	Desc  bool
}

// Offset is the number of rows skipped for the page.
func (f ListFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// Matches evaluates the filter in memory. The in-memory store and tests use
// it; SQL and Mongo stores translate the same fields into queries.
func (f ListFilter) Matches(c *models.Correspondence) bool {
	if len(f.States) > 0 {
		found := false
		for _, s := range f.States {
			if c.Estado == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.OwnerDept != "" && c.OwnerDept != f.OwnerDept {
		return false
	}
	if f.OwnerRole != "" && c.OwnerRole != f.OwnerRole {
		return false
	}
	if f.OwnerUserID != "" && (c.OwnerUserID == nil || *c.OwnerUserID != f.OwnerUserID) {
		return false
	}
	if f.CreatedBy != "" && c.CreatedBy != f.CreatedBy {
		return false
	}
	if f.DateFrom != nil || f.DateTo != nil {
		ts := c.CreatedAt
		if f.DateField == SortUpdatedAt {
			ts = c.UpdatedAt
		}
		if f.DateFrom != nil && ts.Before(*f.DateFrom) {
			return false
		}
		if f.DateTo != nil && !ts.Before(*f.DateTo) {
			return false
		}
	}
	if f.Query != "" && !matchesQuery(c, f.Query) {
		return false
	}
	return true
}

// SearchableText returns the intake fields covered by free-text search.
func SearchableText(c *models.Correspondence) []string {
	return []string{c.RegExpediente, c.DocumentoRecibido, c.EnviadoPor, c.Notas, c.Instrucciones}
}
