package routing

import (
	"strconv"
	"strings"
	"time"

	"docflow_app_go/models"
	"docflow_app_go/services/org"
)

// Paging bounds
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

const dateLayout = "2006-01-02"

// ListParams are the raw inbox query parameters.
type ListParams struct {
	Q           string
	Estado      string // comma separated
	OwnerDept   string
	OwnerRole   string
	OwnerUserID string
	CreatedBy   string
	DateField   string
	DateFrom    string // YYYY-MM-DD
	DateTo      string // YYYY-MM-DD, inclusive
	AnyState    bool
	Page        string
	Limit       string
	Sort        string
}

var (
	jefePendingStates    = []models.CorrespondenceState{models.StateRecibidoEnDepartamento, models.StateResueltoPorTecnico}
	tecnicoPendingStates = []models.CorrespondenceState{models.StateAsignadoATecnico, models.StateEnTrabajoTecnico}
)

// BuildListFilter validates params and applies the actor's scope.
//
// Scope by role, first match wins: super roles and reception assistants see
// everything; DIRECTOR is limited to cases owned by Direction; SUBDIRECTOR
// to its own subdirection; JEFE to JEFE-owned cases of its department and,
// without an explicit estado or anyState, to the two states awaiting the
// supervisor; TECNICO to its own cases and, likewise, the two states
// awaiting the specialist. Scope values override explicit owner filters.
func BuildListFilter(catalog *org.Catalog, actor Actor, p ListParams) (ListFilter, error) {
	if !actor.Authenticated() {
		return ListFilter{}, errUnauthenticated
	}

	f := ListFilter{
		Query:       strings.TrimSpace(p.Q),
		OwnerDept:   strings.TrimSpace(p.OwnerDept),
		OwnerRole:   strings.TrimSpace(p.OwnerRole),
		OwnerUserID: strings.TrimSpace(p.OwnerUserID),
		CreatedBy:   strings.TrimSpace(p.CreatedBy),
		DateField:   SortCreatedAt,
		Page:        1,
		Limit:       DefaultPageSize,
		Sort:        SortCreatedAt,
		Desc:        true,
	}

	if f.OwnerDept != "" {
		canonical, ok := catalog.CanonicalDepartment(f.OwnerDept)
		if !ok {
			return f, validationError("unknown ownerDept %q", p.OwnerDept)
		}
		f.OwnerDept = canonical
	}
	if f.OwnerRole != "" {
		canonical, ok := catalog.CanonicalRole(f.OwnerRole)
		if !ok {
			return f, validationError("unknown ownerRole %q", p.OwnerRole)
		}
		f.OwnerRole = canonical
	}

	explicitStates := false
	if strings.TrimSpace(p.Estado) != "" {
		for _, raw := range strings.Split(p.Estado, ",") {
			s := strings.ToUpper(strings.TrimSpace(raw))
			if s == "" {
				continue
			}
			if !models.IsValidCorrespondenceState(s) {
				return f, validationError("unknown estado %q", s)
			}
			f.States = append(f.States, models.CorrespondenceState(s))
		}
		explicitStates = len(f.States) > 0
	}

	switch p.DateField {
	case "", SortCreatedAt:
	case SortUpdatedAt:
		f.DateField = SortUpdatedAt
	default:
		return f, validationError("dateField must be createdAt or updatedAt")
	}
	if p.DateFrom != "" {
		from, err := time.Parse(dateLayout, p.DateFrom)
		if err != nil {
			return f, validationError("dateFrom must be YYYY-MM-DD")
		}
		f.DateFrom = &from
	}
	if p.DateTo != "" {
		to, err := time.Parse(dateLayout, p.DateTo)
		if err != nil {
			return f, validationError("dateTo must be YYYY-MM-DD")
		}
		end := to.AddDate(0, 0, 1)
		f.DateTo = &end
	}
	if f.DateFrom != nil && f.DateTo != nil && !f.DateFrom.Before(*f.DateTo) {
		return f, validationError("dateFrom must not be after dateTo")
	}

	if p.Page != "" {
		page, err := strconv.Atoi(p.Page)
		if err != nil || page < 1 {
			return f, validationError("page must be a positive integer")
		}
		f.Page = page
	}
	if p.Limit != "" {
		limit, err := strconv.Atoi(p.Limit)
		if err != nil || limit < 1 || limit > MaxPageSize {
			return f, validationError("limit must be between 1 and %d", MaxPageSize)
		}
		f.Limit = limit
	}
	if p.Sort != "" {
		field := strings.TrimPrefix(p.Sort, "-")
		switch field {
		case SortCreatedAt, SortUpdatedAt, SortRegExpediente:
		default:
			return f, validationError("unsupported sort %q", p.Sort)
		}
		f.Sort = field
		f.Desc = strings.HasPrefix(p.Sort, "-")
	}

	keepStates := explicitStates || p.AnyState
	switch {
	case catalog.HasSuperRole(actor.Roles), actor.HasRole(org.RoleAsistente):
	case actor.HasRole(org.RoleDirector):
		// An explicit ownerDept overrides the Direction default.
		if f.OwnerDept == "" {
			f.OwnerDept = catalog.Direction()
		}
	case actor.HasRole(org.RoleSubdirector):
		f.OwnerDept = actor.Department
	case actor.HasRole(org.RoleJefe):
		f.OwnerDept = actor.Department
		f.OwnerRole = org.RoleJefe
		if !keepStates {
			f.States = append([]models.CorrespondenceState(nil), jefePendingStates...)
		}
	case actor.HasRole(org.RoleTecnico):
		f.OwnerRole = org.RoleTecnico
		f.OwnerUserID = actor.ID
		if !keepStates {
			f.States = append([]models.CorrespondenceState(nil), tecnicoPendingStates...)
		}
	default:
		return f, forbidden("no role allows listing correspondence")
	}

	return f, nil
}
