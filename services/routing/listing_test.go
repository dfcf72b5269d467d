package routing

import (
	"context"
	"testing"
	"time"

	"docflow_app_go/models"
	"docflow_app_go/services/org"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildListFilter_RoleScope(t *testing.T) {
	catalog := org.DefaultCatalog()

	t.Run("Specialist", func(t *testing.T) {
		f, err := BuildListFilter(catalog, tecnicoA, ListParams{OwnerUserID: tecnicoB.ID, OwnerRole: org.RoleJefe})
		require.NoError(t, err)
		assert.Equal(t, org.RoleTecnico, f.OwnerRole)
		assert.Equal(t, tecnicoA.ID, f.OwnerUserID, "explicit owner filters never widen the scope")
		assert.ElementsMatch(t, []models.CorrespondenceState{models.StateAsignadoATecnico, models.StateEnTrabajoTecnico}, f.States)
	})

	t.Run("Supervisor", func(t *testing.T) {
		f, err := BuildListFilter(catalog, jefeJ, ListParams{})
		require.NoError(t, err)
		assert.Equal(t, deptPrim, f.OwnerDept)
		assert.Equal(t, org.RoleJefe, f.OwnerRole)
		assert.ElementsMatch(t, []models.CorrespondenceState{models.StateRecibidoEnDepartamento, models.StateResueltoPorTecnico}, f.States)
	})

	t.Run("Supervisor with explicit estado", func(t *testing.T) {
		f, err := BuildListFilter(catalog, jefeJ, ListParams{Estado: "en_departamento_por_recibir"})
		require.NoError(t, err)
		assert.Equal(t, []models.CorrespondenceState{models.StateEnDepartamentoPorRecibir}, f.States)
		assert.Equal(t, deptPrim, f.OwnerDept)
	})

	t.Run("Supervisor with anyState", func(t *testing.T) {
		f, err := BuildListFilter(catalog, jefeJ, ListParams{AnyState: true})
		require.NoError(t, err)
		assert.Empty(t, f.States)
		assert.Equal(t, org.RoleJefe, f.OwnerRole)
	})

	t.Run("Director defaults to Direction", func(t *testing.T) {
		f, err := BuildListFilter(catalog, director, ListParams{})
		require.NoError(t, err)
		assert.Equal(t, "DIRECCIÓN", f.OwnerDept)
		assert.Empty(t, f.States)
	})

	t.Run("Director explicit department overrides", func(t *testing.T) {
		f, err := BuildListFilter(catalog, director, ListParams{OwnerDept: "juridico"})
		require.NoError(t, err)
		assert.Equal(t, deptJur, f.OwnerDept)
		assert.Empty(t, f.States)
	})

	t.Run("Subdirector", func(t *testing.T) {
		f, err := BuildListFilter(catalog, subdirector, ListParams{})
		require.NoError(t, err)
		assert.Equal(t, subBasica, f.OwnerDept)
	})

	t.Run("Reception and super roles are unrestricted", func(t *testing.T) {
		for _, a := range []Actor{receptionist, admin} {
			f, err := BuildListFilter(catalog, a, ListParams{OwnerDept: "juridico"})
			require.NoError(t, err)
			assert.Equal(t, deptJur, f.OwnerDept, "explicit filters are canonicalized")
			assert.Empty(t, f.States)
			assert.Empty(t, f.OwnerUserID)
		}
	})

	t.Run("No workflow role", func(t *testing.T) {
		_, err := BuildListFilter(catalog, Actor{ID: "x", Roles: []string{}}, ListParams{})
		assert.True(t, IsCode(err, CodeForbidden))
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		_, err := BuildListFilter(catalog, Actor{}, ListParams{})
		assert.True(t, IsCode(err, CodeUnauthenticated))
	})
}

func TestBuildListFilter_Params(t *testing.T) {
	catalog := org.DefaultCatalog()

	t.Run("Defaults", func(t *testing.T) {
		f, err := BuildListFilter(catalog, admin, ListParams{})
		require.NoError(t, err)
		assert.Equal(t, 1, f.Page)
		assert.Equal(t, DefaultPageSize, f.Limit)
		assert.Equal(t, SortCreatedAt, f.Sort)
		assert.True(t, f.Desc)
		assert.Equal(t, SortCreatedAt, f.DateField)
	})

	t.Run("Dates and paging", func(t *testing.T) {
		f, err := BuildListFilter(catalog, admin, ListParams{
			DateField: "updatedAt",
			DateFrom:  "2026-03-01",
			DateTo:    "2026-03-02",
			Page:      "3",
			Limit:     "50",
			Sort:      "regExpediente",
			Estado:    "EN_RECEPCION, ARCHIVADO",
		})
		require.NoError(t, err)
		assert.Equal(t, SortUpdatedAt, f.DateField)
		assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *f.DateFrom)
		assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), *f.DateTo, "dateTo is inclusive")
		assert.Equal(t, 100, f.Offset())
		assert.Equal(t, SortRegExpediente, f.Sort)
		assert.False(t, f.Desc)
		assert.Equal(t, []models.CorrespondenceState{models.StateEnRecepcion, models.StateArchivado}, f.States)
	})

	invalid := map[string]ListParams{
		"estado":     {Estado: "EN_LIMBO"},
		"date field": {DateField: "deletedAt"},
		"date from":  {DateFrom: "01/03/2026"},
		"date order": {DateFrom: "2026-03-05", DateTo: "2026-03-01"},
		"page":       {Page: "0"},
		"limit high": {Limit: "101"},
		"limit text": {Limit: "many"},
		"sort":       {Sort: "-folios"},
		"owner dept": {OwnerDept: "CAFETERÍA"},
		"owner role": {OwnerRole: "CONSERJE"},
	}
	for name, p := range invalid {
		t.Run("Invalid "+name, func(t *testing.T) {
			_, err := BuildListFilter(catalog, admin, p)
			assert.True(t, IsCode(err, CodeValidation), "got %v", err)
		})
	}
}

func TestList_ScopedInbox(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	// A: assigned to tecnicoA. B: working, tecnicoA. C: assigned to tecnicoB.
	// D: resolved, back with jefeJ. E: pending receipt in PRIMARIA.
	a := env.atTechnician(t)
	b := env.atTechnician(t)
	_, err := env.engine.StartWork(ctx, tecnicoA, b.ID, NotesInput{})
	require.NoError(t, err)
	c := env.atSubdirection(t)
	_, err = env.engine.AssignSupervisor(ctx, subdirector, c.ID, AssignSupervisorInput{JefeUserID: jefeJ.ID})
	require.NoError(t, err)
	_, err = env.engine.AssignSpecialist(ctx, jefeJ, c.ID, AssignSpecialistInput{TecnicoUserID: tecnicoB.ID})
	require.NoError(t, err)
	d := env.atTechnician(t)
	_, err = env.engine.StartWork(ctx, tecnicoA, d.ID, NotesInput{})
	require.NoError(t, err)
	_, err = env.engine.Resolve(ctx, tecnicoA, d.ID, NotesInput{})
	require.NoError(t, err)
	e := env.atSubdirection(t)
	_, err = env.engine.AssignSupervisor(ctx, subdirector, e.ID, AssignSupervisorInput{JefeUserID: jefeJ.ID})
	require.NoError(t, err)

	t.Run("Specialist sees only own pending cases", func(t *testing.T) {
		items, total, _, err := env.engine.List(ctx, tecnicoA, ListParams{})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		ids := []string{}
		for _, it := range items {
			assert.Equal(t, org.RoleTecnico, it.OwnerRole)
			assert.Equal(t, tecnicoA.ID, *it.OwnerUserID)
			assert.Contains(t, tecnicoPendingStates, it.Estado)
			ids = append(ids, it.ID)
		}
		assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)
	})

	t.Run("Supervisor sees department cases awaiting action", func(t *testing.T) {
		items, _, _, err := env.engine.List(ctx, jefeJ, ListParams{})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, d.ID, items[0].ID)
		assert.Equal(t, models.StateResueltoPorTecnico, items[0].Estado)
		assert.Equal(t, deptPrim, items[0].OwnerDept)
		assert.Equal(t, org.RoleJefe, items[0].OwnerRole)
	})

	t.Run("Supervisor asking for any state", func(t *testing.T) {
		items, _, _, err := env.engine.List(ctx, jefeJ, ListParams{AnyState: true})
		require.NoError(t, err)
		ids := []string{}
		for _, it := range items {
			ids = append(ids, it.ID)
		}
		assert.ElementsMatch(t, []string{d.ID, e.ID}, ids)
	})

	t.Run("Admin pages through everything", func(t *testing.T) {
		items, total, f, err := env.engine.List(ctx, admin, ListParams{Limit: "2", Page: "2", Sort: "createdAt"})
		require.NoError(t, err)
		assert.EqualValues(t, 5, total)
		require.Len(t, items, 2)
		assert.Equal(t, 2, f.Page)
		assert.Equal(t, c.ID, items[0].ID, "ascending by creation")
		assert.Equal(t, d.ID, items[1].ID)
		assert.Empty(t, items[0].History, "list items omit history")
	})

	t.Run("Free text", func(t *testing.T) {
		items, _, _, err := env.engine.List(ctx, admin, ListParams{Q: "benito"})
		require.NoError(t, err)
		assert.Len(t, items, 5)

		items, _, _, err = env.engine.List(ctx, admin, ListParams{Q: "inexistente"})
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}
