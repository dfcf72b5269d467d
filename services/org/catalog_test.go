package org

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Dirección", "DIRECCION"},
		{"  planeación   y evaluación ", "PLANEACION Y EVALUACION"},
		{"Subdirección de Desarrollo Educativo", "SUBDIRECCION DE DESAROLLO EDUCATIVO"},
		{"SUBDIRECCION DE DESAROLLO EDUCATIVO", "SUBDIRECCION DE DESAROLLO EDUCATIVO"},
		{"super_admin", "SUPER ADMIN"},
		{"Enseñanza", "ENSENANZA"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
			assert.Equal(t, Normalize(tt.in), Normalize(Normalize(tt.in)), "Normalize must be idempotent")
		})
	}
}

func TestCanonicalDepartment(t *testing.T) {
	c := DefaultCatalog()

	t.Run("Canonical names map to themselves", func(t *testing.T) {
		for _, d := range c.Departments() {
			got, ok := c.CanonicalDepartment(d)
			assert.True(t, ok, d)
			assert.Equal(t, d, got)
		}
	})

	t.Run("Spelling variants collapse to one stored form", func(t *testing.T) {
		variants := []string{
			"DESAROLLO CURRICULAR",
			"DESARROLLO CURRICULAR",
			"Desarrollo Curricular",
			"desarrollo  curricular",
		}
		for _, v := range variants {
			got, ok := c.CanonicalDepartment(v)
			assert.True(t, ok, v)
			assert.Equal(t, "DESAROLLO CURRICULAR", got)
		}
	})

	t.Run("Accents are ignored", func(t *testing.T) {
		got, ok := c.CanonicalDepartment("juridico")
		assert.True(t, ok)
		assert.Equal(t, "JURÍDICO", got)
	})

	t.Run("Subdirections are departments too", func(t *testing.T) {
		got, ok := c.CanonicalDepartment("Subdireccion de Educacion Basica")
		assert.True(t, ok)
		assert.Equal(t, "SUBDIRECCIÓN DE EDUCACIÓN BÁSICA", got)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, ok := c.CanonicalDepartment("CAFETERIA")
		assert.False(t, ok)
	})
}

func TestCanonicalSubdirection(t *testing.T) {
	c := DefaultCatalog()

	got, ok := c.CanonicalSubdirection("subdirección de desarrollo educativo")
	assert.True(t, ok)
	assert.Equal(t, "SUBDIRECCIÓN DE DESAROLLO EDUCATIVO", got)

	again, ok := c.CanonicalSubdirection(got)
	assert.True(t, ok)
	assert.Equal(t, got, again)

	_, ok = c.CanonicalSubdirection("PRIMARIA")
	assert.False(t, ok, "departments are not subdirections")
}

func TestCanonicalRole(t *testing.T) {
	c := DefaultCatalog()

	tests := map[string]string{
		"Técnico":       RoleTecnico,
		"tecnica":       RoleTecnico,
		"jefe":          RoleJefe,
		"Jefa":          RoleJefe,
		"Subdirectora":  RoleSubdirector,
		"super_admin":   RoleSuperAdmin,
		"Administrador": RoleAdmin,
		"ASISTENTE":     RoleAsistente,
	}
	for in, want := range tests {
		got, ok := c.CanonicalRole(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := c.CanonicalRole("JARDINERO")
	assert.False(t, ok)

	assert.Equal(t, []string{RoleJefe, RoleTecnico}, c.CanonicalRoles([]string{"Jefe", "jefa", "técnico", "JARDINERO"}))
}

func TestSuperRoles(t *testing.T) {
	c := DefaultCatalog()

	assert.True(t, c.IsSuperRole("admin"))
	assert.True(t, c.IsSuperRole(RoleSuperAdmin))
	assert.False(t, c.IsSuperRole(RoleDirector))
	assert.True(t, c.HasSuperRole([]string{RoleJefe, RoleAdmin}))
	assert.False(t, c.HasSuperRole([]string{RoleJefe, RoleTecnico}))
}

func TestReachableDepartments(t *testing.T) {
	c := DefaultCatalog()

	t.Run("Mapping merged with fallback", func(t *testing.T) {
		depts := c.ReachableDepartments("SUBDIRECCIÓN DE EDUCACIÓN BÁSICA")
		assert.ElementsMatch(t, []string{"EDUCACIÓN INICIAL", "PRIMARIA", "SECUNDARIA", "EDUCACIÓN ESPECIAL"}, depts)
	})

	t.Run("Any spelling of the key", func(t *testing.T) {
		depts := c.ReachableDepartments("subdireccion de desarrollo educativo")
		assert.ElementsMatch(t, []string{"DESAROLLO CURRICULAR", "PLANEACIÓN Y EVALUACIÓN"}, depts)
	})

	t.Run("Covers", func(t *testing.T) {
		assert.True(t, c.CoversDepartment("SUBDIRECCIÓN DE EDUCACIÓN BÁSICA", "primaria"))
		assert.False(t, c.CoversDepartment("SUBDIRECCIÓN DE EDUCACIÓN BÁSICA", "JURÍDICO"))
	})

	t.Run("Routable departments", func(t *testing.T) {
		assert.True(t, c.IsRoutableDepartment("JURÍDICO"), "no-subdirector department")
		assert.True(t, c.IsRoutableDepartment("PRIMARIA"), "covered by a subdirection")
		assert.True(t, c.IsRoutableDepartment("Educación Especial"), "covered only by the fallback table")
		assert.False(t, c.IsRoutableDepartment("DIRECCIÓN"))
		assert.False(t, c.IsRoutableDepartment("CAFETERIA"))
	})
}

func TestNewCatalog_Validation(t *testing.T) {
	t.Run("Unknown department in mapping", func(t *testing.T) {
		f := DefaultCatalogFile()
		f.Subdirections["SUBDIRECCIÓN DE EDUCACIÓN BÁSICA"] = []string{"CAFETERIA"}
		_, err := NewCatalog(f)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "CAFETERIA")
	})

	t.Run("Direction must be a department", func(t *testing.T) {
		f := DefaultCatalogFile()
		f.DirectionDepartment = "RECTORÍA"
		_, err := NewCatalog(f)
		assert.Error(t, err)
	})

	t.Run("Duplicate department after normalization", func(t *testing.T) {
		f := DefaultCatalogFile()
		f.Departments = append(f.Departments, "Primaria")
		_, err := NewCatalog(f)
		assert.Error(t, err)
	})

	t.Run("Workflow roles are required", func(t *testing.T) {
		f := DefaultCatalogFile()
		f.Roles = []string{RoleAdmin, RoleDirector}
		_, err := NewCatalog(f)
		assert.Error(t, err)
	})
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	content := `
direction_department: Dirección General
reception_department: Oficialía de Partes
departments:
  - Dirección General
  - Oficialía de Partes
  - Obras
  - Desarrollo Urbano
subdirections:
  Subdirección Técnica:
    - Obras
subdirection_fallback:
  SUBDIRECCION TECNICA:
    - Desarrollo Urbano
no_subdirector_departments:
  - Oficialía de Partes
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	c, err := LoadCatalog(path)
	require.NoError(t, err)

	assert.Equal(t, "Dirección General", c.Direction())
	assert.Equal(t, "Oficialía de Partes", c.Reception())
	assert.Equal(t, []string{"Subdirección Técnica"}, c.Subdirections())
	assert.ElementsMatch(t, []string{"Obras", "Desarrollo Urbano"}, c.ReachableDepartments("subdireccion tecnica"))
	assert.True(t, c.IsRoutableDepartment("DESARROLLO URBANO"))

	_, err = LoadCatalog(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadCatalogOrDefault(t *testing.T) {
	c, err := LoadCatalogOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, "DIRECCIÓN", c.Direction())
	assert.Equal(t, "ADMINISTRACIÓN", c.Reception())
}

func TestExampleCatalogMatchesDefault(t *testing.T) {
	c, err := LoadCatalog(filepath.Join("..", "..", "config", "catalog.example.yaml"))
	require.NoError(t, err)

	def := DefaultCatalog()
	assert.Equal(t, def.Direction(), c.Direction())
	assert.Equal(t, def.Reception(), c.Reception())
	assert.ElementsMatch(t, def.Subdirections(), c.Subdirections())
	assert.ElementsMatch(t, def.NoSubdirectorDepartments(), c.NoSubdirectorDepartments())
	for _, sub := range def.Subdirections() {
		assert.ElementsMatch(t, def.ReachableDepartments(sub), c.ReachableDepartments(sub), sub)
	}
}
