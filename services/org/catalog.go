// Package org holds the organization catalog used by the correspondence
// workflow: departments, subdirections and the departments each
// subdirection covers, plus the role names. A Catalog is built once at
// startup and shared read-only.
package org

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Role names
const (
	RoleSuperAdmin  = "SUPERADMIN"
	RoleAdmin       = "ADMIN"
	RoleDirector    = "DIRECTOR"
	RoleSubdirector = "SUBDIRECTOR"
	RoleJefe        = "JEFE"
	RoleTecnico     = "TECNICO"
	RoleAsistente   = "ASISTENTE"
)

// CatalogFile is the on-disk (YAML) shape of the catalog.
type CatalogFile struct {
	DirectionDepartment string              `yaml:"direction_department"`
	ReceptionDepartment string              `yaml:"reception_department"`
	Departments         []string            `yaml:"departments"`
	Subdirections       map[string][]string `yaml:"subdirections"`
	// SubdirectionFallback is keyed by any spelling of a subdirection name
	// and is merged with Subdirections when computing reachability.
	SubdirectionFallback map[string][]string `yaml:"subdirection_fallback"`
	NoSubdirector        []string            `yaml:"no_subdirector_departments"`
	Roles                []string            `yaml:"roles"`
	SuperRoles           []string            `yaml:"super_roles"`
}

// Catalog is the immutable organization structure.
type Catalog struct {
	direction     string
	reception     string
	departments   []string
	subdirections []string
	roles         []string
	superRoles    map[string]bool
	noSubdirector map[string]bool

	// canonical subdirection -> canonical departments
	mapping map[string][]string
	// normalized subdirection -> canonical departments
	fallback map[string][]string

	deptIndex map[string]string // normalized -> canonical, subdirections included
	subIndex  map[string]string
	roleIndex map[string]string
}

// workflowRoles must exist in every catalog.
var workflowRoles = []string{RoleDirector, RoleSubdirector, RoleJefe, RoleTecnico, RoleAsistente}

// NewCatalog validates f and builds the lookup indexes.
func NewCatalog(f CatalogFile) (*Catalog, error) {
	c := &Catalog{
		superRoles:    make(map[string]bool),
		noSubdirector: make(map[string]bool),
		mapping:       make(map[string][]string),
		fallback:      make(map[string][]string),
		deptIndex:     make(map[string]string),
		subIndex:      make(map[string]string),
		roleIndex:     make(map[string]string),
	}

	for _, d := range f.Departments {
		if err := c.addDepartment(d); err != nil {
			return nil, err
		}
	}

	subNames := make([]string, 0, len(f.Subdirections))
	for sub := range f.Subdirections {
		subNames = append(subNames, sub)
	}
	sort.Strings(subNames)
	for _, sub := range subNames {
		key := Normalize(sub)
		if key == "" {
			return nil, fmt.Errorf("catalog: empty subdirection name")
		}
		if _, dup := c.subIndex[key]; dup {
			return nil, fmt.Errorf("catalog: duplicate subdirection %q", sub)
		}
		c.subIndex[key] = sub
		c.subdirections = append(c.subdirections, sub)
		// Subdirectors belong to their subdirection as a department.
		if _, ok := c.deptIndex[key]; !ok {
			if err := c.addDepartment(sub); err != nil {
				return nil, err
			}
		}
	}

	for _, sub := range subNames {
		depts, err := c.canonicalList(f.Subdirections[sub])
		if err != nil {
			return nil, fmt.Errorf("catalog: subdirection %q: %w", sub, err)
		}
		c.mapping[c.subIndex[Normalize(sub)]] = depts
	}

	for sub, list := range f.SubdirectionFallback {
		depts, err := c.canonicalList(list)
		if err != nil {
			return nil, fmt.Errorf("catalog: fallback %q: %w", sub, err)
		}
		key := Normalize(sub)
		c.fallback[key] = mergeNames(c.fallback[key], depts)
	}

	for _, d := range f.NoSubdirector {
		canonical, ok := c.CanonicalDepartment(d)
		if !ok {
			return nil, fmt.Errorf("catalog: unknown department %q in no_subdirector_departments", d)
		}
		c.noSubdirector[canonical] = true
	}

	var ok bool
	if c.direction, ok = c.CanonicalDepartment(f.DirectionDepartment); !ok {
		return nil, fmt.Errorf("catalog: direction department %q is not a department", f.DirectionDepartment)
	}
	if c.reception, ok = c.CanonicalDepartment(f.ReceptionDepartment); !ok {
		return nil, fmt.Errorf("catalog: reception department %q is not a department", f.ReceptionDepartment)
	}

	roles := f.Roles
	if len(roles) == 0 {
		roles = []string{RoleSuperAdmin, RoleAdmin, RoleDirector, RoleSubdirector, RoleJefe, RoleTecnico, RoleAsistente}
	}
	for _, r := range roles {
		key := Normalize(r)
		if key == "" {
			continue
		}
		c.roleIndex[key] = key
		c.roles = append(c.roles, key)
	}
	for _, r := range workflowRoles {
		if _, ok := c.roleIndex[r]; !ok {
			return nil, fmt.Errorf("catalog: role %s is required", r)
		}
	}

	superRoles := f.SuperRoles
	if len(superRoles) == 0 {
		superRoles = []string{RoleSuperAdmin, RoleAdmin}
	}
	for _, r := range superRoles {
		canonical, ok := c.CanonicalRole(r)
		if !ok {
			return nil, fmt.Errorf("catalog: unknown super role %q", r)
		}
		c.superRoles[canonical] = true
	}

	return c, nil
}

// LoadCatalog reads a YAML catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	var f CatalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	return NewCatalog(f)
}

// LoadCatalogOrDefault loads path when set, otherwise returns the built-in catalog.
func LoadCatalogOrDefault(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	return LoadCatalog(path)
}

func (c *Catalog) addDepartment(name string) error {
	key := Normalize(name)
	if key == "" {
		return fmt.Errorf("catalog: empty department name")
	}
	if existing, dup := c.deptIndex[key]; dup {
		return fmt.Errorf("catalog: department %q duplicates %q", name, existing)
	}
	c.deptIndex[key] = name
	c.departments = append(c.departments, name)
	return nil
}

func (c *Catalog) canonicalList(names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	for _, n := range names {
		canonical, ok := c.CanonicalDepartment(n)
		if !ok {
			return nil, fmt.Errorf("unknown department %q", n)
		}
		out = mergeNames(out, []string{canonical})
	}
	return out, nil
}

func mergeNames(dst, src []string) []string {
	for _, s := range src {
		found := false
		for _, d := range dst {
			if d == s {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, s)
		}
	}
	return dst
}

// Direction is the canonical name of the Direction department.
func (c *Catalog) Direction() string { return c.direction }

// Reception is the canonical name of the reception (administrative) area.
func (c *Catalog) Reception() string { return c.reception }

// Departments returns every department, subdirections included.
func (c *Catalog) Departments() []string {
	return append([]string(nil), c.departments...)
}

// Subdirections returns the configured subdirection names, sorted.
func (c *Catalog) Subdirections() []string {
	return append([]string(nil), c.subdirections...)
}

// Roles returns the canonical role names.
func (c *Catalog) Roles() []string {
	return append([]string(nil), c.roles...)
}

// NoSubdirectorDepartments returns the departments Direction may route to directly
// without them being covered by a subdirection.
func (c *Catalog) NoSubdirectorDepartments() []string {
	out := make([]string, 0, len(c.noSubdirector))
	for d := range c.noSubdirector {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// CanonicalDepartment maps any spelling of a department (or subdirection)
// to its stored name.
func (c *Catalog) CanonicalDepartment(name string) (string, bool) {
	canonical, ok := c.deptIndex[Normalize(name)]
	return canonical, ok
}

// CanonicalSubdirection maps any spelling of a subdirection to its stored name.
func (c *Catalog) CanonicalSubdirection(name string) (string, bool) {
	canonical, ok := c.subIndex[Normalize(name)]
	return canonical, ok
}

// CanonicalRole maps a free-form role label to a role name.
func (c *Catalog) CanonicalRole(name string) (string, bool) {
	key := Normalize(name)
	if alias, ok := roleAliases[key]; ok {
		key = alias
	}
	canonical, ok := c.roleIndex[key]
	return canonical, ok
}

// CanonicalRoles canonicalizes roles, dropping unknown labels and duplicates.
func (c *Catalog) CanonicalRoles(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if canonical, ok := c.CanonicalRole(n); ok {
			out = mergeNames(out, []string{canonical})
		}
	}
	return out
}

// IsSubdirection reports whether name is a configured subdirection.
func (c *Catalog) IsSubdirection(name string) bool {
	_, ok := c.CanonicalSubdirection(name)
	return ok
}

// IsSuperRole reports whether role is exempt from ownership guards.
func (c *Catalog) IsSuperRole(role string) bool {
	canonical, ok := c.CanonicalRole(role)
	return ok && c.superRoles[canonical]
}

// HasSuperRole reports whether any of roles is a super role.
func (c *Catalog) HasSuperRole(roles []string) bool {
	for _, r := range roles {
		if c.IsSuperRole(r) {
			return true
		}
	}
	return false
}

// ReachableDepartments lists the departments covered by a subdirection: the
// configured mapping merged with the fallback table. Unknown subdirections
// yield only their fallback entries, if any.
func (c *Catalog) ReachableDepartments(subdirection string) []string {
	key := Normalize(subdirection)
	var out []string
	if canonical, ok := c.subIndex[key]; ok {
		out = mergeNames(out, c.mapping[canonical])
	}
	out = mergeNames(out, c.fallback[key])
	return out
}

// CoversDepartment reports whether dept is reachable from subdirection.
func (c *Catalog) CoversDepartment(subdirection, dept string) bool {
	canonical, ok := c.CanonicalDepartment(dept)
	if !ok {
		return false
	}
	for _, d := range c.ReachableDepartments(subdirection) {
		if d == canonical {
			return true
		}
	}
	return false
}

// IsRoutableDepartment reports whether Direction may send a case straight to
// dept: either it has no subdirector or some subdirection covers it.
func (c *Catalog) IsRoutableDepartment(dept string) bool {
	canonical, ok := c.CanonicalDepartment(dept)
	if !ok {
		return false
	}
	if c.noSubdirector[canonical] {
		return true
	}
	for _, sub := range c.subdirections {
		if c.CoversDepartment(sub, canonical) {
			return true
		}
	}
	for key := range c.fallback {
		if c.CoversDepartment(key, canonical) {
			return true
		}
	}
	return false
}

// Mapping returns a copy of subdirection -> reachable departments, fallback merged.
func (c *Catalog) Mapping() map[string][]string {
	out := make(map[string][]string, len(c.subdirections))
	for _, sub := range c.subdirections {
		out[sub] = c.ReachableDepartments(sub)
	}
	return out
}

// DefaultCatalog is the built-in organization structure.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultCatalogFile())
	if err != nil {
		panic(fmt.Sprintf("org: invalid default catalog: %v", err))
	}
	return c
}

// DefaultCatalogFile returns the built-in catalog definition.
func DefaultCatalogFile() CatalogFile {
	return CatalogFile{
		DirectionDepartment: "DIRECCIÓN",
		ReceptionDepartment: "ADMINISTRACIÓN",
		Departments: []string{
			"DIRECCIÓN",
			"ADMINISTRACIÓN",
			"EDUCACIÓN INICIAL",
			"PRIMARIA",
			"SECUNDARIA",
			"EDUCACIÓN ESPECIAL",
			"DESAROLLO CURRICULAR",
			"PLANEACIÓN Y EVALUACIÓN",
			"JURÍDICO",
			"RECURSOS HUMANOS",
			"TECNOLOGÍAS DE LA INFORMACIÓN",
		},
		Subdirections: map[string][]string{
			"SUBDIRECCIÓN DE EDUCACIÓN BÁSICA":    {"EDUCACIÓN INICIAL", "PRIMARIA", "SECUNDARIA"},
			"SUBDIRECCIÓN DE DESAROLLO EDUCATIVO": {"DESAROLLO CURRICULAR", "PLANEACIÓN Y EVALUACIÓN"},
		},
		SubdirectionFallback: map[string][]string{
			"SUBDIRECCION DE EDUCACION BASICA":     {"EDUCACION INICIAL", "PRIMARIA", "SECUNDARIA", "EDUCACION ESPECIAL"},
			"SUBDIRECCION DE DESARROLLO EDUCATIVO": {"DESARROLLO CURRICULAR", "PLANEACION Y EVALUACION"},
		},
		NoSubdirector: []string{
			"ADMINISTRACIÓN",
			"JURÍDICO",
			"RECURSOS HUMANOS",
			"TECNOLOGÍAS DE LA INFORMACIÓN",
		},
	}
}
