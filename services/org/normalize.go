package org

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// spellingVariants folds organization-wide misspellings onto the form the
// records are stored with. Applied after accents are stripped and the text
// is uppercased, in order.
var spellingVariants = []struct {
	variant   string
	canonical string
}{
	{"DESARROLLO", "DESAROLLO"},
}

// roleAliases maps normalized free-form role labels to role names.
var roleAliases = map[string]string{
	"ADMINISTRADOR":          RoleAdmin,
	"ADMINISTRADORA":         RoleAdmin,
	"SUPER ADMIN":            RoleSuperAdmin,
	"DIRECTORA":              RoleDirector,
	"SUBDIRECTORA":           RoleSubdirector,
	"SUB DIRECTOR":           RoleSubdirector,
	"JEFA":                   RoleJefe,
	"JEFE DE DEPARTAMENTO":   RoleJefe,
	"TECNICA":                RoleTecnico,
	"ESPECIALISTA":           RoleTecnico,
	"ASISTENTE DE RECEPCION": RoleAsistente,
}

// StripAccents removes combining marks (á -> a, Ñ -> N).
func StripAccents(s string) string {
	// transform.Chain keeps internal buffers, so a new chain is built per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Normalize produces the comparison key for department, subdirection and
// role names: accents stripped, uppercased, whitespace collapsed and known
// misspellings folded. Normalize is idempotent.
func Normalize(s string) string {
	out := StripAccents(s)
	out = strings.NewReplacer("_", " ", "-", " ").Replace(out)
	out = strings.ToUpper(strings.Join(strings.Fields(out), " "))
	for _, sv := range spellingVariants {
		out = strings.ReplaceAll(out, sv.variant, sv.canonical)
	}
	return out
}

// SameName reports whether two names refer to the same organizational unit.
func SameName(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
