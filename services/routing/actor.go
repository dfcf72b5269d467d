package routing

// Actor is the authenticated principal. Roles and Department are expected
// in canonical catalog form (the auth middleware canonicalizes them).
type Actor struct {
	ID         string
	Email      string
	Name       string
	Roles      []string
	Department string
}

// HasRole reports whether the actor holds role.
func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Authenticated reports whether the actor carries an identity.
func (a Actor) Authenticated() bool {
	return a.ID != ""
}

// Label is a display name for the actor.
func (a Actor) Label() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Email
}
