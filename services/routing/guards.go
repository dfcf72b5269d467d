package routing

import (
	"docflow_app_go/models"
	"docflow_app_go/services/org"
)

// isHolder reports whether actor currently holds c for action: a super
// role, the named owner when ownerUserId is set, otherwise anyone with
// ownerRole inside ownerDept.
func (e *Engine) isHolder(actor Actor, c *models.Correspondence) bool {
	if e.catalog.HasSuperRole(actor.Roles) {
		return true
	}
	if c.OwnerUserID != nil && *c.OwnerUserID != "" {
		return *c.OwnerUserID == actor.ID
	}
	return actor.HasRole(c.OwnerRole) && actor.Department == c.OwnerDept
}

func (e *Engine) requireHolder(actor Actor, c *models.Correspondence) error {
	if e.isHolder(actor, c) {
		return nil
	}
	if c.OwnerUserID != nil && *c.OwnerUserID != "" {
		return forbidden("case is held by another user")
	}
	return forbidden("case is held by %s in %s", c.OwnerRole, c.OwnerDept)
}

// requireReceptionAssistant is the strict variant used by the reception-only
// send: no super-role bypass.
func (e *Engine) requireReceptionAssistant(actor Actor) error {
	if actor.Department != e.catalog.Reception() || !actor.HasRole(org.RoleAsistente) {
		return forbidden("only %s of %s may send from reception", org.RoleAsistente, e.catalog.Reception())
	}
	return nil
}

func requireState(op Action, c *models.Correspondence, allowed ...models.CorrespondenceState) error {
	for _, s := range allowed {
		if c.Estado == s {
			return nil
		}
	}
	return invalidState(op, c.Estado)
}

// actingRole picks the role recorded in history: the first preferred role
// the actor holds, then a super role, then whatever role comes first.
func (e *Engine) actingRole(actor Actor, preferred ...string) string {
	for _, p := range preferred {
		if actor.HasRole(p) {
			return p
		}
	}
	for _, r := range actor.Roles {
		if e.catalog.IsSuperRole(r) {
			return r
		}
	}
	if len(actor.Roles) > 0 {
		return actor.Roles[0]
	}
	return ""
}
