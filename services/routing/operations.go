package routing

import (
	"context"
	"strings"

	"docflow_app_go/models"
	"docflow_app_go/services/org"
)

// NotesInput is the body of transitions that only take a comment.
type NotesInput struct {
	Notas string `json:"notas"`
}

// RouteInput is the body of the Direction routing transition. Exactly one
// of Subdireccion and Departamento must be set.
type RouteInput struct {
	Subdireccion  string `json:"subdireccion"`
	Departamento  string `json:"departamento"`
	RoleDestino   string `json:"roleDestino"`
	Instrucciones string `json:"instrucciones"`
}

// AssignSupervisorInput selects the supervisor by id or by email.
type AssignSupervisorInput struct {
	JefeUserID string `json:"jefeUserId"`
	JefeEmail  string `json:"jefeEmail"`
	Notas      string `json:"notas"`
}

// AssignSpecialistInput selects the specialist by id or by email.
// TecnicoID is accepted as an alias of TecnicoUserID.
type AssignSpecialistInput struct {
	TecnicoUserID string `json:"tecnicoUserId"`
	TecnicoID     string `json:"tecnicoId"`
	TecnicoEmail  string `json:"tecnicoEmail"`
	Notas         string `json:"notas"`
}

// ReturnInput is the body of the return-to-Direction transition.
type ReturnInput struct {
	Reason string `json:"reason"`
}

// SendToDirection moves a case from reception to Direction.
func (e *Engine) SendToDirection(ctx context.Context, actor Actor, id string, in NotesInput) (*models.Correspondence, error) {
	return e.transition(ctx, actor, id, ActionSendToDirection, func(c *models.Correspondence) (*plan, error) {
		if err := requireState(ActionSendToDirection, c, models.StateEnRecepcion); err != nil {
			return nil, err
		}
		if err := e.requireHolder(actor, c); err != nil {
			return nil, err
		}
		return single(e.toDirectionStep(ActionSendToDirection, actor, in.Notas)), nil
	})
}

// ReceptionSendToDirection is SendToDirection restricted to reception
// assistants; super roles are not exempt.
func (e *Engine) ReceptionSendToDirection(ctx context.Context, actor Actor, id string, in NotesInput) (*models.Correspondence, error) {
	return e.transition(ctx, actor, id, ActionReceptionSendToDirection, func(c *models.Correspondence) (*plan, error) {
		if err := requireState(ActionReceptionSendToDirection, c, models.StateEnRecepcion); err != nil {
			return nil, err
		}
		if err := e.requireReceptionAssistant(actor); err != nil {
			return nil, err
		}
		return single(e.toDirectionStep(ActionReceptionSendToDirection, actor, in.Notas)), nil
	})
}

func (e *Engine) toDirectionStep(op Action, actor Actor, notes string) step {
	return step{
		action: op,
		to:     models.StateEnDireccionPorInstruir,
		role:   e.actingRole(actor, org.RoleAsistente),
		notes:  clean(notes),
		mutate: func(c *models.Correspondence) {
			setOwner(c, e.catalog.Direction(), org.RoleDirector, nil)
		},
	}
}

// RouteFromDirection records Direction's instructions and sends the case to
// a subdirection or straight to a department.
func (e *Engine) RouteFromDirection(ctx context.Context, actor Actor, id string, in RouteInput) (*models.Correspondence, error) {
	return e.transition(ctx, actor, id, ActionRoute, func(c *models.Correspondence) (*plan, error) {
		if err := requireState(ActionRoute, c, models.StateEnDireccionPorInstruir, models.StateEnDireccionPorReasignar); err != nil {
			return nil, err
		}
		if err := e.requireHolder(actor, c); err != nil {
			return nil, err
		}

		sub := strings.TrimSpace(in.Subdireccion)
		dept := strings.TrimSpace(in.Departamento)
		if (sub == "") == (dept == "") {
			return nil, validationError("exactly one of subdireccion or departamento is required")
		}

		var (
			dest     models.Destination
			to       models.CorrespondenceState
			target   string
			ownerRol string
		)
		if sub != "" {
			canonical, ok := e.catalog.CanonicalSubdirection(sub)
			if !ok {
				return nil, validationError("unknown subdirection %q", sub)
			}
			dest, to, target, ownerRol = models.ToSubdirection(canonical), models.StateEnSubdireccionPorRecibir, canonical, org.RoleSubdirector
		} else {
			canonical, ok := e.catalog.CanonicalDepartment(dept)
			if !ok || !e.catalog.IsRoutableDepartment(canonical) {
				return nil, validationError("department %q cannot receive cases from Direction", dept)
			}
			dest, to, target, ownerRol = models.ToDepartment(canonical), models.StateEnDepartamentoPorRecibir, canonical, org.RoleJefe
		}

		if strings.TrimSpace(in.RoleDestino) != "" {
			role, ok := e.catalog.CanonicalRole(in.RoleDestino)
			if !ok || role != ownerRol {
				return nil, validationError("roleDestino must be %s for this destination", ownerRol)
			}
		}

		instrucciones := clean(in.Instrucciones)
		return single(step{
			action: ActionRoute,
			to:     to,
			role:   e.actingRole(actor, org.RoleDirector),
			notes:  instrucciones,
			mutate: func(c *models.Correspondence) {
				c.Instrucciones = instrucciones
				c.Destino = dest
				clearAssignments(c)
				setOwner(c, target, ownerRol, nil)
			},
		}), nil
	})
}

// SubdirectionAccept acknowledges receipt at the subdirection.
func (e *Engine) SubdirectionAccept(ctx context.Context, actor Actor, id string, in NotesInput) (*models.Correspondence, error) {
	return e.transition(ctx, actor, id, ActionSubdirectionAccept, func(c *models.Correspondence) (*plan, error) {
		if err := requireState(ActionSubdirectionAccept, c, models.StateEnSubdireccionPorRecibir); err != nil {
			return nil, err
		}
		if err := e.requireHolder(actor, c); err != nil {
			return nil, err
		}
		return single(e.subdirectionAcceptStep(actor, clean(in.Notas))), nil
	})
}

func (e *Engine) subdirectionAcceptStep(actor Actor, notes string) step {
	return step{
		action: ActionSubdirectionAccept,
		to:     models.StateRecibidoEnSubdireccion,
		role:   e.actingRole(actor, org.RoleSubdirector),
		notes:  notes,
		mutate: func(c *models.Correspondence) {
			c.OwnerRole = org.RoleSubdirector
		},
	}
}

// AssignSupervisor hands the case to a department supervisor. From the
// pending-receipt state a subdirector holder gets an implicit accept step
// first.
func (e *Engine) AssignSupervisor(ctx context.Context, actor Actor, id string, in AssignSupervisorInput) (*models.Correspondence, error) {
	return e.transition(ctx, actor, id, ActionAssignSupervisor, func(c *models.Correspondence) (*plan, error) {
		autoAccept := false
		switch c.Estado {
		case models.StateRecibidoEnSubdireccion, models.StateEnSubdireccionRevision:
		case models.StateEnSubdireccionPorRecibir:
			if !actor.HasRole(org.RoleSubdirector) {
				return nil, invalidState(ActionAssignSupervisor, c.Estado)
			}
			autoAccept = true
		default:
			return nil, invalidState(ActionAssignSupervisor, c.Estado)
		}
		if err := e.requireHolder(actor, c); err != nil {
			return nil, err
		}

		jefe, dept, err := e.resolveSupervisor(ctx, c, in)
		if err != nil {
			return nil, err
		}

		p := &plan{assignee: jefe}
		if autoAccept {
			p.steps = append(p.steps, e.subdirectionAcceptStep(actor, autoAcceptNote))
		}
		p.steps = append(p.steps, step{
			action: ActionAssignSupervisor,
			to:     models.StateEnDepartamentoPorRecibir,
			role:   e.actingRole(actor, org.RoleSubdirector),
			notes:  clean(in.Notas),
			mutate: func(c *models.Correspondence) {
				clearAssignments(c)
				c.JefeID = strPtr(jefe.ID)
				c.JefeLabel = jefe.Label()
				setOwner(c, dept, org.RoleJefe, strPtr(jefe.ID))
			},
		})
		return p, nil
	})
}

// resolveSupervisor returns the supervisor and the canonical department the
// case will be owned by, which is always the supervisor's own.
func (e *Engine) resolveSupervisor(ctx context.Context, c *models.Correspondence, in AssignSupervisorInput) (*models.User, string, error) {
	u, err := e.lookupUser(ctx, in.JefeUserID, in.JefeEmail, "jefeUserId or jefeEmail")
	if err != nil {
		return nil, "", err
	}
	if !containsString(e.catalog.CanonicalRoles(u.Roles), org.RoleJefe) {
		return nil, "", validationError("user %s is not a %s", u.Email, org.RoleJefe)
	}
	dept, ok := e.catalog.CanonicalDepartment(u.Departamento)
	if !ok {
		return nil, "", validationError("user %s has unknown department %q", u.Email, u.Departamento)
	}
	if sub, isSub := c.Destino.Subdirection(); isSub && !e.catalog.CoversDepartment(sub, dept) {
		return nil, "", validationError("department %s is not under %s", dept, sub)
	}
	return u, dept, nil
}

// SupervisorAccept acknowledges receipt at the department. A supervisor
// accepting a case routed to the department as a whole becomes its named
// supervisor.
func (e *Engine) SupervisorAccept(ctx context.Context, actor Actor, id string, in NotesInput) (*models.Correspondence, error) {
	return e.transition(ctx, actor, id, ActionSupervisorAccept, func(c *models.Correspondence) (*plan, error) {
		if err := requireState(ActionSupervisorAccept, c, models.StateEnDepartamentoPorRecibir); err != nil {
			return nil, err
		}
		if err := e.requireHolder(actor, c); err != nil {
			return nil, err
		}
		return single(e.supervisorAcceptStep(actor, clean(in.Notas))), nil
	})
}

func (e *Engine) supervisorAcceptStep(actor Actor, notes string) step {
	return step{
		action: ActionSupervisorAccept,
		to:     models.StateRecibidoEnDepartamento,
		role:   e.actingRole(actor, org.RoleJefe),
		notes:  notes,
		mutate: func(c *models.Correspondence) {
			c.OwnerRole = org.RoleJefe
			if c.JefeID == nil && actor.HasRole(org.RoleJefe) {
				c.JefeID = strPtr(actor.ID)
				c.JefeLabel = actor.Label()
				c.OwnerUserID = strPtr(actor.ID)
			}
		},
	}
}

// AssignSpecialist hands the case to a specialist of the owning department.
// From the pending-receipt state a supervisor holder gets an implicit accept
// step first.
func (e *Engine) AssignSpecialist(ctx context.Context, actor Actor, id string, in AssignSpecialistInput) (*models.Correspondence, error) {
	return e.transition(ctx, actor, id, ActionAssignSpecialist, func(c *models.Correspondence) (*plan, error) {
		autoAccept := false
		switch c.Estado {
		case models.StateRecibidoEnDepartamento, models.StateResueltoPorTecnico:
		case models.StateEnDepartamentoPorRecibir:
			if !actor.HasRole(org.RoleJefe) {
				return nil, invalidState(ActionAssignSpecialist, c.Estado)
			}
			autoAccept = true
		default:
			return nil, invalidState(ActionAssignSpecialist, c.Estado)
		}
		if err := e.requireHolder(actor, c); err != nil {
			return nil, err
		}

		tecnicoID := strings.TrimSpace(in.TecnicoUserID)
		if tecnicoID == "" {
			tecnicoID = strings.TrimSpace(in.TecnicoID)
		}
		tecnico, err := e.lookupUser(ctx, tecnicoID, in.TecnicoEmail, "tecnicoUserId or tecnicoEmail")
		if err != nil {
			return nil, err
		}
		if !containsString(e.catalog.CanonicalRoles(tecnico.Roles), org.RoleTecnico) {
			return nil, validationError("user %s is not a %s", tecnico.Email, org.RoleTecnico)
		}
		if dept, ok := e.catalog.CanonicalDepartment(tecnico.Departamento); !ok || dept != c.OwnerDept {
			return nil, validationError("user %s does not belong to %s", tecnico.Email, c.OwnerDept)
		}

		p := &plan{assignee: tecnico}
		if autoAccept {
			p.steps = append(p.steps, e.supervisorAcceptStep(actor, autoAcceptNote))
		}
		p.steps = append(p.steps, step{
			action: ActionAssignSpecialist,
			to:     models.StateAsignadoATecnico,
			role:   e.actingRole(actor, org.RoleJefe),
			notes:  clean(in.Notas),
			mutate: func(c *models.Correspondence) {
				c.TecnicoID = strPtr(tecnico.ID)
				c.TecnicoLabel = tecnico.Label()
				setOwner(c, c.OwnerDept, org.RoleTecnico, strPtr(tecnico.ID))
			},
		})
		return p, nil
	})
}

// StartWork marks the specialist as working on the case.
func (e *Engine) StartWork(ctx context.Context, actor Actor, id string, in NotesInput) (*models.Correspondence, error) {
	return e.transition(ctx, actor, id, ActionStartWork, func(c *models.Correspondence) (*plan, error) {
		if err := requireState(ActionStartWork, c, models.StateAsignadoATecnico); err != nil {
			return nil, err
		}
		if err := e.requireHolder(actor, c); err != nil {
			return nil, err
		}
		return single(step{
			action: ActionStartWork,
			to:     models.StateEnTrabajoTecnico,
			role:   e.actingRole(actor, org.RoleTecnico),
			notes:  clean(in.Notas),
		}), nil
	})
}

// Resolve returns the case to the supervisor who assigned it.
func (e *Engine) Resolve(ctx context.Context, actor Actor, id string, in NotesInput) (*models.Correspondence, error) {
	return e.transition(ctx, actor, id, ActionResolve, func(c *models.Correspondence) (*plan, error) {
		if err := requireState(ActionResolve, c, models.StateEnTrabajoTecnico); err != nil {
			return nil, err
		}
		if err := e.requireHolder(actor, c); err != nil {
			return nil, err
		}
		return single(step{
			action: ActionResolve,
			to:     models.StateResueltoPorTecnico,
			role:   e.actingRole(actor, org.RoleTecnico),
			notes:  clean(in.Notas),
			mutate: func(c *models.Correspondence) {
				setOwner(c, c.OwnerDept, org.RoleJefe, c.JefeID)
			},
		}), nil
	})
}

// EscalateFromDepartment sends a resolved case up: to the subdirection when
// Direction routed it through one, otherwise to Direction's final review.
func (e *Engine) EscalateFromDepartment(ctx context.Context, actor Actor, id string, in NotesInput) (*models.Correspondence, error) {
	return e.transition(ctx, actor, id, ActionEscalate, func(c *models.Correspondence) (*plan, error) {
		if err := requireState(ActionEscalate, c, models.StateResueltoPorTecnico); err != nil {
			return nil, err
		}
		if err := e.requireHolder(actor, c); err != nil {
			return nil, err
		}

		s := step{
			action: ActionEscalate,
			role:   e.actingRole(actor, org.RoleJefe),
			notes:  clean(in.Notas),
		}
		if sub, ok := c.Destino.Subdirection(); ok {
			s.to = models.StateEnSubdireccionRevision
			s.mutate = func(c *models.Correspondence) { setOwner(c, sub, org.RoleSubdirector, nil) }
		} else {
			s.to = models.StateEnDireccionRevisionFinal
			s.mutate = func(c *models.Correspondence) { setOwner(c, e.catalog.Direction(), org.RoleDirector, nil) }
		}
		return single(s), nil
	})
}

// ForwardToDirection sends a reviewed case from the subdirection to
// Direction.
func (e *Engine) ForwardToDirection(ctx context.Context, actor Actor, id string, in NotesInput) (*models.Correspondence, error) {
	return e.transition(ctx, actor, id, ActionForwardToDirection, func(c *models.Correspondence) (*plan, error) {
		if err := requireState(ActionForwardToDirection, c, models.StateEnSubdireccionRevision); err != nil {
			return nil, err
		}
		if err := e.requireHolder(actor, c); err != nil {
			return nil, err
		}
		return single(step{
			action: ActionForwardToDirection,
			to:     models.StateEnDireccionRevisionFinal,
			role:   e.actingRole(actor, org.RoleSubdirector),
			notes:  clean(in.Notas),
			mutate: func(c *models.Correspondence) {
				setOwner(c, e.catalog.Direction(), org.RoleDirector, nil)
			},
		}), nil
	})
}

// RemitForArchive sends the case back to reception for filing.
func (e *Engine) RemitForArchive(ctx context.Context, actor Actor, id string, in NotesInput) (*models.Correspondence, error) {
	return e.transition(ctx, actor, id, ActionRemitForArchive, func(c *models.Correspondence) (*plan, error) {
		if err := requireState(ActionRemitForArchive, c, models.StateEnDireccionRevisionFinal); err != nil {
			return nil, err
		}
		if err := e.requireHolder(actor, c); err != nil {
			return nil, err
		}
		return single(step{
			action: ActionRemitForArchive,
			to:     models.StateEnRecepcionParaArchivo,
			role:   e.actingRole(actor, org.RoleDirector),
			notes:  clean(in.Notas),
			mutate: func(c *models.Correspondence) {
				setOwner(c, e.catalog.Reception(), org.RoleAsistente, nil)
			},
		}), nil
	})
}

// Archive files the case. ARCHIVADO is terminal.
func (e *Engine) Archive(ctx context.Context, actor Actor, id string, in NotesInput) (*models.Correspondence, error) {
	return e.transition(ctx, actor, id, ActionArchive, func(c *models.Correspondence) (*plan, error) {
		if err := requireState(ActionArchive, c, models.StateEnRecepcionParaArchivo); err != nil {
			return nil, err
		}
		if err := e.requireHolder(actor, c); err != nil {
			return nil, err
		}
		return single(step{
			action: ActionArchive,
			to:     models.StateArchivado,
			role:   e.actingRole(actor, org.RoleAsistente),
			notes:  clean(in.Notas),
		}), nil
	})
}

// ReturnToDirection sends a case that has not been accepted yet back to
// Direction for reassignment.
func (e *Engine) ReturnToDirection(ctx context.Context, actor Actor, id string, in ReturnInput) (*models.Correspondence, error) {
	return e.transition(ctx, actor, id, ActionReturnToDirection, func(c *models.Correspondence) (*plan, error) {
		if err := requireState(ActionReturnToDirection, c, models.StateEnSubdireccionPorRecibir, models.StateEnDepartamentoPorRecibir); err != nil {
			return nil, err
		}
		if err := e.requireHolder(actor, c); err != nil {
			return nil, err
		}
		reason := clean(in.Reason)
		if reason == "" {
			return nil, validationError("reason is required")
		}
		return single(step{
			action: ActionReturnToDirection,
			to:     models.StateEnDireccionPorReasignar,
			role:   e.actingRole(actor, org.RoleSubdirector, org.RoleJefe),
			notes:  reason,
			mutate: func(c *models.Correspondence) {
				clearAssignments(c)
				setOwner(c, e.catalog.Direction(), org.RoleDirector, nil)
			},
		}), nil
	})
}

// lookupUser finds an active user by id, falling back to email.
func (e *Engine) lookupUser(ctx context.Context, id, email, field string) (*models.User, error) {
	id = strings.TrimSpace(id)
	email = strings.TrimSpace(email)
	var (
		u   *models.User
		err error
	)
	switch {
	case id != "":
		u, err = e.users.FindByID(ctx, id)
	case email != "":
		u, err = e.users.FindByEmail(ctx, strings.ToLower(email))
	default:
		return nil, validationError("%s is required", field)
	}
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, validationError("assignee not found")
	}
	if !u.IsActive {
		return nil, validationError("user %s is not active", u.Email)
	}
	return u, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
