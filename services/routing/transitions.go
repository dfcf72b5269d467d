package routing

import (
	"context"

	"docflow_app_go/models"

	"go.uber.org/zap"
)

// Action names a workflow operation. It is recorded in history, audit and
// metrics.
type Action string

const (
	ActionCreate                   Action = "CREATE"
	ActionSendToDirection          Action = "SEND_TO_DIRECTION"
	ActionReceptionSendToDirection Action = "RECEPTION_SEND_TO_DIRECTION"
	ActionRoute                    Action = "DIRECTION_ROUTE"
	ActionSubdirectionAccept       Action = "SUBDIRECTION_ACCEPT"
	ActionAssignSupervisor         Action = "ASSIGN_JEFE"
	ActionSupervisorAccept         Action = "JEFE_ACCEPT"
	ActionAssignSpecialist         Action = "ASSIGN_TECNICO"
	ActionStartWork                Action = "TECNICO_START"
	ActionResolve                  Action = "TECNICO_RESOLVE"
	ActionEscalate                 Action = "JEFE_ESCALATE"
	ActionForwardToDirection       Action = "SUBDIRECTION_FORWARD"
	ActionRemitForArchive          Action = "DIRECTION_REMIT"
	ActionArchive                  Action = "ARCHIVE"
	ActionReturnToDirection        Action = "RETURN_TO_DIRECTION"
)

const autoAcceptNote = "accepted automatically on assignment"

// step is one state change. A transition is a plan of one or more steps
// applied in order and persisted in a single conditional write; each step
// appends exactly one history record.
type step struct {
	action Action
	to     models.CorrespondenceState
	role   string
	notes  string
	mutate func(c *models.Correspondence)
}

type plan struct {
	steps    []step
	assignee *models.User
}

func single(s step) *plan { return &plan{steps: []step{s}} }

// transition loads the case, lets build check state, guard and input and
// return the plan, then applies the plan and writes it conditionally.
func (e *Engine) transition(ctx context.Context, actor Actor, id string, op Action, build func(c *models.Correspondence) (*plan, error)) (result *models.Correspondence, err error) {
	start := e.now()
	defer func() { e.observe(op, start, err) }()

	if !actor.Authenticated() {
		return nil, errUnauthenticated
	}

	current, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, e.storeError(err, id)
	}

	p, err := build(current)
	if err != nil {
		return nil, err
	}

	next := current.Clone()
	now := e.now().UTC()
	appended := make([]models.CorrespondenceHistory, 0, len(p.steps))
	for _, s := range p.steps {
		from := next.Estado
		if s.mutate != nil {
			s.mutate(next)
		}
		next.Estado = s.to
		appended = append(appended, models.CorrespondenceHistory{
			Seq:         len(current.History) + len(appended) + 1,
			Timestamp:   now,
			Action:      string(s.action),
			FromState:   from,
			ToState:     s.to,
			Notes:       s.notes,
			ActorUserID: actor.ID,
			ActorDept:   actor.Department,
			ActorRole:   s.role,
		})
	}
	next.History = append(next.History, appended...)
	next.Version = current.Version + 1
	next.UpdatedAt = now

	if err := e.store.Update(ctx, next, current.Estado, current.Version, appended); err != nil {
		mapped := e.storeError(err, id)
		if _, classified := AsError(mapped); !classified {
			e.logger.Error("failed to persist transition",
				zap.String("id", id),
				zap.String("action", string(op)),
				zap.Error(err),
			)
		}
		return nil, mapped
	}

	e.audit.LogActivity(ctx, op, EntityCorrespondence, next.ID, current, next, actor)
	if p.assignee != nil {
		e.notifier.CaseAssigned(ctx, next, p.assignee, actor)
	}
	e.logger.Info("correspondence transition",
		zap.String("id", next.ID),
		zap.String("action", string(op)),
		zap.String("from", string(current.Estado)),
		zap.String("to", string(next.Estado)),
		zap.Int("steps", len(p.steps)),
		zap.String("actor", actor.ID),
	)
	return next, nil
}

func setOwner(c *models.Correspondence, dept, role string, userID *string) {
	c.OwnerDept = dept
	c.OwnerRole = role
	c.OwnerUserID = copyID(userID)
}

func clearAssignments(c *models.Correspondence) {
	c.JefeID = nil
	c.JefeLabel = ""
	c.TecnicoID = nil
	c.TecnicoLabel = ""
}

func copyID(id *string) *string {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func strPtr(s string) *string { return &s }
