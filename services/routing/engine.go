// Package routing implements the correspondence workflow: the case state
// machine, its ownership guards, the append-only history and inbox
// filtering. The Engine is stateless; every case lives in a Store and every
// write is conditional on the state and version it was read at.
package routing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"docflow_app_go/models"
	"docflow_app_go/services/org"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserDirectory resolves assignment targets. Lookups return (nil, nil) when
// no user matches.
type UserDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// AuditSink records one activity per transition. Implementations must not
// block and must swallow their own failures.
type AuditSink interface {
	LogActivity(ctx context.Context, action Action, entity, entityID string, before, after interface{}, actor Actor)
}

// Notifier is told about assignments after they are persisted.
type Notifier interface {
	CaseAssigned(ctx context.Context, c *models.Correspondence, assignee *models.User, by Actor)
}

// Recorder observes transition outcomes (metrics).
type Recorder interface {
	ObserveTransition(action string, outcome string, elapsed time.Duration)
}

// Engine runs the correspondence workflow.
type Engine struct {
	catalog  *org.Catalog
	store    Store
	users    UserDirectory
	docs     DocumentValidator
	audit    AuditSink
	notifier Notifier
	metrics  Recorder
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

func WithAuditSink(a AuditSink) Option { return func(e *Engine) { e.audit = a } }

func WithNotifier(n Notifier) Option { return func(e *Engine) { e.notifier = n } }

func WithRecorder(r Recorder) Option { return func(e *Engine) { e.metrics = r } }

func WithLogger(l *zap.Logger) Option { return func(e *Engine) { e.logger = l } }

func WithDocumentValidator(v DocumentValidator) Option { return func(e *Engine) { e.docs = v } }

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// NewEngine builds an Engine over the given catalog, store and directory.
func NewEngine(catalog *org.Catalog, store Store, users UserDirectory, opts ...Option) *Engine {
	e := &Engine{
		catalog:  catalog,
		store:    store,
		users:    users,
		docs:     syntacticDocumentValidator{},
		audit:    noopAudit{},
		notifier: noopNotifier{},
		metrics:  noopRecorder{},
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog returns the organization catalog the engine routes against.
func (e *Engine) Catalog() *org.Catalog { return e.catalog }

// Get loads one case.
func (e *Engine) Get(ctx context.Context, actor Actor, id string) (*models.Correspondence, error) {
	if !actor.Authenticated() {
		return nil, errUnauthenticated
	}
	c, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, e.storeError(err, id)
	}
	return c, nil
}

// List returns the page of cases visible to actor plus the total count.
func (e *Engine) List(ctx context.Context, actor Actor, params ListParams) ([]models.Correspondence, int64, ListFilter, error) {
	f, err := BuildListFilter(e.catalog, actor, params)
	if err != nil {
		return nil, 0, f, err
	}
	items, total, err := e.store.List(ctx, f)
	if err != nil {
		return nil, 0, f, err
	}
	return items, total, f, nil
}

// CreateInput carries the intake fields of a new case.
type CreateInput struct {
	RegExpediente     string   `json:"regExpediente"`
	DocumentoRecibido string   `json:"documentoRecibido"`
	EnviadoPor        string   `json:"enviadoPor"`
	Folios            int      `json:"folios"`
	Notas             string   `json:"notas"`
	Profesionales     []string `json:"profesionales"`
	DocumentoURL      string   `json:"documentoUrl"`
}

// Create registers a case at reception.
func (e *Engine) Create(ctx context.Context, actor Actor, in CreateInput) (c *models.Correspondence, err error) {
	start := e.now()
	defer func() { e.observe(ActionCreate, start, err) }()

	if !actor.Authenticated() {
		return nil, errUnauthenticated
	}
	if in.Folios < 0 {
		return nil, validationError("folios must not be negative")
	}
	if err := e.docs.ValidateDocumentURL(ctx, in.DocumentoURL); err != nil {
		if classified, ok := AsError(err); ok {
			return nil, classified
		}
		return nil, fmt.Errorf("failed to verify documentoUrl: %w", err)
	}

	profesionales := make([]string, 0, len(in.Profesionales))
	for _, p := range in.Profesionales {
		if p = clean(p); p != "" {
			profesionales = append(profesionales, p)
		}
	}

	now := e.now().UTC()
	c = &models.Correspondence{
		ID:                uuid.New().String(),
		CreatedAt:         now,
		UpdatedAt:         now,
		RegExpediente:     clean(in.RegExpediente),
		DocumentoRecibido: clean(in.DocumentoRecibido),
		EnviadoPor:        clean(in.EnviadoPor),
		Folios:            in.Folios,
		Notas:             clean(in.Notas),
		Profesionales:     profesionales,
		DocumentoURL:      in.DocumentoURL,
		Destino:           models.NoDestination(),
		Estado:            models.StateEnRecepcion,
		OwnerDept:         e.catalog.Reception(),
		OwnerRole:         org.RoleAsistente,
		Activo:            true,
		CreatedBy:         actor.ID,
		Version:           1,
	}
	c.History = []models.CorrespondenceHistory{{
		Seq:         1,
		Timestamp:   now,
		Action:      string(ActionCreate),
		ToState:     models.StateEnRecepcion,
		Notes:       c.Notas,
		ActorUserID: actor.ID,
		ActorDept:   actor.Department,
		ActorRole:   e.actingRole(actor, org.RoleAsistente),
	}}

	if err := e.store.Create(ctx, c); err != nil {
		e.logger.Error("failed to create correspondence", zap.Error(err))
		return nil, err
	}

	e.audit.LogActivity(ctx, ActionCreate, EntityCorrespondence, c.ID, nil, c, actor)
	e.logger.Info("correspondence created",
		zap.String("id", c.ID),
		zap.String("actor", actor.ID),
	)
	return c, nil
}

// EntityCorrespondence is the audit entity name for cases.
const EntityCorrespondence = "Correspondence"

// clean trims free text. The text is stored as typed; markup is only
// neutralized where HTML is rendered.
func clean(s string) string {
	return strings.TrimSpace(s)
}

// storeError maps store sentinels to classified errors.
func (e *Engine) storeError(err error, id string) error {
	switch {
	case errors.Is(err, ErrCaseNotFound):
		return notFound(id)
	case errors.Is(err, ErrStaleWrite):
		return newError(CodeConflict, "correspondence %s was modified concurrently; reload and retry", id)
	default:
		return err
	}
}

func (e *Engine) observe(action Action, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		if classified, ok := AsError(err); ok {
			outcome = string(classified.Code)
		} else {
			outcome = "INTERNAL"
		}
	}
	e.metrics.ObserveTransition(string(action), outcome, e.now().Sub(start))
}

type noopAudit struct{}

func (noopAudit) LogActivity(context.Context, Action, string, string, interface{}, interface{}, Actor) {
}

type noopNotifier struct{}

func (noopNotifier) CaseAssigned(context.Context, *models.Correspondence, *models.User, Actor) {}

type noopRecorder struct{}

func (noopRecorder) ObserveTransition(string, string, time.Duration) {}
