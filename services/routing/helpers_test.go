package routing

import (
	"context"
	"strings"
	"testing"
	"time"

	"docflow_app_go/models"
	"docflow_app_go/services/org"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	subBasica   = "SUBDIRECCIÓN DE EDUCACIÓN BÁSICA"
	deptPrim    = "PRIMARIA"
	deptJur     = "JURÍDICO"
	validDocURL = "https://drive.google.com/file/d/1AbCdEfGhIjKlMnOp/view"
)

var (
	receptionist = Actor{ID: "u-recep", Email: "recepcion@example.org", Name: "Recepción", Roles: []string{org.RoleAsistente}, Department: "ADMINISTRACIÓN"}
	director     = Actor{ID: "u-dir", Email: "director@example.org", Roles: []string{org.RoleDirector}, Department: "DIRECCIÓN"}
	subdirector  = Actor{ID: "u-sub", Email: "sub@example.org", Roles: []string{org.RoleSubdirector}, Department: subBasica}
	jefeJ        = Actor{ID: "u-jefe-j", Email: "j@example.org", Name: "Jefa J", Roles: []string{org.RoleJefe}, Department: deptPrim}
	jefeK        = Actor{ID: "u-jefe-k", Email: "k@example.org", Name: "Jefe K", Roles: []string{org.RoleJefe}, Department: deptJur}
	tecnicoA     = Actor{ID: "u-tec-a", Email: "a@example.org", Roles: []string{org.RoleTecnico}, Department: deptPrim}
	tecnicoB     = Actor{ID: "u-tec-b", Email: "b@example.org", Roles: []string{org.RoleTecnico}, Department: deptPrim}
	admin        = Actor{ID: "u-admin", Email: "admin@example.org", Roles: []string{org.RoleAdmin}, Department: "DIRECCIÓN"}
)

type MockDirectory struct {
	mock.Mock
	known map[string]bool
}

// newMockDirectory answers lookups for the fixture users; any other id or
// email resolves to no user.
func newMockDirectory() *MockDirectory {
	d := &MockDirectory{known: make(map[string]bool)}
	d.On("FindByID", mock.Anything, mock.MatchedBy(func(id string) bool { return !d.known[id] })).Return(nil, nil).Maybe()
	d.On("FindByEmail", mock.Anything, mock.MatchedBy(func(email string) bool { return !d.known[strings.ToLower(email)] })).Return(nil, nil).Maybe()
	d.add(&models.User{ID: jefeJ.ID, Name: "Jefa J", Email: jefeJ.Email, Departamento: "Primaria", Roles: []string{"Jefa"}, IsActive: true})
	d.add(&models.User{ID: jefeK.ID, Name: "Jefe K", Email: jefeK.Email, Departamento: "Juridico", Roles: []string{"JEFE"}, IsActive: true})
	d.add(&models.User{ID: tecnicoA.ID, Name: "Técnico A", Email: tecnicoA.Email, Departamento: deptPrim, Roles: []string{"Técnico"}, IsActive: true})
	d.add(&models.User{ID: tecnicoB.ID, Name: "Técnico B", Email: tecnicoB.Email, Departamento: deptPrim, Roles: []string{org.RoleTecnico}, IsActive: true})
	d.add(&models.User{ID: "u-tec-sec", Name: "Técnico Sec", Email: "sec@example.org", Departamento: "SECUNDARIA", Roles: []string{org.RoleTecnico}, IsActive: true})
	d.add(&models.User{ID: "u-tec-off", Name: "Técnico Off", Email: "off@example.org", Departamento: deptPrim, Roles: []string{org.RoleTecnico}, IsActive: false})
	return d
}

func (d *MockDirectory) add(u *models.User) {
	d.known[u.ID] = true
	d.known[strings.ToLower(u.Email)] = true
	d.On("FindByID", mock.Anything, u.ID).Return(u, nil).Maybe()
	d.On("FindByEmail", mock.Anything, mock.MatchedBy(func(email string) bool { return strings.EqualFold(email, u.Email) })).Return(u, nil).Maybe()
}

func (d *MockDirectory) FindByID(ctx context.Context, id string) (*models.User, error) {
	args := d.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (d *MockDirectory) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := d.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type MockAuditSink struct {
	mock.Mock
}

func newMockAuditSink() *MockAuditSink {
	m := new(MockAuditSink)
	m.On("LogActivity", mock.Anything, mock.Anything, EntityCorrespondence, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return().Maybe()
	return m
}

func (m *MockAuditSink) LogActivity(ctx context.Context, action Action, entity, entityID string, before, after interface{}, actor Actor) {
	m.Called(ctx, action, entity, entityID, before, after, actor)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) CaseAssigned(ctx context.Context, c *models.Correspondence, assignee *models.User, by Actor) {
	m.Called(ctx, c, assignee, by)
}

// userID matches a *models.User argument by id.
func userID(id string) interface{} {
	return mock.MatchedBy(func(u *models.User) bool { return u != nil && u.ID == id })
}

type recordingRecorder struct {
	outcomes map[string]string
}

func (r *recordingRecorder) ObserveTransition(action, outcome string, _ time.Duration) {
	r.outcomes[action] = outcome
}

type testEnv struct {
	engine   *Engine
	store    Store
	audit    *MockAuditSink
	notifier *MockNotifier
	metrics  *recordingRecorder
	dir      *MockDirectory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, NewMemoryStore())
}

func newTestEnvWithStore(t *testing.T, store Store) *testEnv {
	t.Helper()
	env := &testEnv{
		store:    store,
		audit:    newMockAuditSink(),
		notifier: new(MockNotifier),
		metrics:  &recordingRecorder{outcomes: make(map[string]string)},
		dir:      newMockDirectory(),
	}
	env.notifier.On("CaseAssigned", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return().Maybe()
	clock := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	env.engine = NewEngine(org.DefaultCatalog(), store, env.dir,
		WithAuditSink(env.audit),
		WithNotifier(env.notifier),
		WithRecorder(env.metrics),
		WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}),
	)
	return env
}

func (env *testEnv) create(t *testing.T) *models.Correspondence {
	t.Helper()
	c, err := env.engine.Create(context.Background(), receptionist, CreateInput{
		RegExpediente:     "EXP-001",
		DocumentoRecibido: "Oficio 12/2026",
		EnviadoPor:        "Escuela Primaria Benito Juárez",
		Folios:            3,
		DocumentoURL:      validDocURL,
	})
	require.NoError(t, err)
	return c
}

// atSubdirection creates a case and routes it to the Básica subdirection.
func (env *testEnv) atSubdirection(t *testing.T) *models.Correspondence {
	t.Helper()
	ctx := context.Background()
	c := env.create(t)
	_, err := env.engine.SendToDirection(ctx, receptionist, c.ID, NotesInput{})
	require.NoError(t, err)
	c, err = env.engine.RouteFromDirection(ctx, director, c.ID, RouteInput{Subdireccion: "Subdireccion de Educacion Basica", RoleDestino: "Subdirector", Instrucciones: "Atender"})
	require.NoError(t, err)
	return c
}

// atTechnician drives a case to ASIGNADO_A_TECNICO owned by tecnicoA.
func (env *testEnv) atTechnician(t *testing.T) *models.Correspondence {
	t.Helper()
	ctx := context.Background()
	c := env.atSubdirection(t)
	_, err := env.engine.AssignSupervisor(ctx, subdirector, c.ID, AssignSupervisorInput{JefeUserID: jefeJ.ID})
	require.NoError(t, err)
	c, err = env.engine.AssignSpecialist(ctx, jefeJ, c.ID, AssignSpecialistInput{TecnicoUserID: tecnicoA.ID})
	require.NoError(t, err)
	return c
}

// assertStepHistory checks that the last n history records chain from
// before.Estado to after.Estado.
func assertStepHistory(t *testing.T, before, after *models.Correspondence, n int) {
	t.Helper()
	require.Len(t, after.History, len(before.History)+n)
	appended := after.History[len(before.History):]
	require.Equal(t, before.Estado, appended[0].FromState)
	require.Equal(t, after.Estado, appended[len(appended)-1].ToState)
	for i := 1; i < len(appended); i++ {
		require.Equal(t, appended[i-1].ToState, appended[i].FromState)
	}
}
