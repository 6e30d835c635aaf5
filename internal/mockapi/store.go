package mockapi

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sajagmathur/mlconsole/internal/resource"
	"github.com/sajagmathur/mlconsole/internal/session"
)

// account is a backend user fixture. Passwords are bcrypt-hashed at seed
// time so plaintext never sits in a struct beyond startup.
type account struct {
	user         session.User
	passwordHash []byte
}

// sessionRecord tracks an issued token.
type sessionRecord struct {
	email     string
	expiresAt time.Time
}

const sessionDuration = 24 * time.Hour

// table is an in-memory record set for one resource kind.
type table[T any] struct {
	mu    sync.Mutex
	items map[string]T
	order []string // insertion order, so listings are stable
	id    func(T) string
	setID func(*T, string)
	stamp func(*T, time.Time, bool)
}

func newTable[T any](id func(T) string, setID func(*T, string), stamp func(*T, time.Time, bool)) *table[T] {
	return &table[T]{
		items: make(map[string]T),
		id:    id,
		setID: setID,
		stamp: stamp,
	}
}

func (t *table[T]) list() []T {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.items[id])
	}
	return out
}

func (t *table[T]) get(id string) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.items[id]
	return v, ok
}

func (t *table[T]) create(rec T) T {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.id(rec)
	if id == "" {
		id = uuid.NewString()
		t.setID(&rec, id)
	}
	t.stamp(&rec, time.Now().UTC(), true)
	if _, exists := t.items[id]; !exists {
		t.order = append(t.order, id)
	}
	t.items[id] = rec
	return rec
}

func (t *table[T]) update(id string, rec T) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.items[id]; !ok {
		var zero T
		return zero, false
	}
	t.setID(&rec, id)
	t.stamp(&rec, time.Now().UTC(), false)
	t.items[id] = rec
	return rec, true
}

func (t *table[T]) delete(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.items[id]; !ok {
		return false
	}
	delete(t.items, id)
	for i, oid := range t.order {
		if oid == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

// mutate applies fn to the record with the given id under the table lock.
func (t *table[T]) mutate(id string, fn func(T) T) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.items[id]
	if !ok {
		var zero T
		return zero, false
	}
	rec = fn(rec)
	t.stamp(&rec, time.Now().UTC(), false)
	t.items[id] = rec
	return rec, true
}

// dataStore holds all in-memory backend state.
type dataStore struct {
	mu       sync.Mutex
	accounts map[string]*account
	sessions map[string]*sessionRecord

	projects    *table[resource.Project]
	pipelines   *table[resource.Pipeline]
	models      *table[resource.ModelVersion]
	deployments *table[resource.Deployment]
	monitors    *table[resource.Monitor]
	schedules   *table[resource.Schedule]
}

func newDataStore() *dataStore {
	ds := &dataStore{
		accounts: make(map[string]*account),
		sessions: make(map[string]*sessionRecord),
		projects: newTable(
			func(p resource.Project) string { return p.ID },
			func(p *resource.Project, id string) { p.ID = id },
			func(p *resource.Project, now time.Time, created bool) {
				if created {
					p.CreatedAt = now
					if p.Status == "" {
						p.Status = resource.ProjectActive
					}
				}
				p.UpdatedAt = now
			},
		),
		pipelines: newTable(
			func(p resource.Pipeline) string { return p.ID },
			func(p *resource.Pipeline, id string) { p.ID = id },
			func(p *resource.Pipeline, now time.Time, created bool) {
				if created {
					p.CreatedAt = now
					if p.Status == "" {
						p.Status = resource.PipelineDraft
					}
				}
				p.UpdatedAt = now
			},
		),
		models: newTable(
			func(m resource.ModelVersion) string { return m.ID },
			func(m *resource.ModelVersion, id string) { m.ID = id },
			func(m *resource.ModelVersion, now time.Time, created bool) {
				if created {
					m.CreatedAt = now
					if m.Stage == "" {
						m.Stage = resource.ModelPending
					}
				}
				m.UpdatedAt = now
			},
		),
		deployments: newTable(
			func(d resource.Deployment) string { return d.ID },
			func(d *resource.Deployment, id string) { d.ID = id },
			func(d *resource.Deployment, now time.Time, created bool) {
				if created {
					d.CreatedAt = now
					if d.Status == "" {
						d.Status = resource.DeploymentPending
					}
				}
				d.UpdatedAt = now
			},
		),
		monitors: newTable(
			func(m resource.Monitor) string { return m.ID },
			func(m *resource.Monitor, id string) { m.ID = id },
			func(m *resource.Monitor, now time.Time, created bool) {
				if created {
					m.CreatedAt = now
					if m.Status == "" {
						m.Status = resource.MonitorHealthy
					}
				}
				m.UpdatedAt = now
			},
		),
		schedules: newTable(
			func(s resource.Schedule) string { return s.ID },
			func(s *resource.Schedule, id string) { s.ID = id },
			func(s *resource.Schedule, now time.Time, created bool) {
				if created {
					s.CreatedAt = now
					if s.Status == "" {
						s.Status = resource.ScheduleScheduled
					}
				}
				s.UpdatedAt = now
			},
		),
	}
	ds.seed()
	return ds
}

// seedAccounts are the backend's user fixtures.
var seedAccounts = []struct {
	password string
	user     session.User
}{
	{"demo123", session.User{ID: "u-demo", Email: "demo@mlmonitoring.com", Name: "Demo Admin", Role: session.RoleAdmin, Teams: []string{"platform"}}},
	{"engineer123", session.User{ID: "u-eng", Email: "engineer@mlmonitoring.com", Name: "Demo Engineer", Role: session.RoleMLEngineer, Teams: []string{"ml-team"}}},
	{"ops123", session.User{ID: "u-ops", Email: "ops@mlmonitoring.com", Name: "Demo Ops", Role: session.RoleMLOpsEngineer, Teams: []string{"platform"}}},
	{"viewer123", session.User{ID: "u-view", Email: "viewer@mlmonitoring.com", Name: "Demo Viewer", Role: session.RoleViewer}},
}

func (ds *dataStore) seed() {
	for _, sa := range seedAccounts {
		hash, err := bcrypt.GenerateFromPassword([]byte(sa.password), bcrypt.MinCost)
		if err != nil {
			continue
		}
		ds.accounts[sa.user.Email] = &account{user: sa.user, passwordHash: hash}
	}

	p := ds.projects.create(resource.Project{
		Name:        "churn-prediction",
		Description: "Customer churn prediction models",
		Owner:       "ml-team",
	})
	ds.pipelines.create(resource.Pipeline{
		ProjectID:   p.ID,
		Name:        "churn-train-weekly",
		Description: "Weekly retraining pipeline",
	})
	m := ds.models.create(resource.ModelVersion{
		Name:    "churn-xgb",
		Version: "3",
		URI:     "s3://models/churn-xgb/3",
		Metrics: map[string]float64{"auc": 0.91, "f1": 0.84},
	})
	ds.deployments.create(resource.Deployment{
		ModelID:      m.ID,
		Name:         "churn-xgb-prod",
		Endpoint:     "/v1/predict/churn",
		InstanceType: "ml.m5.large",
		Replicas:     2,
		Status:       resource.DeploymentActive,
	})
	ds.monitors.create(resource.Monitor{
		ModelID:        m.ID,
		Name:           "churn-drift",
		DriftThreshold: 0.1,
		DriftScore:     0.03,
		BaselineWindow: "7d",
	})
	ds.schedules.create(resource.Schedule{
		Name:       "weekly-performance-report",
		ReportType: "model_performance",
		Cron:       "0 9 * * MON",
		Recipients: []string{"ml-team@mlmonitoring.com"},
	})
}

// authenticate verifies a credential pair and issues a token.
func (ds *dataStore) authenticate(email, password string) (string, *session.User, bool) {
	ds.mu.Lock()
	acct, ok := ds.accounts[email]
	ds.mu.Unlock()
	if !ok {
		return "", nil, false
	}
	if bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(password)) != nil {
		return "", nil, false
	}

	token := "mock-token-" + generateID()
	ds.mu.Lock()
	ds.sessions[token] = &sessionRecord{
		email:     email,
		expiresAt: time.Now().Add(sessionDuration),
	}
	ds.mu.Unlock()

	u := acct.user
	return token, &u, true
}

// lookupSession resolves a bearer token to its user. Expired sessions are
// dropped on sight.
func (ds *dataStore) lookupSession(token string) (*session.User, bool) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	rec, ok := ds.sessions[token]
	if !ok {
		return nil, false
	}
	if time.Now().After(rec.expiresAt) {
		delete(ds.sessions, token)
		return nil, false
	}
	acct, ok := ds.accounts[rec.email]
	if !ok {
		return nil, false
	}
	u := acct.user
	return &u, true
}

// dropSession removes a token; unknown tokens are a no-op.
func (ds *dataStore) dropSession(token string) {
	ds.mu.Lock()
	delete(ds.sessions, token)
	ds.mu.Unlock()
}

// extendSession pushes a token's deadline out by the session duration.
func (ds *dataStore) extendSession(token string) bool {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	rec, ok := ds.sessions[token]
	if !ok {
		return false
	}
	rec.expiresAt = time.Now().Add(sessionDuration)
	return true
}
