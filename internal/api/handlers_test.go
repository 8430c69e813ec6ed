package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hs-platform/revintel/internal/auth"
	"github.com/hs-platform/revintel/internal/cache"
	"github.com/hs-platform/revintel/internal/database"
	"github.com/hs-platform/revintel/internal/eventbus"
	"github.com/hs-platform/revintel/internal/health"
	"github.com/hs-platform/revintel/internal/icp"
	"github.com/hs-platform/revintel/internal/orchestrator"
	"github.com/hs-platform/revintel/internal/ratelimit"
	"github.com/hs-platform/revintel/pkg/config"
	"github.com/hs-platform/revintel/pkg/models"
)

// memStore is an in-memory Store for handler tests. It also satisfies
// orchestrator.Store so agents run against the same data.
type memStore struct {
	mu         sync.Mutex
	sessions   map[string]*models.Session
	analyses   []*models.ICPAnalysis
	research   map[string]*models.ResearchRecord
	scenarios  []*models.CostScenario
	executions map[string]*models.AgentExecution
	metrics    []*models.PerformanceMetric
	events     map[string]*models.OptimizationEvent
	resources  map[string]*models.Resource
}

func newMemStore() *memStore {
	return &memStore{
		sessions:   make(map[string]*models.Session),
		research:   make(map[string]*models.ResearchRecord),
		executions: make(map[string]*models.AgentExecution),
		events:     make(map[string]*models.OptimizationEvent),
		resources:  make(map[string]*models.Resource),
	}
}

func (m *memStore) Ping() error { return nil }

func (m *memStore) CreateSession(s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *memStore) GetSession(id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (m *memStore) ListSessions(customerID string) ([]*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Session
	for _, s := range m.sessions {
		if s.CustomerID == customerID {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memStore) UpdateSessionContext(id string, context map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return database.ErrNotFound
	}
	if s.Context == nil {
		s.Context = make(map[string]string)
	}
	for k, v := range context {
		s.Context[k] = v
	}
	return nil
}

func (m *memStore) DeleteSession(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return database.ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *memStore) PurgeExpiredSessions(now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var purged int64
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
			purged++
		}
	}
	return purged, nil
}

func (m *memStore) SaveICPAnalysis(a *models.ICPAnalysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analyses = append(m.analyses, a)
	return nil
}

func (m *memStore) ListICPAnalyses(customerID string, limit int) ([]*models.ICPAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ICPAnalysis
	for i := len(m.analyses) - 1; i >= 0 && len(out) < limit; i-- {
		if m.analyses[i].CustomerID == customerID {
			out = append(out, m.analyses[i])
		}
	}
	return out, nil
}

func (m *memStore) LatestICPAnalysis(customerID string) (*models.ICPAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.analyses) - 1; i >= 0; i-- {
		if m.analyses[i].CustomerID == customerID {
			return m.analyses[i], nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *memStore) UpsertResearchRecord(r *models.ResearchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.research[r.ID] = r
	return nil
}

func (m *memStore) ListResearchRecords(customerID string) ([]*models.ResearchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ResearchRecord
	for _, r := range m.research {
		if r.CustomerID == customerID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *memStore) SaveCostScenario(sc *models.CostScenario) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scenarios = append(m.scenarios, sc)
	return nil
}

func (m *memStore) ListCostScenarios(customerID string, limit int) ([]*models.CostScenario, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.CostScenario
	for i := len(m.scenarios) - 1; i >= 0 && len(out) < limit; i-- {
		if m.scenarios[i].CustomerID == customerID {
			out = append(out, m.scenarios[i])
		}
	}
	return out, nil
}

func (m *memStore) CreateExecution(e *models.AgentExecution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *e
	m.executions[e.ID] = &copied
	return nil
}

func (m *memStore) CompleteExecution(id string, status models.ExecutionStatus, result map[string]interface{}, execErr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.executions[id]
	if !ok {
		return database.ErrNotFound
	}
	now := time.Now()
	e.Status = status
	e.Result = result
	e.Error = execErr
	e.CompletedAt = &now
	e.DurationMs = now.Sub(e.StartedAt).Milliseconds()
	return nil
}

func (m *memStore) ListExecutions(filter database.ExecutionFilter) ([]*models.AgentExecution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.AgentExecution
	for _, e := range m.executions {
		if filter.Agent != "" && e.Agent != filter.Agent {
			continue
		}
		if filter.CustomerID != "" && e.CustomerID != filter.CustomerID {
			continue
		}
		if filter.Status != "" && string(e.Status) != filter.Status {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *memStore) RecordMetric(p *models.PerformanceMetric) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics = append(m.metrics, p)
	return nil
}

func (m *memStore) ListMetrics(filter database.MetricFilter) ([]*models.PerformanceMetric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.PerformanceMetric
	for _, p := range m.metrics {
		if filter.CustomerID != "" && p.CustomerID != filter.CustomerID {
			continue
		}
		if filter.Name != "" && p.Name != filter.Name {
			continue
		}
		if !filter.StartTime.IsZero() && p.RecordedAt.Before(filter.StartTime) {
			continue
		}
		if !filter.EndTime.IsZero() && p.RecordedAt.After(filter.EndTime) {
			continue
		}
		out = append(out, p)
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *memStore) LatestMetrics(customerID string) ([]*models.PerformanceMetric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	latest := make(map[string]*models.PerformanceMetric)
	for _, p := range m.metrics {
		if p.CustomerID != customerID {
			continue
		}
		if cur, ok := latest[p.Name]; !ok || p.RecordedAt.After(cur.RecordedAt) {
			latest[p.Name] = p
		}
	}
	var out []*models.PerformanceMetric
	for _, p := range latest {
		out = append(out, p)
	}
	return out, nil
}

func (m *memStore) CreateOptimizationEvent(e *models.OptimizationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[e.ID] = e
	return nil
}

func (m *memStore) ListOptimizationEvents(customerID string, status models.OptimizationStatus) ([]*models.OptimizationEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.OptimizationEvent
	for _, e := range m.events {
		if e.CustomerID != customerID {
			continue
		}
		if status != "" && e.Status != status {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memStore) UpdateOptimizationStatus(id string, status models.OptimizationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return database.ErrNotFound
	}
	e.Status = status
	e.UpdatedAt = time.Now()
	return nil
}

func (m *memStore) UpsertResource(r *models.Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resources[r.ID] = r
	return nil
}

func (m *memStore) GetResource(id string) (*models.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.resources[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return r, nil
}

func (m *memStore) ListResources(maxTier int) ([]*models.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Resource
	for _, r := range m.resources {
		if r.Tier <= maxTier {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) DeleteResource(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.resources[id]; !ok {
		return database.ErrNotFound
	}
	delete(m.resources, id)
	return nil
}

func (m *memStore) InsertRequestLog(entry *database.RequestLog) error { return nil }

func (m *memStore) GetRequestStats(since time.Time) (*database.RequestStats, error) {
	return &database.RequestStats{}, nil
}

func (m *memStore) TableRowCounts() (map[string]int64, error) {
	return map[string]int64{"sessions": int64(len(m.sessions))}, nil
}

func (m *memStore) CountOrphanedRecords() (map[string]int64, error) {
	return map[string]int64{}, nil
}

func (m *memStore) DataQualityIssues() ([]string, error) { return nil, nil }

var (
	_ Store              = (*memStore)(nil)
	_ orchestrator.Store = (*memStore)(nil)
)

type testEnv struct {
	store   *memStore
	handler http.Handler
}

func newTestEnv(t *testing.T, cooldown time.Duration) *testEnv {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Security.EnableAuth = false

	store := newMemStore()
	bus := eventbus.NewMemoryBus()
	orch := orchestrator.New(store, bus, cooldown, 0)
	limiter := ratelimit.NewMemoryLimiter(1000)
	watchdog := health.NewWatchdog(time.Minute)

	server := NewServer(store, auth.NewManager("test-secret", time.Hour), cache.New(cache.DefaultConfig()),
		limiter, orch, watchdog, bus, cfg)

	return &testEnv{store: store, handler: server.SetupRoutes()}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewBuffer(raw)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func decodeErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope: %v (body %s)", err, w.Body.String())
	}
	return envelope.Error.Code
}

func validICPInput() models.ICPInput {
	return models.ICPInput{
		CompanyName:      "Acme SaaS",
		Industry:         "saas",
		EmployeeCount:    150,
		AnnualRevenueUSD: 15_000_000,
		GrowthRatePct:    40,
		TechMaturity:     4,
		PainAlignment:    5,
	}
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t, time.Minute)

	w := env.do(t, http.MethodPost, "/api/v1/sessions", map[string]interface{}{
		"customer_id": "cust-1",
		"context":     map[string]string{"stage": "discovery"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}

	var session models.Session
	if err := json.Unmarshal(w.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if session.ID == "" || session.CustomerID != "cust-1" {
		t.Fatalf("unexpected session: %+v", session)
	}

	w = env.do(t, http.MethodGet, "/api/v1/sessions/"+session.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}

	w = env.do(t, http.MethodPut, "/api/v1/sessions/"+session.ID+"/context", map[string]interface{}{
		"context": map[string]string{"stage": "evaluation"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("context update status = %d, body %s", w.Code, w.Body.String())
	}
	var updated models.Session
	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode updated session: %v", err)
	}
	if updated.Context["stage"] != "evaluation" {
		t.Errorf("context not merged: %+v", updated.Context)
	}

	w = env.do(t, http.MethodDelete, "/api/v1/sessions/"+session.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}

	w = env.do(t, http.MethodGet, "/api/v1/sessions/"+session.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", w.Code)
	}
}

func TestExpiredSessionRejected(t *testing.T) {
	env := newTestEnv(t, time.Minute)

	expired := &models.Session{
		ID:         "sess-old",
		CustomerID: "cust-1",
		CreatedAt:  time.Now().Add(-48 * time.Hour),
		ExpiresAt:  time.Now().Add(-24 * time.Hour),
	}
	env.store.CreateSession(expired)

	w := env.do(t, http.MethodGet, "/api/v1/sessions/sess-old", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if code := decodeErrorCode(t, w); code != string(ErrCodeAuth) {
		t.Errorf("error code = %s, want %s", code, ErrCodeAuth)
	}
}

func TestICPAnalyzeValidation(t *testing.T) {
	env := newTestEnv(t, time.Minute)

	bad := validICPInput()
	bad.Industry = ""
	bad.TechMaturity = 9

	w := env.do(t, http.MethodPost, "/api/v1/icp/analyze", map[string]interface{}{
		"customer_id": "cust-1",
		"input":       bad,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if code := decodeErrorCode(t, w); code != string(ErrCodeValidation) {
		t.Errorf("error code = %s, want %s", code, ErrCodeValidation)
	}
}

func TestICPAnalyzeAndCache(t *testing.T) {
	env := newTestEnv(t, time.Minute)

	body := map[string]interface{}{
		"customer_id": "cust-1",
		"input":       validICPInput(),
	}

	w := env.do(t, http.MethodPost, "/api/v1/icp/analyze", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("X-Cache"); got != "miss" {
		t.Errorf("first call X-Cache = %q, want miss", got)
	}

	var analysis models.ICPAnalysis
	if err := json.Unmarshal(w.Body.Bytes(), &analysis); err != nil {
		t.Fatalf("decode analysis: %v", err)
	}
	if analysis.Tier != 1 {
		t.Errorf("tier = %d, want 1 for an ideal prospect", analysis.Tier)
	}
	if len(env.store.analyses) != 1 {
		t.Errorf("expected analysis persisted, got %d", len(env.store.analyses))
	}

	w = env.do(t, http.MethodPost, "/api/v1/icp/analyze", body)
	if w.Code != http.StatusOK {
		t.Fatalf("second call status = %d", w.Code)
	}
	if got := w.Header().Get("X-Cache"); got != "hit" {
		t.Errorf("second call X-Cache = %q, want hit", got)
	}
	if len(env.store.analyses) != 1 {
		t.Errorf("cached call should not persist again, got %d analyses", len(env.store.analyses))
	}
}

func TestResearchValidateGet(t *testing.T) {
	env := newTestEnv(t, time.Minute)

	w := env.do(t, http.MethodGet, "/api/v1/icp/research/validate", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status without customer_id = %d, want 400", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/v1/icp/research", map[string]interface{}{
		"customer_id": "cust-1",
		"record": models.ResearchRecord{
			CompanyName: "Acme SaaS",
			Website:     "https://acme.example",
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("research post status = %d, body %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/api/v1/icp/research/validate?customer_id=cust-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("validate status = %d, body %s", w.Code, w.Body.String())
	}

	var validation icp.ResearchValidation
	if err := json.Unmarshal(w.Body.Bytes(), &validation); err != nil {
		t.Fatalf("decode validation: %v", err)
	}
	if validation.Complete {
		t.Error("a partial record should not validate as complete")
	}
	if validation.FilledFields != 2 || validation.TotalFields != 5 {
		t.Errorf("filled/total = %d/%d, want 2/5", validation.FilledFields, validation.TotalFields)
	}
}

func TestCalculatorCost(t *testing.T) {
	env := newTestEnv(t, time.Minute)

	w := env.do(t, http.MethodPost, "/api/v1/calculator/cost", map[string]interface{}{
		"customer_id": "cust-1",
		"input": models.CostInput{
			AvgDealSizeUSD:    50000,
			DealsPerQuarter:   12,
			ConversionLiftPct: 10,
			DelayMonths:       6,
			TeamSize:          5,
			HourlyCostUSD:     75,
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var scenario models.CostScenario
	if err := json.Unmarshal(w.Body.Bytes(), &scenario); err != nil {
		t.Fatalf("decode scenario: %v", err)
	}
	if scenario.Result.TotalCostUSD != 147000 {
		t.Errorf("total = %.2f, want 147000", scenario.Result.TotalCostUSD)
	}

	w = env.do(t, http.MethodGet, "/api/v1/calculator/scenarios?customer_id=cust-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var scenarios []models.CostScenario
	if err := json.Unmarshal(w.Body.Bytes(), &scenarios); err != nil {
		t.Fatalf("decode scenarios: %v", err)
	}
	if len(scenarios) != 1 {
		t.Errorf("expected 1 scenario, got %d", len(scenarios))
	}
}

func TestCalculatorValidation(t *testing.T) {
	env := newTestEnv(t, time.Minute)

	w := env.do(t, http.MethodPost, "/api/v1/calculator/cost", map[string]interface{}{
		"customer_id": "cust-1",
		"input":       models.CostInput{},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCalculatorCostCached(t *testing.T) {
	env := newTestEnv(t, time.Minute)

	body := map[string]interface{}{
		"customer_id": "cust-1",
		"input": models.CostInput{
			AvgDealSizeUSD:    50000,
			DealsPerQuarter:   12,
			ConversionLiftPct: 10,
			DelayMonths:       6,
			TeamSize:          5,
			HourlyCostUSD:     75,
		},
	}

	w := env.do(t, http.MethodPost, "/api/v1/calculator/cost", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("X-Cache"); got != "miss" {
		t.Errorf("first call X-Cache = %q, want miss", got)
	}

	w = env.do(t, http.MethodPost, "/api/v1/calculator/cost", body)
	if w.Code != http.StatusOK {
		t.Fatalf("second call status = %d", w.Code)
	}
	if got := w.Header().Get("X-Cache"); got != "hit" {
		t.Errorf("second call X-Cache = %q, want hit", got)
	}
	if len(env.store.scenarios) != 1 {
		t.Errorf("cached call should not persist again, got %d scenarios", len(env.store.scenarios))
	}

	var scenario models.CostScenario
	if err := json.Unmarshal(w.Body.Bytes(), &scenario); err != nil {
		t.Fatalf("decode cached scenario: %v", err)
	}
	if scenario.Result.TotalCostUSD != 147000 {
		t.Errorf("cached total = %.2f, want 147000", scenario.Result.TotalCostUSD)
	}

	// Different inputs bypass the cache.
	body["input"] = models.CostInput{
		AvgDealSizeUSD:  80000,
		DealsPerQuarter: 8,
		DelayMonths:     3,
		TeamSize:        3,
		HourlyCostUSD:   60,
	}
	w = env.do(t, http.MethodPost, "/api/v1/calculator/cost", body)
	if w.Code != http.StatusOK {
		t.Fatalf("third call status = %d, body %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("X-Cache"); got != "miss" {
		t.Errorf("changed input X-Cache = %q, want miss", got)
	}
	if len(env.store.scenarios) != 2 {
		t.Errorf("changed input should persist, got %d scenarios", len(env.store.scenarios))
	}
}

func TestAgentExecuteAndCooldown(t *testing.T) {
	env := newTestEnv(t, 5*time.Minute)

	body := map[string]interface{}{
		"agent":     "supabase-management",
		"operation": "schema-audit",
	}

	w := env.do(t, http.MethodPost, "/api/v1/agents/execute", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var exec models.AgentExecution
	if err := json.Unmarshal(w.Body.Bytes(), &exec); err != nil {
		t.Fatalf("decode execution: %v", err)
	}
	if exec.Status != models.ExecutionStatusCompleted {
		t.Errorf("status = %s, want completed", exec.Status)
	}

	w = env.do(t, http.MethodPost, "/api/v1/agents/execute", body)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("cooldown status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on cooldown")
	}
	if code := decodeErrorCode(t, w); code != string(ErrCodeRateLimit) {
		t.Errorf("error code = %s, want %s", code, ErrCodeRateLimit)
	}
}

func TestAgentExecuteUnknownAgent(t *testing.T) {
	env := newTestEnv(t, time.Minute)

	w := env.do(t, http.MethodPost, "/api/v1/agents/execute", map[string]interface{}{
		"agent":     "nonexistent",
		"operation": "anything",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestEventHistoryReturnsPublished(t *testing.T) {
	env := newTestEnv(t, time.Minute)

	w := env.do(t, http.MethodPost, "/api/v1/agents/execute", map[string]interface{}{
		"agent":     "supabase-management",
		"operation": "schema-audit",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("execute status = %d, body %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/api/v1/events", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("history status = %d, body %s", w.Code, w.Body.String())
	}
	var events []*eventbus.Event
	if err := json.Unmarshal(w.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Type != "agent.execution" {
		t.Errorf("event type = %s, want agent.execution", events[0].Type)
	}
}

func TestListAgents(t *testing.T) {
	env := newTestEnv(t, time.Minute)

	w := env.do(t, http.MethodGet, "/api/v1/agents", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var agents []orchestrator.AgentInfo
	if err := json.Unmarshal(w.Body.Bytes(), &agents); err != nil {
		t.Fatalf("decode agents: %v", err)
	}
	if len(agents) != 3 {
		t.Errorf("expected 3 agents, got %d", len(agents))
	}
}

func TestDashboardAggregation(t *testing.T) {
	env := newTestEnv(t, time.Minute)

	env.store.RecordMetric(&models.PerformanceMetric{
		ID: "m1", CustomerID: "cust-1", Name: "conversion_rate_pct", Value: 3.5, RecordedAt: time.Now(),
	})
	env.store.CreateOptimizationEvent(&models.OptimizationEvent{
		ID: "e1", CustomerID: "cust-1", Source: "customer-value",
		Recommendation: "do the thing", Status: models.OptimizationStatusOpen,
	})

	w := env.do(t, http.MethodGet, "/api/v1/dashboard/cust-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var dashboard models.Dashboard
	if err := json.Unmarshal(w.Body.Bytes(), &dashboard); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	if dashboard.CustomerID != "cust-1" {
		t.Errorf("customer = %s", dashboard.CustomerID)
	}
	if len(dashboard.LatestMetrics) != 1 || len(dashboard.OpenEvents) != 1 {
		t.Errorf("unexpected dashboard contents: %+v", dashboard)
	}
	if dashboard.LatestAnalysis != nil {
		t.Error("expected no analysis for a fresh customer")
	}
}

func TestPerformanceMetricsTimeFilter(t *testing.T) {
	env := newTestEnv(t, time.Minute)

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, offset := range []time.Duration{0, time.Hour, 48 * time.Hour} {
		env.store.RecordMetric(&models.PerformanceMetric{
			ID: fmt.Sprintf("m%d", i), CustomerID: "cust-1",
			Name: "conversion_rate_pct", Value: float64(i), RecordedAt: base.Add(offset),
		})
	}

	path := "/api/v1/performance?customer_id=cust-1" +
		"&start_time=" + base.Add(30*time.Minute).Format(time.RFC3339) +
		"&end_time=" + base.Add(24*time.Hour).Format(time.RFC3339)
	w := env.do(t, http.MethodGet, path, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var points []models.PerformanceMetric
	if err := json.Unmarshal(w.Body.Bytes(), &points); err != nil {
		t.Fatalf("decode points: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("expected 1 point in the window, got %d", len(points))
	}
	if points[0].ID != "m1" {
		t.Errorf("point = %s, want m1", points[0].ID)
	}
}

func TestPerformanceMetricsRejectsBadTime(t *testing.T) {
	env := newTestEnv(t, time.Minute)

	w := env.do(t, http.MethodGet, "/api/v1/performance?customer_id=cust-1&start_time=yesterday", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if code := decodeErrorCode(t, w); code != "validation_error" {
		t.Errorf("code = %s, want validation_error", code)
	}
}

func TestResourceTierGating(t *testing.T) {
	env := newTestEnv(t, time.Minute)

	for tier := 1; tier <= 3; tier++ {
		env.store.UpsertResource(&models.Resource{
			ID: strings.Repeat("r", tier), Title: "guide", Tier: tier, URL: "https://example.com",
		})
	}

	// Unknown customer sees only tier 1.
	w := env.do(t, http.MethodGet, "/api/v1/resources?customer_id=cust-new", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		UnlockedTier int               `json:"unlocked_tier"`
		Resources    []models.Resource `json:"resources"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode resources: %v", err)
	}
	if resp.UnlockedTier != 1 || len(resp.Resources) != 1 {
		t.Errorf("unlocked = %d resources = %d, want 1/1", resp.UnlockedTier, len(resp.Resources))
	}

	// Tier 1 prospect unlocks everything.
	env.store.SaveICPAnalysis(&models.ICPAnalysis{
		ID: "a1", CustomerID: "cust-top", Score: 95, Tier: 1, CreatedAt: time.Now(),
	})
	w = env.do(t, http.MethodGet, "/api/v1/resources?customer_id=cust-top", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode resources: %v", err)
	}
	if resp.UnlockedTier != 3 || len(resp.Resources) != 3 {
		t.Errorf("unlocked = %d resources = %d, want 3/3", resp.UnlockedTier, len(resp.Resources))
	}
}

func TestExportMetricsCSV(t *testing.T) {
	env := newTestEnv(t, time.Minute)

	env.store.RecordMetric(&models.PerformanceMetric{
		ID: "m1", CustomerID: "cust-1", Name: "mrr_usd", Value: 120000, RecordedAt: time.Now(),
	})

	w := env.do(t, http.MethodGet, "/api/v1/export/metrics.csv?customer_id=cust-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("content type = %s, want text/csv", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "mrr_usd") || !strings.Contains(body, "120000") {
		t.Errorf("csv missing data: %s", body)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Security.EnableAuth = false

	store := newMemStore()
	orch := orchestrator.New(store, nil, time.Minute, 0)
	server := NewServer(store, auth.NewManager("test-secret", time.Hour), nil,
		ratelimit.NewMemoryLimiter(2), orch, health.NewWatchdog(time.Minute), nil, cfg)
	handler := server.SetupRoutes()

	env := &testEnv{store: store, handler: handler}
	for i := 0; i < 2; i++ {
		w := env.do(t, http.MethodGet, "/api/v1/agents", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, w.Code)
		}
	}

	w := env.do(t, http.MethodGet, "/api/v1/agents", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestAuthRequiredWhenEnabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Security.EnableAuth = true

	store := newMemStore()
	authMgr := auth.NewManager("test-secret", time.Hour)
	if err := authMgr.Bootstrap("admin-password"); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}

	orch := orchestrator.New(store, nil, time.Minute, 0)
	server := NewServer(store, authMgr, nil, ratelimit.NewMemoryLimiter(1000),
		orch, health.NewWatchdog(time.Minute), nil, cfg)
	env := &testEnv{store: store, handler: server.SetupRoutes()}

	// No credentials.
	w := env.do(t, http.MethodGet, "/api/v1/agents", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if code := decodeErrorCode(t, w); code != string(ErrCodeAuth) {
		t.Errorf("error code = %s, want %s", code, ErrCodeAuth)
	}

	// Login stays public.
	w = env.do(t, http.MethodPost, "/api/v1/auth/login", auth.LoginRequest{
		Username: "admin",
		Password: "admin-password",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", w.Code, w.Body.String())
	}
	var login auth.LoginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &login); err != nil {
		t.Fatalf("decode login: %v", err)
	}

	// Token grants access.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/agents", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authed status = %d", rec.Code)
	}

	// Garbage token is rejected.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/agents", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token status = %d, want 401", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, time.Minute)

	w := env.do(t, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Errorf("healthz = %d", w.Code)
	}

	// Watchdog has not run, readiness fails.
	w = env.do(t, http.MethodGet, "/readyz", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz before checks = %d, want 503", w.Code)
	}
}

func TestInvalidJSONRejected(t *testing.T) {
	env := newTestEnv(t, time.Minute)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/icp/analyze", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestDatabaseErrorAnswers503(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, fmt.Errorf("failed to list sessions: %w", database.ErrUnavailable))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	if code := decodeErrorCode(t, w); code != "database_error" {
		t.Errorf("code = %s, want database_error", code)
	}
}
