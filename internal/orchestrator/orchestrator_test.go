package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hs-platform/revintel/internal/database"
	"github.com/hs-platform/revintel/internal/eventbus"
	"github.com/hs-platform/revintel/pkg/models"
)

// fakeStore records calls and serves canned data.
type fakeStore struct {
	executions  []*models.AgentExecution
	completions map[string]models.ExecutionStatus
	results     map[string]map[string]interface{}
	errs        map[string]string

	metrics  []*models.PerformanceMetric
	analysis *models.ICPAnalysis
	research []*models.ResearchRecord
	events   []*models.OptimizationEvent

	pingErr     error
	createErr   error
	purgedCount int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		completions: make(map[string]models.ExecutionStatus),
		results:     make(map[string]map[string]interface{}),
		errs:        make(map[string]string),
	}
}

func (f *fakeStore) Ping() error { return f.pingErr }

func (f *fakeStore) CreateExecution(exec *models.AgentExecution) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.executions = append(f.executions, exec)
	return nil
}

func (f *fakeStore) CompleteExecution(id string, status models.ExecutionStatus, result map[string]interface{}, execErr string) error {
	f.completions[id] = status
	f.results[id] = result
	f.errs[id] = execErr
	return nil
}

func (f *fakeStore) LatestMetrics(customerID string) ([]*models.PerformanceMetric, error) {
	return f.metrics, nil
}

func (f *fakeStore) LatestICPAnalysis(customerID string) (*models.ICPAnalysis, error) {
	if f.analysis == nil {
		return nil, database.ErrNotFound
	}
	return f.analysis, nil
}

func (f *fakeStore) ListResearchRecords(customerID string) ([]*models.ResearchRecord, error) {
	return f.research, nil
}

func (f *fakeStore) CreateOptimizationEvent(event *models.OptimizationEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeStore) PurgeExpiredSessions(now time.Time) (int64, error) {
	return f.purgedCount, nil
}

func (f *fakeStore) GetRequestStats(since time.Time) (*database.RequestStats, error) {
	return &database.RequestStats{TotalRequests: 10, ErrorCount: 1, AvgLatencyMs: 25}, nil
}

func (f *fakeStore) TableRowCounts() (map[string]int64, error) {
	return map[string]int64{"sessions": 3}, nil
}

func (f *fakeStore) CountOrphanedRecords() (map[string]int64, error) {
	return map[string]int64{"performance_metrics": 2}, nil
}

func (f *fakeStore) DataQualityIssues() ([]string, error) { return nil, nil }

// failingAgent always errors, to exercise the fallback path.
type failingAgent struct{}

func (failingAgent) Name() string         { return "flaky" }
func (failingAgent) Description() string  { return "always fails" }
func (failingAgent) Operations() []string { return []string{"boom"} }
func (failingAgent) Execute(ctx context.Context, op, customerID string, params map[string]interface{}) (map[string]interface{}, error) {
	return nil, errors.New("backing service unavailable")
}
func (failingAgent) Fallback(op string) map[string]interface{} {
	return map[string]interface{}{"note": "canned"}
}

func TestExecuteUnknownAgent(t *testing.T) {
	o := New(newFakeStore(), nil, time.Minute, 0)
	if _, err := o.Execute(context.Background(), "nope", "op", "cust-1", nil); err == nil {
		t.Fatal("expected error for unknown agent")
	}
}

func TestExecuteUnknownOperation(t *testing.T) {
	o := New(newFakeStore(), nil, time.Minute, 0)
	if _, err := o.Execute(context.Background(), "maintenance", "nope", "cust-1", nil); err == nil {
		t.Fatal("expected error for unknown operation")
	}
}

func TestExecuteRecordsCompletion(t *testing.T) {
	store := newFakeStore()
	store.purgedCount = 4
	o := New(store, nil, time.Minute, 0)

	exec, err := o.Execute(context.Background(), "maintenance", "stale-session-purge", "", nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if exec.Status != models.ExecutionStatusCompleted {
		t.Errorf("status = %s, want completed", exec.Status)
	}
	if got := exec.Result["sessions_purged"]; got != int64(4) {
		t.Errorf("sessions_purged = %v, want 4", got)
	}
	if len(store.executions) != 1 {
		t.Fatalf("expected 1 recorded execution, got %d", len(store.executions))
	}
	if store.completions[exec.ID] != models.ExecutionStatusCompleted {
		t.Errorf("persisted status = %s, want completed", store.completions[exec.ID])
	}
}

func TestExecuteFallbackOnFailure(t *testing.T) {
	store := newFakeStore()
	o := New(store, nil, time.Minute, 0)
	o.Register(failingAgent{})

	exec, err := o.Execute(context.Background(), "flaky", "boom", "cust-1", nil)
	if err != nil {
		t.Fatalf("Execute should not fail when fallback is available: %v", err)
	}
	if exec.Status != models.ExecutionStatusFallback {
		t.Errorf("status = %s, want fallback", exec.Status)
	}
	if exec.Error == "" {
		t.Error("expected the backing error to be recorded")
	}
	if exec.Result["note"] != "canned" {
		t.Errorf("expected fallback result, got %v", exec.Result)
	}
	if store.completions[exec.ID] != models.ExecutionStatusFallback {
		t.Errorf("persisted status = %s, want fallback", store.completions[exec.ID])
	}
}

func TestExecuteCooldown(t *testing.T) {
	store := newFakeStore()
	o := New(store, nil, 5*time.Minute, 0)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	current := base
	o.now = func() time.Time { return current }

	if _, err := o.Execute(context.Background(), "maintenance", "stale-session-purge", "cust-1", nil); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	current = base.Add(2 * time.Minute)
	_, err := o.Execute(context.Background(), "maintenance", "stale-session-purge", "cust-1", nil)
	var cooldownErr *CooldownError
	if !errors.As(err, &cooldownErr) {
		t.Fatalf("expected CooldownError, got %v", err)
	}
	if cooldownErr.RetryAfter != 3*time.Minute {
		t.Errorf("RetryAfter = %s, want 3m", cooldownErr.RetryAfter)
	}

	// A different customer is not throttled.
	if _, err := o.Execute(context.Background(), "maintenance", "stale-session-purge", "cust-2", nil); err != nil {
		t.Errorf("different customer should not be throttled: %v", err)
	}

	// After the cooldown the original key runs again.
	current = base.Add(6 * time.Minute)
	if _, err := o.Execute(context.Background(), "maintenance", "stale-session-purge", "cust-1", nil); err != nil {
		t.Errorf("run after cooldown failed: %v", err)
	}
}

func TestFailedInsertDoesNotStartCooldown(t *testing.T) {
	store := newFakeStore()
	store.createErr = errors.New("insert failed")
	o := New(store, nil, 5*time.Minute, 0)

	if _, err := o.Execute(context.Background(), "maintenance", "stale-session-purge", "cust-1", nil); err == nil {
		t.Fatal("expected error when the execution cannot be recorded")
	}

	// The first attempt never ran, so the retry must not be throttled.
	store.createErr = nil
	if _, err := o.Execute(context.Background(), "maintenance", "stale-session-purge", "cust-1", nil); err != nil {
		t.Fatalf("retry after failed insert should run: %v", err)
	}
}

// stallingAgent blocks until its context is cancelled.
type stallingAgent struct{}

func (stallingAgent) Name() string         { return "stalled" }
func (stallingAgent) Description() string  { return "never returns on its own" }
func (stallingAgent) Operations() []string { return []string{"wait"} }
func (stallingAgent) Execute(ctx context.Context, op, customerID string, params map[string]interface{}) (map[string]interface{}, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
func (stallingAgent) Fallback(op string) map[string]interface{} {
	return map[string]interface{}{"note": "deadline"}
}

func TestExecuteTimeoutServesFallback(t *testing.T) {
	store := newFakeStore()
	o := New(store, nil, time.Minute, 10*time.Millisecond)
	o.Register(stallingAgent{})

	exec, err := o.Execute(context.Background(), "stalled", "wait", "cust-1", nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if exec.Status != models.ExecutionStatusFallback {
		t.Errorf("status = %s, want fallback after timeout", exec.Status)
	}
	if exec.Error != context.DeadlineExceeded.Error() {
		t.Errorf("error = %q, want deadline exceeded", exec.Error)
	}
	if exec.Result["note"] != "deadline" {
		t.Errorf("expected fallback result, got %v", exec.Result)
	}
}

func TestExecutePublishesEvent(t *testing.T) {
	store := newFakeStore()
	bus := eventbus.NewMemoryBus()
	o := New(store, bus, time.Minute, 0)

	if _, err := o.Execute(context.Background(), "supabase-management", "schema-audit", "", nil); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	history := bus.History(10)
	if len(history) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(history))
	}
	if history[0].Type != "agent.execution" {
		t.Errorf("event type = %s, want agent.execution", history[0].Type)
	}
}

func TestDashboardOptimizationCreatesEvents(t *testing.T) {
	store := newFakeStore()
	store.metrics = []*models.PerformanceMetric{
		{Name: "conversion_rate_pct", Value: 1.2},
		{Name: "pipeline_coverage_ratio", Value: 2.0},
	}
	o := New(store, nil, time.Minute, 0)

	exec, err := o.Execute(context.Background(), "customer-value", "dashboard-optimization", "cust-1", nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if exec.Status != models.ExecutionStatusCompleted {
		t.Fatalf("status = %s, want completed", exec.Status)
	}
	if len(store.events) != 2 {
		t.Errorf("expected 2 optimization events, got %d", len(store.events))
	}
	for _, e := range store.events {
		if e.Source != "customer-value" || e.Status != models.OptimizationStatusOpen {
			t.Errorf("unexpected event: %+v", e)
		}
	}
}

func TestProspectQualificationWithoutAnalysisFallsBack(t *testing.T) {
	store := newFakeStore()
	o := New(store, nil, time.Minute, 0)

	exec, err := o.Execute(context.Background(), "customer-value", "prospect-qualification", "cust-1", nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if exec.Status != models.ExecutionStatusFallback {
		t.Errorf("status = %s, want fallback when no analysis exists", exec.Status)
	}
}

func TestListAgents(t *testing.T) {
	o := New(newFakeStore(), nil, time.Minute, 0)
	agents := o.ListAgents()
	if len(agents) != 3 {
		t.Fatalf("expected 3 agents, got %d", len(agents))
	}
	// Sorted by name.
	want := []string{"customer-value", "maintenance", "supabase-management"}
	for i, name := range want {
		if agents[i].Name != name {
			t.Errorf("agents[%d] = %s, want %s", i, agents[i].Name, name)
		}
	}
}
