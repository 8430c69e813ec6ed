// Package orchestrator dispatches named operations to registered agents,
// records every execution, and applies per-operation cooldowns so a
// misbehaving client cannot hammer expensive analysis runs.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hs-platform/revintel/internal/database"
	"github.com/hs-platform/revintel/internal/eventbus"
	"github.com/hs-platform/revintel/internal/metrics"
	"github.com/hs-platform/revintel/internal/telemetry"
	"github.com/hs-platform/revintel/pkg/models"
)

// Store is the persistence surface agents and the orchestrator need.
// *database.Database satisfies it.
type Store interface {
	Ping() error
	CreateExecution(exec *models.AgentExecution) error
	CompleteExecution(id string, status models.ExecutionStatus, result map[string]interface{}, execErr string) error
	LatestMetrics(customerID string) ([]*models.PerformanceMetric, error)
	LatestICPAnalysis(customerID string) (*models.ICPAnalysis, error)
	ListResearchRecords(customerID string) ([]*models.ResearchRecord, error)
	CreateOptimizationEvent(event *models.OptimizationEvent) error
	PurgeExpiredSessions(now time.Time) (int64, error)
	GetRequestStats(since time.Time) (*database.RequestStats, error)
	TableRowCounts() (map[string]int64, error)
	CountOrphanedRecords() (map[string]int64, error)
	DataQualityIssues() ([]string, error)
}

var _ Store = (*database.Database)(nil)

// Agent is a named unit of work with a fixed set of operations.
type Agent interface {
	Name() string
	Description() string
	Operations() []string
	// Execute runs one operation. Errors trigger the fallback path.
	Execute(ctx context.Context, operation, customerID string, params map[string]interface{}) (map[string]interface{}, error)
	// Fallback returns canned results used when Execute fails.
	Fallback(operation string) map[string]interface{}
}

var (
	// ErrUnknownAgent is returned when no agent matches the requested name.
	ErrUnknownAgent = errors.New("unknown agent")
	// ErrUnknownOperation is returned when the agent exists but the
	// operation does not.
	ErrUnknownOperation = errors.New("unsupported operation")
)

// CooldownError reports that an operation was run too recently.
type CooldownError struct {
	Agent      string
	Operation  string
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("operation %s/%s is cooling down, retry in %s", e.Agent, e.Operation, e.RetryAfter.Round(time.Second))
}

// AgentInfo describes a registered agent for listing endpoints.
type AgentInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Operations  []string `json:"operations"`
}

// Orchestrator routes execution requests to agents by name.
type Orchestrator struct {
	store       Store
	bus         eventbus.Publisher
	cooldown    time.Duration
	execTimeout time.Duration

	mu      sync.RWMutex
	agents  map[string]Agent
	lastRun map[string]time.Time

	now func() time.Time
}

// New creates an orchestrator with the standard agents registered.
// execTimeout bounds each agent operation; zero means no deadline.
func New(store Store, bus eventbus.Publisher, cooldown, execTimeout time.Duration) *Orchestrator {
	o := &Orchestrator{
		store:       store,
		bus:         bus,
		cooldown:    cooldown,
		execTimeout: execTimeout,
		agents:      make(map[string]Agent),
		lastRun:     make(map[string]time.Time),
		now:         time.Now,
	}
	o.Register(NewCustomerValueAgent(store))
	o.Register(NewSupabaseManagementAgent(store))
	o.Register(NewMaintenanceAgent(store))
	return o
}

// Register adds an agent. Registering a name twice replaces the agent.
func (o *Orchestrator) Register(agent Agent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.agents[agent.Name()] = agent
}

// ListAgents returns the registered agents sorted by name.
func (o *Orchestrator) ListAgents() []AgentInfo {
	o.mu.RLock()
	defer o.mu.RUnlock()

	infos := make([]AgentInfo, 0, len(o.agents))
	for _, agent := range o.agents {
		infos = append(infos, AgentInfo{
			Name:        agent.Name(),
			Description: agent.Description(),
			Operations:  agent.Operations(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Execute dispatches one operation and records the run. A failed backing
// call does not fail the request: the agent's canned fallback is returned
// and the execution is persisted with the fallback status so the
// degradation is visible.
func (o *Orchestrator) Execute(ctx context.Context, agentName, operation, customerID string, params map[string]interface{}) (*models.AgentExecution, error) {
	o.mu.RLock()
	agent, ok := o.agents[agentName]
	o.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, agentName)
	}
	if !supportsOperation(agent, operation) {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownOperation, agentName, operation)
	}

	cooldownKey := agentName + ":" + operation + ":" + customerID
	if err := o.checkCooldown(cooldownKey, agentName, operation); err != nil {
		return nil, err
	}

	exec := &models.AgentExecution{
		ID:         uuid.NewString(),
		Agent:      agentName,
		Operation:  operation,
		CustomerID: customerID,
		Status:     models.ExecutionStatusRunning,
		Params:     params,
		StartedAt:  o.now(),
	}
	if err := o.store.CreateExecution(exec); err != nil {
		return nil, fmt.Errorf("failed to record execution: %w", err)
	}

	// The window only starts once the execution is on record; a failed
	// insert must not burn the cooldown.
	o.markRun(cooldownKey)

	execCtx := ctx
	if o.execTimeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, o.execTimeout)
		defer cancel()
	}

	result, execErr := agent.Execute(execCtx, operation, customerID, params)
	status := models.ExecutionStatusCompleted
	errMsg := ""
	if execErr != nil {
		log.Printf("Agent %s/%s failed, serving fallback: %v", agentName, operation, execErr)
		status = models.ExecutionStatusFallback
		errMsg = execErr.Error()
		result = agent.Fallback(operation)
	}

	if err := o.store.CompleteExecution(exec.ID, status, result, errMsg); err != nil {
		return nil, fmt.Errorf("failed to complete execution: %w", err)
	}

	completed := o.now()
	exec.Status = status
	exec.Result = result
	exec.Error = errMsg
	exec.CompletedAt = &completed
	exec.DurationMs = completed.Sub(exec.StartedAt).Milliseconds()

	telemetry.RecordDispatch(ctx, float64(exec.DurationMs))
	o.publishExecution(ctx, exec)
	return exec, nil
}

func (o *Orchestrator) checkCooldown(key, agentName, operation string) error {
	now := o.now()

	o.mu.RLock()
	defer o.mu.RUnlock()
	if last, ok := o.lastRun[key]; ok {
		elapsed := now.Sub(last)
		if elapsed < o.cooldown {
			return &CooldownError{
				Agent:      agentName,
				Operation:  operation,
				RetryAfter: o.cooldown - elapsed,
			}
		}
	}
	return nil
}

func (o *Orchestrator) markRun(key string) {
	o.mu.Lock()
	o.lastRun[key] = o.now()
	o.mu.Unlock()
}

func (o *Orchestrator) publishExecution(ctx context.Context, exec *models.AgentExecution) {
	if o.bus == nil {
		return
	}
	event := &eventbus.Event{
		ID:         uuid.NewString(),
		Type:       "agent.execution",
		CustomerID: exec.CustomerID,
		Payload: map[string]interface{}{
			"execution_id": exec.ID,
			"agent":        exec.Agent,
			"operation":    exec.Operation,
			"status":       string(exec.Status),
			"duration_ms":  exec.DurationMs,
		},
		Timestamp: o.now(),
	}
	if err := o.bus.PublishEvent(ctx, "agent.execution", event); err != nil {
		log.Printf("Failed to publish execution event for %s: %v", exec.ID, err)
		return
	}
	metrics.NewMetrics().EventsPublished.WithLabelValues(event.Type).Inc()
}

func supportsOperation(agent Agent, operation string) bool {
	for _, op := range agent.Operations() {
		if op == operation {
			return true
		}
	}
	return false
}
