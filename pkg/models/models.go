package models

import "time"

// Session represents an authenticated customer working session.
// Sessions carry an arbitrary context blob the dashboard builds up over time.
type Session struct {
	ID             string            `json:"id"`
	CustomerID     string            `json:"customer_id"`
	Context        map[string]string `json:"context"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	ExpiresAt      time.Time         `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// ICPInput holds the firmographic inputs to an ICP analysis.
type ICPInput struct {
	CompanyName      string  `json:"company_name"`
	Industry         string  `json:"industry"`
	EmployeeCount    int     `json:"employee_count"`
	AnnualRevenueUSD float64 `json:"annual_revenue_usd"`
	GrowthRatePct    float64 `json:"growth_rate_pct"`
	TechMaturity     int     `json:"tech_maturity"`  // 1-5
	PainAlignment    int     `json:"pain_alignment"` // 1-5
}

// CriterionScore is the per-criterion breakdown of an ICP score.
type CriterionScore struct {
	Criterion string  `json:"criterion"`
	Score     float64 `json:"score"`  // 0-100 before weighting
	Weight    float64 `json:"weight"` // fraction of the total
	Reason    string  `json:"reason"`
}

// ICPAnalysis is a stored ICP analysis result.
type ICPAnalysis struct {
	ID         string           `json:"id"`
	CustomerID string           `json:"customer_id"`
	Input      ICPInput         `json:"input"`
	Score      float64          `json:"score"` // 0-100
	Tier       int              `json:"tier"`  // 1 (best) to 4
	Breakdown  []CriterionScore `json:"breakdown"`
	Summary    string           `json:"summary"`
	CreatedAt  time.Time        `json:"created_at"`
}

// ResearchRecord holds enrichment research about a prospect company.
type ResearchRecord struct {
	ID                 string    `json:"id"`
	CustomerID         string    `json:"customer_id"`
	CompanyName        string    `json:"company_name"`
	Website            string    `json:"website"`
	ProductDescription string    `json:"product_description"`
	ValueProp          string    `json:"value_prop"`
	TargetCustomer     string    `json:"target_customer"`
	LinkedInBackground string    `json:"linkedin_background,omitempty"`
	Notes              string    `json:"notes,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// CostInput holds the inputs to a cost-of-inaction calculation.
type CostInput struct {
	AvgDealSizeUSD    float64 `json:"avg_deal_size_usd"`
	DealsPerQuarter   int     `json:"deals_per_quarter"`
	ConversionLiftPct float64 `json:"conversion_lift_pct"`
	DelayMonths       int     `json:"delay_months"`
	TeamSize          int     `json:"team_size"`
	HourlyCostUSD     float64 `json:"hourly_cost_usd"`
}

// CostResult is the computed output of a cost-of-inaction calculation.
type CostResult struct {
	LostRevenueUSD      float64 `json:"lost_revenue_usd"`
	OperationalWasteUSD float64 `json:"operational_waste_usd"`
	TotalCostUSD        float64 `json:"total_cost_usd"`
	PaybackMonths       float64 `json:"payback_months"`
}

// CostScenario is a stored calculator run.
type CostScenario struct {
	ID         string     `json:"id"`
	CustomerID string     `json:"customer_id"`
	Input      CostInput  `json:"input"`
	Result     CostResult `json:"result"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ExecutionStatus represents the outcome of an agent execution.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	// ExecutionStatusFallback marks executions that returned canned
	// recommendations because the backing call failed.
	ExecutionStatusFallback ExecutionStatus = "fallback"
)

// AgentExecution records a single dispatched agent operation.
type AgentExecution struct {
	ID          string                 `json:"id"`
	Agent       string                 `json:"agent"`
	Operation   string                 `json:"operation"`
	CustomerID  string                 `json:"customer_id,omitempty"`
	Status      ExecutionStatus        `json:"status"`
	Params      map[string]interface{} `json:"params,omitempty"`
	Result      map[string]interface{} `json:"result,omitempty"`
	Error       string                 `json:"error,omitempty"`
	StartedAt   time.Time              `json:"started_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	DurationMs  int64                  `json:"duration_ms"`
}

// PerformanceMetric is a point-in-time value for a named customer metric.
type PerformanceMetric struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id"`
	Name       string    `json:"name"`
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"recorded_at"`
}

// OptimizationStatus represents the lifecycle of an optimization event.
type OptimizationStatus string

const (
	OptimizationStatusOpen      OptimizationStatus = "open"
	OptimizationStatusApplied   OptimizationStatus = "applied"
	OptimizationStatusDismissed OptimizationStatus = "dismissed"
)

// OptimizationEvent is a recommendation emitted by an agent run.
type OptimizationEvent struct {
	ID             string             `json:"id"`
	CustomerID     string             `json:"customer_id"`
	Source         string             `json:"source"` // agent name
	Recommendation string             `json:"recommendation"`
	Status         OptimizationStatus `json:"status"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// Resource is an entry in the tiered content library.
type Resource struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Tier        int       `json:"tier"` // 1-3, unlocked by ICP tier
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Dashboard aggregates the data the customer dashboard renders.
type Dashboard struct {
	CustomerID       string              `json:"customer_id"`
	LatestMetrics    []PerformanceMetric `json:"latest_metrics"`
	RecentExecutions []AgentExecution    `json:"recent_executions"`
	LatestAnalysis   *ICPAnalysis        `json:"latest_analysis,omitempty"`
	OpenEvents       []OptimizationEvent `json:"open_events"`
	GeneratedAt      time.Time           `json:"generated_at"`
}
