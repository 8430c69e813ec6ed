package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hs-platform/revintel/internal/database"
	"github.com/hs-platform/revintel/internal/metrics"
	"github.com/hs-platform/revintel/pkg/models"
)

// CustomerValueAgent produces optimization and qualification insights from
// a customer's stored metrics, analyses, and research.
type CustomerValueAgent struct {
	store Store
}

// NewCustomerValueAgent creates the customer-value agent.
func NewCustomerValueAgent(store Store) *CustomerValueAgent {
	return &CustomerValueAgent{store: store}
}

func (a *CustomerValueAgent) Name() string { return "customer-value" }

func (a *CustomerValueAgent) Description() string {
	return "Optimization and qualification insights from customer performance data"
}

func (a *CustomerValueAgent) Operations() []string {
	return []string{"dashboard-optimization", "prospect-qualification", "value-recommendations"}
}

func (a *CustomerValueAgent) Execute(ctx context.Context, operation, customerID string, params map[string]interface{}) (map[string]interface{}, error) {
	switch operation {
	case "dashboard-optimization":
		return a.dashboardOptimization(customerID)
	case "prospect-qualification":
		return a.prospectQualification(customerID)
	case "value-recommendations":
		return a.valueRecommendations(customerID)
	default:
		return nil, fmt.Errorf("unsupported operation: %s", operation)
	}
}

func (a *CustomerValueAgent) dashboardOptimization(customerID string) (map[string]interface{}, error) {
	metrics, err := a.store.LatestMetrics(customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load metrics: %w", err)
	}

	var recommendations []string
	byName := make(map[string]float64, len(metrics))
	for _, m := range metrics {
		byName[m.Name] = m.Value
	}

	if v, ok := byName["conversion_rate_pct"]; ok && v < 2.0 {
		recommendations = append(recommendations, fmt.Sprintf("Conversion rate is %.1f%%, below the 2%% benchmark. Review the qualification criteria on inbound leads.", v))
	}
	if v, ok := byName["avg_deal_cycle_days"]; ok && v > 90 {
		recommendations = append(recommendations, fmt.Sprintf("Average deal cycle is %.0f days. Introduce a mid-cycle executive touchpoint to compress it.", v))
	}
	if v, ok := byName["pipeline_coverage_ratio"]; ok && v < 3.0 {
		recommendations = append(recommendations, fmt.Sprintf("Pipeline coverage is %.1fx, under the 3x target. Increase top-of-funnel prospecting.", v))
	}
	if len(metrics) == 0 {
		recommendations = append(recommendations, "No performance metrics recorded yet. Connect a data source to start tracking pipeline health.")
	}

	for _, rec := range recommendations {
		event := &models.OptimizationEvent{
			ID:             uuid.NewString(),
			CustomerID:     customerID,
			Source:         a.Name(),
			Recommendation: rec,
			Status:         models.OptimizationStatusOpen,
			CreatedAt:      time.Now(),
			UpdatedAt:      time.Now(),
		}
		if err := a.store.CreateOptimizationEvent(event); err != nil {
			return nil, fmt.Errorf("failed to record recommendation: %w", err)
		}
	}

	return map[string]interface{}{
		"metrics_examined": len(metrics),
		"recommendations":  recommendations,
	}, nil
}

func (a *CustomerValueAgent) prospectQualification(customerID string) (map[string]interface{}, error) {
	analysis, err := a.store.LatestICPAnalysis(customerID)
	if err != nil {
		if err == database.ErrNotFound {
			return nil, fmt.Errorf("no ICP analysis on record for customer %s", customerID)
		}
		return nil, fmt.Errorf("failed to load ICP analysis: %w", err)
	}

	verdict := "disqualify"
	switch analysis.Tier {
	case 1:
		verdict = "pursue immediately"
	case 2:
		verdict = "pursue"
	case 3:
		verdict = "nurture"
	}

	var weakest models.CriterionScore
	for i, c := range analysis.Breakdown {
		if i == 0 || c.Score < weakest.Score {
			weakest = c
		}
	}

	return map[string]interface{}{
		"company":            analysis.Input.CompanyName,
		"score":              analysis.Score,
		"tier":               analysis.Tier,
		"verdict":            verdict,
		"weakest_criterion":  weakest.Criterion,
		"weakest_reason":     weakest.Reason,
		"analysis_timestamp": analysis.CreatedAt,
	}, nil
}

func (a *CustomerValueAgent) valueRecommendations(customerID string) (map[string]interface{}, error) {
	records, err := a.store.ListResearchRecords(customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load research: %w", err)
	}

	var recommendations []string
	incomplete := 0
	for _, r := range records {
		if r.ValueProp == "" || r.TargetCustomer == "" {
			incomplete++
		}
	}
	if incomplete > 0 {
		recommendations = append(recommendations, fmt.Sprintf("%d research records are missing a value proposition or target customer. Complete them before outreach.", incomplete))
	}
	if len(records) == 0 {
		recommendations = append(recommendations, "No prospect research on file. Start with the top three accounts in the pipeline.")
	} else {
		recommendations = append(recommendations, "Lead outreach with the quantified cost of delay from the calculator, not feature lists.")
	}

	return map[string]interface{}{
		"research_records": len(records),
		"recommendations":  recommendations,
	}, nil
}

func (a *CustomerValueAgent) Fallback(operation string) map[string]interface{} {
	generic := []string{
		"Review open optimization events from previous runs.",
		"Verify data sources are connected so analysis can run on live metrics.",
	}
	return map[string]interface{}{
		"recommendations": generic,
		"note":            "generated from static guidance, live analysis was unavailable",
	}
}

// SupabaseManagementAgent audits the backing Postgres database.
type SupabaseManagementAgent struct {
	store Store
}

// NewSupabaseManagementAgent creates the database management agent.
func NewSupabaseManagementAgent(store Store) *SupabaseManagementAgent {
	return &SupabaseManagementAgent{store: store}
}

func (a *SupabaseManagementAgent) Name() string { return "supabase-management" }

func (a *SupabaseManagementAgent) Description() string {
	return "Schema, data-quality, and orphaned-record audits of the backing database"
}

func (a *SupabaseManagementAgent) Operations() []string {
	return []string{"schema-audit", "data-quality-check", "orphaned-record-scan"}
}

func (a *SupabaseManagementAgent) Execute(ctx context.Context, operation, customerID string, params map[string]interface{}) (map[string]interface{}, error) {
	switch operation {
	case "schema-audit":
		counts, err := a.store.TableRowCounts()
		if err != nil {
			return nil, fmt.Errorf("schema audit failed: %w", err)
		}
		return map[string]interface{}{
			"tables":     len(counts),
			"row_counts": counts,
		}, nil

	case "data-quality-check":
		issues, err := a.store.DataQualityIssues()
		if err != nil {
			return nil, fmt.Errorf("data quality check failed: %w", err)
		}
		return map[string]interface{}{
			"issues_found": len(issues),
			"issues":       issues,
			"healthy":      len(issues) == 0,
		}, nil

	case "orphaned-record-scan":
		orphans, err := a.store.CountOrphanedRecords()
		if err != nil {
			return nil, fmt.Errorf("orphan scan failed: %w", err)
		}
		var total int64
		for _, n := range orphans {
			total += n
		}
		return map[string]interface{}{
			"orphans_by_table": orphans,
			"total_orphans":    total,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported operation: %s", operation)
	}
}

func (a *SupabaseManagementAgent) Fallback(operation string) map[string]interface{} {
	return map[string]interface{}{
		"healthy": false,
		"note":    "database audit could not run, treat results as stale",
	}
}

// MaintenanceAgent runs housekeeping sweeps.
type MaintenanceAgent struct {
	store Store
}

// NewMaintenanceAgent creates the maintenance agent.
func NewMaintenanceAgent(store Store) *MaintenanceAgent {
	return &MaintenanceAgent{store: store}
}

func (a *MaintenanceAgent) Name() string { return "maintenance" }

func (a *MaintenanceAgent) Description() string {
	return "Health sweeps and stale-session cleanup"
}

func (a *MaintenanceAgent) Operations() []string {
	return []string{"health-sweep", "stale-session-purge"}
}

func (a *MaintenanceAgent) Execute(ctx context.Context, operation, customerID string, params map[string]interface{}) (map[string]interface{}, error) {
	switch operation {
	case "health-sweep":
		dbHealthy := true
		dbErr := ""
		if err := a.store.Ping(); err != nil {
			dbHealthy = false
			dbErr = err.Error()
		}
		stats, err := a.store.GetRequestStats(time.Now().Add(-1 * time.Hour))
		if err != nil {
			return nil, fmt.Errorf("failed to load request stats: %w", err)
		}
		return map[string]interface{}{
			"database_healthy": dbHealthy,
			"database_error":   dbErr,
			"requests_1h":      stats.TotalRequests,
			"errors_1h":        stats.ErrorCount,
			"avg_latency_ms":   stats.AvgLatencyMs,
		}, nil

	case "stale-session-purge":
		purged, err := a.store.PurgeExpiredSessions(time.Now())
		if err != nil {
			return nil, fmt.Errorf("session purge failed: %w", err)
		}
		metrics.NewMetrics().ActiveSessions.Sub(float64(purged))
		return map[string]interface{}{
			"sessions_purged": purged,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported operation: %s", operation)
	}
}

func (a *MaintenanceAgent) Fallback(operation string) map[string]interface{} {
	return map[string]interface{}{
		"note": "maintenance sweep could not run, no changes were made",
	}
}

var (
	_ Agent = (*CustomerValueAgent)(nil)
	_ Agent = (*SupabaseManagementAgent)(nil)
	_ Agent = (*MaintenanceAgent)(nil)
)
