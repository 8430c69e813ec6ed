package database

import (
	"fmt"
)

// Tables scanned by the maintenance and audit operations. Must match the
// schema created in initSchema.
var auditTables = []string{
	"sessions",
	"icp_analyses",
	"research_records",
	"cost_scenarios",
	"agent_executions",
	"performance_metrics",
	"optimization_events",
	"resources",
	"request_logs",
}

// TableRowCounts returns the row count of every application table.
func (d *Database) TableRowCounts() (map[string]int64, error) {
	counts := make(map[string]int64, len(auditTables))
	for _, table := range auditTables {
		var n int64
		// Table names come from the fixed list above, not user input.
		if err := d.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, dbErr(err))
		}
		counts[table] = n
	}
	return counts, nil
}

// CountOrphanedRecords counts customer-scoped rows whose customer has no
// session on record.
func (d *Database) CountOrphanedRecords() (map[string]int64, error) {
	orphanQueries := map[string]string{
		"performance_metrics": `SELECT COUNT(*) FROM performance_metrics m
			WHERE NOT EXISTS (SELECT 1 FROM sessions s WHERE s.customer_id = m.customer_id)`,
		"optimization_events": `SELECT COUNT(*) FROM optimization_events e
			WHERE NOT EXISTS (SELECT 1 FROM sessions s WHERE s.customer_id = e.customer_id)`,
		"cost_scenarios": `SELECT COUNT(*) FROM cost_scenarios c
			WHERE NOT EXISTS (SELECT 1 FROM sessions s WHERE s.customer_id = c.customer_id)`,
	}

	counts := make(map[string]int64, len(orphanQueries))
	for table, query := range orphanQueries {
		var n int64
		if err := d.db.QueryRow(query).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan %s for orphans: %w", table, dbErr(err))
		}
		counts[table] = n
	}
	return counts, nil
}

// DataQualityIssues runs simple consistency checks and returns one message
// per issue found. An empty slice means the checks passed.
func (d *Database) DataQualityIssues() ([]string, error) {
	var issues []string

	var badTiers int64
	err := d.db.QueryRow(`SELECT COUNT(*) FROM resources WHERE tier < 1 OR tier > 3`).Scan(&badTiers)
	if err != nil {
		return nil, fmt.Errorf("failed to check resource tiers: %w", dbErr(err))
	}
	if badTiers > 0 {
		issues = append(issues, fmt.Sprintf("%d resources have a tier outside 1-3", badTiers))
	}

	var staleResearch int64
	err = d.db.QueryRow(`SELECT COUNT(*) FROM research_records WHERE updated_at < NOW() - INTERVAL '90 days'`).Scan(&staleResearch)
	if err != nil {
		return nil, fmt.Errorf("failed to check research freshness: %w", dbErr(err))
	}
	if staleResearch > 0 {
		issues = append(issues, fmt.Sprintf("%d research records have not been updated in 90 days", staleResearch))
	}

	var expiredSessions int64
	err = d.db.QueryRow(`SELECT COUNT(*) FROM sessions WHERE expires_at < NOW()`).Scan(&expiredSessions)
	if err != nil {
		return nil, fmt.Errorf("failed to check expired sessions: %w", dbErr(err))
	}
	if expiredSessions > 0 {
		issues = append(issues, fmt.Sprintf("%d expired sessions are awaiting purge", expiredSessions))
	}

	var danglingExecutions int64
	err = d.db.QueryRow(`SELECT COUNT(*) FROM agent_executions WHERE status = 'running' AND started_at < NOW() - INTERVAL '1 hour'`).Scan(&danglingExecutions)
	if err != nil {
		return nil, fmt.Errorf("failed to check dangling executions: %w", dbErr(err))
	}
	if danglingExecutions > 0 {
		issues = append(issues, fmt.Sprintf("%d executions have been running for over an hour", danglingExecutions))
	}

	return issues, nil
}
