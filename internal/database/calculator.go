package database

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hs-platform/revintel/pkg/models"
)

// SaveCostScenario persists a calculator run.
func (d *Database) SaveCostScenario(scenario *models.CostScenario) error {
	if scenario == nil {
		return fmt.Errorf("scenario cannot be nil")
	}
	if scenario.CreatedAt.IsZero() {
		scenario.CreatedAt = time.Now()
	}

	inputJSON, err := json.Marshal(scenario.Input)
	if err != nil {
		return fmt.Errorf("failed to marshal scenario input: %w", err)
	}
	resultJSON, err := json.Marshal(scenario.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal scenario result: %w", err)
	}

	query := rebind(`
		INSERT INTO cost_scenarios (id, customer_id, input_json, result_json, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	_, err = d.db.Exec(query,
		scenario.ID,
		scenario.CustomerID,
		string(inputJSON),
		string(resultJSON),
		scenario.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save scenario: %w", dbErr(err))
	}
	return nil
}

// ListCostScenarios returns calculator runs for a customer, newest first.
func (d *Database) ListCostScenarios(customerID string, limit int) ([]*models.CostScenario, error) {
	query := `
		SELECT id, customer_id, input_json, result_json, created_at
		FROM cost_scenarios
	`
	var args []interface{}
	if customerID != "" {
		query += ` WHERE customer_id = ?`
		args = append(args, customerID)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := d.db.Query(rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", dbErr(err))
	}
	defer rows.Close()

	var scenarios []*models.CostScenario
	for rows.Next() {
		s := &models.CostScenario{}
		var inputJSON, resultJSON string
		if err := rows.Scan(&s.ID, &s.CustomerID, &inputJSON, &resultJSON, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan scenario: %w", dbErr(err))
		}
		_ = json.Unmarshal([]byte(inputJSON), &s.Input)
		_ = json.Unmarshal([]byte(resultJSON), &s.Result)
		scenarios = append(scenarios, s)
	}
	return scenarios, dbErr(rows.Err())
}
