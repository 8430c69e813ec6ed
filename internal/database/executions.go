package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hs-platform/revintel/pkg/models"
)

// CreateExecution inserts a new agent execution row in running state.
func (d *Database) CreateExecution(exec *models.AgentExecution) error {
	if exec == nil {
		return fmt.Errorf("execution cannot be nil")
	}
	if exec.StartedAt.IsZero() {
		exec.StartedAt = time.Now()
	}
	if exec.Status == "" {
		exec.Status = models.ExecutionStatusRunning
	}

	paramsJSON := ""
	if exec.Params != nil {
		b, err := json.Marshal(exec.Params)
		if err != nil {
			return fmt.Errorf("failed to marshal execution params: %w", err)
		}
		paramsJSON = string(b)
	}

	query := rebind(`
		INSERT INTO agent_executions (id, agent, operation, customer_id, status, params_json, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := d.db.Exec(query,
		exec.ID,
		exec.Agent,
		exec.Operation,
		exec.CustomerID,
		string(exec.Status),
		paramsJSON,
		exec.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create execution: %w", dbErr(err))
	}
	return nil
}

// CompleteExecution records the terminal state of an execution.
func (d *Database) CompleteExecution(id string, status models.ExecutionStatus, result map[string]interface{}, execErr string) error {
	resultJSON := ""
	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to marshal execution result: %w", err)
		}
		resultJSON = string(b)
	}

	completedAt := time.Now()
	query := rebind(`
		UPDATE agent_executions
		SET status = ?, result_json = ?, error = ?, completed_at = ?,
			duration_ms = CAST(EXTRACT(EPOCH FROM (? - started_at)) * 1000 AS BIGINT)
		WHERE id = ?
	`)
	res, err := d.db.Exec(query, string(status), resultJSON, execErr, completedAt, completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to complete execution: %w", dbErr(err))
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", dbErr(err))
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ExecutionFilter narrows ListExecutions results.
type ExecutionFilter struct {
	Agent      string
	CustomerID string
	Status     string
	Limit      int
}

// ListExecutions returns executions matching the filter, newest first.
func (d *Database) ListExecutions(filter ExecutionFilter) ([]*models.AgentExecution, error) {
	query := `
		SELECT id, agent, operation, customer_id, status, params_json, result_json, error, started_at, completed_at, duration_ms
		FROM agent_executions
	`
	var conds []string
	var args []interface{}
	if filter.Agent != "" {
		conds = append(conds, "agent = ?")
		args = append(args, filter.Agent)
	}
	if filter.CustomerID != "" {
		conds = append(conds, "customer_id = ?")
		args = append(args, filter.CustomerID)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += ` ORDER BY started_at DESC`
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := d.db.Query(rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", dbErr(err))
	}
	defer rows.Close()

	var executions []*models.AgentExecution
	for rows.Next() {
		e := &models.AgentExecution{}
		var status string
		var customerID, paramsJSON, resultJSON, execErr sql.NullString
		var completedAt sql.NullTime
		if err := rows.Scan(&e.ID, &e.Agent, &e.Operation, &customerID, &status, &paramsJSON, &resultJSON, &execErr, &e.StartedAt, &completedAt, &e.DurationMs); err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", dbErr(err))
		}
		e.Status = models.ExecutionStatus(status)
		e.CustomerID = customerID.String
		e.Error = execErr.String
		if paramsJSON.Valid && paramsJSON.String != "" {
			_ = json.Unmarshal([]byte(paramsJSON.String), &e.Params)
		}
		if resultJSON.Valid && resultJSON.String != "" {
			_ = json.Unmarshal([]byte(resultJSON.String), &e.Result)
		}
		if completedAt.Valid {
			t := completedAt.Time
			e.CompletedAt = &t
		}
		executions = append(executions, e)
	}
	return executions, dbErr(rows.Err())
}
