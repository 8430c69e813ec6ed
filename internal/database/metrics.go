package database

import (
	"fmt"
	"time"

	"github.com/hs-platform/revintel/pkg/models"
)

// RecordMetric inserts a performance metric point.
func (d *Database) RecordMetric(metric *models.PerformanceMetric) error {
	if metric == nil {
		return fmt.Errorf("metric cannot be nil")
	}
	if metric.RecordedAt.IsZero() {
		metric.RecordedAt = time.Now()
	}

	query := rebind(`
		INSERT INTO performance_metrics (id, customer_id, name, value, recorded_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	_, err := d.db.Exec(query,
		metric.ID,
		metric.CustomerID,
		metric.Name,
		metric.Value,
		metric.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record metric: %w", dbErr(err))
	}
	return nil
}

// MetricFilter narrows ListMetrics results.
type MetricFilter struct {
	CustomerID string
	Name       string
	StartTime  time.Time
	EndTime    time.Time
	Limit      int
}

// ListMetrics returns metric points matching the filter, newest first.
func (d *Database) ListMetrics(filter MetricFilter) ([]*models.PerformanceMetric, error) {
	query := `
		SELECT id, customer_id, name, value, recorded_at
		FROM performance_metrics
		WHERE customer_id = ?
	`
	args := []interface{}{filter.CustomerID}
	if filter.Name != "" {
		query += ` AND name = ?`
		args = append(args, filter.Name)
	}
	if !filter.StartTime.IsZero() {
		query += ` AND recorded_at >= ?`
		args = append(args, filter.StartTime)
	}
	if !filter.EndTime.IsZero() {
		query += ` AND recorded_at <= ?`
		args = append(args, filter.EndTime)
	}
	query += ` ORDER BY recorded_at DESC`
	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := d.db.Query(rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list metrics: %w", dbErr(err))
	}
	defer rows.Close()

	var metrics []*models.PerformanceMetric
	for rows.Next() {
		m := &models.PerformanceMetric{}
		if err := rows.Scan(&m.ID, &m.CustomerID, &m.Name, &m.Value, &m.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", dbErr(err))
		}
		metrics = append(metrics, m)
	}
	return metrics, dbErr(rows.Err())
}

// LatestMetrics returns the most recent point for each metric name a
// customer has recorded.
func (d *Database) LatestMetrics(customerID string) ([]*models.PerformanceMetric, error) {
	query := rebind(`
		SELECT DISTINCT ON (name) id, customer_id, name, value, recorded_at
		FROM performance_metrics
		WHERE customer_id = ?
		ORDER BY name, recorded_at DESC
	`)

	rows, err := d.db.Query(query, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list latest metrics: %w", dbErr(err))
	}
	defer rows.Close()

	var metrics []*models.PerformanceMetric
	for rows.Next() {
		m := &models.PerformanceMetric{}
		if err := rows.Scan(&m.ID, &m.CustomerID, &m.Name, &m.Value, &m.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", dbErr(err))
		}
		metrics = append(metrics, m)
	}
	return metrics, dbErr(rows.Err())
}

// CreateOptimizationEvent appends an agent recommendation.
func (d *Database) CreateOptimizationEvent(event *models.OptimizationEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	now := time.Now()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
	if event.Status == "" {
		event.Status = models.OptimizationStatusOpen
	}

	query := rebind(`
		INSERT INTO optimization_events (id, customer_id, source, recommendation, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := d.db.Exec(query,
		event.ID,
		event.CustomerID,
		event.Source,
		event.Recommendation,
		string(event.Status),
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create optimization event: %w", dbErr(err))
	}
	return nil
}

// ListOptimizationEvents returns events for a customer, optionally by status.
func (d *Database) ListOptimizationEvents(customerID string, status models.OptimizationStatus) ([]*models.OptimizationEvent, error) {
	query := `
		SELECT id, customer_id, source, recommendation, status, created_at, updated_at
		FROM optimization_events
		WHERE customer_id = ?
	`
	args := []interface{}{customerID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := d.db.Query(rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list optimization events: %w", dbErr(err))
	}
	defer rows.Close()

	var events []*models.OptimizationEvent
	for rows.Next() {
		e := &models.OptimizationEvent{}
		var status string
		if err := rows.Scan(&e.ID, &e.CustomerID, &e.Source, &e.Recommendation, &status, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan optimization event: %w", dbErr(err))
		}
		e.Status = models.OptimizationStatus(status)
		events = append(events, e)
	}
	return events, dbErr(rows.Err())
}

// UpdateOptimizationStatus transitions an optimization event.
func (d *Database) UpdateOptimizationStatus(id string, status models.OptimizationStatus) error {
	query := rebind(`UPDATE optimization_events SET status = ?, updated_at = ? WHERE id = ?`)
	result, err := d.db.Exec(query, string(status), time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update optimization event: %w", dbErr(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", dbErr(err))
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
