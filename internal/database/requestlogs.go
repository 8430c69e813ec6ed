package database

import (
	"fmt"
	"time"
)

// RequestLog captures one API request for analytics.
type RequestLog struct {
	Timestamp    time.Time `json:"timestamp"`
	UserID       string    `json:"user_id,omitempty"`
	Endpoint     string    `json:"endpoint"`
	Method       string    `json:"method"`
	StatusCode   int       `json:"status_code"`
	LatencyMs    int       `json:"latency_ms"`
	ErrorMessage string    `json:"error_message,omitempty"`
	IPAddress    string    `json:"ip_address,omitempty"`
}

// InsertRequestLog appends a request log row. Failures are returned but
// callers generally log and move on; analytics must never fail a request.
func (d *Database) InsertRequestLog(entry *RequestLog) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	query := rebind(`
		INSERT INTO request_logs (timestamp, user_id, endpoint, method, status_code, latency_ms, error_message, ip_address)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := d.db.Exec(query,
		entry.Timestamp,
		entry.UserID,
		entry.Endpoint,
		entry.Method,
		entry.StatusCode,
		entry.LatencyMs,
		entry.ErrorMessage,
		entry.IPAddress,
	)
	if err != nil {
		return fmt.Errorf("failed to insert request log: %w", dbErr(err))
	}
	return nil
}

// RequestStats aggregates request log rows for a time window.
type RequestStats struct {
	TotalRequests int     `json:"total_requests"`
	ErrorCount    int     `json:"error_count"`
	AvgLatencyMs  float64 `json:"avg_latency_ms"`
}

// GetRequestStats computes aggregate request stats since the given time.
func (d *Database) GetRequestStats(since time.Time) (*RequestStats, error) {
	query := rebind(`
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status_code >= 500),
			COALESCE(AVG(latency_ms), 0)
		FROM request_logs
		WHERE timestamp >= ?
	`)

	stats := &RequestStats{}
	err := d.db.QueryRow(query, since).Scan(&stats.TotalRequests, &stats.ErrorCount, &stats.AvgLatencyMs)
	if err != nil {
		return nil, fmt.Errorf("failed to get request stats: %w", dbErr(err))
	}
	return stats, nil
}
