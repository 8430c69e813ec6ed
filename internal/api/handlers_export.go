package api

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/hs-platform/revintel/internal/database"
)

const exportLimit = 10000

// handleExportMetricsCSV handles GET /api/v1/export/metrics.csv?customer_id=
func (s *Server) handleExportMetricsCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, NewValidationError("method not allowed"))
		return
	}

	customerID := r.URL.Query().Get("customer_id")
	if customerID == "" {
		writeError(w, NewValidationError("customer_id query parameter is required"))
		return
	}

	points, err := s.store.ListMetrics(database.MetricFilter{
		CustomerID: customerID,
		Limit:      exportLimit,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=metrics-%s-%s.csv", customerID, time.Now().Format("2006-01-02")))

	writer := csv.NewWriter(w)
	defer writer.Flush()

	writer.Write([]string{"id", "customer_id", "name", "value", "recorded_at"})
	for _, p := range points {
		writer.Write([]string{
			p.ID,
			p.CustomerID,
			p.Name,
			strconv.FormatFloat(p.Value, 'f', -1, 64),
			p.RecordedAt.Format(time.RFC3339),
		})
	}
}

// handleExportMetricsJSON handles GET /api/v1/export/metrics.json?customer_id=
func (s *Server) handleExportMetricsJSON(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, NewValidationError("method not allowed"))
		return
	}

	customerID := r.URL.Query().Get("customer_id")
	if customerID == "" {
		writeError(w, NewValidationError("customer_id query parameter is required"))
		return
	}

	points, err := s.store.ListMetrics(database.MetricFilter{
		CustomerID: customerID,
		Limit:      exportLimit,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"customer_id": customerID,
		"exported_at": time.Now(),
		"count":       len(points),
		"metrics":     points,
	})
}

// handleExportExecutionsCSV handles GET /api/v1/export/executions.csv
func (s *Server) handleExportExecutionsCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, NewValidationError("method not allowed"))
		return
	}

	executions, err := s.store.ListExecutions(database.ExecutionFilter{
		CustomerID: r.URL.Query().Get("customer_id"),
		Agent:      r.URL.Query().Get("agent"),
		Limit:      exportLimit,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=executions-%s.csv", time.Now().Format("2006-01-02")))

	writer := csv.NewWriter(w)
	defer writer.Flush()

	writer.Write([]string{"id", "agent", "operation", "customer_id", "status", "error", "started_at", "duration_ms"})
	for _, e := range executions {
		writer.Write([]string{
			e.ID,
			e.Agent,
			e.Operation,
			e.CustomerID,
			string(e.Status),
			e.Error,
			e.StartedAt.Format(time.RFC3339),
			strconv.FormatInt(e.DurationMs, 10),
		})
	}
}

// handleExportExecutionsJSON handles GET /api/v1/export/executions.json
func (s *Server) handleExportExecutionsJSON(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, NewValidationError("method not allowed"))
		return
	}

	executions, err := s.store.ListExecutions(database.ExecutionFilter{
		CustomerID: r.URL.Query().Get("customer_id"),
		Agent:      r.URL.Query().Get("agent"),
		Limit:      exportLimit,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"exported_at": time.Now(),
		"count":       len(executions),
		"executions":  executions,
	})
}
