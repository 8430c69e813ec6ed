package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hs-platform/revintel/internal/database"
	"github.com/hs-platform/revintel/internal/telemetry"
	"github.com/hs-platform/revintel/pkg/models"
)

// handleDashboard handles GET /api/v1/dashboard/{customer_id}. It
// assembles the latest metrics, recent executions, the latest ICP
// analysis, and open optimization events in one response.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, NewValidationError("method not allowed"))
		return
	}

	customerID := s.extractID(r.URL.Path, "/api/v1/dashboard")
	if customerID == "" {
		writeError(w, NewValidationError("customer ID is required"))
		return
	}

	start := time.Now()
	latest, err := s.store.LatestMetrics(customerID)
	if err != nil {
		writeError(w, err)
		return
	}

	executions, err := s.store.ListExecutions(database.ExecutionFilter{
		CustomerID: customerID,
		Limit:      10,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	// Absence of an analysis is fine for a new customer.
	analysis, err := s.store.LatestICPAnalysis(customerID)
	if err != nil && err != database.ErrNotFound {
		writeError(w, err)
		return
	}

	openEvents, err := s.store.ListOptimizationEvents(customerID, models.OptimizationStatusOpen)
	if err != nil {
		writeError(w, err)
		return
	}

	dashboard := models.Dashboard{
		CustomerID:       customerID,
		LatestMetrics:    deref(latest),
		RecentExecutions: deref(executions),
		LatestAnalysis:   analysis,
		OpenEvents:       deref(openEvents),
		GeneratedAt:      time.Now(),
	}
	telemetry.RecordDashboardLatency(r.Context(), float64(time.Since(start).Milliseconds()))
	s.respondJSON(w, http.StatusOK, dashboard)
}

// deref flattens a slice of pointers for the response shape.
func deref[T any](in []*T) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		if v != nil {
			out = append(out, *v)
		}
	}
	return out
}

type recordMetricRequest struct {
	CustomerID string  `json:"customer_id"`
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
}

// handlePerformanceMetrics handles GET and POST /api/v1/performance
func (s *Server) handlePerformanceMetrics(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		customerID := r.URL.Query().Get("customer_id")
		if customerID == "" {
			writeError(w, NewValidationError("customer_id query parameter is required"))
			return
		}

		if r.URL.Query().Get("latest") == "true" {
			latest, err := s.store.LatestMetrics(customerID)
			if err != nil {
				writeError(w, err)
				return
			}
			s.respondJSON(w, http.StatusOK, latest)
			return
		}

		filter := database.MetricFilter{
			CustomerID: customerID,
			Name:       r.URL.Query().Get("name"),
			Limit:      queryInt(r, "limit", 100),
		}
		var err error
		if filter.StartTime, err = queryTime(r, "start_time"); err != nil {
			writeError(w, NewValidationError("start_time must be RFC3339"))
			return
		}
		if filter.EndTime, err = queryTime(r, "end_time"); err != nil {
			writeError(w, NewValidationError("end_time must be RFC3339"))
			return
		}
		points, err := s.store.ListMetrics(filter)
		if err != nil {
			writeError(w, err)
			return
		}
		s.respondJSON(w, http.StatusOK, points)

	case http.MethodPost:
		var req recordMetricRequest
		if err := s.parseJSON(r, &req); err != nil {
			writeError(w, NewValidationError("invalid JSON body"))
			return
		}
		if req.CustomerID == "" || req.Name == "" {
			writeError(w, NewValidationError("customer_id and name are required"))
			return
		}

		metric := &models.PerformanceMetric{
			ID:         uuid.NewString(),
			CustomerID: req.CustomerID,
			Name:       req.Name,
			Value:      req.Value,
			RecordedAt: time.Now(),
		}
		if err := s.store.RecordMetric(metric); err != nil {
			writeError(w, err)
			return
		}
		s.respondJSON(w, http.StatusCreated, metric)

	default:
		writeError(w, NewValidationError("method not allowed"))
	}
}

// queryTime reads an RFC3339 query parameter; absent means zero time.
func queryTime(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}

// handleOptimizations handles GET /api/v1/optimizations?customer_id=&status=
func (s *Server) handleOptimizations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, NewValidationError("method not allowed"))
		return
	}

	customerID := r.URL.Query().Get("customer_id")
	if customerID == "" {
		writeError(w, NewValidationError("customer_id query parameter is required"))
		return
	}

	status := models.OptimizationStatus(r.URL.Query().Get("status"))
	events, err := s.store.ListOptimizationEvents(customerID, status)
	if err != nil {
		writeError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, events)
}

type updateOptimizationRequest struct {
	Status models.OptimizationStatus `json:"status"`
}

// handleOptimization handles PUT /api/v1/optimizations/{id}/status
func (s *Server) handleOptimization(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut && r.Method != http.MethodPatch {
		writeError(w, NewValidationError("method not allowed"))
		return
	}

	id := s.extractID(r.URL.Path, "/api/v1/optimizations")
	if id == "" {
		writeError(w, NewValidationError("optimization ID is required"))
		return
	}

	var req updateOptimizationRequest
	if err := s.parseJSON(r, &req); err != nil {
		writeError(w, NewValidationError("invalid JSON body"))
		return
	}
	switch req.Status {
	case models.OptimizationStatusOpen, models.OptimizationStatusApplied, models.OptimizationStatusDismissed:
	default:
		writeError(w, NewValidationError("status must be open, applied, or dismissed"))
		return
	}

	if err := s.store.UpdateOptimizationStatus(id, req.Status); err != nil {
		writeError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": string(req.Status)})
}
