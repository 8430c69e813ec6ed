package api

import (
	"net/http"

	"github.com/hs-platform/revintel/internal/cache"
	"github.com/hs-platform/revintel/internal/calculator"
	"github.com/hs-platform/revintel/internal/telemetry"
	"github.com/hs-platform/revintel/pkg/models"
)

type costRequest struct {
	CustomerID string           `json:"customer_id"`
	Input      models.CostInput `json:"input"`
}

// handleCalculatorCost handles POST /api/v1/calculator/cost. Identical
// inputs are served from the response cache without persisting a new
// scenario.
func (s *Server) handleCalculatorCost(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, NewValidationError("method not allowed"))
		return
	}

	var req costRequest
	if err := s.parseJSON(r, &req); err != nil {
		writeError(w, NewValidationError("invalid JSON body"))
		return
	}
	if req.CustomerID == "" {
		writeError(w, NewValidationError("customer_id is required"))
		return
	}
	if err := calculator.ValidateInput(req.Input); err != nil {
		writeError(w, NewValidationError(err.Error()))
		return
	}

	cacheKey, err := cache.GenerateKey("calculator", req.CustomerID, req.Input)
	if err == nil {
		if entry, ok := s.cache.Get(r.Context(), cacheKey); ok {
			s.metrics.CacheHits.Inc()
			w.Header().Set("X-Cache", "hit")
			s.respondJSON(w, http.StatusOK, entry.Response)
			return
		}
		s.metrics.CacheMisses.Inc()
	}

	scenario, err := s.calc.Calculate(req.CustomerID, req.Input)
	if err != nil {
		writeError(w, NewValidationError(err.Error()))
		return
	}

	if err := s.store.SaveCostScenario(scenario); err != nil {
		writeError(w, err)
		return
	}
	s.metrics.CalculatorRunsTotal.Inc()
	telemetry.RecordCalculatorRun(r.Context())

	if cacheKey != "" {
		if err := s.cache.Set(r.Context(), cacheKey, "calculator", req.CustomerID, scenario, 0); err == nil {
			w.Header().Set("X-Cache", "miss")
		}
	}

	s.respondJSON(w, http.StatusOK, scenario)
}

// handleCalculatorScenarios handles GET /api/v1/calculator/scenarios?customer_id=&limit=
func (s *Server) handleCalculatorScenarios(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, NewValidationError("method not allowed"))
		return
	}

	customerID := r.URL.Query().Get("customer_id")
	if customerID == "" {
		writeError(w, NewValidationError("customer_id query parameter is required"))
		return
	}
	limit := queryInt(r, "limit", 20)

	scenarios, err := s.store.ListCostScenarios(customerID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, scenarios)
}
