package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/hs-platform/revintel/internal/cache"
	"github.com/hs-platform/revintel/internal/icp"
	"github.com/hs-platform/revintel/internal/telemetry"
	"github.com/hs-platform/revintel/pkg/models"
)

type analyzeRequest struct {
	CustomerID string          `json:"customer_id"`
	Input      models.ICPInput `json:"input"`
}

// handleICPAnalyze handles POST /api/v1/icp/analyze. Identical inputs are
// served from the response cache.
func (s *Server) handleICPAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, NewValidationError("method not allowed"))
		return
	}

	var req analyzeRequest
	if err := s.parseJSON(r, &req); err != nil {
		writeError(w, NewValidationError("invalid JSON body"))
		return
	}
	if req.CustomerID == "" {
		writeError(w, NewValidationError("customer_id is required"))
		return
	}
	if err := icp.ValidateInput(req.Input); err != nil {
		writeError(w, NewValidationError(err.Error()))
		return
	}

	cacheKey, err := cache.GenerateKey("icp", req.CustomerID, req.Input)
	if err == nil {
		if entry, ok := s.cache.Get(r.Context(), cacheKey); ok {
			s.metrics.CacheHits.Inc()
			w.Header().Set("X-Cache", "hit")
			s.respondJSON(w, http.StatusOK, entry.Response)
			return
		}
		s.metrics.CacheMisses.Inc()
	}

	analysis, err := s.analyzer.Analyze(req.CustomerID, req.Input)
	if err != nil {
		writeError(w, NewValidationError(err.Error()))
		return
	}

	if err := s.store.SaveICPAnalysis(analysis); err != nil {
		writeError(w, err)
		return
	}
	s.metrics.ICPAnalysesTotal.WithLabelValues(strconv.Itoa(analysis.Tier)).Inc()
	telemetry.RecordAnalysisRun(r.Context())

	if cacheKey != "" {
		if err := s.cache.Set(r.Context(), cacheKey, "icp", req.CustomerID, analysis, 0); err == nil {
			w.Header().Set("X-Cache", "miss")
		}
	}

	s.respondJSON(w, http.StatusOK, analysis)
}

// handleICPAnalyses handles GET /api/v1/icp/analyses?customer_id=&limit=
func (s *Server) handleICPAnalyses(w http.ResponseWriter, r *http.Request) {
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

	analyses, err := s.store.ListICPAnalyses(customerID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, analyses)
}

// handleICPLatest handles GET /api/v1/icp/latest?customer_id=
func (s *Server) handleICPLatest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, NewValidationError("method not allowed"))
		return
	}

	customerID := r.URL.Query().Get("customer_id")
	if customerID == "" {
		writeError(w, NewValidationError("customer_id query parameter is required"))
		return
	}

	analysis, err := s.store.LatestICPAnalysis(customerID)
	if err != nil {
		writeError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, analysis)
}

type researchRequest struct {
	CustomerID string                `json:"customer_id"`
	Record     models.ResearchRecord `json:"record"`
}

// handleResearch handles GET and POST /api/v1/icp/research
func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		customerID := r.URL.Query().Get("customer_id")
		if customerID == "" {
			writeError(w, NewValidationError("customer_id query parameter is required"))
			return
		}
		records, err := s.store.ListResearchRecords(customerID)
		if err != nil {
			writeError(w, err)
			return
		}
		s.respondJSON(w, http.StatusOK, records)

	case http.MethodPost:
		var req researchRequest
		if err := s.parseJSON(r, &req); err != nil {
			writeError(w, NewValidationError("invalid JSON body"))
			return
		}
		if req.CustomerID == "" {
			writeError(w, NewValidationError("customer_id is required"))
			return
		}
		if req.Record.CompanyName == "" {
			writeError(w, NewValidationError("record.company_name is required"))
			return
		}

		record := req.Record
		record.CustomerID = req.CustomerID
		if record.ID == "" {
			record.ID = uuid.NewString()
			record.CreatedAt = time.Now()
		}
		record.UpdatedAt = time.Now()

		if err := s.store.UpsertResearchRecord(&record); err != nil {
			writeError(w, err)
			return
		}

		// New research may change analysis results.
		s.cache.InvalidateByCustomer(r.Context(), req.CustomerID)

		s.respondJSON(w, http.StatusCreated, record)

	default:
		writeError(w, NewValidationError("method not allowed"))
	}
}

// handleResearchValidate handles GET and POST /api/v1/icp/research/validate.
// GET checks the customer's most recent stored record; POST checks a
// candidate record without persisting it.
func (s *Server) handleResearchValidate(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		customerID := r.URL.Query().Get("customer_id")
		if customerID == "" {
			writeError(w, NewValidationError("customer_id query parameter is required"))
			return
		}
		records, err := s.store.ListResearchRecords(customerID)
		if err != nil {
			writeError(w, err)
			return
		}
		var record models.ResearchRecord
		if len(records) > 0 && records[0] != nil {
			record = *records[0]
		}
		s.respondJSON(w, http.StatusOK, icp.ValidateResearch(record))

	case http.MethodPost:
		var record models.ResearchRecord
		if err := s.parseJSON(r, &record); err != nil {
			writeError(w, NewValidationError("invalid JSON body"))
			return
		}
		s.respondJSON(w, http.StatusOK, icp.ValidateResearch(record))

	default:
		writeError(w, NewValidationError("method not allowed"))
	}
}

// queryInt reads an integer query parameter with a default.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	var v int
	if _, err := fmt.Sscanf(raw, "%d", &v); err != nil || v < 0 {
		return def
	}
	return v
}
