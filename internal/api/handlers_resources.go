package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hs-platform/revintel/internal/database"
	"github.com/hs-platform/revintel/pkg/models"
)

type resourceRequest struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Tier        int    `json:"tier"`
	URL         string `json:"url"`
}

// handleResources handles GET and POST /api/v1/resources. Listing with a
// customer_id gates the results by the customer's latest ICP tier: a tier
// 1 customer sees everything, tier 4 only the public tier 1 content.
func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		maxTier := 3
		if customerID := r.URL.Query().Get("customer_id"); customerID != "" {
			maxTier = s.unlockedTier(customerID)
		}
		resources, err := s.store.ListResources(maxTier)
		if err != nil {
			writeError(w, err)
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]interface{}{
			"unlocked_tier": maxTier,
			"resources":     resources,
		})

	case http.MethodPost:
		var req resourceRequest
		if err := s.parseJSON(r, &req); err != nil {
			writeError(w, NewValidationError("invalid JSON body"))
			return
		}
		if req.Title == "" || req.URL == "" {
			writeError(w, NewValidationError("title and url are required"))
			return
		}
		if req.Tier < 1 || req.Tier > 3 {
			writeError(w, NewValidationError("tier must be 1-3"))
			return
		}

		now := time.Now()
		resource := &models.Resource{
			ID:          req.ID,
			Title:       req.Title,
			Description: req.Description,
			Tier:        req.Tier,
			URL:         req.URL,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if resource.ID == "" {
			resource.ID = uuid.NewString()
		}

		if err := s.store.UpsertResource(resource); err != nil {
			writeError(w, err)
			return
		}
		s.respondJSON(w, http.StatusCreated, resource)

	default:
		writeError(w, NewValidationError("method not allowed"))
	}
}

// handleResource handles GET and DELETE /api/v1/resources/{id}
func (s *Server) handleResource(w http.ResponseWriter, r *http.Request) {
	id := s.extractID(r.URL.Path, "/api/v1/resources")
	if id == "" {
		writeError(w, NewValidationError("resource ID is required"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		resource, err := s.store.GetResource(id)
		if err != nil {
			writeError(w, err)
			return
		}
		s.respondJSON(w, http.StatusOK, resource)

	case http.MethodDelete:
		if err := s.store.DeleteResource(id); err != nil {
			writeError(w, err)
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		writeError(w, NewValidationError("method not allowed"))
	}
}

// unlockedTier maps the customer's latest ICP tier to the content tiers
// they can see. Better prospects unlock deeper content.
func (s *Server) unlockedTier(customerID string) int {
	analysis, err := s.store.LatestICPAnalysis(customerID)
	if err != nil {
		if err != database.ErrNotFound {
			// Fail closed to the public tier.
			return 1
		}
		return 1
	}
	switch analysis.Tier {
	case 1:
		return 3
	case 2:
		return 2
	default:
		return 1
	}
}
