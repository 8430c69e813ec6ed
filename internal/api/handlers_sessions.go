package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hs-platform/revintel/internal/telemetry"
	"github.com/hs-platform/revintel/pkg/models"
)

// Sessions live for a day; the expiry is checked on every read.
const sessionTTL = 24 * time.Hour

type createSessionRequest struct {
	CustomerID string            `json:"customer_id"`
	Context    map[string]string `json:"context,omitempty"`
}

// handleSessions handles GET and POST /api/v1/sessions
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		customerID := r.URL.Query().Get("customer_id")
		if customerID == "" {
			writeError(w, NewValidationError("customer_id query parameter is required"))
			return
		}
		sessions, err := s.store.ListSessions(customerID)
		if err != nil {
			writeError(w, err)
			return
		}
		s.respondJSON(w, http.StatusOK, sessions)

	case http.MethodPost:
		var req createSessionRequest
		if err := s.parseJSON(r, &req); err != nil {
			writeError(w, NewValidationError("invalid JSON body"))
			return
		}
		if req.CustomerID == "" {
			writeError(w, NewValidationError("customer_id is required"))
			return
		}

		now := time.Now()
		session := &models.Session{
			ID:             uuid.NewString(),
			CustomerID:     req.CustomerID,
			Context:        req.Context,
			CreatedAt:      now,
			LastAccessedAt: now,
			ExpiresAt:      now.Add(sessionTTL),
		}
		if session.Context == nil {
			session.Context = make(map[string]string)
		}

		if err := s.store.CreateSession(session); err != nil {
			writeError(w, err)
			return
		}
		s.metrics.ActiveSessions.Inc()
		telemetry.RecordSessionCreated(r.Context())
		s.respondJSON(w, http.StatusCreated, session)

	default:
		writeError(w, NewValidationError("method not allowed"))
	}
}

// handleSession handles GET, DELETE /api/v1/sessions/{id} and
// PUT /api/v1/sessions/{id}/context
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id := s.extractID(r.URL.Path, "/api/v1/sessions")
	if id == "" {
		writeError(w, NewValidationError("session ID is required"))
		return
	}

	if strings.HasSuffix(r.URL.Path, "/context") {
		s.handleSessionContext(w, r, id)
		return
	}

	switch r.Method {
	case http.MethodGet:
		session, err := s.store.GetSession(id)
		if err != nil {
			writeError(w, err)
			return
		}
		if session.Expired(time.Now()) {
			writeError(w, NewAuthError("session expired"))
			return
		}
		s.respondJSON(w, http.StatusOK, session)

	case http.MethodDelete:
		if err := s.store.DeleteSession(id); err != nil {
			writeError(w, err)
			return
		}
		s.metrics.ActiveSessions.Dec()
		s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		writeError(w, NewValidationError("method not allowed"))
	}
}

type updateContextRequest struct {
	Context map[string]string `json:"context"`
}

// handleSessionContext merges new keys into the session context.
func (s *Server) handleSessionContext(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPut && r.Method != http.MethodPatch {
		writeError(w, NewValidationError("method not allowed"))
		return
	}

	var req updateContextRequest
	if err := s.parseJSON(r, &req); err != nil {
		writeError(w, NewValidationError("invalid JSON body"))
		return
	}
	if len(req.Context) == 0 {
		writeError(w, NewValidationError("context must not be empty"))
		return
	}

	session, err := s.store.GetSession(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if session.Expired(time.Now()) {
		writeError(w, NewAuthError("session expired"))
		return
	}

	if err := s.store.UpdateSessionContext(id, req.Context); err != nil {
		writeError(w, err)
		return
	}

	updated, err := s.store.GetSession(id)
	if err != nil {
		writeError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}
