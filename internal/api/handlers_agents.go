package api

import (
	"net/http"

	"github.com/hs-platform/revintel/internal/database"
)

// handleAgents handles GET /api/v1/agents
func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, NewValidationError("method not allowed"))
		return
	}
	s.respondJSON(w, http.StatusOK, s.orch.ListAgents())
}

type executeRequest struct {
	Agent      string                 `json:"agent"`
	Operation  string                 `json:"operation"`
	CustomerID string                 `json:"customer_id,omitempty"`
	Params     map[string]interface{} `json:"params,omitempty"`
}

// handleAgentExecute handles POST /api/v1/agents/execute. Operations on
// cooldown come back as 429 with a Retry-After header.
func (s *Server) handleAgentExecute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, NewValidationError("method not allowed"))
		return
	}

	var req executeRequest
	if err := s.parseJSON(r, &req); err != nil {
		writeError(w, NewValidationError("invalid JSON body"))
		return
	}
	if req.Agent == "" || req.Operation == "" {
		writeError(w, NewValidationError("agent and operation are required"))
		return
	}

	exec, err := s.orch.Execute(r.Context(), req.Agent, req.Operation, req.CustomerID, req.Params)
	if err != nil {
		writeError(w, err)
		return
	}

	s.metrics.RecordAgentExecution(exec.Agent, exec.Operation, string(exec.Status), exec.DurationMs)
	s.respondJSON(w, http.StatusOK, exec)
}

// handleAgentExecutions handles GET /api/v1/agents/executions with
// optional agent, customer_id, status, and limit filters.
func (s *Server) handleAgentExecutions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, NewValidationError("method not allowed"))
		return
	}

	filter := database.ExecutionFilter{
		Agent:      r.URL.Query().Get("agent"),
		CustomerID: r.URL.Query().Get("customer_id"),
		Status:     r.URL.Query().Get("status"),
		Limit:      queryInt(r, "limit", 50),
	}

	executions, err := s.store.ListExecutions(filter)
	if err != nil {
		writeError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, executions)
}
