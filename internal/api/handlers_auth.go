package api

import (
	"net/http"

	"github.com/hs-platform/revintel/internal/auth"
)

// handleLogin handles POST /api/v1/auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, NewValidationError("method not allowed"))
		return
	}

	var req auth.LoginRequest
	if err := s.parseJSON(r, &req); err != nil {
		writeError(w, NewValidationError("invalid JSON body"))
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, NewValidationError("username and password are required"))
		return
	}

	resp, err := s.auth.Login(req.Username, req.Password)
	if err != nil {
		writeError(w, NewAuthError("invalid credentials"))
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleChangePassword handles POST /api/v1/auth/change-password
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, NewValidationError("method not allowed"))
		return
	}

	userID := auth.GetUserIDFromRequest(r)
	if userID == "" {
		writeError(w, NewAuthError("authentication required"))
		return
	}

	var req auth.ChangePasswordRequest
	if err := s.parseJSON(r, &req); err != nil {
		writeError(w, NewValidationError("invalid JSON body"))
		return
	}
	if len(req.NewPassword) < 8 {
		writeError(w, NewValidationError("new password must be at least 8 characters"))
		return
	}

	if err := s.auth.ChangePassword(userID, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, NewAuthError(err.Error()))
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "password changed"})
}

// handleAPIKeys handles GET and POST /api/v1/auth/keys
func (s *Server) handleAPIKeys(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserIDFromRequest(r)
	if userID == "" {
		writeError(w, NewAuthError("authentication required"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.respondJSON(w, http.StatusOK, s.auth.ListAPIKeys(userID))

	case http.MethodPost:
		var req auth.CreateAPIKeyRequest
		if err := s.parseJSON(r, &req); err != nil {
			writeError(w, NewValidationError("invalid JSON body"))
			return
		}
		if req.Name == "" {
			writeError(w, NewValidationError("name is required"))
			return
		}
		resp, err := s.auth.CreateAPIKey(userID, req)
		if err != nil {
			writeError(w, err)
			return
		}
		s.respondJSON(w, http.StatusCreated, resp)

	default:
		writeError(w, NewValidationError("method not allowed"))
	}
}

// handleAPIKey handles DELETE /api/v1/auth/keys/{id}
func (s *Server) handleAPIKey(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, NewValidationError("method not allowed"))
		return
	}

	userID := auth.GetUserIDFromRequest(r)
	if userID == "" {
		writeError(w, NewAuthError("authentication required"))
		return
	}

	keyID := s.extractID(r.URL.Path, "/api/v1/auth/keys")
	if keyID == "" {
		writeError(w, NewValidationError("key ID is required"))
		return
	}

	if err := s.auth.RevokeAPIKey(keyID, userID); err != nil {
		writeError(w, NewNotFoundError("API key", keyID))
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

// handleUsers handles GET and POST /api/v1/auth/users. User management
// requires the users:write permission.
func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())

	switch r.Method {
	case http.MethodGet:
		s.respondJSON(w, http.StatusOK, s.auth.ListUsers())

	case http.MethodPost:
		if claims != nil && !auth.HasPermission(claims.Permissions, "users:write") {
			writeError(w, NewForbiddenError("users:write permission required"))
			return
		}

		var req createUserRequest
		if err := s.parseJSON(r, &req); err != nil {
			writeError(w, NewValidationError("invalid JSON body"))
			return
		}
		if req.Username == "" || req.Password == "" || req.Role == "" {
			writeError(w, NewValidationError("username, role, and password are required"))
			return
		}

		user, err := s.auth.CreateUser(req.Username, req.Email, req.Role, req.Password)
		if err != nil {
			writeError(w, NewValidationError(err.Error()))
			return
		}
		s.respondJSON(w, http.StatusCreated, user)

	default:
		writeError(w, NewValidationError("method not allowed"))
	}
}
