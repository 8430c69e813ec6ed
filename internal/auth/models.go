package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User represents a platform user account.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Role groups a set of permissions under a name.
type Role struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

// PreDefinedRoles are the built-in roles. Permissions use "resource:action"
// with "*" wildcards.
var PreDefinedRoles = map[string]Role{
	"admin": {
		Name:        "admin",
		Description: "Full platform access",
		Permissions: []string{"*:*"},
	},
	"analyst": {
		Name:        "analyst",
		Description: "Read/write access to analyses, calculators, and dashboards",
		Permissions: []string{
			"icp:*", "calculator:*", "metrics:*", "dashboard:read",
			"sessions:*", "resources:read", "agents:execute", "agents:read",
		},
	},
	"viewer": {
		Name:        "viewer",
		Description: "Read-only dashboard access",
		Permissions: []string{
			"dashboard:read", "metrics:read", "resources:read",
			"icp:read", "calculator:read", "agents:read",
		},
	},
}

// Claims is the JWT claim set issued at login.
type Claims struct {
	UserID      string   `json:"user_id"`
	Username    string   `json:"username"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// Token tracks an issued JWT for revocation.
type Token struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// APIKey is a long-lived credential. The key value is bcrypt-hashed at rest;
// only the prefix is stored in the clear for display.
type APIKey struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	UserID      string    `json:"user_id"`
	KeyPrefix   string    `json:"key_prefix"`
	KeyHash     string    `json:"-"`
	Permissions []string  `json:"permissions"`
	IsActive    bool      `json:"is_active"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
	LastUsed    time.Time `json:"last_used,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// LoginRequest is the POST /auth/login payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries a fresh JWT.
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
	User      User   `json:"user"`
}

// ChangePasswordRequest is the POST /auth/change-password payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// CreateAPIKeyRequest is the POST /auth/keys payload.
type CreateAPIKeyRequest struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
	ExpiresIn   int64    `json:"expires_in,omitempty"` // seconds, 0 = never
}

// CreateAPIKeyResponse returns the key value exactly once.
type CreateAPIKeyResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Key       string     `json:"key"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
