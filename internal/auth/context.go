package auth

import (
	"context"
	"net/http"
)

type contextKey string

const claimsContextKey contextKey = "auth-claims"

// WithClaims returns a context carrying the authenticated claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext extracts the authenticated claims, if any.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsContextKey).(*Claims)
	return claims
}

// GetUserIDFromRequest returns the authenticated user ID or "".
func GetUserIDFromRequest(r *http.Request) string {
	if claims := ClaimsFromContext(r.Context()); claims != nil {
		return claims.UserID
	}
	return ""
}

// GetRoleFromRequest returns the authenticated user's role or "".
func GetRoleFromRequest(r *http.Request) string {
	if claims := ClaimsFromContext(r.Context()); claims != nil {
		return claims.Role
	}
	return ""
}
