package auth

import (
	"testing"
	"time"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager("test-secret", time.Hour)
	if err := m.Bootstrap("admin-pass"); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	return m
}

func TestLoginSuccess(t *testing.T) {
	m := newTestManager(t)

	resp, err := m.Login("admin", "admin-pass")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected a token")
	}
	if resp.User.Role != "admin" {
		t.Errorf("expected admin role, got %q", resp.User.Role)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.Login("admin", "wrong"); err == nil {
		t.Error("expected error for wrong password")
	}
	if _, err := m.Login("nobody", "admin-pass"); err == nil {
		t.Error("expected error for unknown user")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	m := newTestManager(t)

	resp, err := m.Login("admin", "admin-pass")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	claims, err := m.ValidateToken(resp.Token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != "user-admin" {
		t.Errorf("expected user-admin, got %q", claims.UserID)
	}
	if !HasPermission(claims.Permissions, "icp:analyze") {
		t.Error("admin should have wildcard permissions")
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	m := newTestManager(t)
	other := NewManager("other-secret", time.Hour)

	resp, err := m.Login("admin", "admin-pass")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := other.ValidateToken(resp.Token); err == nil {
		t.Error("token signed with a different secret should not validate")
	}
}

func TestAPIKeyLifecycle(t *testing.T) {
	m := newTestManager(t)

	resp, err := m.CreateAPIKey("user-admin", CreateAPIKeyRequest{Name: "ci"})
	if err != nil {
		t.Fatalf("CreateAPIKey failed: %v", err)
	}
	if resp.Key == "" {
		t.Fatal("expected key value")
	}

	userID, perms, err := m.ValidateAPIKey(resp.Key)
	if err != nil {
		t.Fatalf("ValidateAPIKey failed: %v", err)
	}
	if userID != "user-admin" {
		t.Errorf("expected user-admin, got %q", userID)
	}
	if !HasPermission(perms, "agents:execute") {
		t.Error("key should inherit admin permissions")
	}

	if err := m.RevokeAPIKey(resp.ID, "user-admin"); err != nil {
		t.Fatalf("RevokeAPIKey failed: %v", err)
	}
	if _, _, err := m.ValidateAPIKey(resp.Key); err == nil {
		t.Error("revoked key should not validate")
	}
}

func TestCreateUserAndPermissions(t *testing.T) {
	m := newTestManager(t)

	user, err := m.CreateUser("jordan", "jordan@example.com", "viewer", "pw")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	resp, err := m.Login("jordan", "pw")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	claims, err := m.ValidateToken(resp.Token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}

	if !HasPermission(claims.Permissions, "dashboard:read") {
		t.Error("viewer should read dashboards")
	}
	if HasPermission(claims.Permissions, "agents:execute") {
		t.Error("viewer should not execute agents")
	}

	if _, err := m.CreateUser("jordan", "dup@example.com", "viewer", "pw"); err == nil {
		t.Error("duplicate username should fail")
	}
	if _, err := m.CreateUser("other", "o@example.com", "no-such-role", "pw"); err == nil {
		t.Error("unknown role should fail")
	}
	_ = user
}

func TestHasPermissionWildcards(t *testing.T) {
	if !HasPermission([]string{"icp:*"}, "icp:analyze") {
		t.Error("resource wildcard should match")
	}
	if HasPermission([]string{"icp:*"}, "metrics:read") {
		t.Error("resource wildcard should not cross resources")
	}
	if !HasPermission([]string{"*:*"}, "anything:at-all") {
		t.Error("full wildcard should match everything")
	}
}

func TestChangePassword(t *testing.T) {
	m := newTestManager(t)

	if err := m.ChangePassword("user-admin", "wrong", "new"); err == nil {
		t.Error("wrong current password should fail")
	}
	if err := m.ChangePassword("user-admin", "admin-pass", "new-pass"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	if _, err := m.Login("admin", "admin-pass"); err == nil {
		t.Error("old password should no longer work")
	}
	if _, err := m.Login("admin", "new-pass"); err != nil {
		t.Errorf("new password should work: %v", err)
	}
}
