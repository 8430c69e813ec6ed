package keymanager

import (
	"path/filepath"
	"testing"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := New(filepath.Join(t.TempDir(), "credentials.json"))
	if err := m.Unlock("master-password"); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	return m
}

func TestStoreAndGetCredential(t *testing.T) {
	m := newTestManager(t)

	if err := m.StoreCredential("stripe", "stripe", "billing API key", "sk_test_abc123"); err != nil {
		t.Fatalf("StoreCredential failed: %v", err)
	}

	secret, err := m.GetCredential("stripe")
	if err != nil {
		t.Fatalf("GetCredential failed: %v", err)
	}
	if secret != "sk_test_abc123" {
		t.Errorf("secret = %q, want sk_test_abc123", secret)
	}
}

func TestLockedStoreRejectsAccess(t *testing.T) {
	m := newTestManager(t)
	if err := m.StoreCredential("github", "github", "", "ghp_token"); err != nil {
		t.Fatalf("StoreCredential failed: %v", err)
	}

	m.Lock()
	if m.IsUnlocked() {
		t.Error("store should report locked")
	}
	if _, err := m.GetCredential("github"); err != ErrLocked {
		t.Errorf("expected ErrLocked, got %v", err)
	}
	if err := m.StoreCredential("x", "x", "", "y"); err != ErrLocked {
		t.Errorf("expected ErrLocked, got %v", err)
	}
}

func TestWrongPasswordRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	m := New(path)
	if err := m.Unlock("correct"); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	m.Lock()

	reopened := New(path)
	if err := reopened.Unlock("wrong"); err == nil {
		t.Fatal("expected wrong password to be rejected")
	}
}

func TestPersistenceAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	m := New(path)
	if err := m.Unlock("pw"); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if err := m.StoreCredential("anthropic", "anthropic", "agent backend", "sk-ant-xyz"); err != nil {
		t.Fatalf("StoreCredential failed: %v", err)
	}

	reopened := New(path)
	if err := reopened.Unlock("pw"); err != nil {
		t.Fatalf("reopen Unlock failed: %v", err)
	}
	secret, err := reopened.GetCredential("anthropic")
	if err != nil {
		t.Fatalf("GetCredential failed: %v", err)
	}
	if secret != "sk-ant-xyz" {
		t.Errorf("secret = %q, want sk-ant-xyz", secret)
	}
}

func TestListCredentialsOmitsSecrets(t *testing.T) {
	m := newTestManager(t)
	if err := m.StoreCredential("airtable", "airtable", "CRM sync", "key123"); err != nil {
		t.Fatalf("StoreCredential failed: %v", err)
	}
	if err := m.StoreCredential("stripe", "stripe", "", "sk_live"); err != nil {
		t.Fatalf("StoreCredential failed: %v", err)
	}

	entries, err := m.ListCredentials()
	if err != nil {
		t.Fatalf("ListCredentials failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != "airtable" || entries[1].ID != "stripe" {
		t.Errorf("entries not sorted by ID: %s, %s", entries[0].ID, entries[1].ID)
	}
	for _, e := range entries {
		if e.EncryptedData != "" {
			t.Errorf("entry %s leaked encrypted data in listing", e.ID)
		}
	}
}

func TestDeleteCredential(t *testing.T) {
	m := newTestManager(t)
	if err := m.StoreCredential("github", "github", "", "ghp_x"); err != nil {
		t.Fatalf("StoreCredential failed: %v", err)
	}
	if err := m.DeleteCredential("github"); err != nil {
		t.Fatalf("DeleteCredential failed: %v", err)
	}
	if _, err := m.GetCredential("github"); err == nil {
		t.Error("expected deleted credential to be gone")
	}
}

func TestChangePasswordReEncrypts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	m := New(path)
	if err := m.Unlock("old-pw"); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if err := m.StoreCredential("stripe", "stripe", "", "sk_secret"); err != nil {
		t.Fatalf("StoreCredential failed: %v", err)
	}

	if err := m.ChangePassword("old-pw", "new-pw"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	reopened := New(path)
	if err := reopened.Unlock("old-pw"); err == nil {
		t.Error("old password should no longer unlock the store")
	}

	reopened = New(path)
	if err := reopened.Unlock("new-pw"); err != nil {
		t.Fatalf("new password Unlock failed: %v", err)
	}
	secret, err := reopened.GetCredential("stripe")
	if err != nil {
		t.Fatalf("GetCredential failed: %v", err)
	}
	if secret != "sk_secret" {
		t.Errorf("secret = %q, want sk_secret", secret)
	}
}

func TestChangePasswordWrongOldPassword(t *testing.T) {
	m := newTestManager(t)
	if err := m.ChangePassword("not-the-password", "new"); err == nil {
		t.Error("expected wrong old password to be rejected")
	}
}
