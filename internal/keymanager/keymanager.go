// Package keymanager stores third-party integration credentials (Stripe,
// Anthropic, Airtable, GitHub) encrypted at rest. Individual credentials
// are AES-GCM encrypted with a key derived from the master password; the
// store file itself stays readable so metadata can be listed while locked.
package keymanager

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

// CredentialEntry is an encrypted credential record.
type CredentialEntry struct {
	ID            string    `json:"id"`
	Provider      string    `json:"provider"` // stripe, anthropic, airtable, github
	Description   string    `json:"description"`
	EncryptedData string    `json:"encrypted_data"` // base64 of salt+nonce+ciphertext
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// credentialStore is the on-disk format.
type credentialStore struct {
	Version        string                      `json:"version"`
	PasswordSalt   string                      `json:"password_salt"`
	PasswordVerify string                      `json:"password_verify"`
	Credentials    map[string]*CredentialEntry `json:"credentials"`
}

// Manager manages secure storage and retrieval of integration credentials.
type Manager struct {
	storePath string
	password  []byte
	store     *credentialStore
	mu        sync.RWMutex
	unlocked  bool
}

const (
	saltSize   = 32
	keySize    = 32
	iterations = 100000
)

// ErrLocked is returned when an operation needs the store unlocked.
var ErrLocked = errors.New("credential store is locked")

// New creates a manager backed by the given store file.
func New(storePath string) *Manager {
	return &Manager{
		storePath: storePath,
		store: &credentialStore{
			Credentials: make(map[string]*CredentialEntry),
		},
	}
}

// Unlock opens the store with the master password, creating the store file
// on first use.
func (m *Manager) Unlock(password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.password = []byte(password)

	if err := m.loadStore(); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to unlock credential store: %w", err)
		}
		m.store = &credentialStore{
			Version:     "1.0",
			Credentials: make(map[string]*CredentialEntry),
		}
		if err := m.initializePasswordSalt(); err != nil {
			return fmt.Errorf("failed to initialize password: %w", err)
		}
		if err := m.saveStore(); err != nil {
			return fmt.Errorf("failed to initialize credential store: %w", err)
		}
	}

	if m.store.PasswordVerify != "" {
		if err := m.verifyPassword(password); err != nil {
			m.password = nil
			return err
		}
	}

	m.unlocked = true
	return nil
}

// Lock locks the store and clears the password from memory.
func (m *Manager) Lock() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.password != nil {
		for i := range m.password {
			m.password[i] = 0
		}
		m.password = nil
	}
	m.unlocked = false
}

// IsUnlocked reports whether the store is unlocked.
func (m *Manager) IsUnlocked() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.unlocked
}

// StoreCredential encrypts and persists a credential.
func (m *Manager) StoreCredential(id, provider, description, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.unlocked {
		return ErrLocked
	}

	encrypted, err := m.encrypt([]byte(secret))
	if err != nil {
		return fmt.Errorf("failed to encrypt credential: %w", err)
	}

	now := time.Now()
	created := now
	if existing, ok := m.store.Credentials[id]; ok {
		created = existing.CreatedAt
	}
	m.store.Credentials[id] = &CredentialEntry{
		ID:            id,
		Provider:      provider,
		Description:   description,
		EncryptedData: base64.StdEncoding.EncodeToString(encrypted),
		CreatedAt:     created,
		UpdatedAt:     now,
	}

	if err := m.saveStore(); err != nil {
		return fmt.Errorf("failed to save credential store: %w", err)
	}
	return nil
}

// GetCredential retrieves and decrypts a credential.
func (m *Manager) GetCredential(id string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.unlocked {
		return "", ErrLocked
	}

	entry, exists := m.store.Credentials[id]
	if !exists {
		return "", fmt.Errorf("credential not found: %s", id)
	}

	encrypted, err := base64.StdEncoding.DecodeString(entry.EncryptedData)
	if err != nil {
		return "", fmt.Errorf("failed to decode credential: %w", err)
	}

	plaintext, err := m.decrypt(encrypted)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt credential: %w", err)
	}
	return string(plaintext), nil
}

// DeleteCredential removes a credential from the store.
func (m *Manager) DeleteCredential(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.unlocked {
		return ErrLocked
	}

	delete(m.store.Credentials, id)
	if err := m.saveStore(); err != nil {
		return fmt.Errorf("failed to save credential store: %w", err)
	}
	return nil
}

// ListCredentials returns metadata for all credentials, without secrets,
// sorted by ID.
func (m *Manager) ListCredentials() ([]*CredentialEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.unlocked {
		return nil, ErrLocked
	}

	entries := make([]*CredentialEntry, 0, len(m.store.Credentials))
	for _, entry := range m.store.Credentials {
		entries = append(entries, &CredentialEntry{
			ID:          entry.ID,
			Provider:    entry.Provider,
			Description: entry.Description,
			CreatedAt:   entry.CreatedAt,
			UpdatedAt:   entry.UpdatedAt,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

// ChangePassword re-encrypts every credential under a new master password.
func (m *Manager) ChangePassword(oldPassword, newPassword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.unlocked {
		return ErrLocked
	}
	if err := m.verifyPassword(oldPassword); err != nil {
		return fmt.Errorf("old password is incorrect: %w", err)
	}

	// Decrypt everything with the old password first.
	plaintexts := make(map[string]string, len(m.store.Credentials))
	for id, entry := range m.store.Credentials {
		encrypted, err := base64.StdEncoding.DecodeString(entry.EncryptedData)
		if err != nil {
			return fmt.Errorf("failed to decode credential %s: %w", id, err)
		}
		plaintext, err := m.decrypt(encrypted)
		if err != nil {
			return fmt.Errorf("failed to decrypt credential %s: %w", id, err)
		}
		plaintexts[id] = string(plaintext)
	}

	m.password = []byte(newPassword)
	if err := m.initializePasswordSalt(); err != nil {
		return fmt.Errorf("failed to initialize new password: %w", err)
	}

	for id, plaintext := range plaintexts {
		encrypted, err := m.encrypt([]byte(plaintext))
		if err != nil {
			return fmt.Errorf("failed to re-encrypt credential %s: %w", id, err)
		}
		entry := m.store.Credentials[id]
		entry.EncryptedData = base64.StdEncoding.EncodeToString(encrypted)
		entry.UpdatedAt = time.Now()
	}

	if err := m.saveStore(); err != nil {
		return fmt.Errorf("failed to save credential store: %w", err)
	}
	return nil
}

func (m *Manager) initializePasswordSalt() error {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return err
	}
	m.store.PasswordSalt = base64.StdEncoding.EncodeToString(salt)

	verifyHash := pbkdf2.Key(m.password, salt, iterations, keySize, sha256.New)
	m.store.PasswordVerify = base64.StdEncoding.EncodeToString(verifyHash)
	return nil
}

func (m *Manager) verifyPassword(password string) error {
	if m.store.PasswordSalt == "" || m.store.PasswordVerify == "" {
		return errors.New("credential store not initialized with password verification")
	}

	salt, err := base64.StdEncoding.DecodeString(m.store.PasswordSalt)
	if err != nil {
		return fmt.Errorf("failed to decode password salt: %w", err)
	}

	derived := pbkdf2.Key([]byte(password), salt, iterations, keySize, sha256.New)
	if base64.StdEncoding.EncodeToString(derived) != m.store.PasswordVerify {
		return errors.New("invalid password")
	}
	return nil
}

// encrypt seals plaintext with AES-GCM under a fresh per-credential salt.
// Output layout: salt | nonce | ciphertext.
func (m *Manager) encrypt(plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}

	key := pbkdf2.Key(m.password, salt, iterations, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	result := make([]byte, 0, saltSize+len(nonce)+len(ciphertext))
	result = append(result, salt...)
	result = append(result, nonce...)
	result = append(result, ciphertext...)
	return result, nil
}

func (m *Manager) decrypt(data []byte) ([]byte, error) {
	if len(data) < saltSize {
		return nil, errors.New("invalid encrypted data")
	}

	salt := data[:saltSize]
	data = data[saltSize:]

	key := pbkdf2.Key(m.password, salt, iterations, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, errors.New("invalid encrypted data")
	}

	return gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
}

// loadStore reads the store file. Only individual credentials are
// encrypted, so metadata is visible without unlocking.
func (m *Manager) loadStore() error {
	data, err := os.ReadFile(m.storePath)
	if err != nil {
		return err
	}

	var store credentialStore
	if err := json.Unmarshal(data, &store); err != nil {
		return err
	}
	if store.Credentials == nil {
		store.Credentials = make(map[string]*CredentialEntry)
	}
	m.store = &store
	return nil
}

func (m *Manager) saveStore() error {
	data, err := json.MarshalIndent(m.store, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.storePath), 0700); err != nil {
		return err
	}
	return os.WriteFile(m.storePath, data, 0600)
}
