package auth

import (
	"crypto/rand"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Manager handles authentication and authorization.
type Manager struct {
	mu        sync.RWMutex
	jwtSecret string
	users     map[string]*User   // userID -> User
	tokens    map[string]*Token  // tokenID -> Token
	apiKeys   map[string]*APIKey // keyID -> APIKey
	passwords map[string]string  // userID -> password hash
	roles     map[string]Role    // roleName -> Role
	tokenTTL  time.Duration
}

// NewManager creates a new auth manager. An empty jwtSecret gets a random
// session-only secret, which means tokens do not survive restarts.
func NewManager(jwtSecret string, tokenTTL time.Duration) *Manager {
	if jwtSecret == "" {
		jwtSecret = generateRandomSecret(32)
		log.Printf("Generated random JWT secret for session (not persistent)")
	}
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}

	m := &Manager{
		jwtSecret: jwtSecret,
		users:     make(map[string]*User),
		tokens:    make(map[string]*Token),
		apiKeys:   make(map[string]*APIKey),
		passwords: make(map[string]string),
		roles:     make(map[string]Role),
		tokenTTL:  tokenTTL,
	}

	for roleName, role := range PreDefinedRoles {
		m.roles[roleName] = role
	}

	return m
}

// Bootstrap creates the default admin user when no users exist yet.
func (m *Manager) Bootstrap(adminPassword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.users) > 0 {
		return nil
	}
	if adminPassword == "" {
		adminPassword = "admin"
		log.Printf("Warning: using default admin password; change it immediately")
	}

	adminUser := &User{
		ID:        "user-admin",
		Username:  "admin",
		Email:     "admin@revintel.local",
		Role:      "admin",
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	m.users[adminUser.ID] = adminUser

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	m.passwords[adminUser.ID] = string(passwordHash)
	return nil
}

// Login authenticates a user and returns a token.
func (m *Manager) Login(username, password string) (*LoginResponse, error) {
	m.mu.RLock()
	var user *User
	for _, u := range m.users {
		if u.Username == username && u.IsActive {
			user = u
			break
		}
	}
	var passwordHash string
	if user != nil {
		passwordHash = m.passwords[user.ID]
	}
	m.mu.RUnlock()

	if user == nil || passwordHash == "" {
		return nil, fmt.Errorf("invalid username or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid username or password")
	}

	token, err := m.GenerateToken(user)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		Token:     token,
		ExpiresIn: int64(m.tokenTTL.Seconds()),
		User:      *user,
	}, nil
}

// GenerateToken creates a JWT token for a user.
func (m *Manager) GenerateToken(user *User) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	role, exists := m.roles[user.Role]
	if !exists {
		return "", fmt.Errorf("unknown role: %s", user.Role)
	}

	now := time.Now()
	expiresAt := now.Add(m.tokenTTL)

	claims := &Claims{
		UserID:      user.ID,
		Username:    user.Username,
		Role:        user.Role,
		Permissions: role.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "revintel",
			Subject:   user.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(m.jwtSecret))
	if err != nil {
		return "", err
	}

	tokenID := generateRandomID()
	m.tokens[tokenID] = &Token{
		ID:        tokenID,
		UserID:    user.ID,
		Token:     tokenString,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}

	return tokenString, nil
}

// ValidateToken validates a JWT token and returns claims.
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims.ExpiresAt != nil && time.Now().After(claims.ExpiresAt.Time) {
		return nil, fmt.Errorf("token expired")
	}

	return claims, nil
}

// CreateAPIKey creates a new API key for a user. The key value is returned
// exactly once; only its bcrypt hash is retained.
func (m *Manager) CreateAPIKey(userID string, req CreateAPIKeyRequest) (*CreateAPIKeyResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, exists := m.users[userID]
	if !exists {
		return nil, fmt.Errorf("user not found")
	}

	keyID := generateRandomID()
	keyValue := generateRandomSecret(32)
	keyPrefix := keyValue[:8]
	keyHash, err := bcrypt.GenerateFromPassword([]byte(keyValue), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash API key: %w", err)
	}

	var expiresAt *time.Time
	var expiresAtValue time.Time
	if req.ExpiresIn > 0 {
		exp := time.Now().Add(time.Duration(req.ExpiresIn) * time.Second)
		expiresAt = &exp
		expiresAtValue = exp
	}

	permissions := req.Permissions
	if len(permissions) == 0 {
		permissions = m.roles[user.Role].Permissions
	}

	m.apiKeys[keyID] = &APIKey{
		ID:          keyID,
		Name:        req.Name,
		UserID:      userID,
		KeyPrefix:   keyPrefix,
		KeyHash:     string(keyHash),
		Permissions: permissions,
		IsActive:    true,
		ExpiresAt:   expiresAtValue,
		CreatedAt:   time.Now(),
	}

	log.Printf("Created API key %s for user %s", keyPrefix, user.Username)

	return &CreateAPIKeyResponse{
		ID:        keyID,
		Name:      req.Name,
		Key:       keyValue, // Only returned once!
		ExpiresAt: expiresAt,
	}, nil
}

// ListAPIKeys returns all active API keys for a user (hashes never included).
func (m *Manager) ListAPIKeys(userID string) []*APIKey {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []*APIKey
	for _, k := range m.apiKeys {
		if k.UserID == userID && k.IsActive {
			keys = append(keys, k)
		}
	}
	return keys
}

// RevokeAPIKey marks an API key as inactive.
func (m *Manager) RevokeAPIKey(keyID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, exists := m.apiKeys[keyID]
	if !exists || k.UserID != userID {
		return fmt.Errorf("API key not found")
	}
	k.IsActive = false
	return nil
}

// ValidateAPIKey validates an API key and returns the user ID and permissions.
func (m *Manager) ValidateAPIKey(keyValue string) (string, []string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, apiKey := range m.apiKeys {
		if !apiKey.IsActive {
			continue
		}
		if !apiKey.ExpiresAt.IsZero() && time.Now().After(apiKey.ExpiresAt) {
			continue
		}
		if err := bcrypt.CompareHashAndPassword([]byte(apiKey.KeyHash), []byte(keyValue)); err != nil {
			continue
		}

		apiKey.LastUsed = time.Now()
		return apiKey.UserID, apiKey.Permissions, nil
	}

	return "", nil, fmt.Errorf("invalid API key")
}

// ChangePassword changes a user's password.
func (m *Manager) ChangePassword(userID, oldPassword, newPassword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, exists := m.users[userID]
	if !exists {
		return fmt.Errorf("user not found")
	}

	passwordHash, exists := m.passwords[userID]
	if !exists {
		return fmt.Errorf("password not set")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(oldPassword)); err != nil {
		return fmt.Errorf("incorrect password")
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	m.passwords[userID] = string(newHash)
	user.UpdatedAt = time.Now()

	log.Printf("Password changed for user %s", user.Username)
	return nil
}

// CreateUser creates a new user.
func (m *Manager) CreateUser(username, email, role, password string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == username {
			return nil, fmt.Errorf("username already exists")
		}
	}
	if _, exists := m.roles[role]; !exists {
		return nil, fmt.Errorf("unknown role: %s", role)
	}

	userID := generateRandomID()
	user := &User{
		ID:        userID,
		Username:  username,
		Email:     email,
		Role:      role,
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	m.passwords[userID] = string(passwordHash)
	m.users[userID] = user

	log.Printf("Created user %s with role %s", username, role)
	return user, nil
}

// GetUser retrieves a user by ID.
func (m *Manager) GetUser(userID string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, exists := m.users[userID]
	if !exists {
		return nil, fmt.Errorf("user not found")
	}
	return user, nil
}

// ListUsers lists all users.
func (m *Manager) ListUsers() []*User {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var users []*User
	for _, u := range m.users {
		users = append(users, u)
	}
	return users
}

// HasPermission checks a permission against a claim set, honoring full
// ("*:*") and per-resource ("icp:*") wildcards.
func HasPermission(permissions []string, permission string) bool {
	for _, p := range permissions {
		if p == permission || p == "*:*" {
			return true
		}
		parts := strings.Split(permission, ":")
		if len(parts) == 2 && p == parts[0]+":*" {
			return true
		}
	}
	return false
}

func generateRandomID() string {
	return fmt.Sprintf("id-%s", generateRandomSecret(12))
}

func generateRandomSecret(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		panic(err)
	}
	return fmt.Sprintf("%x", bytes)
}
