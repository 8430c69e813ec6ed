package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hs-platform/revintel/pkg/models"
)

// CreateSession inserts a new customer session.
func (d *Database) CreateSession(session *models.Session) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}

	contextJSON := ""
	if session.Context != nil {
		b, err := json.Marshal(session.Context)
		if err != nil {
			return fmt.Errorf("failed to marshal session context: %w", err)
		}
		contextJSON = string(b)
	}

	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.LastAccessedAt.IsZero() {
		session.LastAccessedAt = now
	}

	query := rebind(`
		INSERT INTO sessions (id, customer_id, context_json, created_at, last_accessed_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	_, err := d.db.Exec(query,
		session.ID,
		session.CustomerID,
		contextJSON,
		session.CreatedAt,
		session.LastAccessedAt,
		session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", dbErr(err))
	}
	return nil
}

// GetSession retrieves a session by ID and touches its last-accessed time.
func (d *Database) GetSession(id string) (*models.Session, error) {
	query := rebind(`
		SELECT id, customer_id, context_json, created_at, last_accessed_at, expires_at
		FROM sessions
		WHERE id = ?
	`)

	s := &models.Session{}
	var contextJSON sql.NullString
	err := d.db.QueryRow(query, id).Scan(
		&s.ID,
		&s.CustomerID,
		&contextJSON,
		&s.CreatedAt,
		&s.LastAccessedAt,
		&s.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", dbErr(err))
	}

	if contextJSON.Valid && contextJSON.String != "" {
		_ = json.Unmarshal([]byte(contextJSON.String), &s.Context)
	}
	if s.Context == nil {
		s.Context = map[string]string{}
	}

	touch := rebind(`UPDATE sessions SET last_accessed_at = ? WHERE id = ?`)
	_, _ = d.db.Exec(touch, time.Now(), id)

	return s, nil
}

// ListSessions returns sessions, optionally filtered by customer.
func (d *Database) ListSessions(customerID string) ([]*models.Session, error) {
	query := `
		SELECT id, customer_id, context_json, created_at, last_accessed_at, expires_at
		FROM sessions
	`
	var args []interface{}
	if customerID != "" {
		query += ` WHERE customer_id = ?`
		args = append(args, customerID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := d.db.Query(rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", dbErr(err))
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		s := &models.Session{}
		var contextJSON sql.NullString
		if err := rows.Scan(&s.ID, &s.CustomerID, &contextJSON, &s.CreatedAt, &s.LastAccessedAt, &s.ExpiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", dbErr(err))
		}
		if contextJSON.Valid && contextJSON.String != "" {
			_ = json.Unmarshal([]byte(contextJSON.String), &s.Context)
		}
		if s.Context == nil {
			s.Context = map[string]string{}
		}
		sessions = append(sessions, s)
	}
	return sessions, dbErr(rows.Err())
}

// UpdateSessionContext merges new keys into a session's context blob.
func (d *Database) UpdateSessionContext(id string, context map[string]string) error {
	session, err := d.GetSession(id)
	if err != nil {
		return err
	}
	for k, v := range context {
		session.Context[k] = v
	}

	b, err := json.Marshal(session.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal session context: %w", err)
	}

	query := rebind(`UPDATE sessions SET context_json = ?, last_accessed_at = ? WHERE id = ?`)
	_, err = d.db.Exec(query, string(b), time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", dbErr(err))
	}
	return nil
}

// DeleteSession removes a session.
func (d *Database) DeleteSession(id string) error {
	result, err := d.db.Exec(rebind(`DELETE FROM sessions WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", dbErr(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", dbErr(err))
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// PurgeExpiredSessions deletes sessions past their expiry and returns the count.
func (d *Database) PurgeExpiredSessions(now time.Time) (int64, error) {
	result, err := d.db.Exec(rebind(`DELETE FROM sessions WHERE expires_at < ?`), now)
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", dbErr(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", dbErr(err))
	}
	return rows, nil
}
