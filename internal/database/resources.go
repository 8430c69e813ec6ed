package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/hs-platform/revintel/pkg/models"
)

// UpsertResource inserts or updates a library resource.
func (d *Database) UpsertResource(resource *models.Resource) error {
	if resource == nil {
		return fmt.Errorf("resource cannot be nil")
	}
	if resource.CreatedAt.IsZero() {
		resource.CreatedAt = time.Now()
	}
	resource.UpdatedAt = time.Now()

	query := rebind(`
		INSERT INTO resources (id, title, description, tier, url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			tier = excluded.tier,
			url = excluded.url,
			updated_at = excluded.updated_at
	`)
	_, err := d.db.Exec(query,
		resource.ID,
		resource.Title,
		resource.Description,
		resource.Tier,
		resource.URL,
		resource.CreatedAt,
		resource.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert resource: %w", dbErr(err))
	}
	return nil
}

// GetResource retrieves a resource by ID.
func (d *Database) GetResource(id string) (*models.Resource, error) {
	query := rebind(`
		SELECT id, title, description, tier, url, created_at, updated_at
		FROM resources
		WHERE id = ?
	`)

	r := &models.Resource{}
	var description, url sql.NullString
	err := d.db.QueryRow(query, id).Scan(&r.ID, &r.Title, &description, &r.Tier, &url, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get resource: %w", dbErr(err))
	}
	r.Description = description.String
	r.URL = url.String
	return r, nil
}

// ListResources returns resources up to and including maxTier
// (0 means all tiers).
func (d *Database) ListResources(maxTier int) ([]*models.Resource, error) {
	query := `
		SELECT id, title, description, tier, url, created_at, updated_at
		FROM resources
	`
	var args []interface{}
	if maxTier > 0 {
		query += ` WHERE tier <= ?`
		args = append(args, maxTier)
	}
	query += ` ORDER BY tier, title`

	rows, err := d.db.Query(rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", dbErr(err))
	}
	defer rows.Close()

	var resources []*models.Resource
	for rows.Next() {
		r := &models.Resource{}
		var description, url sql.NullString
		if err := rows.Scan(&r.ID, &r.Title, &description, &r.Tier, &url, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", dbErr(err))
		}
		r.Description = description.String
		r.URL = url.String
		resources = append(resources, r)
	}
	return resources, dbErr(rows.Err())
}

// DeleteResource removes a resource.
func (d *Database) DeleteResource(id string) error {
	result, err := d.db.Exec(rebind(`DELETE FROM resources WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete resource: %w", dbErr(err))
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
