package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hs-platform/revintel/pkg/models"
)

// SaveICPAnalysis persists an ICP analysis result.
func (d *Database) SaveICPAnalysis(analysis *models.ICPAnalysis) error {
	if analysis == nil {
		return fmt.Errorf("analysis cannot be nil")
	}
	if analysis.CreatedAt.IsZero() {
		analysis.CreatedAt = time.Now()
	}

	inputJSON, err := json.Marshal(analysis.Input)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis input: %w", err)
	}
	breakdownJSON, err := json.Marshal(analysis.Breakdown)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis breakdown: %w", err)
	}

	query := rebind(`
		INSERT INTO icp_analyses (id, customer_id, input_json, score, tier, breakdown_json, summary, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err = d.db.Exec(query,
		analysis.ID,
		analysis.CustomerID,
		string(inputJSON),
		analysis.Score,
		analysis.Tier,
		string(breakdownJSON),
		analysis.Summary,
		analysis.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", dbErr(err))
	}
	return nil
}

// ListICPAnalyses returns analyses, optionally filtered by customer, newest first.
func (d *Database) ListICPAnalyses(customerID string, limit int) ([]*models.ICPAnalysis, error) {
	query := `
		SELECT id, customer_id, input_json, score, tier, breakdown_json, summary, created_at
		FROM icp_analyses
	`
	var args []interface{}
	if customerID != "" {
		query += ` WHERE customer_id = ?`
		args = append(args, customerID)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := d.db.Query(rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", dbErr(err))
	}
	defer rows.Close()

	var analyses []*models.ICPAnalysis
	for rows.Next() {
		a := &models.ICPAnalysis{}
		var inputJSON string
		var breakdownJSON, summary sql.NullString
		if err := rows.Scan(&a.ID, &a.CustomerID, &inputJSON, &a.Score, &a.Tier, &breakdownJSON, &summary, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", dbErr(err))
		}
		_ = json.Unmarshal([]byte(inputJSON), &a.Input)
		if breakdownJSON.Valid && breakdownJSON.String != "" {
			_ = json.Unmarshal([]byte(breakdownJSON.String), &a.Breakdown)
		}
		a.Summary = summary.String
		analyses = append(analyses, a)
	}
	return analyses, dbErr(rows.Err())
}

// LatestICPAnalysis returns the most recent analysis for a customer.
func (d *Database) LatestICPAnalysis(customerID string) (*models.ICPAnalysis, error) {
	analyses, err := d.ListICPAnalyses(customerID, 1)
	if err != nil {
		return nil, err
	}
	if len(analyses) == 0 {
		return nil, ErrNotFound
	}
	return analyses[0], nil
}

// UpsertResearchRecord inserts or updates a prospect research record.
func (d *Database) UpsertResearchRecord(record *models.ResearchRecord) error {
	if record == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	record.UpdatedAt = time.Now()

	query := rebind(`
		INSERT INTO research_records (id, customer_id, company_name, website, product_description, value_prop, target_customer, linkedin_background, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			company_name = excluded.company_name,
			website = excluded.website,
			product_description = excluded.product_description,
			value_prop = excluded.value_prop,
			target_customer = excluded.target_customer,
			linkedin_background = excluded.linkedin_background,
			notes = excluded.notes,
			updated_at = excluded.updated_at
	`)
	_, err := d.db.Exec(query,
		record.ID,
		record.CustomerID,
		record.CompanyName,
		record.Website,
		record.ProductDescription,
		record.ValueProp,
		record.TargetCustomer,
		record.LinkedInBackground,
		record.Notes,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert research record: %w", dbErr(err))
	}
	return nil
}

// ListResearchRecords returns research records for a customer.
func (d *Database) ListResearchRecords(customerID string) ([]*models.ResearchRecord, error) {
	query := rebind(`
		SELECT id, customer_id, company_name, website, product_description, value_prop, target_customer, linkedin_background, notes, created_at, updated_at
		FROM research_records
		WHERE customer_id = ?
		ORDER BY updated_at DESC
	`)

	rows, err := d.db.Query(query, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list research records: %w", dbErr(err))
	}
	defer rows.Close()

	var records []*models.ResearchRecord
	for rows.Next() {
		r := &models.ResearchRecord{}
		var website, product, value, target, linkedin, notes sql.NullString
		if err := rows.Scan(&r.ID, &r.CustomerID, &r.CompanyName, &website, &product, &value, &target, &linkedin, &notes, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan research record: %w", dbErr(err))
		}
		r.Website = website.String
		r.ProductDescription = product.String
		r.ValueProp = value.String
		r.TargetCustomer = target.String
		r.LinkedInBackground = linkedin.String
		r.Notes = notes.String
		records = append(records, r)
	}
	return records, dbErr(rows.Err())
}
