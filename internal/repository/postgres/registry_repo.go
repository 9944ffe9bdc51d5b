package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"custreg/internal/domain"
	"custreg/internal/port"
)

type registryRepo struct {
	db *sqlx.DB
}

// NewRegistryRepo creates a new PostgreSQL-backed RegistryStore.
func NewRegistryRepo(db *sqlx.DB) port.RegistryStore {
	return &registryRepo{db: db}
}

// SaveRun writes the run row and all four artifact tables in one
// transaction. A run is either fully persisted or absent; an incomplete
// registry must never be readable.
func (r *registryRepo) SaveRun(ctx context.Context, result *domain.RunResult) error {
	summary, err := json.Marshal(result.Summary)
	if err != nil {
		return fmt.Errorf("marshaling run summary: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, input_records, entity_count, needs_review, summary, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		result.RunID, result.Summary.InputRecords, result.Summary.Entities,
		result.Summary.NeedsReview, summary, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	if err := r.insertEntities(ctx, tx, result); err != nil {
		return err
	}
	if err := r.insertLineage(ctx, tx, result); err != nil {
		return err
	}
	if err := r.insertAudits(ctx, tx, result); err != nil {
		return err
	}
	if err := r.insertIssues(ctx, tx, result); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run: %w", err)
	}
	return nil
}

func (r *registryRepo) insertEntities(ctx context.Context, tx *sqlx.Tx, result *domain.RunResult) error {
	stmt, err := tx.PreparexContext(ctx,
		`INSERT INTO entities
		   (run_id, entity_id, key_method, key_value, document, full_name,
		    phone, email, address, birth_date, source_stores, contributing_record_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`)
	if err != nil {
		return fmt.Errorf("preparing entity insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range result.Entities {
		e := &result.Entities[i]
		_, err := stmt.ExecContext(ctx,
			result.RunID, e.EntityID, e.KeyMethod, e.KeyValue, e.Document, e.FullName,
			e.Phone, e.Email, e.Address, nullable(e.BirthDate),
			strings.Join(e.SourceStores, ";"), e.ContributingRecordCount,
		)
		if err != nil {
			return fmt.Errorf("inserting entity %d: %w", e.EntityID, err)
		}
	}
	return nil
}

func (r *registryRepo) insertLineage(ctx context.Context, tx *sqlx.Tx, result *domain.RunResult) error {
	stmt, err := tx.PreparexContext(ctx,
		`INSERT INTO lineage (run_id, seq, entity_id) VALUES ($1, $2, $3)`)
	if err != nil {
		return fmt.Errorf("preparing lineage insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, row := range result.Lineage {
		if _, err := stmt.ExecContext(ctx, result.RunID, row.Seq, row.EntityID); err != nil {
			return fmt.Errorf("inserting lineage for seq %d: %w", row.Seq, err)
		}
	}
	return nil
}

func (r *registryRepo) insertAudits(ctx context.Context, tx *sqlx.Tx, result *domain.RunResult) error {
	stmt, err := tx.PreparexContext(ctx,
		`INSERT INTO merge_audits
		   (run_id, position, left_key_method, left_key_value,
		    right_key_method, right_key_value, score, field_scores, outcome)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`)
	if err != nil {
		return fmt.Errorf("preparing audit insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range result.Audits {
		a := &result.Audits[i]
		fieldScores, err := json.Marshal(a.FieldScores)
		if err != nil {
			return fmt.Errorf("marshaling field scores: %w", err)
		}
		_, err = stmt.ExecContext(ctx,
			result.RunID, i, a.LeftKey.Method, a.LeftKey.Value,
			a.RightKey.Method, a.RightKey.Value, a.Score, fieldScores, a.Outcome,
		)
		if err != nil {
			return fmt.Errorf("inserting audit %d: %w", i, err)
		}
	}
	return nil
}

func (r *registryRepo) insertIssues(ctx context.Context, tx *sqlx.Tx, result *domain.RunResult) error {
	stmt, err := tx.PreparexContext(ctx,
		`INSERT INTO data_issues (run_id, seq, kind, field, raw_value)
		 VALUES ($1, $2, $3, $4, $5)`)
	if err != nil {
		return fmt.Errorf("preparing issue insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, issue := range result.Issues {
		if _, err := stmt.ExecContext(ctx, result.RunID, issue.Seq, issue.Kind, issue.Field, issue.Value); err != nil {
			return fmt.Errorf("inserting issue for seq %d: %w", issue.Seq, err)
		}
	}
	return nil
}

// nullable maps an empty canonical field to SQL NULL.
func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
