package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rpggio/sigtrack/internal/domain/archive"
	"github.com/rpggio/sigtrack/internal/repository"
)

// ExportRepository implements archive.Repository for SQLite
type ExportRepository struct {
	db *DB
}

// NewExportRepository creates a new ExportRepository
func NewExportRepository(db *DB) *ExportRepository {
	return &ExportRepository{db: db}
}

// Save persists an export
func (r *ExportRepository) Save(ctx context.Context, rec *archive.ExportRecord) error {
	query := `
		INSERT INTO exports (id, instance_id, time_window, entity_count, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.InstanceID,
		rec.Window,
		rec.EntityCount,
		string(rec.Payload),
		rec.CreatedAt.UTC(),
	)
	if isUniqueViolation(err) {
		return repository.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to save export: %w", err)
	}

	return nil
}

// Get retrieves an export by ID, payload included
func (r *ExportRepository) Get(ctx context.Context, id string) (*archive.ExportRecord, error) {
	query := `
		SELECT id, instance_id, time_window, entity_count, payload, created_at
		FROM exports
		WHERE id = ?
	`

	var rec archive.ExportRecord
	var payload string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID,
		&rec.InstanceID,
		&rec.Window,
		&rec.EntityCount,
		&payload,
		&rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get export: %w", err)
	}

	rec.Payload = []byte(payload)
	return &rec, nil
}

// List returns export summaries for an instance, newest first
func (r *ExportRepository) List(ctx context.Context, instanceID string, limit int) ([]archive.ExportSummary, error) {
	query := `
		SELECT id, instance_id, time_window, entity_count, created_at
		FROM exports
		WHERE instance_id = ?
		ORDER BY created_at DESC, rowid DESC
	`
	args := []any{instanceID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}
	defer rows.Close()

	summaries := []archive.ExportSummary{}
	for rows.Next() {
		var s archive.ExportSummary
		if err := rows.Scan(&s.ID, &s.InstanceID, &s.Window, &s.EntityCount, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan export: %w", err)
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating export rows: %w", err)
	}

	return summaries, nil
}
