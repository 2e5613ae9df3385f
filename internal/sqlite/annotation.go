package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/sigtrack/internal/domain/activity"
	"github.com/rpggio/sigtrack/internal/repository"
)

// AnnotationRepository implements activity.Repository for SQLite
type AnnotationRepository struct {
	db *DB
}

// NewAnnotationRepository creates a new AnnotationRepository
func NewAnnotationRepository(db *DB) *AnnotationRepository {
	return &AnnotationRepository{db: db}
}

// Save inserts an annotation
func (r *AnnotationRepository) Save(ctx context.Context, entry *activity.Annotation) error {
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	query := `
		INSERT INTO annotations (id, instance_id, entity_id, type, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	var entityID sql.NullString
	if entry.EntityID != "" {
		entityID = sql.NullString{String: entry.EntityID, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.InstanceID,
		entityID,
		entry.Type,
		entry.Message,
		ts.UTC(),
	)
	if isUniqueViolation(err) {
		return repository.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to save annotation: %w", err)
	}

	entry.Timestamp = ts
	return nil
}

// List returns annotations matching the given filters, newest first
func (r *AnnotationRepository) List(ctx context.Context, opts activity.ListOptions) ([]activity.Annotation, error) {
	query := `
		SELECT id, instance_id, entity_id, type, message, created_at
		FROM annotations
	`

	var args []any
	var conditions []string

	if opts.InstanceID != "" {
		conditions = append(conditions, "instance_id = ?")
		args = append(args, opts.InstanceID)
	}
	if opts.EntityID != nil {
		conditions = append(conditions, "entity_id = ?")
		args = append(args, *opts.EntityID)
	}
	if opts.Type != nil {
		conditions = append(conditions, "type = ?")
		args = append(args, *opts.Type)
	}
	if !opts.Since.IsZero() {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, opts.Since.UTC())
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY created_at DESC, rowid DESC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	} else if opts.Offset > 0 {
		query += " LIMIT -1"
	}
	if opts.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list annotations: %w", err)
	}
	defer rows.Close()

	var entries []activity.Annotation
	for rows.Next() {
		var entry activity.Annotation
		var entityID sql.NullString
		if err := rows.Scan(
			&entry.ID,
			&entry.InstanceID,
			&entityID,
			&entry.Type,
			&entry.Message,
			&entry.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan annotation: %w", err)
		}
		entry.EntityID = entityID.String
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating annotation rows: %w", err)
	}

	return entries, nil
}
