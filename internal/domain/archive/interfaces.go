package archive

import "context"

// Repository provides persistence operations for exports.
type Repository interface {
	Save(ctx context.Context, rec *ExportRecord) error
	Get(ctx context.Context, id string) (*ExportRecord, error)
	List(ctx context.Context, instanceID string, limit int) ([]ExportSummary, error)
}
