package activity

import "context"

// Repository provides persistence operations for archived annotations.
type Repository interface {
	Save(ctx context.Context, entry *Annotation) error
	List(ctx context.Context, opts ListOptions) ([]Annotation, error)
}
