package activity

import "time"

// ListOptions provides filtering options for listing archived annotations.
type ListOptions struct {
	InstanceID string
	EntityID   *string
	Type       *AnnotationType
	Since      time.Time
	Limit      int
	Offset     int
}
