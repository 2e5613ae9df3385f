package activity

import "time"

// AnnotationType represents the kind of notable occurrence being logged.
type AnnotationType string

const (
	TypeNew       AnnotationType = "new"
	TypeBurst     AnnotationType = "burst"
	TypePattern   AnnotationType = "pattern"
	TypeFlagged   AnnotationType = "flagged"
	TypeUnflagged AnnotationType = "unflagged"
	TypeGone      AnnotationType = "gone"
	TypeCleared   AnnotationType = "cleared"
)

// Annotation is a human-readable entry in an instance's activity log.
type Annotation struct {
	ID         string         `json:"id"`
	InstanceID string         `json:"instance_id,omitempty"`
	EntityID   string         `json:"entity_id,omitempty"`
	Type       AnnotationType `json:"type"`
	Message    string         `json:"message"`
	Timestamp  time.Time      `json:"timestamp"`
}
