package archive

import (
	"encoding/json"
	"time"
)

// ExportRecord is a persisted engine export.
type ExportRecord struct {
	ID          string          `json:"id"`
	InstanceID  string          `json:"instance_id"`
	Window      string          `json:"window"`
	EntityCount int             `json:"entity_count"`
	CreatedAt   time.Time       `json:"created_at"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// ExportSummary is a lightweight reference to a persisted export.
type ExportSummary struct {
	ID          string    `json:"id"`
	InstanceID  string    `json:"instance_id"`
	Window      string    `json:"window"`
	EntityCount int       `json:"entity_count"`
	CreatedAt   time.Time `json:"created_at"`
}
