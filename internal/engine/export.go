package engine

import (
	"maps"
	"time"

	"github.com/rpggio/sigtrack/internal/domain/activity"
	"github.com/rpggio/sigtrack/internal/domain/entity"
)

// ISOTime is the export timestamp layout: UTC, millisecond precision.
const ISOTime = "2006-01-02T15:04:05.000Z07:00"

// FormatTime renders t in ISOTime.
func FormatTime(t time.Time) string {
	return t.UTC().Format(ISOTime)
}

// Export is a serializable dump of an instance's current state.
type Export struct {
	ExportTime  string             `json:"export_time"`
	Window      string             `json:"window"`
	Entities    []ExportEntity     `json:"entities"`
	Annotations []ExportAnnotation `json:"annotations"`
}

type ExportEntity struct {
	ID         string         `json:"id"`
	Label      string         `json:"label"`
	Type       string         `json:"type"`
	Status     entity.Status  `json:"status"`
	Pattern    string         `json:"pattern,omitempty"`
	Flagged    bool           `json:"flagged"`
	EventCount int64          `json:"event_count"`
	FirstSeen  string         `json:"first_seen"`
	LastSeen   string         `json:"last_seen"`
	Tags       []string       `json:"tags"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Events     []ExportEvent  `json:"events"`
}

type ExportEvent struct {
	Timestamp  string `json:"timestamp"`
	Strength   int    `json:"strength"`
	DurationMs int64  `json:"duration_ms"`
}

type ExportAnnotation struct {
	ID        string                  `json:"id"`
	EntityID  string                  `json:"entity_id,omitempty"`
	Type      activity.AnnotationType `json:"type"`
	Message   string                  `json:"message"`
	Timestamp string                  `json:"timestamp"`
}

// ExportEntityFrom converts an entity into its exported form. The result
// shares no memory with e.
func ExportEntityFrom(e *entity.Entity) ExportEntity {
	events := make([]ExportEvent, len(e.Events))
	for i, ev := range e.Events {
		events[i] = ExportEvent{
			Timestamp:  FormatTime(ev.Timestamp),
			Strength:   ev.Strength,
			DurationMs: ev.Duration.Milliseconds(),
		}
	}
	return ExportEntity{
		ID:         e.ID,
		Label:      e.Label,
		Type:       e.Type,
		Status:     e.Status,
		Pattern:    e.Pattern,
		Flagged:    e.Flagged,
		EventCount: e.EventCount,
		FirstSeen:  FormatTime(e.FirstSeen),
		LastSeen:   FormatTime(e.LastSeen),
		Tags:       e.TagList(),
		Metadata:   maps.Clone(e.Metadata),
		Events:     events,
	}
}

func exportAnnotations(notes []activity.Annotation) []ExportAnnotation {
	out := make([]ExportAnnotation, len(notes))
	for i, a := range notes {
		out[i] = ExportAnnotation{
			ID:        a.ID,
			EntityID:  a.EntityID,
			Type:      a.Type,
			Message:   a.Message,
			Timestamp: FormatTime(a.Timestamp),
		}
	}
	return out
}
