package engine

import (
	"cmp"
	"slices"
	"time"

	"github.com/rpggio/sigtrack/internal/domain/activity"
	"github.com/rpggio/sigtrack/internal/domain/entity"
	"github.com/rpggio/sigtrack/internal/domain/window"
)

// Snapshot is the derived view a renderer draws from on each tick.
type Snapshot struct {
	InstanceID  string                `json:"instance_id"`
	GeneratedAt time.Time             `json:"generated_at"`
	VisualMode  string                `json:"visual_mode"`
	Window      string                `json:"window"`
	WindowStart time.Time             `json:"window_start"`
	WindowMs    int64                 `json:"window_ms"`
	AxisLabels  []string              `json:"axis_labels"`
	Filters     map[string]bool       `json:"filters"`
	Lanes       []Lane                `json:"lanes"`
	Stats       Stats                 `json:"stats"`
	Annotations []activity.Annotation `json:"annotations"`
}

// Lane is one entity's row on the timeline.
type Lane struct {
	ID         string        `json:"id"`
	Label      string        `json:"label"`
	Type       string        `json:"type"`
	Status     entity.Status `json:"status"`
	Pattern    string        `json:"pattern,omitempty"`
	Flagged    bool          `json:"flagged"`
	EventCount int64         `json:"event_count"`
	LastSeen   time.Time     `json:"last_seen"`
	Tags       []string      `json:"tags,omitempty"`
	Bars       []BarView     `json:"bars"`
}

// BarView is a bar with its projected geometry.
type BarView struct {
	Start       time.Time        `json:"start"`
	End         time.Time        `json:"end"`
	MaxStrength int              `json:"max_strength"`
	Count       int              `json:"count"`
	Status      window.BarStatus `json:"status"`
	window.Geometry
}

var laneRank = map[entity.Status]int{
	entity.StatusFlagged:  0,
	entity.StatusBurst:    1,
	entity.StatusNew:      2,
	entity.StatusBaseline: 3,
	entity.StatusGone:     4,
}

// buildSnapshot derives the view without touching entity state.
func (i *Instance) buildSnapshot(now time.Time) Snapshot {
	span := i.cfg.TimeWindows[i.window]
	start := now.Add(-span)
	all := i.store.All()

	var shown []*entity.Entity
	for _, e := range all {
		if e.LastSeen.Before(start) && !e.Flagged {
			continue
		}
		if visible(e, i.filters) {
			shown = append(shown, e)
		}
	}
	slices.SortStableFunc(shown, func(a, b *entity.Entity) int {
		if n := cmp.Compare(laneRank[a.Status], laneRank[b.Status]); n != 0 {
			return n
		}
		if n := b.LastSeen.Compare(a.LastSeen); n != 0 {
			return n
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if i.cfg.MaxLanes > 0 && len(shown) > i.cfg.MaxLanes {
		shown = shown[:i.cfg.MaxLanes]
	}

	lanes := make([]Lane, 0, len(shown))
	for _, e := range shown {
		lane := Lane{
			ID:         e.ID,
			Label:      e.Label,
			Type:       e.Type,
			Status:     e.Status,
			Pattern:    e.Pattern,
			Flagged:    e.Flagged,
			EventCount: e.EventCount,
			LastSeen:   e.LastSeen,
			Tags:       e.TagList(),
			Bars:       []BarView{},
		}
		if i.cfg.VisualMode != VisualSummary {
			for _, bar := range window.Aggregate(e.Events, start, span, i.cfg.BurstThreshold) {
				lane.Bars = append(lane.Bars, BarView{
					Start:       bar.Start,
					End:         bar.End,
					MaxStrength: bar.MaxStrength,
					Count:       bar.Count,
					Status:      bar.Status,
					Geometry:    window.Project(bar, start, span, i.cfg.MinBarWidth),
				})
			}
		}
		lanes = append(lanes, lane)
	}

	filters := make(map[string]bool, len(i.filters))
	for name, on := range i.filters {
		filters[name] = on
	}
	return Snapshot{
		InstanceID:  i.id,
		GeneratedAt: now,
		VisualMode:  i.cfg.VisualMode,
		Window:      i.window,
		WindowStart: start,
		WindowMs:    span.Milliseconds(),
		AxisLabels:  window.AxisLabels(start, now, span, i.cfg.AxisSteps),
		Filters:     filters,
		Lanes:       lanes,
		Stats:       computeStats(all),
		Annotations: i.notes.Recent(0),
	}
}
