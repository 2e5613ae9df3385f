package entity

import (
	"maps"
	"slices"
	"time"
)

// Status represents the lifecycle state of a tracked entity.
type Status string

const (
	StatusNew      Status = "new"
	StatusBaseline Status = "baseline"
	StatusBurst    Status = "burst"
	StatusFlagged  Status = "flagged"
	StatusGone     Status = "gone"
)

// Event is one timestamped sighting of an entity.
type Event struct {
	Timestamp time.Time
	Strength  int
	Duration  time.Duration
}

// End returns the instant the event stops occupying the timeline.
func (e Event) End() time.Time {
	return e.Timestamp.Add(e.Duration)
}

// Entity is a tracked identifier and its retained observation history.
type Entity struct {
	ID        string
	Label     string
	Type      string
	Events    []Event
	FirstSeen time.Time
	LastSeen  time.Time
	Status    Status
	Pattern   string
	Flagged   bool
	// EventCount counts every observation ever recorded; it is independent
	// of how many events are still retained in Events.
	EventCount int64
	Tags       map[string]struct{}
	Metadata   map[string]any

	activity Status // last classification ignoring flag and inactivity
	inactive bool
	seq      uint64
}

// TagList returns the entity's tags in sorted order.
func (e *Entity) TagList() []string {
	tags := make([]string, 0, len(e.Tags))
	for tag := range e.Tags {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}

// HasTag reports whether tag is set on the entity.
func (e *Entity) HasTag(tag string) bool {
	_, ok := e.Tags[tag]
	return ok
}

// RecentCount returns the number of retained events no later than now and
// no older than window.
func (e *Entity) RecentCount(now time.Time, window time.Duration) int {
	count := 0
	for i := len(e.Events) - 1; i >= 0; i-- {
		ts := e.Events[i].Timestamp
		if ts.After(now) {
			continue
		}
		if now.Sub(ts) > window {
			break
		}
		count++
	}
	return count
}

// Clone returns a deep copy safe to hand outside the owning store.
func (e *Entity) Clone() *Entity {
	c := *e
	c.Events = slices.Clone(e.Events)
	c.Tags = maps.Clone(e.Tags)
	c.Metadata = maps.Clone(e.Metadata)
	return &c
}

func (e *Entity) effectiveStatus() Status {
	switch {
	case e.Flagged:
		return StatusFlagged
	case e.inactive:
		return StatusGone
	case e.activity == "":
		return StatusNew
	default:
		return e.activity
	}
}

func (e *Entity) insertEvent(ev Event) {
	n := len(e.Events)
	if n == 0 || !ev.Timestamp.Before(e.Events[n-1].Timestamp) {
		e.Events = append(e.Events, ev)
		return
	}
	idx, _ := slices.BinarySearchFunc(e.Events, ev.Timestamp, func(have Event, ts time.Time) int {
		if have.Timestamp.After(ts) {
			return 1
		}
		return -1
	})
	e.Events = slices.Insert(e.Events, idx, ev)
}

// trim drops events older than cutoff, then the oldest events beyond limit.
func (e *Entity) trim(cutoff time.Time, limit int) {
	drop := 0
	if !cutoff.IsZero() {
		for drop < len(e.Events) && e.Events[drop].Timestamp.Before(cutoff) {
			drop++
		}
	}
	if limit > 0 && len(e.Events)-drop > limit {
		drop = len(e.Events) - limit
	}
	if drop > 0 {
		e.Events = slices.Delete(e.Events, 0, drop)
	}
}
