package entity

import (
	"cmp"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/rpggio/sigtrack/internal/domain/activity"
)

const defaultType = "unknown"

// Annotator receives notable occurrences as they happen.
type Annotator interface {
	Append(typ activity.AnnotationType, entityID, message string, ts time.Time) activity.Annotation
}

// Store is the registry of tracked entities keyed by id. It is not safe for
// concurrent use; callers serialize access.
type Store struct {
	cfg      Config
	entities map[string]*Entity
	nextSeq  uint64
	notes    Annotator
	logger   *slog.Logger
}

// NewStore creates an empty store. notes and logger may be nil.
func NewStore(cfg Config, notes Annotator, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		cfg:      cfg.withDefaults(),
		entities: make(map[string]*Entity),
		notes:    notes,
		logger:   logger,
	}
}

// Config returns the effective store configuration.
func (s *Store) Config() Config {
	return s.cfg
}

// Len reports the number of tracked entities.
func (s *Store) Len() int {
	return len(s.entities)
}

// Get returns the live entity for id.
func (s *Store) Get(id string) (*Entity, bool) {
	e, ok := s.entities[id]
	return e, ok
}

// All returns the live entities in insertion order.
func (s *Store) All() []*Entity {
	all := slices.Collect(maps.Values(s.entities))
	slices.SortFunc(all, func(a, b *Entity) int { return cmp.Compare(a.seq, b.seq) })
	return all
}

// Delete removes id from the store.
func (s *Store) Delete(id string) bool {
	if _, ok := s.entities[id]; !ok {
		return false
	}
	delete(s.entities, id)
	return true
}

// Clear removes every entity.
func (s *Store) Clear() {
	clear(s.entities)
}

// Record appends an observation for id, creating the entity on first sight.
// It reclassifies the entity, checks for a cadence, trims retention and
// finally enforces the entity ceiling. The only rejected input is a blank id.
func (s *Store) Record(id string, obs Observation, now time.Time) (*Entity, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrMissingID
	}
	ts := obs.Timestamp
	if ts.IsZero() {
		ts = now
	}
	ev := Event{
		Timestamp: ts,
		Strength:  NormalizeStrength(obs.Strength),
		Duration:  NormalizeDuration(obs.Duration),
	}

	e, existed := s.entities[id]
	if !existed {
		e = &Entity{
			ID:        id,
			FirstSeen: ts,
			LastSeen:  ts,
			Status:    StatusNew,
			Tags:      make(map[string]struct{}),
			Metadata:  make(map[string]any),
			activity:  StatusNew,
			seq:       s.nextSeq,
		}
		s.nextSeq++
		s.entities[id] = e
	}
	s.applyAttributes(e, obs)
	if !existed {
		s.annotate(activity.TypeNew, e, fmt.Sprintf("New %s detected: %s", e.Type, e.Label), ts)
	}

	e.insertEvent(ev)
	if ts.After(e.LastSeen) {
		e.LastSeen = ts
	}
	if ts.Before(e.FirstSeen) {
		e.FirstSeen = ts
	}
	e.EventCount++
	wasGone := e.inactive
	e.inactive = false

	ref := e.LastSeen
	prev := e.activity
	e.activity = classifyActivity(e, ref, s.cfg)
	e.Status = e.effectiveStatus()
	// Onsets are tracked on the activity status so a flag does not hide them.
	if e.activity == StatusBurst && (prev != StatusBurst || wasGone) {
		recent := e.RecentCount(ref, s.cfg.BurstWindow)
		s.annotate(activity.TypeBurst, e, fmt.Sprintf("Burst on %s: %d events in %s", e.Label, recent, s.cfg.BurstWindow), ts)
	}

	if pattern, ok := DetectPattern(e.Events); ok && pattern != e.Pattern {
		e.Pattern = pattern
		s.annotate(activity.TypePattern, e, fmt.Sprintf("Pattern on %s: %s", e.Label, pattern), ts)
	}

	var cutoff time.Time
	if s.cfg.Retention > 0 {
		cutoff = ref.Add(-s.cfg.Retention)
	}
	e.trim(cutoff, s.cfg.MaxEventsPerEntity)

	if s.cfg.MaxItems > 0 && len(s.entities) > s.cfg.MaxItems {
		s.Prune(s.cfg.MaxItems)
	}
	return e, nil
}

// ToggleFlag flips the sticky user flag. Unflagging restores the status the
// last classification produced.
func (s *Store) ToggleFlag(id string, now time.Time) (*Entity, error) {
	e, ok := s.entities[id]
	if !ok {
		return nil, ErrEntityNotFound
	}
	e.Flagged = !e.Flagged
	e.Status = e.effectiveStatus()
	if e.Flagged {
		s.annotate(activity.TypeFlagged, e, fmt.Sprintf("Flagged %s", e.Label), now)
	} else {
		s.annotate(activity.TypeUnflagged, e, fmt.Sprintf("Unflagged %s", e.Label), now)
	}
	return e, nil
}

// MarkInactive marks the entity gone until its next recorded event. A
// flagged entity keeps reporting flagged.
func (s *Store) MarkInactive(id string, now time.Time) (*Entity, error) {
	e, ok := s.entities[id]
	if !ok {
		return nil, ErrEntityNotFound
	}
	e.inactive = true
	e.Status = e.effectiveStatus()
	s.annotate(activity.TypeGone, e, fmt.Sprintf("%s went silent", e.Label), now)
	return e, nil
}

func (s *Store) applyAttributes(e *Entity, obs Observation) {
	switch {
	case strings.TrimSpace(obs.Label) != "":
		e.Label = obs.Label
	case e.Label == "":
		e.Label = s.label(e.ID)
	}
	switch {
	case strings.TrimSpace(obs.Type) != "":
		e.Type = obs.Type
	case e.Type == "":
		e.Type = defaultType
	}
	for _, tag := range obs.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			e.Tags[tag] = struct{}{}
		}
	}
	maps.Copy(e.Metadata, obs.Metadata)
}

func (s *Store) label(id string) string {
	if s.cfg.LabelFunc != nil {
		if label := s.cfg.LabelFunc(id); label != "" {
			return label
		}
	}
	return id
}

func (s *Store) annotate(typ activity.AnnotationType, e *Entity, message string, ts time.Time) {
	if s.notes == nil {
		return
	}
	s.notes.Append(typ, e.ID, message, ts)
}
