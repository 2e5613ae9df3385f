package activity

import (
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity is the number of annotations an instance keeps in memory.
const DefaultCapacity = 20

// Log is a bounded, newest-first annotation buffer. It is not safe for
// concurrent use; the owning engine instance serializes access.
type Log struct {
	entries  []Annotation
	capacity int
	onAppend func(Annotation)
}

// NewLog creates a log holding at most capacity entries.
// A non-positive capacity falls back to DefaultCapacity.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{capacity: capacity, entries: make([]Annotation, 0, capacity+1)}
}

// OnAppend registers a hook invoked with every appended annotation.
func (l *Log) OnAppend(fn func(Annotation)) {
	l.onAppend = fn
}

// Append inserts a new annotation at the front, dropping the oldest entry
// once the log is over capacity.
func (l *Log) Append(typ AnnotationType, entityID, message string, ts time.Time) Annotation {
	entry := Annotation{
		ID:        uuid.NewString(),
		EntityID:  entityID,
		Type:      typ,
		Message:   message,
		Timestamp: ts,
	}
	l.entries = append(l.entries, Annotation{})
	copy(l.entries[1:], l.entries)
	l.entries[0] = entry
	if len(l.entries) > l.capacity {
		l.entries = l.entries[:l.capacity]
	}
	if l.onAppend != nil {
		l.onAppend(entry)
	}
	return entry
}

// Recent returns a copy of the n newest annotations. A non-positive n
// returns everything.
func (l *Log) Recent(n int) []Annotation {
	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]Annotation, n)
	copy(out, l.entries[:n])
	return out
}

// Len reports the number of retained annotations.
func (l *Log) Len() int {
	return len(l.entries)
}

// Capacity reports the maximum number of retained annotations.
func (l *Log) Capacity() int {
	return l.capacity
}
