package activity

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultArchiveBuffer = 256
	defaultDrainTimeout  = 5 * time.Second
)

// Archiver decouples annotation production from persistence via a buffered
// channel. Engine instances hand annotations to Submit from inside their
// critical section, so Submit never blocks: entries are dropped when the
// buffer is full.
type Archiver struct {
	svc    *Service
	logger *slog.Logger
	ch     chan Annotation
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewArchiver starts a background goroutine draining into svc.
func NewArchiver(svc *Service, bufSize int, logger *slog.Logger) *Archiver {
	if bufSize <= 0 {
		bufSize = defaultArchiveBuffer
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	a := &Archiver{
		svc:    svc,
		logger: logger,
		ch:     make(chan Annotation, bufSize),
		done:   make(chan struct{}),
	}
	go a.drain()
	return a
}

// Submit queues an annotation for archiving.
func (a *Archiver) Submit(entry Annotation) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}
	select {
	case a.ch <- entry:
	default:
		a.logger.Warn("annotation archive buffer full, dropping entry",
			"instance_id", entry.InstanceID, "type", entry.Type)
	}
}

// Close stops accepting entries and waits for queued ones to be written.
func (a *Archiver) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.ch)
	a.mu.Unlock()

	select {
	case <-a.done:
	case <-time.After(defaultDrainTimeout):
		a.logger.Warn("annotation archive drain timed out")
	}
}

func (a *Archiver) drain() {
	defer close(a.done)
	for entry := range a.ch {
		e := entry
		if err := a.svc.Archive(context.Background(), &e); err != nil {
			a.logger.Warn("annotation archive write failed", "error", err)
		}
	}
}
