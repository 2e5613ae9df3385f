package engine

import (
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/rpggio/sigtrack/internal/domain/activity"
	"github.com/rpggio/sigtrack/internal/domain/entity"
)

// Option customizes an Instance.
type Option func(*Instance)

// WithClock replaces time.Now as the instance's notion of the current time.
func WithClock(now func() time.Time) Option {
	return func(i *Instance) { i.now = now }
}

// WithTicker injects the render-tick driver.
func WithTicker(t Ticker) Option {
	return func(i *Instance) { i.ticker = t }
}

// WithLogger sets the instance logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Instance) { i.logger = logger }
}

// WithAnnotationSink registers a callback receiving every annotation the
// instance appends, stamped with the instance id. It runs inside the
// instance's critical section and must not block.
func WithAnnotationSink(fn func(activity.Annotation)) Option {
	return func(i *Instance) { i.sink = fn }
}

// Record is one event-like input to ImportEvents.
type Record struct {
	ID string
	entity.Observation
}

// ImportResult reports how many records ImportEvents applied.
type ImportResult struct {
	Imported int `json:"imported"`
	Rejected int `json:"rejected"`
}

// Instance is one dashboard panel's engine: an entity store, its annotation
// log and the render state. All methods are safe for concurrent use; calls
// are serialized so each operation sees a consistent store.
type Instance struct {
	id     string
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
	ticker Ticker
	sink   func(activity.Annotation)

	mu      sync.Mutex
	store   *entity.Store
	notes   *activity.Log
	window  string
	filters map[string]bool
	closed  bool
	done    chan struct{}
	subs    map[int]func(Snapshot)
	nextSub int
	onClose func()
}

// NewInstance builds and starts an instance. It fails only when id is blank.
func NewInstance(id string, cfg Config, opts ...Option) (*Instance, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidInstance
	}
	i := &Instance{
		id:   id,
		cfg:  cfg.normalize(),
		now:  time.Now,
		done: make(chan struct{}),
		subs: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.logger == nil {
		i.logger = slog.New(slog.DiscardHandler)
	}
	i.logger = i.logger.With("instance_id", id)
	if i.ticker == nil {
		i.ticker = NewCronTicker()
	}

	i.filters = make(map[string]bool, len(i.cfg.Filters))
	for name, on := range i.cfg.Filters {
		if _, ok := knownFilters[name]; !ok {
			i.logger.Warn("ignoring unknown filter", "filter", name)
			continue
		}
		i.filters[name] = on
	}
	i.window = i.cfg.DefaultWindow
	i.notes = activity.NewLog(i.cfg.AnnotationLimit)
	i.notes.OnAppend(i.forward)
	i.store = entity.NewStore(i.cfg.storeConfig(), i.notes, i.logger)

	if err := i.ticker.Start(i.cfg.UpdateInterval, i.tick); err != nil {
		return nil, fmt.Errorf("starting render tick: %w", err)
	}
	i.logger.Info("engine instance created", "window", i.window, "max_items", i.cfg.MaxItems)
	return i, nil
}

// ID returns the instance id.
func (i *Instance) ID() string {
	return i.id
}

// Config returns the effective configuration.
func (i *Instance) Config() Config {
	return i.cfg
}

// AddEvent records one observation and returns a copy of the updated entity.
func (i *Instance) AddEvent(id string, obs entity.Observation) (*entity.Entity, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil, ErrInstanceClosed
	}
	e, err := i.store.Record(id, obs, i.now())
	if err != nil {
		return nil, err
	}
	return e.Clone(), nil
}

// ImportEvents applies AddEvent to each record in order. Records without
// an id are counted as rejected.
func (i *Instance) ImportEvents(records []Record) (ImportResult, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return ImportResult{}, ErrInstanceClosed
	}
	var res ImportResult
	for _, rec := range records {
		if _, err := i.store.Record(rec.ID, rec.Observation, i.now()); err != nil {
			res.Rejected++
			continue
		}
		res.Imported++
	}
	i.logger.Debug("imported events", "imported", res.Imported, "rejected", res.Rejected)
	return res, nil
}

// ToggleFlag flips the user flag on an entity.
func (i *Instance) ToggleFlag(id string) (*entity.Entity, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil, ErrInstanceClosed
	}
	e, err := i.store.ToggleFlag(id, i.now())
	if err != nil {
		return nil, err
	}
	return e.Clone(), nil
}

// MarkInactive marks an entity gone until it is observed again.
func (i *Instance) MarkInactive(id string) (*entity.Entity, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil, ErrInstanceClosed
	}
	e, err := i.store.MarkInactive(id, i.now())
	if err != nil {
		return nil, err
	}
	return e.Clone(), nil
}

// Entity returns a copy of one tracked entity.
func (i *Instance) Entity(id string) (*entity.Entity, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	e, ok := i.store.Get(id)
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// Clear drops every entity.
func (i *Instance) Clear() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return ErrInstanceClosed
	}
	n := i.store.Len()
	i.store.Clear()
	i.notes.Append(activity.TypeCleared, "", fmt.Sprintf("Cleared %d entities", n), i.now())
	return nil
}

// SetTimeWindow switches the active window. Unknown names are ignored and
// reported as false.
func (i *Instance) SetTimeWindow(name string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.cfg.TimeWindows[name]; !ok || i.closed {
		return false
	}
	i.window = name
	return true
}

// TimeWindow returns the active window name and span.
func (i *Instance) TimeWindow() (string, time.Duration) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.window, i.cfg.TimeWindows[i.window]
}

// TimeWindows lists the configured window names, shortest first.
func (i *Instance) TimeWindows() []string {
	return i.cfg.windowNames()
}

// SetFilter toggles a configured filter. Unknown names are ignored and
// reported as false.
func (i *Instance) SetFilter(name string, on bool) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.filters[name]; !ok || i.closed {
		return false
	}
	i.filters[name] = on
	return true
}

// Filters returns the current filter states.
func (i *Instance) Filters() map[string]bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return maps.Clone(i.filters)
}

// Stats counts the current entities by status.
func (i *Instance) Stats() Stats {
	i.mu.Lock()
	defer i.mu.Unlock()
	return computeStats(i.store.All())
}

// Annotations returns the n newest annotations; n <= 0 returns all.
func (i *Instance) Annotations(n int) []activity.Annotation {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.notes.Recent(n)
}

// Export dumps every entity and the annotation log.
func (i *Instance) Export() Export {
	i.mu.Lock()
	defer i.mu.Unlock()
	all := i.store.All()
	entities := make([]ExportEntity, len(all))
	for n, e := range all {
		entities[n] = ExportEntityFrom(e)
	}
	return Export{
		ExportTime:  FormatTime(i.now()),
		Window:      i.window,
		Entities:    entities,
		Annotations: exportAnnotations(i.notes.Recent(0)),
	}
}

// Snapshot derives the current view.
func (i *Instance) Snapshot() Snapshot {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.buildSnapshot(i.now())
}

// Subscribe registers fn to receive the snapshot of every render tick. The
// returned function cancels the subscription.
func (i *Instance) Subscribe(fn func(Snapshot)) func() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return func() {}
	}
	id := i.nextSub
	i.nextSub++
	i.subs[id] = fn
	return func() {
		i.mu.Lock()
		defer i.mu.Unlock()
		delete(i.subs, id)
	}
}

// Closed reports whether Destroy has been called.
func (i *Instance) Closed() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.closed
}

// Done is closed when the instance is destroyed.
func (i *Instance) Done() <-chan struct{} {
	return i.done
}

// Destroy stops the render tick and drops subscriptions and state. It is
// safe to call more than once.
func (i *Instance) Destroy() {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return
	}
	i.closed = true
	close(i.done)
	clear(i.subs)
	i.store.Clear()
	onClose := i.onClose
	i.mu.Unlock()

	i.ticker.Stop()
	if onClose != nil {
		onClose()
	}
	i.logger.Info("engine instance destroyed")
}

// tick is the read-only render pass: it derives a snapshot and hands it to
// subscribers outside the lock.
func (i *Instance) tick() {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return
	}
	snap := i.buildSnapshot(i.now())
	subs := make([]func(Snapshot), 0, len(i.subs))
	for _, fn := range i.subs {
		subs = append(subs, fn)
	}
	i.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (i *Instance) forward(a activity.Annotation) {
	if i.sink == nil {
		return
	}
	a.InstanceID = i.id
	i.sink(a)
}
