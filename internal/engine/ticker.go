package engine

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Ticker drives an instance's periodic render tick.
type Ticker interface {
	Start(interval time.Duration, fn func()) error
	Stop()
}

// CronTicker schedules ticks on a robfig/cron runner. Intervals below one
// second are rounded up to one second. A tick that is still running when the
// next one is due is skipped.
type CronTicker struct {
	mu   sync.Mutex
	cron *cron.Cron
}

// NewCronTicker creates an idle cron-backed ticker.
func NewCronTicker() *CronTicker {
	return &CronTicker{}
}

// Start begins invoking fn every interval.
func (t *CronTicker) Start(interval time.Duration, fn func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cron != nil {
		return ErrTickerRunning
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(cron.Every(interval), cron.FuncJob(fn))
	c.Start()
	t.cron = c
	return nil
}

// Stop halts the schedule and waits for a running tick to finish.
func (t *CronTicker) Stop() {
	t.mu.Lock()
	c := t.cron
	t.cron = nil
	t.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
}

// ManualTicker fires only when told to, so tests advance time synchronously.
type ManualTicker struct {
	mu       sync.Mutex
	fn       func()
	interval time.Duration
	running  bool
	starts   int
}

// NewManualTicker creates an idle manual ticker.
func NewManualTicker() *ManualTicker {
	return &ManualTicker{}
}

func (t *ManualTicker) Start(interval time.Duration, fn func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return ErrTickerRunning
	}
	t.fn = fn
	t.interval = interval
	t.running = true
	t.starts++
	return nil
}

func (t *ManualTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
	t.fn = nil
}

// Fire runs one tick synchronously. It reports false when stopped.
func (t *ManualTicker) Fire() bool {
	t.mu.Lock()
	fn, running := t.fn, t.running
	t.mu.Unlock()
	if !running || fn == nil {
		return false
	}
	fn()
	return true
}

// Running reports whether the ticker has been started and not stopped.
func (t *ManualTicker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Interval returns the interval passed to the last Start.
func (t *ManualTicker) Interval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interval
}
