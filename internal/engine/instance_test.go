package engine_test

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rpggio/sigtrack/internal/domain/activity"
	"github.com/rpggio/sigtrack/internal/domain/entity"
	"github.com/rpggio/sigtrack/internal/domain/window"
	"github.com/rpggio/sigtrack/internal/engine"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestInstance(t *testing.T, cfg engine.Config, opts ...engine.Option) (*engine.Instance, *engine.ManualTicker, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: t0}
	ticker := engine.NewManualTicker()
	opts = append([]engine.Option{engine.WithClock(clock.Now), engine.WithTicker(ticker)}, opts...)
	inst, err := engine.NewInstance("panel", cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(inst.Destroy)
	return inst, ticker, clock
}

func TestNewInstance_RequiresID(t *testing.T) {
	_, err := engine.NewInstance("  ", engine.Config{}, engine.WithTicker(engine.NewManualTicker()))
	require.ErrorIs(t, err, engine.ErrInvalidInstance)
}

func TestNewInstance_StartsTickerAtUpdateInterval(t *testing.T) {
	_, ticker, _ := newTestInstance(t, engine.Config{UpdateInterval: 2 * time.Second})
	require.True(t, ticker.Running())
	require.Equal(t, 2*time.Second, ticker.Interval())
}

func TestInstance_AddEvent_BurstScenario(t *testing.T) {
	inst, _, _ := newTestInstance(t, engine.Config{})

	var e *entity.Entity
	var err error
	for i := 0; i < 5; i++ {
		e, err = inst.AddEvent("433.92", entity.Observation{
			Timestamp: t0.Add(time.Duration(i*2) * time.Second),
			Strength:  entity.Ptr(4.0),
		})
		require.NoError(t, err)
	}

	require.Equal(t, entity.StatusBurst, e.Status)
	require.Equal(t, "2s interval", e.Pattern)
	require.Equal(t, engine.Stats{Total: 1, Burst: 1, WithPattern: 1}, inst.Stats())

	notes := inst.Annotations(0)
	require.Len(t, notes, 3)
	require.Equal(t, activity.TypeBurst, notes[0].Type)
	require.Equal(t, activity.TypePattern, notes[1].Type)
	require.Equal(t, activity.TypeNew, notes[2].Type)

	snap := inst.Snapshot()
	require.Len(t, snap.Lanes, 1)
	require.Len(t, snap.Lanes[0].Bars, 1)
	bar := snap.Lanes[0].Bars[0]
	require.Equal(t, 5, bar.Count)
	require.Equal(t, 4, bar.MaxStrength)
	require.Equal(t, window.BarBurst, bar.Status)
}

func TestInstance_AddEvent_ReturnsCopy(t *testing.T) {
	inst, _, _ := newTestInstance(t, engine.Config{})

	e, err := inst.AddEvent("a", entity.Observation{Timestamp: t0})
	require.NoError(t, err)
	e.Label = "mutated"

	stored, ok := inst.Entity("a")
	require.True(t, ok)
	require.Equal(t, "a", stored.Label)
}

func TestInstance_AddEvent_MissingID(t *testing.T) {
	inst, _, _ := newTestInstance(t, engine.Config{})

	_, err := inst.AddEvent("", entity.Observation{})
	require.ErrorIs(t, err, entity.ErrMissingID)
	require.Zero(t, inst.Stats().Total)
}

func TestInstance_ImportEvents(t *testing.T) {
	inst, _, _ := newTestInstance(t, engine.Config{})

	res, err := inst.ImportEvents([]engine.Record{
		{ID: "a", Observation: entity.Observation{Timestamp: t0}},
		{ID: "", Observation: entity.Observation{Timestamp: t0}},
		{ID: "b", Observation: entity.Observation{Timestamp: t0.Add(time.Second)}},
	})
	require.NoError(t, err)
	require.Equal(t, engine.ImportResult{Imported: 2, Rejected: 1}, res)
	require.Equal(t, 2, inst.Stats().Total)
}

func TestInstance_ExportRoundTrip(t *testing.T) {
	inst, _, _ := newTestInstance(t, engine.Config{})

	counts := map[string]int{"a": 1, "b": 3, "c": 2}
	for id, n := range counts {
		for i := 0; i < n; i++ {
			_, err := inst.AddEvent(id, entity.Observation{Timestamp: t0.Add(time.Duration(i) * time.Minute)})
			require.NoError(t, err)
		}
	}

	raw, err := json.Marshal(inst.Export())
	require.NoError(t, err)

	var decoded engine.Export
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, "2026-01-02T15:00:00.000Z", decoded.ExportTime)
	require.Equal(t, engine.DefaultWindow, decoded.Window)
	require.Len(t, decoded.Entities, len(counts))
	for _, e := range decoded.Entities {
		require.Len(t, e.Events, counts[e.ID], e.ID)
		require.Equal(t, int64(counts[e.ID]), e.EventCount)
		require.Equal(t, "2026-01-02T15:00:00.000Z", e.FirstSeen)
	}
	require.Len(t, decoded.Annotations, len(counts))
}

func TestInstance_ExportIsPointInTime(t *testing.T) {
	inst, _, _ := newTestInstance(t, engine.Config{})

	_, err := inst.AddEvent("x", entity.Observation{Timestamp: t0, Metadata: map[string]any{"k": 1}})
	require.NoError(t, err)
	exp := inst.Export()

	_, err = inst.AddEvent("x", entity.Observation{Timestamp: t0.Add(time.Second), Metadata: map[string]any{"k": 2, "new": true}})
	require.NoError(t, err)

	require.Len(t, exp.Entities, 1)
	require.Equal(t, map[string]any{"k": 1}, exp.Entities[0].Metadata)
	require.Len(t, exp.Entities[0].Events, 1)
}

func TestInstance_ExportWhileRecording(t *testing.T) {
	inst, _, _ := newTestInstance(t, engine.Config{})
	_, err := inst.AddEvent("x", entity.Observation{Timestamp: t0, Metadata: map[string]any{"n": 0}})
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 1; i <= 200; i++ {
			_, _ = inst.AddEvent("x", entity.Observation{Timestamp: t0, Metadata: map[string]any{"n": i}})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_, _ = json.Marshal(inst.Export())
		}
	}()
	wg.Wait()

	got, ok := inst.Entity("x")
	require.True(t, ok)
	require.Equal(t, 200, got.Metadata["n"])
}

func TestInstance_ToggleFlagAndMarkInactive(t *testing.T) {
	inst, _, _ := newTestInstance(t, engine.Config{})
	_, err := inst.AddEvent("a", entity.Observation{Timestamp: t0})
	require.NoError(t, err)

	e, err := inst.MarkInactive("a")
	require.NoError(t, err)
	require.Equal(t, entity.StatusGone, e.Status)

	e, err = inst.ToggleFlag("a")
	require.NoError(t, err)
	require.Equal(t, entity.StatusFlagged, e.Status)

	e, err = inst.ToggleFlag("a")
	require.NoError(t, err)
	require.Equal(t, entity.StatusGone, e.Status)

	_, err = inst.ToggleFlag("missing")
	require.ErrorIs(t, err, entity.ErrEntityNotFound)
}

func TestInstance_Clear(t *testing.T) {
	inst, _, _ := newTestInstance(t, engine.Config{})
	_, err := inst.AddEvent("a", entity.Observation{Timestamp: t0})
	require.NoError(t, err)
	_, err = inst.AddEvent("b", entity.Observation{Timestamp: t0})
	require.NoError(t, err)

	require.NoError(t, inst.Clear())
	require.Zero(t, inst.Stats().Total)

	latest := inst.Annotations(1)
	require.Len(t, latest, 1)
	require.Equal(t, activity.TypeCleared, latest[0].Type)
	require.Equal(t, "Cleared 2 entities", latest[0].Message)
}

func TestInstance_SetTimeWindow(t *testing.T) {
	inst, _, _ := newTestInstance(t, engine.Config{})

	require.False(t, inst.SetTimeWindow("2d"))
	name, span := inst.TimeWindow()
	require.Equal(t, "30m", name)
	require.Equal(t, 30*time.Minute, span)

	require.True(t, inst.SetTimeWindow("5m"))
	snap := inst.Snapshot()
	require.Equal(t, "5m", snap.Window)
	require.Equal(t, int64(5*60*1000), snap.WindowMs)
	require.Equal(t, t0.Add(-5*time.Minute), snap.WindowStart)
	require.Equal(t, []string{"5m", "15m", "30m", "1h"}, inst.TimeWindows())
}

func TestInstance_SetFilter(t *testing.T) {
	inst, _, _ := newTestInstance(t, engine.Config{})
	_, err := inst.AddEvent("a", entity.Observation{Timestamp: t0})
	require.NoError(t, err)
	_, err = inst.AddEvent("b", entity.Observation{Timestamp: t0})
	require.NoError(t, err)
	_, err = inst.ToggleFlag("b")
	require.NoError(t, err)

	require.False(t, inst.SetFilter("no_such_filter", true))
	require.Len(t, inst.Snapshot().Lanes, 2)

	require.True(t, inst.SetFilter(engine.FilterOnlyFlagged, true))
	lanes := inst.Snapshot().Lanes
	require.Len(t, lanes, 1)
	require.Equal(t, "b", lanes[0].ID)
	require.True(t, inst.Filters()[engine.FilterOnlyFlagged])

	// Stats are never filtered.
	require.Equal(t, 2, inst.Stats().Total)
}

func TestInstance_UnknownConfiguredFilterIgnored(t *testing.T) {
	inst, _, _ := newTestInstance(t, engine.Config{
		Filters: map[string]bool{"bogus": true, engine.FilterHideGone: false},
	})

	require.Equal(t, map[string]bool{engine.FilterHideGone: false}, inst.Filters())
	require.False(t, inst.SetFilter(engine.FilterOnlyNew, true))
}

func TestInstance_SnapshotLaneOrder(t *testing.T) {
	inst, _, clock := newTestInstance(t, engine.Config{})

	_, err := inst.AddEvent("quiet", entity.Observation{Timestamp: t0.Add(-10 * time.Minute)})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err = inst.AddEvent("busy", entity.Observation{Timestamp: t0.Add(-time.Duration(10-i) * time.Second)})
		require.NoError(t, err)
	}
	_, err = inst.AddEvent("marked", entity.Observation{Timestamp: t0.Add(-20 * time.Minute)})
	require.NoError(t, err)
	_, err = inst.ToggleFlag("marked")
	require.NoError(t, err)
	_, err = inst.AddEvent("stale", entity.Observation{Timestamp: t0.Add(-2 * time.Hour)})
	require.NoError(t, err)

	clock.now = t0
	snap := inst.Snapshot()
	ids := make([]string, len(snap.Lanes))
	for i, lane := range snap.Lanes {
		ids[i] = lane.ID
	}
	require.Equal(t, []string{"marked", "busy", "quiet"}, ids)
	require.Equal(t, 4, snap.Stats.Total)
	require.Len(t, snap.AxisLabels, window.DefaultAxisSteps)
	require.Equal(t, "Now", snap.AxisLabels[len(snap.AxisLabels)-1])
}

func TestInstance_MaxLanes(t *testing.T) {
	inst, _, _ := newTestInstance(t, engine.Config{MaxLanes: 2})
	for _, id := range []string{"a", "b", "c"} {
		_, err := inst.AddEvent(id, entity.Observation{Timestamp: t0})
		require.NoError(t, err)
	}
	require.Len(t, inst.Snapshot().Lanes, 2)
}

func TestInstance_SummaryModeOmitsBars(t *testing.T) {
	inst, _, _ := newTestInstance(t, engine.Config{VisualMode: engine.VisualSummary})
	_, err := inst.AddEvent("a", entity.Observation{Timestamp: t0})
	require.NoError(t, err)

	snap := inst.Snapshot()
	require.Len(t, snap.Lanes, 1)
	require.Empty(t, snap.Lanes[0].Bars)
}

func TestInstance_TickPublishesToSubscribers(t *testing.T) {
	inst, ticker, _ := newTestInstance(t, engine.Config{})
	_, err := inst.AddEvent("a", entity.Observation{Timestamp: t0})
	require.NoError(t, err)

	var got []engine.Snapshot
	cancel := inst.Subscribe(func(s engine.Snapshot) { got = append(got, s) })

	require.True(t, ticker.Fire())
	require.Len(t, got, 1)
	require.Equal(t, "panel", got[0].InstanceID)
	require.Len(t, got[0].Lanes, 1)

	cancel()
	require.True(t, ticker.Fire())
	require.Len(t, got, 1)
}

func TestInstance_TickDoesNotMutateState(t *testing.T) {
	inst, ticker, clock := newTestInstance(t, engine.Config{})
	_, err := inst.AddEvent("a", entity.Observation{Timestamp: t0})
	require.NoError(t, err)
	before := inst.Export()

	clock.now = t0.Add(time.Hour)
	require.True(t, ticker.Fire())

	clock.now = t0
	require.Equal(t, before, inst.Export())
}

func TestInstance_Destroy(t *testing.T) {
	inst, ticker, _ := newTestInstance(t, engine.Config{})
	called := false
	inst.Subscribe(func(engine.Snapshot) { called = true })

	inst.Destroy()
	inst.Destroy()

	require.True(t, inst.Closed())
	require.False(t, ticker.Running())
	require.False(t, ticker.Fire())
	require.False(t, called)

	_, err := inst.AddEvent("a", entity.Observation{Timestamp: t0})
	require.ErrorIs(t, err, engine.ErrInstanceClosed)
	require.ErrorIs(t, inst.Clear(), engine.ErrInstanceClosed)
	_, err = inst.ImportEvents(nil)
	require.ErrorIs(t, err, engine.ErrInstanceClosed)
	require.False(t, inst.SetTimeWindow("5m"))
}

func TestInstance_AnnotationSink(t *testing.T) {
	var sunk []activity.Annotation
	inst, _, _ := newTestInstance(t, engine.Config{},
		engine.WithAnnotationSink(func(a activity.Annotation) { sunk = append(sunk, a) }))

	_, err := inst.AddEvent("a", entity.Observation{Timestamp: t0})
	require.NoError(t, err)

	require.Len(t, sunk, 1)
	require.Equal(t, "panel", sunk[0].InstanceID)
	require.Equal(t, activity.TypeNew, sunk[0].Type)
	require.Empty(t, inst.Annotations(0)[0].InstanceID)
}

func TestInstance_LabelGenerator(t *testing.T) {
	inst, _, _ := newTestInstance(t, engine.Config{
		LabelGenerator: func(id string) string { return "Device " + id },
	})

	e, err := inst.AddEvent("7", entity.Observation{Timestamp: t0})
	require.NoError(t, err)
	require.Equal(t, "Device 7", e.Label)

	e, err = inst.AddEvent("8", entity.Observation{Timestamp: t0, Label: "Doorbell"})
	require.NoError(t, err)
	require.Equal(t, "Doorbell", e.Label)
}
