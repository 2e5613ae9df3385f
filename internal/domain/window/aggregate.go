package window

import (
	"slices"
	"time"

	"github.com/rpggio/sigtrack/internal/domain/entity"
)

// mergeDivisor sets the merge-gap tolerance to one hundredth of the window.
const mergeDivisor = 100

// Aggregate merges the events that start inside [windowStart, windowStart+span)
// into bars. An event joins the current bar when it starts no more than
// span/100 after the bar ends. Bars with at least burstThreshold events are
// burst bars, bars with more than one event are repeated.
func Aggregate(events []entity.Event, windowStart time.Time, span time.Duration, burstThreshold int) []Bar {
	if span <= 0 || len(events) == 0 {
		return nil
	}
	visible := make([]entity.Event, 0, len(events))
	for _, ev := range events {
		if !ev.Timestamp.Before(windowStart) {
			visible = append(visible, ev)
		}
	}
	if len(visible) == 0 {
		return nil
	}
	slices.SortStableFunc(visible, func(a, b entity.Event) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	gap := span / mergeDivisor
	var bars []Bar
	cur := newBar(visible[0])
	for _, ev := range visible[1:] {
		if ev.Timestamp.Sub(cur.End) <= gap {
			if end := ev.End(); end.After(cur.End) {
				cur.End = end
			}
			cur.MaxStrength = max(cur.MaxStrength, ev.Strength)
			cur.Count++
			continue
		}
		bars = append(bars, closeBar(cur, burstThreshold))
		cur = newBar(ev)
	}
	return append(bars, closeBar(cur, burstThreshold))
}

func newBar(ev entity.Event) Bar {
	return Bar{
		Start:       ev.Timestamp,
		End:         ev.End(),
		MaxStrength: ev.Strength,
		Count:       1,
	}
}

func closeBar(b Bar, burstThreshold int) Bar {
	switch {
	case burstThreshold > 0 && b.Count >= burstThreshold:
		b.Status = BarBurst
	case b.Count > 1:
		b.Status = BarRepeated
	default:
		b.Status = BarNew
	}
	return b
}

// Project places a bar inside the window as left/width percentages. Width
// never drops below minWidth. It is a pure function of its inputs.
func Project(b Bar, windowStart time.Time, span time.Duration, minWidth float64) Geometry {
	spanMs := float64(span.Milliseconds())
	if spanMs <= 0 {
		return Geometry{Width: minWidth}
	}
	left := float64(b.Start.Sub(windowStart).Milliseconds()) / spanMs * 100
	width := float64(b.End.Sub(b.Start).Milliseconds()) / spanMs * 100
	return Geometry{Left: left, Width: max(minWidth, width)}
}
