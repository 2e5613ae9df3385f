package entity

import "time"

// Classify recomputes an entity's status at now. Precedence, first match
// wins: flagged, burst, baseline, new. When nothing matches, the previous
// activity status is held. Classify never yields StatusGone; inactivity is
// only set by Store.MarkInactive.
func Classify(e *Entity, now time.Time, cfg Config) Status {
	if e.Flagged {
		return StatusFlagged
	}
	return classifyActivity(e, now, cfg.withDefaults())
}

func classifyActivity(e *Entity, now time.Time, cfg Config) Status {
	if e.RecentCount(now, cfg.BurstWindow) >= cfg.BurstThreshold {
		return StatusBurst
	}
	if e.EventCount >= cfg.BaselineCount {
		return StatusBaseline
	}
	if now.Sub(e.FirstSeen) < cfg.NewWindow {
		return StatusNew
	}
	if e.activity == "" {
		return StatusNew
	}
	return e.activity
}
