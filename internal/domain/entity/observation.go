package entity

import (
	"math"
	"time"
)

const (
	MinStrength     = 1
	MaxStrength     = 5
	DefaultStrength = 3
	DefaultDuration = time.Second
)

// Observation is a raw sighting as supplied by a producer. Nil or zero
// fields fall back to defaults instead of being rejected.
type Observation struct {
	Timestamp time.Time
	Strength  *float64
	Duration  *time.Duration
	Label     string
	Type      string
	Tags      []string
	Metadata  map[string]any
}

// Ptr returns a pointer to v, for filling optional Observation fields.
func Ptr[T any](v T) *T {
	return &v
}

// NormalizeStrength rounds and clamps a strength into [MinStrength, MaxStrength].
// Missing or non-finite values yield DefaultStrength.
func NormalizeStrength(v *float64) int {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return DefaultStrength
	}
	s := math.Round(*v)
	if s < MinStrength {
		return MinStrength
	}
	if s > MaxStrength {
		return MaxStrength
	}
	return int(s)
}

// NormalizeDuration applies DefaultDuration to a missing value and clamps
// negative values to zero.
func NormalizeDuration(d *time.Duration) time.Duration {
	if d == nil {
		return DefaultDuration
	}
	if *d < 0 {
		return 0
	}
	return *d
}
