package entity

import "time"

const (
	DefaultBurstThreshold     = 5
	DefaultBurstWindow        = time.Minute
	DefaultBaselineCount      = 20
	DefaultNewWindow          = 5 * time.Minute
	DefaultMaxItems           = 100
	DefaultMaxEventsPerEntity = 500
)

// Config parameterizes classification, retention and eviction.
type Config struct {
	BurstThreshold int
	BurstWindow    time.Duration
	BaselineCount  int64
	NewWindow      time.Duration
	// Retention is the horizon behind an entity's newest event beyond which
	// events are discarded. Zero keeps everything (subject to MaxEventsPerEntity).
	Retention          time.Duration
	MaxEventsPerEntity int
	// MaxItems is the entity ceiling enforced after every record. Zero or
	// negative disables eviction.
	MaxItems  int
	LabelFunc func(id string) string
}

// DefaultConfig returns the canonical thresholds.
func DefaultConfig() Config {
	return Config{
		BurstThreshold:     DefaultBurstThreshold,
		BurstWindow:        DefaultBurstWindow,
		BaselineCount:      DefaultBaselineCount,
		NewWindow:          DefaultNewWindow,
		MaxEventsPerEntity: DefaultMaxEventsPerEntity,
		MaxItems:           DefaultMaxItems,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BurstThreshold <= 0 {
		c.BurstThreshold = d.BurstThreshold
	}
	if c.BurstWindow <= 0 {
		c.BurstWindow = d.BurstWindow
	}
	if c.BaselineCount <= 0 {
		c.BaselineCount = d.BaselineCount
	}
	if c.NewWindow <= 0 {
		c.NewWindow = d.NewWindow
	}
	return c
}
