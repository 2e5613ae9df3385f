package engine

import (
	"cmp"
	"maps"
	"slices"
	"time"

	"github.com/rpggio/sigtrack/internal/domain/activity"
	"github.com/rpggio/sigtrack/internal/domain/entity"
	"github.com/rpggio/sigtrack/internal/domain/window"
)

const (
	VisualCompact  = "compact"
	VisualExpanded = "expanded"
	VisualSummary  = "summary"

	DefaultWindow         = "30m"
	DefaultUpdateInterval = 5 * time.Second
	DefaultMinBarWidth    = 0.5
)

// Config configures one engine instance. Zero values take defaults.
type Config struct {
	VisualMode         string                   `yaml:"visual_mode" json:"visual_mode,omitempty"`
	TimeWindows        map[string]time.Duration `yaml:"time_windows" json:"time_windows,omitempty"`
	DefaultWindow      string                   `yaml:"default_window" json:"default_window,omitempty"`
	Filters            map[string]bool          `yaml:"filters" json:"filters,omitempty"`
	MaxItems           int                      `yaml:"max_items" json:"max_items,omitempty"`
	BurstThreshold     int                      `yaml:"burst_threshold" json:"burst_threshold,omitempty"`
	BurstWindow        time.Duration            `yaml:"burst_window" json:"burst_window,omitempty"`
	UpdateInterval     time.Duration            `yaml:"update_interval" json:"update_interval,omitempty"`
	BaselineCount      int64                    `yaml:"baseline_count" json:"baseline_count,omitempty"`
	NewWindow          time.Duration            `yaml:"new_window" json:"new_window,omitempty"`
	MaxEventsPerEntity int                      `yaml:"max_events_per_entity" json:"max_events_per_entity,omitempty"`
	AnnotationLimit    int                      `yaml:"annotation_limit" json:"annotation_limit,omitempty"`
	MinBarWidth        float64                  `yaml:"min_bar_width" json:"min_bar_width,omitempty"`
	AxisSteps          int                      `yaml:"axis_steps" json:"axis_steps,omitempty"`
	MaxLanes           int                      `yaml:"max_lanes" json:"max_lanes,omitempty"`

	// LabelGenerator derives a display label from an id when the producer
	// supplies none.
	LabelGenerator func(id string) string `yaml:"-" json:"-"`
}

// DefaultTimeWindows returns the stock window choices.
func DefaultTimeWindows() map[string]time.Duration {
	return map[string]time.Duration{
		"5m":  5 * time.Minute,
		"15m": 15 * time.Minute,
		"30m": 30 * time.Minute,
		"1h":  time.Hour,
	}
}

// DefaultConfig returns a fully populated instance configuration.
func DefaultConfig() Config {
	return Config{
		VisualMode:         VisualCompact,
		TimeWindows:        DefaultTimeWindows(),
		DefaultWindow:      DefaultWindow,
		Filters:            DefaultFilters(),
		MaxItems:           entity.DefaultMaxItems,
		BurstThreshold:     entity.DefaultBurstThreshold,
		BurstWindow:        entity.DefaultBurstWindow,
		UpdateInterval:     DefaultUpdateInterval,
		BaselineCount:      entity.DefaultBaselineCount,
		NewWindow:          entity.DefaultNewWindow,
		MaxEventsPerEntity: entity.DefaultMaxEventsPerEntity,
		AnnotationLimit:    activity.DefaultCapacity,
		MinBarWidth:        DefaultMinBarWidth,
		AxisSteps:          window.DefaultAxisSteps,
	}
}

// Merge returns c with every non-zero field of o applied on top. Maps in o
// replace maps in c.
func (c Config) Merge(o Config) Config {
	if o.VisualMode != "" {
		c.VisualMode = o.VisualMode
	}
	if len(o.TimeWindows) > 0 {
		c.TimeWindows = maps.Clone(o.TimeWindows)
	}
	if o.DefaultWindow != "" {
		c.DefaultWindow = o.DefaultWindow
	}
	if len(o.Filters) > 0 {
		c.Filters = maps.Clone(o.Filters)
	}
	if o.MaxItems != 0 {
		c.MaxItems = o.MaxItems
	}
	if o.BurstThreshold != 0 {
		c.BurstThreshold = o.BurstThreshold
	}
	if o.BurstWindow != 0 {
		c.BurstWindow = o.BurstWindow
	}
	if o.UpdateInterval != 0 {
		c.UpdateInterval = o.UpdateInterval
	}
	if o.BaselineCount != 0 {
		c.BaselineCount = o.BaselineCount
	}
	if o.NewWindow != 0 {
		c.NewWindow = o.NewWindow
	}
	if o.MaxEventsPerEntity != 0 {
		c.MaxEventsPerEntity = o.MaxEventsPerEntity
	}
	if o.AnnotationLimit != 0 {
		c.AnnotationLimit = o.AnnotationLimit
	}
	if o.MinBarWidth != 0 {
		c.MinBarWidth = o.MinBarWidth
	}
	if o.AxisSteps != 0 {
		c.AxisSteps = o.AxisSteps
	}
	if o.MaxLanes != 0 {
		c.MaxLanes = o.MaxLanes
	}
	if o.LabelGenerator != nil {
		c.LabelGenerator = o.LabelGenerator
	}
	return c
}

// normalize fills unset values from DefaultConfig and drops non-positive
// windows. The default window falls back to "30m", then to the shortest
// configured window.
func (c Config) normalize() Config {
	d := DefaultConfig()
	windows := make(map[string]time.Duration, len(c.TimeWindows))
	for name, span := range c.TimeWindows {
		if name != "" && span > 0 {
			windows[name] = span
		}
	}
	if len(windows) == 0 {
		windows = d.TimeWindows
	}
	c.TimeWindows = windows
	if _, ok := c.TimeWindows[c.DefaultWindow]; !ok {
		if _, ok := c.TimeWindows[DefaultWindow]; ok {
			c.DefaultWindow = DefaultWindow
		} else {
			c.DefaultWindow = c.windowNames()[0]
		}
	}
	if c.Filters == nil {
		c.Filters = d.Filters
	} else {
		c.Filters = maps.Clone(c.Filters)
	}

	switch c.VisualMode {
	case VisualCompact, VisualExpanded, VisualSummary:
	default:
		c.VisualMode = d.VisualMode
	}
	if c.MaxItems == 0 {
		c.MaxItems = d.MaxItems
	}
	if c.BurstThreshold <= 0 {
		c.BurstThreshold = d.BurstThreshold
	}
	if c.BurstWindow <= 0 {
		c.BurstWindow = d.BurstWindow
	}
	if c.UpdateInterval <= 0 {
		c.UpdateInterval = d.UpdateInterval
	}
	if c.BaselineCount <= 0 {
		c.BaselineCount = d.BaselineCount
	}
	if c.NewWindow <= 0 {
		c.NewWindow = d.NewWindow
	}
	if c.MaxEventsPerEntity == 0 {
		c.MaxEventsPerEntity = d.MaxEventsPerEntity
	}
	if c.AnnotationLimit <= 0 {
		c.AnnotationLimit = d.AnnotationLimit
	}
	if c.MinBarWidth <= 0 {
		c.MinBarWidth = d.MinBarWidth
	}
	if c.AxisSteps <= 0 {
		c.AxisSteps = d.AxisSteps
	}
	return c
}

// windowNames returns the configured window names, shortest span first.
func (c Config) windowNames() []string {
	names := slices.Collect(maps.Keys(c.TimeWindows))
	slices.SortFunc(names, func(a, b string) int {
		if n := cmp.Compare(c.TimeWindows[a], c.TimeWindows[b]); n != 0 {
			return n
		}
		return cmp.Compare(a, b)
	})
	return names
}

// longestWindow is the retention horizon: nothing older can be rendered.
func (c Config) longestWindow() time.Duration {
	var longest time.Duration
	for _, span := range c.TimeWindows {
		longest = max(longest, span)
	}
	return longest
}

func (c Config) storeConfig() entity.Config {
	return entity.Config{
		BurstThreshold:     c.BurstThreshold,
		BurstWindow:        c.BurstWindow,
		BaselineCount:      c.BaselineCount,
		NewWindow:          c.NewWindow,
		Retention:          c.longestWindow(),
		MaxEventsPerEntity: c.MaxEventsPerEntity,
		MaxItems:           c.MaxItems,
		LabelFunc:          c.LabelGenerator,
	}
}
