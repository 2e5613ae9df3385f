package engine

import "github.com/rpggio/sigtrack/internal/domain/entity"

const (
	FilterHideBaseline = "hide_baseline"
	FilterHideGone     = "hide_gone"
	FilterOnlyNew      = "only_new"
	FilterOnlyBurst    = "only_burst"
	FilterOnlyFlagged  = "only_flagged"
	FilterOnlyPatterns = "only_patterns"
)

type filterKind int

const (
	hideMatching filterKind = iota
	onlyMatching
)

type filter struct {
	kind  filterKind
	match func(e *entity.Entity) bool
}

func statusIs(s entity.Status) func(*entity.Entity) bool {
	return func(e *entity.Entity) bool { return e.Status == s }
}

var knownFilters = map[string]filter{
	FilterHideBaseline: {hideMatching, statusIs(entity.StatusBaseline)},
	FilterHideGone:     {hideMatching, statusIs(entity.StatusGone)},
	FilterOnlyNew:      {onlyMatching, statusIs(entity.StatusNew)},
	FilterOnlyBurst:    {onlyMatching, statusIs(entity.StatusBurst)},
	FilterOnlyFlagged:  {onlyMatching, func(e *entity.Entity) bool { return e.Flagged }},
	FilterOnlyPatterns: {onlyMatching, func(e *entity.Entity) bool { return e.Pattern != "" }},
}

// DefaultFilters returns every built-in filter, all disabled.
func DefaultFilters() map[string]bool {
	filters := make(map[string]bool, len(knownFilters))
	for name := range knownFilters {
		filters[name] = false
	}
	return filters
}

// visible applies the enabled filters: hide filters exclude matches, and
// when any only-filter is enabled the entity must match at least one.
func visible(e *entity.Entity, enabled map[string]bool) bool {
	anyOnly, matchedOnly := false, false
	for name, on := range enabled {
		if !on {
			continue
		}
		f, ok := knownFilters[name]
		if !ok {
			continue
		}
		switch f.kind {
		case hideMatching:
			if f.match(e) {
				return false
			}
		case onlyMatching:
			anyOnly = true
			if f.match(e) {
				matchedOnly = true
			}
		}
	}
	return !anyOnly || matchedOnly
}
