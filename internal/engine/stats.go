package engine

import "github.com/rpggio/sigtrack/internal/domain/entity"

// Stats counts an instance's entities by status.
type Stats struct {
	Total       int `json:"total"`
	New         int `json:"new"`
	Baseline    int `json:"baseline"`
	Burst       int `json:"burst"`
	Flagged     int `json:"flagged"`
	Gone        int `json:"gone"`
	WithPattern int `json:"with_pattern"`
}

func computeStats(entities []*entity.Entity) Stats {
	s := Stats{Total: len(entities)}
	for _, e := range entities {
		switch e.Status {
		case entity.StatusNew:
			s.New++
		case entity.StatusBaseline:
			s.Baseline++
		case entity.StatusBurst:
			s.Burst++
		case entity.StatusFlagged:
			s.Flagged++
		case entity.StatusGone:
			s.Gone++
		}
		if e.Pattern != "" {
			s.WithPattern++
		}
	}
	return s
}
