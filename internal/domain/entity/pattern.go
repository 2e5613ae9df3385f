package entity

import (
	"fmt"
	"math"
)

const (
	minPatternEvents   = 4
	minPatternInterval = 3
	patternTolerance   = 0.10
	patternConsistency = 0.70
	minPatternSeconds  = 1
	maxPatternSeconds  = 3600
)

// DetectPattern looks for a regular cadence in timestamp-sorted events and
// renders it as e.g. "30s interval" or "5m interval". It reports false when
// there are too few events or the intervals are not regular enough.
func DetectPattern(events []Event) (string, bool) {
	if len(events) < minPatternEvents {
		return "", false
	}
	intervals := make([]float64, 0, len(events)-1)
	sum := 0.0
	for i := 1; i < len(events); i++ {
		ms := float64(events[i].Timestamp.Sub(events[i-1].Timestamp).Milliseconds())
		intervals = append(intervals, ms)
		sum += ms
	}
	if len(intervals) < minPatternInterval {
		return "", false
	}

	avg := sum / float64(len(intervals))
	tolerance := patternTolerance * avg
	consistent := 0
	for _, iv := range intervals {
		if math.Abs(iv-avg) <= tolerance {
			consistent++
		}
	}
	if float64(consistent)/float64(len(intervals)) < patternConsistency {
		return "", false
	}

	seconds := int(math.Round(avg / 1000))
	if seconds < minPatternSeconds || seconds > maxPatternSeconds {
		return "", false
	}
	if seconds < 60 {
		return fmt.Sprintf("%ds interval", seconds), true
	}
	return fmt.Sprintf("%dm interval", int(math.Round(float64(seconds)/60))), true
}
