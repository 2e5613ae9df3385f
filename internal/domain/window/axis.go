package window

import "time"

const (
	DefaultAxisSteps = 6
	nowLabel         = "Now"
)

// AxisLabels returns steps evenly spaced time labels from windowStart to now.
// The final label is always "Now". Windows shorter than ten minutes are
// labeled with seconds.
func AxisLabels(windowStart, now time.Time, span time.Duration, steps int) []string {
	if steps <= 0 {
		steps = DefaultAxisSteps
	}
	if steps == 1 {
		return []string{nowLabel}
	}
	layout := "15:04"
	if span < 10*time.Minute {
		layout = "15:04:05"
	}
	total := now.Sub(windowStart)
	labels := make([]string, steps)
	for i := 0; i < steps-1; i++ {
		at := windowStart.Add(total * time.Duration(i) / time.Duration(steps-1))
		labels[i] = at.Format(layout)
	}
	labels[steps-1] = nowLabel
	return labels
}
