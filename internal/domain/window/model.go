package window

import "time"

// BarStatus describes how busy a merged bar is.
type BarStatus string

const (
	BarNew      BarStatus = "new"
	BarRepeated BarStatus = "repeated"
	BarBurst    BarStatus = "burst"
)

// Bar is a rendering-time merge of nearby events into one span.
type Bar struct {
	Start       time.Time
	End         time.Time
	MaxStrength int
	Count       int
	Status      BarStatus
}

// Geometry is a bar's horizontal placement in percent of the window width.
type Geometry struct {
	Left  float64 `json:"left"`
	Width float64 `json:"width"`
}
