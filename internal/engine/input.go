package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rpggio/sigtrack/internal/domain/entity"
)

// EventInput is the loosely typed wire form of one event, shared by the
// HTTP API, MCP tools and file replay. Malformed values are coerced rather
// than rejected: see Record.
type EventInput struct {
	ID        string         `json:"id"`
	Timestamp any            `json:"timestamp,omitempty"`
	Strength  any            `json:"strength,omitempty"`
	Duration  any            `json:"duration,omitempty"`
	Label     string         `json:"label,omitempty"`
	Type      string         `json:"type,omitempty"`
	Tags      []string       `json:"tags,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Record converts the input. Timestamps may be RFC 3339 strings or epoch
// milliseconds; durations may be milliseconds or Go duration strings;
// strengths may be numbers or numeric strings. Anything unparseable is
// dropped so the engine default applies.
func (in EventInput) Record() Record {
	obs := entity.Observation{
		Label:    in.Label,
		Type:     in.Type,
		Tags:     in.Tags,
		Metadata: in.Metadata,
	}
	if ts, ok := parseTimestamp(in.Timestamp); ok {
		obs.Timestamp = ts
	}
	if v, ok := parseNumber(in.Strength); ok {
		obs.Strength = &v
	}
	if d, ok := parseDuration(in.Duration); ok {
		obs.Duration = &d
	}
	return Record{ID: strings.TrimSpace(in.ID), Observation: obs}
}

// DecodeEvents accepts either a single event object or an array of them.
func DecodeEvents(data []byte) ([]EventInput, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty event payload")
	}
	if data[0] == '[' {
		var events []EventInput
		if err := json.Unmarshal(data, &events); err != nil {
			return nil, fmt.Errorf("decoding events: %w", err)
		}
		return events, nil
	}
	var ev EventInput
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("decoding event: %w", err)
	}
	return []EventInput{ev}, nil
}

// Records converts a batch of inputs.
func Records(inputs []EventInput) []Record {
	records := make([]Record, len(inputs))
	for i, in := range inputs {
		records[i] = in.Record()
	}
	return records
}

func parseTimestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return ts, true
		}
		if ms, err := strconv.ParseFloat(s, 64); err == nil {
			return fromEpochMillis(ms)
		}
	case float64:
		return fromEpochMillis(t)
	case json.Number:
		if ms, err := t.Float64(); err == nil {
			return fromEpochMillis(ms)
		}
	case time.Time:
		return t, !t.IsZero()
	}
	return time.Time{}, false
}

func fromEpochMillis(ms float64) (time.Time, bool) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)).UTC(), true
}

func parseNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func parseDuration(v any) (time.Duration, bool) {
	if s, ok := v.(string); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	ms, ok := parseNumber(v)
	if !ok || math.IsNaN(ms) || math.IsInf(ms, 0) {
		return 0, false
	}
	return time.Duration(ms * float64(time.Millisecond)), true
}
