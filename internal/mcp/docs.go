package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `sigtrack tracks recurring observations (radio signals, devices, hosts) per dashboard panel.

Core concepts:
- Instance: one panel's engine, addressed by instance_id. list_instances shows them.
- Entity: something observed repeatedly, keyed by id. Each event has a timestamp, strength 1-5 and a duration.
- Status: flagged > burst > baseline > new, else the previous status. gone is set by mark_inactive and clears on the next event.
- Annotation: a short log line for notable moments (new entity, burst, cadence found, flag, gone, clear).

Typical workflow:
1) list_instances to pick a panel.
2) add_event / import_events to feed observations. Malformed strengths and durations are coerced, never rejected; only a missing id is an error.
3) get_stats for counts, get_snapshot for the rendered view, get_annotations for what changed.
4) toggle_flag to pin an entity (flagged entities are never evicted); mark_inactive when it goes silent.
5) export_data (archive=true to persist) before clear.

Docs:
- sigtrack://docs/classification
- sigtrack://docs/events
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "sigtrack://docs/classification",
		Name:        "docs_classification",
		Title:       "Status classification",
		Description: "How entity statuses, bursts, cadence patterns and eviction are decided.",
		Content: `# Status classification

Every recorded event reclassifies its entity, evaluated at the entity's newest timestamp:

1. flagged: the user flag is set. Sticky until toggled off.
2. burst: at least burst_threshold (default 5) events started within burst_window (default 1m).
3. baseline: lifetime event count reached baseline_count (default 20).
4. new: newest event is within new_window (default 5m) of first sight.
5. otherwise the previous status is kept.

mark_inactive sets gone until the next event. A flagged entity still reports flagged.

## Cadence

With at least 4 events, intervals within 10% of their mean are consistent. When 70% are
consistent and the mean is 1s to 1h, the entity gets a pattern such as "30s interval".
A pattern is never retracted.

## Eviction

When an instance holds more than max_items entities, unflagged entities are evicted
oldest last-seen first. Flagged entities are never evicted.
`,
	},
	{
		URI:         "sigtrack://docs/events",
		Name:        "docs_events",
		Title:       "Event format",
		Description: "Fields accepted by add_event and import_events and how they are coerced.",
		Content: `# Event format

| field     | accepted                                   | default      |
|-----------|--------------------------------------------|--------------|
| id        | non-empty string (required)                |              |
| timestamp | RFC 3339 string or epoch milliseconds      | server time  |
| strength  | number or numeric string, rounded to 1..5  | 3            |
| duration  | milliseconds or a Go duration like "2s"    | 1s           |
| label     | string                                     | generated    |
| type      | string                                     | unknown      |
| tags      | string array, merged into the entity       |              |
| metadata  | object, merged into the entity             |              |

Out-of-order timestamps are inserted in order. Events older than the longest
configured window behind the entity's newest event are discarded.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
