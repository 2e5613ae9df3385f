package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/sigtrack/internal/domain/activity"
	"github.com/rpggio/sigtrack/internal/domain/archive"
	"github.com/rpggio/sigtrack/internal/engine"
)

type toolHandler func(ctx context.Context, args json.RawMessage) (any, error)

type toolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
	Handle      toolHandler
}

var (
	instanceIDProp = map[string]any{
		"type":        "string",
		"description": "Engine instance (dashboard panel) id",
	}
	entityIDProp = map[string]any{
		"type":        "string",
		"description": "Tracked entity id",
	}
	eventProps = map[string]any{
		"id":        map[string]any{"type": "string", "description": "Entity id the event belongs to"},
		"timestamp": map[string]any{"description": "RFC 3339 time or epoch milliseconds (default: now)"},
		"strength":  map[string]any{"description": "Signal strength 1-5 (default 3)"},
		"duration":  map[string]any{"description": "Milliseconds or a duration like \"2s\" (default 1s)"},
		"label":     map[string]any{"type": "string", "description": "Display label"},
		"type":      map[string]any{"type": "string", "description": "Category, e.g. rf or wifi"},
		"tags":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"metadata":  map[string]any{"type": "object"},
	}
)

func objectSchema(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func withInstance(props map[string]any) map[string]any {
	out := map[string]any{"instance_id": instanceIDProp}
	for k, v := range props {
		out[k] = v
	}
	return out
}

// buildToolCatalog returns all available MCP tools
func buildToolCatalog(svc Services) []toolDefinition {
	t := &tools{svc: svc}
	return []toolDefinition{
		{
			Name:        "list_instances",
			Description: "List running engine instances with their active window and status counts",
			InputSchema: objectSchema(map[string]any{}),
			Handle:      t.listInstances,
		},
		{
			Name:        "add_event",
			Description: "Record one event for an entity; returns the updated entity",
			InputSchema: objectSchema(withInstance(eventProps), "instance_id", "id"),
			Handle:      t.addEvent,
		},
		{
			Name:        "import_events",
			Description: "Record a batch of events in order; events without an id are counted as rejected",
			InputSchema: objectSchema(withInstance(map[string]any{
				"events": map[string]any{
					"type":  "array",
					"items": objectSchema(eventProps),
				},
			}), "instance_id", "events"),
			Handle: t.importEvents,
		},
		{
			Name:        "toggle_flag",
			Description: "Flag or unflag an entity; flagged entities are never evicted",
			InputSchema: objectSchema(withInstance(map[string]any{"entity_id": entityIDProp}), "instance_id", "entity_id"),
			Handle:      t.toggleFlag,
		},
		{
			Name:        "mark_inactive",
			Description: "Mark an entity gone until its next event",
			InputSchema: objectSchema(withInstance(map[string]any{"entity_id": entityIDProp}), "instance_id", "entity_id"),
			Handle:      t.markInactive,
		},
		{
			Name:        "clear",
			Description: "Remove every entity from an instance",
			InputSchema: objectSchema(withInstance(map[string]any{}), "instance_id"),
			Handle:      t.clear,
		},
		{
			Name:        "set_time_window",
			Description: "Switch the active time window; unknown names are ignored",
			InputSchema: objectSchema(withInstance(map[string]any{
				"window": map[string]any{"type": "string", "description": "Configured window name, e.g. 5m or 1h"},
			}), "instance_id", "window"),
			Handle: t.setTimeWindow,
		},
		{
			Name:        "set_filter",
			Description: "Enable or disable a configured view filter; unknown names are ignored",
			InputSchema: objectSchema(withInstance(map[string]any{
				"filter": map[string]any{
					"type": "string",
					"enum": []string{
						engine.FilterHideBaseline, engine.FilterHideGone, engine.FilterOnlyNew,
						engine.FilterOnlyBurst, engine.FilterOnlyFlagged, engine.FilterOnlyPatterns,
					},
				},
				"enabled": map[string]any{"type": "boolean"},
			}), "instance_id", "filter", "enabled"),
			Handle: t.setFilter,
		},
		{
			Name:        "get_stats",
			Description: "Count entities by status",
			InputSchema: objectSchema(withInstance(map[string]any{}), "instance_id"),
			Handle:      t.getStats,
		},
		{
			Name:        "get_snapshot",
			Description: "Get the rendered view: lanes, bars with geometry, axis labels, stats and recent annotations",
			InputSchema: objectSchema(withInstance(map[string]any{}), "instance_id"),
			Handle:      t.getSnapshot,
		},
		{
			Name:        "export_data",
			Description: "Export every entity and the annotation log; optionally archive the export",
			InputSchema: objectSchema(withInstance(map[string]any{
				"archive": map[string]any{"type": "boolean", "description": "Persist the export and return its id"},
			}), "instance_id"),
			Handle: t.exportData,
		},
		{
			Name:        "get_annotations",
			Description: "List recent annotations, newest first, from memory or the archive",
			InputSchema: objectSchema(withInstance(map[string]any{
				"limit":     map[string]any{"type": "integer", "description": "Maximum number of results"},
				"source":    map[string]any{"type": "string", "enum": []string{"memory", "archive"}},
				"entity_id": entityIDProp,
			}), "instance_id"),
			Handle: t.getAnnotations,
		},
	}
}

func registerTools(server *sdkmcp.Server, svc Services) {
	for _, def := range buildToolCatalog(svc) {
		server.AddTool(&sdkmcp.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		}, wrapHandler(def.Handle))
	}
}

func wrapHandler(handle toolHandler) sdkmcp.ToolHandler {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
		var args json.RawMessage
		if req != nil && req.Params != nil {
			args = req.Params.Arguments
		}
		result, err := handle(ctx, args)
		if err != nil {
			return errorResult(MapError(err)), nil
		}
		data, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("encoding tool result: %w", err)
		}
		return &sdkmcp.CallToolResult{
			Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
		}, nil
	}
}

func errorResult(apiErr *APIError) *sdkmcp.CallToolResult {
	data, _ := json.Marshal(apiErr)
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}
}

func decodeArgs(args json.RawMessage, v any) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidArguments, err)
	}
	return nil
}

type tools struct {
	svc Services
}

type instanceArgs struct {
	InstanceID string `json:"instance_id"`
}

type entityArgs struct {
	InstanceID string `json:"instance_id"`
	EntityID   string `json:"entity_id"`
}

type addEventArgs struct {
	InstanceID string `json:"instance_id"`
	engine.EventInput
}

type importEventsArgs struct {
	InstanceID string              `json:"instance_id"`
	Events     []engine.EventInput `json:"events"`
}

type setWindowArgs struct {
	InstanceID string `json:"instance_id"`
	Window     string `json:"window"`
}

type setFilterArgs struct {
	InstanceID string `json:"instance_id"`
	Filter     string `json:"filter"`
	Enabled    bool   `json:"enabled"`
}

type exportArgs struct {
	InstanceID string `json:"instance_id"`
	Archive    bool   `json:"archive"`
}

type annotationArgs struct {
	InstanceID string `json:"instance_id"`
	Limit      int    `json:"limit"`
	Source     string `json:"source"`
	EntityID   string `json:"entity_id"`
}

// InstanceSummary is one entry of list_instances.
type InstanceSummary struct {
	ID     string       `json:"id"`
	Window string       `json:"window"`
	Stats  engine.Stats `json:"stats"`
}

// SettingResult reports whether a configuration call was applied.
type SettingResult struct {
	Applied bool            `json:"applied"`
	Window  string          `json:"window,omitempty"`
	Filters map[string]bool `json:"filters,omitempty"`
}

// ExportResult wraps an export with its archive id when persisted.
type ExportResult struct {
	Export     engine.Export `json:"export"`
	ArchivedID string        `json:"archived_id,omitempty"`
}

func (t *tools) instance(id string) (*engine.Instance, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: instance_id is required", errInvalidArguments)
	}
	return t.svc.Registry.Get(id)
}

func (t *tools) listInstances(_ context.Context, _ json.RawMessage) (any, error) {
	ids := t.svc.Registry.List()
	out := make([]InstanceSummary, 0, len(ids))
	for _, id := range ids {
		inst, err := t.svc.Registry.Get(id)
		if err != nil {
			continue
		}
		window, _ := inst.TimeWindow()
		out = append(out, InstanceSummary{ID: id, Window: window, Stats: inst.Stats()})
	}
	return map[string]any{"instances": out}, nil
}

func (t *tools) addEvent(_ context.Context, raw json.RawMessage) (any, error) {
	var args addEventArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	inst, err := t.instance(args.InstanceID)
	if err != nil {
		return nil, err
	}
	rec := args.EventInput.Record()
	e, err := inst.AddEvent(rec.ID, rec.Observation)
	if err != nil {
		return nil, err
	}
	return engine.ExportEntityFrom(e), nil
}

func (t *tools) importEvents(_ context.Context, raw json.RawMessage) (any, error) {
	var args importEventsArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	inst, err := t.instance(args.InstanceID)
	if err != nil {
		return nil, err
	}
	return inst.ImportEvents(engine.Records(args.Events))
}

func (t *tools) toggleFlag(_ context.Context, raw json.RawMessage) (any, error) {
	var args entityArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	inst, err := t.instance(args.InstanceID)
	if err != nil {
		return nil, err
	}
	e, err := inst.ToggleFlag(args.EntityID)
	if err != nil {
		return nil, err
	}
	return engine.ExportEntityFrom(e), nil
}

func (t *tools) markInactive(_ context.Context, raw json.RawMessage) (any, error) {
	var args entityArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	inst, err := t.instance(args.InstanceID)
	if err != nil {
		return nil, err
	}
	e, err := inst.MarkInactive(args.EntityID)
	if err != nil {
		return nil, err
	}
	return engine.ExportEntityFrom(e), nil
}

func (t *tools) clear(_ context.Context, raw json.RawMessage) (any, error) {
	var args instanceArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	inst, err := t.instance(args.InstanceID)
	if err != nil {
		return nil, err
	}
	if err := inst.Clear(); err != nil {
		return nil, err
	}
	return inst.Stats(), nil
}

func (t *tools) setTimeWindow(_ context.Context, raw json.RawMessage) (any, error) {
	var args setWindowArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	inst, err := t.instance(args.InstanceID)
	if err != nil {
		return nil, err
	}
	applied := inst.SetTimeWindow(args.Window)
	window, _ := inst.TimeWindow()
	return SettingResult{Applied: applied, Window: window}, nil
}

func (t *tools) setFilter(_ context.Context, raw json.RawMessage) (any, error) {
	var args setFilterArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	inst, err := t.instance(args.InstanceID)
	if err != nil {
		return nil, err
	}
	applied := inst.SetFilter(args.Filter, args.Enabled)
	return SettingResult{Applied: applied, Filters: inst.Filters()}, nil
}

func (t *tools) getStats(_ context.Context, raw json.RawMessage) (any, error) {
	var args instanceArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	inst, err := t.instance(args.InstanceID)
	if err != nil {
		return nil, err
	}
	return inst.Stats(), nil
}

func (t *tools) getSnapshot(_ context.Context, raw json.RawMessage) (any, error) {
	var args instanceArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	inst, err := t.instance(args.InstanceID)
	if err != nil {
		return nil, err
	}
	return inst.Snapshot(), nil
}

func (t *tools) exportData(ctx context.Context, raw json.RawMessage) (any, error) {
	var args exportArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	inst, err := t.instance(args.InstanceID)
	if err != nil {
		return nil, err
	}
	exp := inst.Export()
	res := ExportResult{Export: exp}
	if !args.Archive {
		return res, nil
	}
	if t.svc.Exports == nil {
		return nil, errArchiveDisabled
	}
	rec, err := t.svc.Exports.Save(ctx, archive.SaveRequest{
		InstanceID:  inst.ID(),
		Window:      exp.Window,
		EntityCount: len(exp.Entities),
		Payload:     exp,
	})
	if err != nil {
		return nil, err
	}
	res.ArchivedID = rec.ID
	return res, nil
}

func (t *tools) getAnnotations(ctx context.Context, raw json.RawMessage) (any, error) {
	var args annotationArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	inst, err := t.instance(args.InstanceID)
	if err != nil {
		return nil, err
	}
	if args.Source != "archive" {
		notes := inst.Annotations(0)
		out := make([]activity.Annotation, 0, len(notes))
		for _, a := range notes {
			if args.EntityID != "" && a.EntityID != args.EntityID {
				continue
			}
			out = append(out, a)
			if args.Limit > 0 && len(out) == args.Limit {
				break
			}
		}
		return out, nil
	}
	if t.svc.History == nil {
		return nil, errArchiveDisabled
	}
	opts := activity.ListOptions{InstanceID: inst.ID(), Limit: args.Limit}
	if args.EntityID != "" {
		opts.EntityID = &args.EntityID
	}
	history, err := t.svc.History.History(ctx, opts)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []activity.Annotation{}
	}
	return history, nil
}
