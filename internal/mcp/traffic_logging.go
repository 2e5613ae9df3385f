package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Snapshots and exports get large; debug payloads are cut at this size.
const maxLoggedPayload = 2048

// trafficLoggingMiddleware logs every inbound tool call at info level with
// its latency and outcome. At debug level it also dumps each message.
func trafficLoggingMiddleware(logger *slog.Logger, direction string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if logger == nil {
				return next(ctx, method, req)
			}
			debug := logger.Enabled(ctx, slog.LevelDebug)
			sessionID := safeSessionID(req)
			if debug {
				logger.Debug("mcp traffic", "direction", direction, "stage", "request", "method", method,
					"session_id", sessionID, "params", formatPayload(safeParams(req)))
			}

			start := time.Now()
			result, err := next(ctx, method, req)

			if direction == "inbound" && method == "tools/call" {
				logToolCall(logger, sessionID, safeParams(req), result, err, time.Since(start))
			}
			if debug && !strings.HasPrefix(method, "notifications/") {
				if err != nil {
					logger.Debug("mcp traffic", "direction", direction, "stage", "response", "method", method, "session_id", sessionID, "error", err)
				} else {
					logger.Debug("mcp traffic", "direction", direction, "stage", "response", "method", method, "session_id", sessionID, "result", formatPayload(result))
				}
			}
			return result, err
		}
	}
}

func logToolCall(logger *slog.Logger, sessionID string, params any, result sdkmcp.Result, err error, elapsed time.Duration) {
	attrs := []any{"session_id", sessionID, "elapsed", elapsed}
	if p, ok := params.(*sdkmcp.CallToolParamsRaw); ok && p != nil {
		attrs = append(attrs, "tool", p.Name)
		var target struct {
			InstanceID string `json:"instance_id"`
		}
		if json.Unmarshal(p.Arguments, &target) == nil && target.InstanceID != "" {
			attrs = append(attrs, "instance_id", target.InstanceID)
		}
	}
	if err != nil {
		logger.Warn("mcp tool call failed", append(attrs, "error", err)...)
		return
	}
	if res, ok := result.(*sdkmcp.CallToolResult); ok && res.IsError {
		logger.Info("mcp tool call rejected", append(attrs, "code", toolErrorCode(res))...)
		return
	}
	logger.Info("mcp tool call", attrs...)
}

func toolErrorCode(res *sdkmcp.CallToolResult) string {
	if len(res.Content) == 0 {
		return ""
	}
	text, ok := res.Content[0].(*sdkmcp.TextContent)
	if !ok {
		return ""
	}
	var apiErr APIError
	if json.Unmarshal([]byte(text.Text), &apiErr) != nil {
		return ""
	}
	return apiErr.Code
}

func safeSessionID(req sdkmcp.Request) (id string) {
	if req == nil {
		return ""
	}
	defer func() {
		if recover() != nil {
			id = ""
		}
	}()
	session := req.GetSession()
	if session == nil {
		return ""
	}
	return session.ID()
}

func safeParams(req sdkmcp.Request) (params any) {
	if req == nil {
		return nil
	}
	defer func() {
		if recover() != nil {
			params = nil
		}
	}()
	return req.GetParams()
}

func formatPayload(payload any) string {
	if payload == nil {
		return "<nil>"
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%T", payload)
	}
	if len(data) > maxLoggedPayload {
		return fmt.Sprintf("%s... (%d bytes)", data[:maxLoggedPayload], len(data))
	}
	return string(data)
}
