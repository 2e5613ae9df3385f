package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/sigtrack/internal/domain/activity"
	"github.com/rpggio/sigtrack/internal/domain/archive"
	"github.com/rpggio/sigtrack/internal/engine"
)

// Registry resolves engine instances for tool calls.
type Registry interface {
	Get(id string) (*engine.Instance, error)
	List() []string
}

// ExportArchive persists exports on request.
type ExportArchive interface {
	Save(ctx context.Context, req archive.SaveRequest) (*archive.ExportRecord, error)
}

// AnnotationHistory reads archived annotations.
type AnnotationHistory interface {
	History(ctx context.Context, opts activity.ListOptions) ([]activity.Annotation, error)
}

// Services contains everything the tools call into. Exports and History
// may be nil.
type Services struct {
	Registry Registry
	Exports  ExportArchive
	History  AnnotationHistory
}

// Config contains server configuration.
type Config struct {
	Services Services
	Version  string
	Logger   *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "sigtrack",
		Version: cfg.Version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, cfg.Services)

	return server
}
