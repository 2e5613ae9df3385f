package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/sigtrack/internal/config"
	"github.com/rpggio/sigtrack/internal/domain/activity"
	"github.com/rpggio/sigtrack/internal/domain/archive"
	"github.com/rpggio/sigtrack/internal/engine"
	"github.com/rpggio/sigtrack/internal/mcp"
	"github.com/rpggio/sigtrack/internal/sqlite"
	"github.com/rpggio/sigtrack/internal/transport"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	stdio := cfg.Transport.Mode == config.TransportStdio
	logger, closeLog, err := newLogger(cfg.Log.Level, cfg.Log.Path, stdio)
	if err != nil {
		return fmt.Errorf("log file: %w", err)
	}
	defer closeLog()

	app, err := newApp(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if stdio {
		return app.runStdio(ctx)
	}
	return app.runHTTP(ctx, cfg.Server, cfg.Auth)
}

// app holds the long-lived pieces shared by both transports.
type app struct {
	logger   *slog.Logger
	db       *sqlite.DB
	archiver *activity.Archiver
	registry *engine.Registry
	history  *activity.Service
	exports  *archive.Service
	mcp      *sdkmcp.Server
}

func newApp(cfg config.Config, logger *slog.Logger) (*app, error) {
	if err := ensureDir(cfg.DB.Path); err != nil {
		return nil, fmt.Errorf("prepare database path: %w", err)
	}
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	history := activity.NewService(sqlite.NewAnnotationRepository(db), logger)
	archiver := activity.NewArchiver(history, 0, logger)
	exports := archive.NewService(sqlite.NewExportRepository(db), logger)

	registry := engine.NewRegistry(cfg.Engine, logger,
		engine.WithInstanceOptions(engine.WithAnnotationSink(archiver.Submit)))
	for _, panel := range cfg.Panels {
		if _, err := registry.Create(panel.ID, panel.Config); err != nil {
			registry.DestroyAll()
			archiver.Close()
			db.Close()
			return nil, fmt.Errorf("create panel %q: %w", panel.ID, err)
		}
		logger.Info("panel started", "id", panel.ID)
	}

	a := &app{
		logger:   logger,
		db:       db,
		archiver: archiver,
		registry: registry,
		history:  history,
		exports:  exports,
	}
	a.mcp = mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Registry: registry,
			Exports:  exports,
			History:  history,
		},
		Version: version,
		Logger:  logger,
	})
	return a, nil
}

// Close stops every instance, flushes pending annotations and closes the
// database, in that order.
func (a *app) Close() {
	a.registry.DestroyAll()
	a.archiver.Close()
	if err := a.db.Close(); err != nil {
		a.logger.Error("close database", "error", err)
	}
}

func (a *app) runStdio(ctx context.Context) error {
	a.logger.Info("starting stdio transport", "auth", "disabled")
	if err := a.mcp.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server: %w", err)
	}
	a.logger.Info("shutting down")
	return nil
}

func (a *app) runHTTP(ctx context.Context, server config.ServerConfig, auth config.AuthConfig) error {
	addr := net.JoinHostPort(server.Host, strconv.Itoa(server.Port))
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return a.mcp },
		&sdkmcp.StreamableHTTPOptions{SessionTimeout: 30 * time.Minute},
	)

	var authMiddleware func(http.Handler) http.Handler
	if auth.Enabled {
		authMiddleware = transport.AuthMiddleware(transport.StaticToken(auth.Token))
	}
	router := transport.NewServer(transport.Deps{
		Registry: a.registry,
		Exports:  a.exports,
		History:  a.history,
		MCP:      mcpHandler,
		Logger:   a.logger,

		OriginPatterns: server.AllowedOrigins,
	}, authMiddleware)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("server listening", "addr", addr, "auth", auth.Enabled)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
