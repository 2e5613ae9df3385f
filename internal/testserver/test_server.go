// Package testserver runs the full HTTP stack (REST, MCP and streams) over
// an in-memory database for functional tests.
package testserver

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/sigtrack/internal/domain/activity"
	"github.com/rpggio/sigtrack/internal/domain/archive"
	"github.com/rpggio/sigtrack/internal/engine"
	"github.com/rpggio/sigtrack/internal/mcp"
	"github.com/rpggio/sigtrack/internal/sqlite"
	"github.com/rpggio/sigtrack/internal/transport"
	"github.com/stretchr/testify/require"
)

// T0 is the fixed engine clock of every test server.
var T0 = time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)

type TestServer struct {
	Server   *httptest.Server
	DB       *sqlite.DB
	Registry *engine.Registry
	Archiver *activity.Archiver
	Token    string

	mu      sync.Mutex
	tickers map[string]*engine.ManualTicker
}

// New starts a server requiring token and creates one instance per panel id.
func New(t *testing.T, token string, panels ...string) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	history := activity.NewService(sqlite.NewAnnotationRepository(db), nil)
	archiver := activity.NewArchiver(history, 0, nil)
	exports := archive.NewService(sqlite.NewExportRepository(db), nil)

	ts := &TestServer{
		DB:       db,
		Archiver: archiver,
		Token:    token,
		tickers:  make(map[string]*engine.ManualTicker),
	}

	var pending *engine.ManualTicker
	ts.Registry = engine.NewRegistry(engine.DefaultConfig(), nil,
		engine.WithTickerFactory(func() engine.Ticker {
			pending = engine.NewManualTicker()
			return pending
		}),
		engine.WithInstanceOptions(
			engine.WithClock(func() time.Time { return T0 }),
			engine.WithAnnotationSink(archiver.Submit),
		),
	)
	for _, id := range panels {
		_, err := ts.Registry.Create(id, engine.Config{})
		require.NoError(t, err)
		ts.tickers[id] = pending
	}

	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{Registry: ts.Registry, Exports: exports, History: history},
	})
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{SessionTimeout: time.Minute},
	)

	ts.Server = httptest.NewServer(transport.NewServer(transport.Deps{
		Registry: ts.Registry,
		Exports:  exports,
		History:  history,
		MCP:      mcpHandler,
	}, transport.AuthMiddleware(transport.StaticToken(token))))

	t.Cleanup(func() {
		ts.Server.Close()
		ts.Registry.DestroyAll()
		archiver.Close()
		_ = db.Close()
	})

	return ts
}

// Ticker returns the manual ticker driving a panel created by New.
func (ts *TestServer) Ticker(id string) *engine.ManualTicker {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.tickers[id]
}

// Client returns an HTTP client that sends the bearer token.
func (ts *TestServer) Client() *http.Client {
	return &http.Client{Transport: bearerTransport{token: ts.Token, next: http.DefaultTransport}}
}

type bearerTransport struct {
	token string
	next  http.RoundTripper
}

func (b bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+b.token)
	return b.next.RoundTrip(req)
}
