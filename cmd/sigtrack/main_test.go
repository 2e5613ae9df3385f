package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rpggio/sigtrack/internal/domain/activity"
	"github.com/rpggio/sigtrack/internal/engine"
	"github.com/rpggio/sigtrack/internal/sqlite"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	require.Equal(t, slog.LevelWarn, parseLogLevel("WARN"))
	require.Equal(t, slog.LevelError, parseLogLevel("error"))
	require.Equal(t, slog.LevelInfo, parseLogLevel(""))
	require.Equal(t, slog.LevelInfo, parseLogLevel("verbose"))
}

func TestLogFileWriter_KeepsTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "sigtrack.log")
	w, err := newLogFileWriter(path)
	require.NoError(t, err)
	defer w.file.Close()
	w.maxSize = 64
	w.keep = 16

	_, err = w.Write([]byte(strings.Repeat("a", 60)))
	require.NoError(t, err)
	_, err = w.Write([]byte("0123456789abcdef"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "0123456789abcdef", string(data))

	_, err = w.Write([]byte("!"))
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "0123456789abcdef!", string(data))
}

func TestEnsureDir(t *testing.T) {
	require.NoError(t, ensureDir(":memory:"))
	require.NoError(t, ensureDir("local.db"))

	path := filepath.Join(t.TempDir(), "a", "b", "sigtrack.db")
	require.NoError(t, ensureDir(path))
	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestReadEvents(t *testing.T) {
	t.Run("array", func(t *testing.T) {
		inputs, err := readEvents(strings.NewReader(`[{"id":"a"},{"id":"b"}]`))
		require.NoError(t, err)
		require.Len(t, inputs, 2)
	})
	t.Run("ndjson", func(t *testing.T) {
		inputs, err := readEvents(strings.NewReader("{\"id\":\"a\"}\n\n{\"id\":\"b\",\"strength\":\"4\"}\n"))
		require.NoError(t, err)
		require.Len(t, inputs, 2)
		require.NotNil(t, inputs[1].Record().Strength)
		require.Equal(t, 4.0, *inputs[1].Record().Strength)
	})
	t.Run("bad line", func(t *testing.T) {
		_, err := readEvents(strings.NewReader("{\"id\":\"a\"}\nnot json\n"))
		require.ErrorContains(t, err, "line 2")
	})
	t.Run("empty", func(t *testing.T) {
		_, err := readEvents(strings.NewReader("\n\n"))
		require.Error(t, err)
	})
}

const replayFile = `{"id":"433.92","timestamp":"2026-01-02T15:00:00Z"}
{"id":"433.92","timestamp":"2026-01-02T15:00:02Z"}
{"id":"433.92","timestamp":"2026-01-02T15:00:04Z"}
{"id":"433.92","timestamp":"2026-01-02T15:00:06Z"}
{"id":"433.92","timestamp":"2026-01-02T15:00:08Z"}
{"strength":5}
`

func TestReplay_Stats(t *testing.T) {
	inputs, err := readEvents(strings.NewReader(replayFile))
	require.NoError(t, err)

	var out bytes.Buffer
	err = replay(context.Background(), engine.DefaultConfig(), inputs, replayOptions{window: "5m"}, &out, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	var report replayReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	require.True(t, strings.HasPrefix(report.InstanceID, "replay-"))
	require.Equal(t, 5, report.Imported)
	require.Equal(t, 1, report.Rejected)
	require.Equal(t, "5m", report.Window)
	require.Equal(t, engine.Stats{Total: 1, Burst: 1, WithPattern: 1}, report.Stats)
	require.Empty(t, report.ArchivedID)
	require.NotEmpty(t, report.Recent)
}

func TestReplay_UnknownWindow(t *testing.T) {
	err := replay(context.Background(), engine.DefaultConfig(), nil, replayOptions{window: "1y"}, &bytes.Buffer{}, slog.New(slog.DiscardHandler))
	require.ErrorContains(t, err, "unknown window")
}

func TestReplay_ExportAndArchive(t *testing.T) {
	inputs, err := readEvents(strings.NewReader(replayFile))
	require.NoError(t, err)
	dbPath := filepath.Join(t.TempDir(), "data", "replay.db")

	var out bytes.Buffer
	opts := replayOptions{export: true, archive: true, dbPath: dbPath}
	require.NoError(t, replay(context.Background(), engine.DefaultConfig(), inputs, opts, &out, slog.New(slog.DiscardHandler)))

	var exp engine.Export
	require.NoError(t, json.Unmarshal(out.Bytes(), &exp))
	require.Len(t, exp.Entities, 1)
	require.Equal(t, int64(5), exp.Entities[0].EventCount)

	db, err := sqlite.New(dbPath)
	require.NoError(t, err)
	defer db.Close()

	notes, err := sqlite.NewAnnotationRepository(db).List(context.Background(), activity.ListOptions{})
	require.NoError(t, err)
	require.Len(t, notes, 3)
	instanceID := notes[0].InstanceID
	require.True(t, strings.HasPrefix(instanceID, "replay-"))

	exports, err := sqlite.NewExportRepository(db).List(context.Background(), instanceID, 10)
	require.NoError(t, err)
	require.Len(t, exports, 1)
	require.Equal(t, 1, exports[0].EntityCount)
}
