package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/rpggio/sigtrack/internal/config"
	"github.com/rpggio/sigtrack/internal/domain/activity"
	"github.com/rpggio/sigtrack/internal/domain/archive"
	"github.com/rpggio/sigtrack/internal/engine"
	"github.com/rpggio/sigtrack/internal/sqlite"
	"github.com/spf13/cobra"
)

var (
	replayExport  bool
	replayArchive bool
	replayWindow  string
)

// replayReport is printed when --export is not set.
type replayReport struct {
	InstanceID string                `json:"instance_id"`
	Imported   int                   `json:"imported"`
	Rejected   int                   `json:"rejected"`
	Window     string                `json:"window"`
	Stats      engine.Stats          `json:"stats"`
	ArchivedID string                `json:"archived_id,omitempty"`
	Recent     []activity.Annotation `json:"recent_annotations"`
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger, closeLog, err := newLogger(cfg.Log.Level, cfg.Log.Path, true)
	if err != nil {
		return fmt.Errorf("log file: %w", err)
	}
	defer closeLog()

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	inputs, err := readEvents(f)
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	opts := replayOptions{
		window:  replayWindow,
		export:  replayExport,
		archive: replayArchive,
		dbPath:  cfg.DB.Path,
	}
	return replay(cmd.Context(), cfg.Engine, inputs, opts, cmd.OutOrStdout(), logger)
}

type replayOptions struct {
	window  string
	export  bool
	archive bool
	dbPath  string
}

// replay imports inputs into a throwaway instance and writes the stats, or
// the export, as indented JSON to out.
func replay(ctx context.Context, cfg engine.Config, inputs []engine.EventInput, opts replayOptions, out io.Writer, logger *slog.Logger) error {
	instOpts := []engine.Option{
		engine.WithTicker(engine.NewManualTicker()),
		engine.WithLogger(logger),
	}

	var (
		history  *activity.Service
		archiver *activity.Archiver
		exports  *archive.Service
	)
	if opts.archive {
		if err := ensureDir(opts.dbPath); err != nil {
			return fmt.Errorf("prepare database path: %w", err)
		}
		db, err := sqlite.New(opts.dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		if err := db.RunMigrations(); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		history = activity.NewService(sqlite.NewAnnotationRepository(db), logger)
		// Room for several annotations per event.
		archiver = activity.NewArchiver(history, 3*len(inputs)+16, logger)
		defer archiver.Close()
		exports = archive.NewService(sqlite.NewExportRepository(db), logger)
		instOpts = append(instOpts, engine.WithAnnotationSink(archiver.Submit))
	}

	id := "replay-" + uuid.NewString()[:8]
	inst, err := engine.NewInstance(id, cfg, instOpts...)
	if err != nil {
		return err
	}
	defer inst.Destroy()

	if opts.window != "" && !inst.SetTimeWindow(opts.window) {
		return fmt.Errorf("unknown window %q (have %v)", opts.window, inst.TimeWindows())
	}

	res, err := inst.ImportEvents(engine.Records(inputs))
	if err != nil {
		return err
	}
	logger.Info("replay imported", "instance_id", id, "imported", res.Imported, "rejected", res.Rejected)

	exp := inst.Export()
	var archivedID string
	if exports != nil {
		rec, err := exports.Save(ctx, archive.SaveRequest{
			InstanceID:  id,
			Window:      exp.Window,
			EntityCount: len(exp.Entities),
			Payload:     exp,
		})
		if err != nil {
			return err
		}
		archivedID = rec.ID
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if opts.export {
		return enc.Encode(exp)
	}
	window, _ := inst.TimeWindow()
	return enc.Encode(replayReport{
		InstanceID: id,
		Imported:   res.Imported,
		Rejected:   res.Rejected,
		Window:     window,
		Stats:      inst.Stats(),
		ArchivedID: archivedID,
		Recent:     inst.Annotations(10),
	})
}

// readEvents accepts a JSON array, a single JSON object, or newline
// delimited objects. Blank lines are skipped.
func readEvents(r io.Reader) ([]engine.EventInput, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if inputs, err := engine.DecodeEvents(data); err == nil {
		return inputs, nil
	}

	var inputs []engine.EventInput
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		batch, err := engine.DecodeEvents(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		inputs = append(inputs, batch...)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no events")
	}
	return inputs, nil
}
