package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rpggio/sigtrack/internal/domain/activity"
	"github.com/rpggio/sigtrack/internal/domain/archive"
	"github.com/rpggio/sigtrack/internal/engine"
)

const maxBodyBytes = 4 << 20

// Registry is the instance registry the API drives.
type Registry interface {
	Create(id string, overrides engine.Config) (*engine.Instance, error)
	Get(id string) (*engine.Instance, error)
	List() []string
	Destroy(id string) error
}

// ExportArchive persists instance exports.
type ExportArchive interface {
	Save(ctx context.Context, req archive.SaveRequest) (*archive.ExportRecord, error)
	Get(ctx context.Context, id string) (*archive.ExportRecord, error)
	List(ctx context.Context, instanceID string, limit int) ([]archive.ExportSummary, error)
}

// AnnotationHistory reads archived annotations.
type AnnotationHistory interface {
	History(ctx context.Context, opts activity.ListOptions) ([]activity.Annotation, error)
}

// Deps are the services behind the HTTP API. Exports, History and MCP are
// optional; their routes answer 501 or are not mounted when nil.
type Deps struct {
	Registry Registry
	Exports  ExportArchive
	History  AnnotationHistory
	MCP      http.Handler
	Logger   *slog.Logger

	// OriginPatterns are extra browser origins allowed to open streams.
	OriginPatterns []string
}

// Server wires HTTP handlers.
type Server struct {
	deps   Deps
	logger *slog.Logger
}

// NewServer creates an HTTP server router with middleware. authMiddleware
// guards everything except /health.
func NewServer(deps Deps, authMiddleware func(http.Handler) http.Handler) *chi.Mux {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	srv := &Server{deps: deps, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(srv.requestLogger)

	r.Get("/health", srv.handleHealth)

	r.Group(func(r chi.Router) {
		if authMiddleware != nil {
			r.Use(authMiddleware)
		}
		if deps.MCP != nil {
			r.Handle("/mcp", deps.MCP)
			r.Handle("/mcp/*", deps.MCP)
		}

		r.Route("/instances", func(r chi.Router) {
			r.Get("/", srv.handleListInstances)
			r.Post("/", srv.handleCreateInstance)

			r.Route("/{instanceID}", func(r chi.Router) {
				r.Get("/", srv.handleGetInstance)
				r.Delete("/", srv.handleDestroyInstance)
				r.Post("/events", srv.handleEvents)
				r.Get("/entities/{entityID}", srv.handleGetEntity)
				r.Post("/entities/{entityID}/flag", srv.handleToggleFlag)
				r.Post("/entities/{entityID}/inactive", srv.handleMarkInactive)
				r.Post("/clear", srv.handleClear)
				r.Put("/window", srv.handleSetWindow)
				r.Put("/filters/{name}", srv.handleSetFilter)
				r.Get("/stats", srv.handleStats)
				r.Get("/snapshot", srv.handleSnapshot)
				r.Get("/export", srv.handleExport)
				r.Get("/annotations", srv.handleAnnotations)
				r.Post("/exports", srv.handleArchiveExport)
				r.Get("/exports", srv.handleListExports)
				r.Get("/exports/{exportID}", srv.handleGetExport)
				r.Get("/stream", srv.handleStream)
			})
		})
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type createInstanceRequest struct {
	ID     string        `json:"id"`
	Config engine.Config `json:"config"`
}

// InstanceInfo describes a running instance.
type InstanceInfo struct {
	ID      string          `json:"id"`
	Window  string          `json:"window"`
	Windows []string        `json:"windows"`
	Filters map[string]bool `json:"filters"`
	Stats   engine.Stats    `json:"stats"`
}

func instanceInfo(inst *engine.Instance) InstanceInfo {
	name, _ := inst.TimeWindow()
	return InstanceInfo{
		ID:      inst.ID(),
		Window:  name,
		Windows: inst.TimeWindows(),
		Filters: inst.Filters(),
		Stats:   inst.Stats(),
	}
}

func (s *Server) handleListInstances(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"instances": s.deps.Registry.List()})
}

func (s *Server) handleCreateInstance(w http.ResponseWriter, r *http.Request) {
	var req createInstanceRequest
	if !s.decode(w, r, &req) {
		return
	}
	inst, err := s.deps.Registry.Create(req.ID, req.Config)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, instanceInfo(inst))
}

func (s *Server) handleGetInstance(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.instance(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, instanceInfo(inst))
}

func (s *Server) handleDestroyInstance(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Registry.Destroy(chi.URLParam(r, "instanceID")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.instance(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	inputs, err := engine.DecodeEvents(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if bytes.HasPrefix(bytes.TrimSpace(body), []byte("[")) {
		res, err := inst.ImportEvents(engine.Records(inputs))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
		return
	}

	rec := inputs[0].Record()
	e, err := inst.AddEvent(rec.ID, rec.Observation)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, engine.ExportEntityFrom(e))
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.instance(w, r)
	if !ok {
		return
	}
	e, found := inst.Entity(chi.URLParam(r, "entityID"))
	if !found {
		writeError(w, http.StatusNotFound, "entity not found")
		return
	}
	writeJSON(w, http.StatusOK, engine.ExportEntityFrom(e))
}

func (s *Server) handleToggleFlag(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.instance(w, r)
	if !ok {
		return
	}
	e, err := inst.ToggleFlag(chi.URLParam(r, "entityID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, engine.ExportEntityFrom(e))
}

func (s *Server) handleMarkInactive(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.instance(w, r)
	if !ok {
		return
	}
	e, err := inst.MarkInactive(chi.URLParam(r, "entityID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, engine.ExportEntityFrom(e))
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.instance(w, r)
	if !ok {
		return
	}
	if err := inst.Clear(); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setWindowRequest struct {
	Window string `json:"window"`
}

// SettingResult reports whether a configuration call was applied.
type SettingResult struct {
	Applied bool            `json:"applied"`
	Window  string          `json:"window,omitempty"`
	Filters map[string]bool `json:"filters,omitempty"`
}

func (s *Server) handleSetWindow(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.instance(w, r)
	if !ok {
		return
	}
	var req setWindowRequest
	if !s.decode(w, r, &req) {
		return
	}
	applied := inst.SetTimeWindow(req.Window)
	name, _ := inst.TimeWindow()
	writeJSON(w, http.StatusOK, SettingResult{Applied: applied, Window: name})
}

type setFilterRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.instance(w, r)
	if !ok {
		return
	}
	var req setFilterRequest
	if !s.decode(w, r, &req) {
		return
	}
	applied := inst.SetFilter(chi.URLParam(r, "name"), req.Enabled)
	writeJSON(w, http.StatusOK, SettingResult{Applied: applied, Filters: inst.Filters()})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.instance(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, inst.Stats())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.instance(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, inst.Snapshot())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.instance(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, inst.Export())
}

// handleAnnotations serves the in-memory log, or the persisted history
// when source=archive.
func (s *Server) handleAnnotations(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.instance(w, r)
	if !ok {
		return
	}
	limit := queryInt(r, "limit")
	if r.URL.Query().Get("source") != "archive" {
		writeJSON(w, http.StatusOK, inst.Annotations(limit))
		return
	}
	if s.deps.History == nil {
		writeError(w, http.StatusNotImplemented, "annotation archive not configured")
		return
	}
	opts := activity.ListOptions{InstanceID: inst.ID(), Limit: limit, Offset: queryInt(r, "offset")}
	if entityID := r.URL.Query().Get("entity_id"); entityID != "" {
		opts.EntityID = &entityID
	}
	if typ := r.URL.Query().Get("type"); typ != "" {
		t := activity.AnnotationType(typ)
		opts.Type = &t
	}
	if since := r.URL.Query().Get("since"); since != "" {
		ts, err := time.Parse(time.RFC3339Nano, since)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since timestamp")
			return
		}
		opts.Since = ts
	}
	history, err := s.deps.History.History(r.Context(), opts)
	if err != nil {
		s.logger.Error("listing annotation history", "instance_id", inst.ID(), "error", err)
		writeDomainError(w, err)
		return
	}
	if history == nil {
		history = []activity.Annotation{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleArchiveExport(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.instance(w, r)
	if !ok || !s.exportsEnabled(w) {
		return
	}
	exp := inst.Export()
	rec, err := s.deps.Exports.Save(r.Context(), archive.SaveRequest{
		InstanceID:  inst.ID(),
		Window:      exp.Window,
		EntityCount: len(exp.Entities),
		Payload:     exp,
	})
	if err != nil {
		s.logger.Error("archiving export", "instance_id", inst.ID(), "error", err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, archive.ExportSummary{
		ID:          rec.ID,
		InstanceID:  rec.InstanceID,
		Window:      rec.Window,
		EntityCount: rec.EntityCount,
		CreatedAt:   rec.CreatedAt,
	})
}

func (s *Server) handleListExports(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "instanceID")
	if !s.exportsEnabled(w) {
		return
	}
	list, err := s.deps.Exports.List(r.Context(), id, queryInt(r, "limit"))
	if err != nil {
		s.logger.Error("listing exports", "instance_id", id, "error", err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "instanceID")
	if !s.exportsEnabled(w) {
		return
	}
	rec, err := s.deps.Exports.Get(r.Context(), chi.URLParam(r, "exportID"))
	if err == nil && rec.InstanceID != id {
		err = archive.ErrExportNotFound
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) exportsEnabled(w http.ResponseWriter) bool {
	if s.deps.Exports == nil {
		writeError(w, http.StatusNotImplemented, "export archive not configured")
		return false
	}
	return true
}

func (s *Server) instance(w http.ResponseWriter, r *http.Request) (*engine.Instance, bool) {
	inst, err := s.deps.Registry.Get(chi.URLParam(r, "instanceID"))
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	return inst, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
