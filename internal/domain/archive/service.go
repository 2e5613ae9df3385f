package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/sigtrack/internal/repository"
)

// Service stores and retrieves engine exports.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new archive service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, logger: logger}
}

// SaveRequest describes an export to persist.
type SaveRequest struct {
	InstanceID  string
	Window      string
	EntityCount int
	Payload     any
}

// Save marshals and persists an export payload.
func (s *Service) Save(ctx context.Context, req SaveRequest) (*ExportRecord, error) {
	if strings.TrimSpace(req.InstanceID) == "" || req.Payload == nil {
		return nil, ErrInvalidInput
	}
	payload, err := json.Marshal(req.Payload)
	if err != nil {
		return nil, fmt.Errorf("encoding export: %w", err)
	}
	rec := &ExportRecord{
		ID:          uuid.NewString(),
		InstanceID:  req.InstanceID,
		Window:      req.Window,
		EntityCount: req.EntityCount,
		CreatedAt:   time.Now().UTC(),
		Payload:     payload,
	}
	if err := s.repo.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("saving export: %w", err)
	}
	s.logger.Info("export archived", "id", rec.ID, "instance_id", rec.InstanceID, "entities", rec.EntityCount)
	return rec, nil
}

// Get fetches a persisted export by ID.
func (s *Service) Get(ctx context.Context, id string) (*ExportRecord, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExportNotFound
		}
		return nil, fmt.Errorf("getting export: %w", err)
	}
	return rec, nil
}

// List returns the newest exports for an instance.
func (s *Service) List(ctx context.Context, instanceID string, limit int) ([]ExportSummary, error) {
	return s.repo.List(ctx, instanceID, limit)
}
