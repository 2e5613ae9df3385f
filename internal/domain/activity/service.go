package activity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Service handles the durable annotation archive.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new activity service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Archive stores an annotation, stamping the current time if missing.
func (s *Service) Archive(ctx context.Context, entry *Annotation) error {
	if entry == nil || strings.TrimSpace(entry.ID) == "" || entry.Type == "" {
		return ErrInvalidInput
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if err := s.repo.Save(ctx, entry); err != nil {
		return fmt.Errorf("archiving annotation: %w", err)
	}
	return nil
}

// History lists archived annotations with filtering, newest first.
func (s *Service) History(ctx context.Context, opts ListOptions) ([]Annotation, error) {
	return s.repo.List(ctx, opts)
}
