package mocks

import (
	"context"

	"github.com/rpggio/sigtrack/internal/domain/activity"
	"github.com/rpggio/sigtrack/internal/domain/archive"
	"github.com/stretchr/testify/mock"
)

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Save(ctx context.Context, entry *activity.Annotation) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListOptions) ([]activity.Annotation, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.Annotation); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ExportRepository is a mock for archive.Repository.
type ExportRepository struct {
	mock.Mock
}

func (m *ExportRepository) Save(ctx context.Context, rec *archive.ExportRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *ExportRepository) Get(ctx context.Context, id string) (*archive.ExportRecord, error) {
	args := m.Called(ctx, id)
	if rec, ok := args.Get(0).(*archive.ExportRecord); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ExportRepository) List(ctx context.Context, instanceID string, limit int) ([]archive.ExportSummary, error) {
	args := m.Called(ctx, instanceID, limit)
	if list, ok := args.Get(0).([]archive.ExportSummary); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
