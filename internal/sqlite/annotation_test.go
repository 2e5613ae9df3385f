package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/sigtrack/internal/domain/activity"
	"github.com/rpggio/sigtrack/internal/repository"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)

func TestAnnotationRepository_SaveList(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewAnnotationRepository(db)

	first := &activity.Annotation{
		ID:         "a1",
		InstanceID: "rf",
		EntityID:   "433.92",
		Type:       activity.TypeNew,
		Message:    "New unknown detected: 433.92",
		Timestamp:  t0,
	}
	second := &activity.Annotation{
		ID:         "a2",
		InstanceID: "rf",
		EntityID:   "433.92",
		Type:       activity.TypeBurst,
		Message:    "Burst on 433.92: 5 events in 1m0s",
		Timestamp:  t0.Add(8 * time.Second),
	}
	require.NoError(t, repo.Save(ctx, first))
	require.NoError(t, repo.Save(ctx, second))

	entries, err := repo.List(ctx, activity.ListOptions{InstanceID: "rf"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "a2", entries[0].ID)
	require.Equal(t, "a1", entries[1].ID)
	require.Equal(t, "433.92", entries[1].EntityID)
	require.True(t, t0.Equal(entries[1].Timestamp))
}

func TestAnnotationRepository_Filters(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewAnnotationRepository(db)

	for i, a := range []activity.Annotation{
		{ID: "a1", InstanceID: "rf", EntityID: "x", Type: activity.TypeNew},
		{ID: "a2", InstanceID: "rf", EntityID: "y", Type: activity.TypeNew},
		{ID: "a3", InstanceID: "rf", EntityID: "x", Type: activity.TypeFlagged},
		{ID: "a4", InstanceID: "wifi", EntityID: "x", Type: activity.TypeNew},
		{ID: "a5", InstanceID: "rf", Type: activity.TypeCleared},
	} {
		a.Timestamp = t0.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Save(ctx, &a))
	}

	entityID := "x"
	entries, err := repo.List(ctx, activity.ListOptions{InstanceID: "rf", EntityID: &entityID})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	typ := activity.TypeNew
	entries, err = repo.List(ctx, activity.ListOptions{Type: &typ})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	entries, err = repo.List(ctx, activity.ListOptions{InstanceID: "rf", Since: t0.Add(2 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "a5", entries[0].ID)
	require.Empty(t, entries[0].EntityID)

	entries, err = repo.List(ctx, activity.ListOptions{InstanceID: "rf", Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "a3", entries[0].ID)

	entries, err = repo.List(ctx, activity.ListOptions{InstanceID: "rf", Offset: 3})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "a1", entries[0].ID)
}

func TestAnnotationRepository_DuplicateID(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewAnnotationRepository(db)

	a := &activity.Annotation{ID: "a1", InstanceID: "rf", Type: activity.TypeNew, Timestamp: t0}
	require.NoError(t, repo.Save(ctx, a))
	require.ErrorIs(t, repo.Save(ctx, a), repository.ErrConflict)
}
