package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rpggio/sigtrack/internal/domain/activity"
	"github.com/rpggio/sigtrack/internal/domain/archive"

	"github.com/stretchr/testify/require"
)

// NewTestDB creates a new in-memory SQLite database for testing
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	require.NoError(t, err, "failed to create test database")

	err = db.RunMigrations()
	require.NoError(t, err, "failed to run migrations")

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// TestMigrations verifies that migrations run successfully
func TestMigrations(t *testing.T) {
	db := NewTestDB(t)

	for _, table := range []string{"annotations", "exports"} {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err, "failed to query table %s", table)
		require.Equal(t, 1, count, "table %s not found", table)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	db := NewTestDB(t)
	require.NoError(t, db.RunMigrations())
}

func TestWithBusyTimeout(t *testing.T) {
	require.Equal(t, "data.db?_pragma=busy_timeout(5000)", withBusyTimeout("data.db"))
	require.Equal(t, "file:x?mode=memory&_pragma=busy_timeout(5000)", withBusyTimeout("file:x?mode=memory"))
	require.Equal(t, "data.db?_pragma=busy_timeout(100)", withBusyTimeout("data.db?_pragma=busy_timeout(100)"))
}

// Writers on separate pooled connections wait for the lock instead of
// failing with SQLITE_BUSY.
func TestConcurrentWritersOnFileDB(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "sigtrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations())

	var timeout int
	require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&timeout))
	require.Equal(t, busyTimeoutMs, timeout)

	annotations := NewAnnotationRepository(db)
	exports := NewExportRepository(db)
	ctx := context.Background()

	const writers, perWriter = 6, 20
	errs := make(chan error, writers*perWriter)
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				id := fmt.Sprintf("w%d-%d", w, i)
				if w%2 == 0 {
					errs <- annotations.Save(ctx, &activity.Annotation{ID: id, InstanceID: "rf", Type: activity.TypeNew, Timestamp: t0})
				} else {
					errs <- exports.Save(ctx, &archive.ExportRecord{ID: id, InstanceID: "rf", CreatedAt: t0, Payload: []byte(`{}`)})
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	saved, err := annotations.List(ctx, activity.ListOptions{InstanceID: "rf"})
	require.NoError(t, err)
	require.Len(t, saved, writers/2*perWriter)
	list, err := exports.List(ctx, "rf", 0)
	require.NoError(t, err)
	require.Len(t, list, writers/2*perWriter)
}
