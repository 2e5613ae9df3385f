package entity_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/rpggio/sigtrack/internal/domain/entity"
	"github.com/stretchr/testify/require"
)

func TestStore_Record_EnforcesCeiling(t *testing.T) {
	store, _ := newStore(entity.Config{MaxItems: 3})

	for i := 0; i < 10; i++ {
		_, err := store.Record(fmt.Sprintf("id-%d", i%6), at(time.Duration(i)*time.Second), t0)
		require.NoError(t, err)
		require.LessOrEqual(t, store.Len(), 3)
	}
	// the three most recently seen survive
	for _, id := range []string{"id-1", "id-2", "id-3"} {
		_, ok := store.Get(id)
		require.True(t, ok, id)
	}
}

func TestStore_Prune_FlaggedNeverEvicted(t *testing.T) {
	store, _ := newStore(entity.Config{MaxItems: 2})

	_, err := store.Record("oldest", at(0), t0)
	require.NoError(t, err)
	_, err = store.ToggleFlag("oldest", t0)
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		_, err := store.Record(fmt.Sprintf("id-%d", i), at(time.Duration(i)*time.Minute), t0)
		require.NoError(t, err)
		require.LessOrEqual(t, store.Len(), 2)
	}
	_, ok := store.Get("oldest")
	require.True(t, ok)
	_, ok = store.Get("id-5")
	require.True(t, ok)
}

func TestStore_Prune_FlaggedOverflow(t *testing.T) {
	store, _ := newStore(entity.Config{MaxItems: -1})

	for i, id := range []string{"a", "b", "c", "d"} {
		_, err := store.Record(id, at(time.Duration(i)*time.Second), t0)
		require.NoError(t, err)
	}
	for _, id := range []string{"a", "b", "c"} {
		_, err := store.ToggleFlag(id, t0)
		require.NoError(t, err)
	}

	evicted := store.Prune(2)
	require.Equal(t, []string{"d"}, evicted)
	require.Equal(t, 3, store.Len())
}

func TestStore_Prune_NoopUnderCeiling(t *testing.T) {
	store, _ := newStore(entity.Config{MaxItems: -1})
	_, err := store.Record("a", at(0), t0)
	require.NoError(t, err)

	require.Nil(t, store.Prune(5))
	require.Equal(t, 1, store.Len())
}

func TestEvictionOrder(t *testing.T) {
	store, _ := newStore(entity.Config{MaxItems: -1})
	for _, rec := range []struct {
		id  string
		off time.Duration
	}{{"b", 2 * time.Second}, {"a", time.Second}, {"tie1", 0}, {"tie2", 0}, {"f", -time.Second}} {
		_, err := store.Record(rec.id, at(rec.off), t0)
		require.NoError(t, err)
	}
	_, err := store.ToggleFlag("f", t0)
	require.NoError(t, err)

	var ids []string
	for _, e := range entity.EvictionOrder(store.All()) {
		ids = append(ids, e.ID)
	}
	require.Equal(t, []string{"tie1", "tie2", "a", "b", "f"}, ids)
}
