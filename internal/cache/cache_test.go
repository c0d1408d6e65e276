package cache_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfarias/chessinsight/internal/cache"
	"github.com/dfarias/chessinsight/internal/models"
)

func testRecord(id string) models.GameAnalysisRecord {
	return models.GameAnalysisRecord{
		Game: models.RawGame{ID: id, White: "alice", Black: "bob", Result: "1-0"},
		Summary: models.GameSummary{
			TotalMoves: 40,
			Blunders:   1,
			Accuracy:   87.5,
		},
	}
}

func TestKey(t *testing.T) {
	base := cache.Key("1. e4 e5", 15, 2*time.Second)

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, base, cache.Key("1. e4 e5", 15, 2*time.Second))
	})
	t.Run("move text changes the key", func(t *testing.T) {
		assert.NotEqual(t, base, cache.Key("1. d4 d5", 15, 2*time.Second))
	})
	t.Run("depth changes the key", func(t *testing.T) {
		assert.NotEqual(t, base, cache.Key("1. e4 e5", 18, 2*time.Second))
	})
	t.Run("time budget changes the key", func(t *testing.T) {
		assert.NotEqual(t, base, cache.Key("1. e4 e5", 15, 3*time.Second))
	})
}

func TestStoreRoundTrip(t *testing.T) {
	store, err := cache.NewStore(t.TempDir())
	require.NoError(t, err)

	key := cache.Key("1. e4 e5", 15, 2*time.Second)
	_, ok := store.Get(key)
	assert.False(t, ok, "empty store should miss")

	want := testRecord("game1")
	store.Put(key, want)

	got, ok := store.Get(key)
	require.True(t, ok)
	assert.Equal(t, want.Game.ID, got.Game.ID)
	assert.Equal(t, want.Summary, got.Summary)
}

func TestStoreOverwrite(t *testing.T) {
	store, err := cache.NewStore(t.TempDir())
	require.NoError(t, err)

	key := cache.Key("1. e4 e5", 15, 2*time.Second)
	store.Put(key, testRecord("first"))
	store.Put(key, testRecord("second"))

	got, ok := store.Get(key)
	require.True(t, ok)
	assert.Equal(t, "second", got.Game.ID)
}

func TestStoreCorruptedEntry(t *testing.T) {
	dir := t.TempDir()
	store, err := cache.NewStore(dir)
	require.NoError(t, err)

	key := cache.Key("1. e4 e5", 15, 2*time.Second)
	store.Put(key, testRecord("game1"))

	path := filepath.Join(dir, key+".json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, ok := store.Get(key)
	assert.False(t, ok, "corrupted entry must read as a miss")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "corrupted entry should be removed")

	// The next write fully heals the slot.
	store.Put(key, testRecord("game1"))
	_, ok = store.Get(key)
	assert.True(t, ok)
}

func TestStoreClearAndStats(t *testing.T) {
	store, err := cache.NewStore(t.TempDir())
	require.NoError(t, err)

	store.Put(cache.Key("a", 15, time.Second), testRecord("a"))
	store.Put(cache.Key("b", 15, time.Second), testRecord("b"))

	stats := store.GetStats()
	assert.Equal(t, 2, stats.Entries)
	assert.Greater(t, stats.TotalSizeBytes, int64(0))

	require.NoError(t, store.Clear())
	stats = store.GetStats()
	assert.Equal(t, 0, stats.Entries)
}
