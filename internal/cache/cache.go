// Package cache persists finished game analyses as one JSON file per key so
// re-runs with the same settings skip the engine entirely. Caching is a
// performance optimization only: every caller must behave correctly when every
// lookup misses.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dfarias/chessinsight/internal/apperr"
	"github.com/dfarias/chessinsight/internal/logger"
	"github.com/dfarias/chessinsight/internal/models"
)

// Key derives the cache key for a game analysis. The exact move text and both
// analysis parameters feed the hash: results computed at different depth or
// time budgets are not comparable, so they must never share a key.
func Key(moveText string, depth int, moveTime time.Duration) string {
	content := fmt.Sprintf("%s_%d_%d", moveText, depth, moveTime.Milliseconds())
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Stats describes the current cache contents.
type Stats struct {
	Entries        int   `json:"entries"`
	TotalSizeBytes int64 `json:"total_size_bytes"`
}

// Store is a file-per-key cache under one directory. Safe for concurrent use;
// a write race on the same key resolves as last-writer-wins.
type Store struct {
	dir string
	mu  sync.Mutex
	log *logger.Logger
}

// NewStore creates the cache directory if needed and returns a Store over it.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = ".analysis-cache"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &Store{
		dir: dir,
		log: logger.Default().WithPrefix("cache"),
	}, nil
}

// Get returns the cached record for key, or ok=false on a miss. A corrupted
// entry is treated as a miss and deleted so the next Put heals it; parse
// failures never propagate to the caller.
func (s *Store) Get(key string) (models.GameAnalysisRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.entryPath(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("failed to read cache entry %s: %v", key, err)
		}
		return models.GameAnalysisRecord{}, false
	}

	var record models.GameAnalysisRecord
	if err := json.Unmarshal(data, &record); err != nil {
		s.log.Warn("removing corrupted entry: %v", apperr.NewCacheCorruption(key, err))
		_ = os.Remove(path)
		return models.GameAnalysisRecord{}, false
	}
	return record, true
}

// Put writes the record under key, overwriting any existing entry. Write
// failures are logged and swallowed.
func (s *Store) Put(key string, record models.GameAnalysisRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		s.log.Warn("failed to serialize cache entry %s: %v", key, err)
		return
	}
	if err := os.WriteFile(s.entryPath(key), data, 0o644); err != nil {
		s.log.Warn("failed to write cache entry %s: %v", key, err)
	}
}

// Clear removes every cache entry.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("reading cache directory: %w", err)
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			s.log.Warn("failed to remove cache entry %s: %v", entry.Name(), err)
			continue
		}
		removed++
	}
	s.log.Info("cache cleared: %d entries removed", removed)
	return nil
}

// GetStats walks the cache directory and reports entry count and total size.
func (s *Store) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats Stats
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.log.Warn("failed to read cache directory: %v", err)
		return stats
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		stats.Entries++
		if info, err := entry.Info(); err == nil {
			stats.TotalSizeBytes += info.Size()
		}
	}
	return stats
}

// Dir returns the cache directory path.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) entryPath(key string) string {
	return filepath.Join(s.dir, key+".json")
}
