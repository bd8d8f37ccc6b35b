// Package state implements the OptimizedStateStore from spec.md §9: an
// LRU-cached, write-through key/value store of PipelineState checkpoints,
// with a background flusher batching writes and LZ4 compression for large
// entries (falling back to plain JSON for small ones, where compression
// overhead would exceed the savings).
//
// Grounded on github.com/hashicorp/golang-lru/v2 and github.com/pierrec/lz4/v4,
// both already teacher/pack dependencies, composed the way
// internal/resource's Manager composes the same LRU library for its own
// cache.
package state

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pierrec/lz4/v4"

	"github.com/pocketomega/axon/internal/goalmodel"
	"github.com/pocketomega/axon/internal/xlog"
)

// Config controls store sizing and flush cadence.
type Config struct {
	CacheSize            int // number of checkpoints held in memory, default 128
	CacheTTL             time.Duration
	FlushInterval        time.Duration
	CompressionThreshold int // entries whose JSON encoding exceeds this many bytes are LZ4-compressed
	Dir                  string // directory checkpoints are persisted under
}

// DefaultConfig matches the Open Question resolution recorded in DESIGN.md.
func DefaultConfig(dir string) Config {
	return Config{
		CacheSize:            128,
		CacheTTL:             time.Hour,
		FlushInterval:        30 * time.Second,
		CompressionThreshold: 256,
		Dir:                  dir,
	}
}

type cachedEntry struct {
	state   goalmodel.PipelineState
	dirty   bool
	expires time.Time
}

// Store is the OptimizedStateStore: callers mutate checkpoints through
// Put/Get, and the store handles caching, compression, and durability.
type Store struct {
	cfg   Config
	log   *xlog.Logger
	cache *lru.Cache[string, *cachedEntry]

	mu sync.Mutex // guards concurrent flush vs Put ordering for a single key

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New builds a Store rooted at cfg.Dir (created if missing) and starts its
// background flusher. Call Close to flush pending writes and stop the
// flusher.
func New(cfg Config) (*Store, error) {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultConfig(cfg.Dir).CacheSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultConfig(cfg.Dir).FlushInterval
	}
	if cfg.CompressionThreshold <= 0 {
		cfg.CompressionThreshold = DefaultConfig(cfg.Dir).CompressionThreshold
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("state: Config.Dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("state: create checkpoint dir: %w", err)
	}

	s := &Store{
		cfg:    cfg,
		log:    xlog.New("state"),
		stopCh: make(chan struct{}),
	}

	onEvict := func(key string, entry *cachedEntry) {
		if entry.dirty {
			if err := s.writeThrough(key, entry.state); err != nil {
				s.log.Printf("evict-flush %q failed: %v", key, err)
			}
		}
	}
	cache, err := lru.NewWithEvict[string, *cachedEntry](cfg.CacheSize, onEvict)
	if err != nil {
		return nil, fmt.Errorf("state: build cache: %w", err)
	}
	s.cache = cache

	s.wg.Add(1)
	go s.flushLoop()
	return s, nil
}

// Put writes a checkpoint. It updates the in-memory cache immediately
// (write-through: the entry is also marked dirty for the next flush and
// durably written at that point, not on every Put, to batch I/O).
func (s *Store) Put(state goalmodel.PipelineState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Add(state.RunID, &cachedEntry{
		state:   state,
		dirty:   true,
		expires: time.Now().Add(s.cfg.CacheTTL),
	})
}

// Get retrieves a checkpoint, checking the cache first and falling back to
// disk on a miss (or expiry).
func (s *Store) Get(ctx context.Context, runID string) (goalmodel.PipelineState, bool, error) {
	if entry, ok := s.cache.Get(runID); ok {
		if time.Now().Before(entry.expires) {
			return entry.state, true, nil
		}
		s.cache.Remove(runID)
	}

	state, ok, err := s.readFromDisk(runID)
	if err != nil || !ok {
		return goalmodel.PipelineState{}, ok, err
	}

	s.cache.Add(runID, &cachedEntry{state: state, dirty: false, expires: time.Now().Add(s.cfg.CacheTTL)})
	return state, true, nil
}

// Flush forces all dirty entries to disk synchronously. Useful before
// shutdown or a deliberate checkpoint boundary.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for _, key := range s.cache.Keys() {
		entry, ok := s.cache.Peek(key)
		if !ok || !entry.dirty {
			continue
		}
		if err := s.writeThrough(key, entry.state); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		entry.dirty = false
	}
	return firstErr
}

func (s *Store) flushLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.Flush(); err != nil {
				s.log.Printf("background flush: %v", err)
			}
		case <-s.stopCh:
			return
		}
	}
}

// Close flushes pending writes and stops the background flusher.
func (s *Store) Close() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	return s.Flush()
}

func (s *Store) checkpointPath(runID string) string {
	return filepath.Join(s.cfg.Dir, runID+".ckpt")
}

func (s *Store) writeThrough(runID string, state goalmodel.PipelineState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("state: marshal checkpoint %q: %w", runID, err)
	}

	path := s.checkpointPath(runID)
	if len(raw) < s.cfg.CompressionThreshold {
		return os.WriteFile(path, append([]byte{formatPlain}, raw...), 0o644)
	}

	var compressed bytes.Buffer
	compressed.WriteByte(formatLZ4)
	zw := lz4.NewWriter(&compressed)
	if _, err := zw.Write(raw); err != nil {
		return fmt.Errorf("state: compress checkpoint %q: %w", runID, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("state: finalize compression %q: %w", runID, err)
	}
	return os.WriteFile(path, compressed.Bytes(), 0o644)
}

const (
	formatPlain byte = 0
	formatLZ4   byte = 1
)

func (s *Store) readFromDisk(runID string) (goalmodel.PipelineState, bool, error) {
	path := s.checkpointPath(runID)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return goalmodel.PipelineState{}, false, nil
		}
		return goalmodel.PipelineState{}, false, fmt.Errorf("state: read checkpoint %q: %w", runID, err)
	}
	if len(data) == 0 {
		return goalmodel.PipelineState{}, false, fmt.Errorf("state: empty checkpoint file %q", path)
	}

	var raw []byte
	switch data[0] {
	case formatPlain:
		raw = data[1:]
	case formatLZ4:
		zr := lz4.NewReader(bytes.NewReader(data[1:]))
		raw, err = io.ReadAll(zr)
		if err != nil {
			return goalmodel.PipelineState{}, false, fmt.Errorf("state: decompress checkpoint %q: %w", runID, err)
		}
	default:
		return goalmodel.PipelineState{}, false, fmt.Errorf("state: unknown checkpoint format byte %d in %q", data[0], path)
	}

	var st goalmodel.PipelineState
	if err := json.Unmarshal(raw, &st); err != nil {
		return goalmodel.PipelineState{}, false, fmt.Errorf("state: unmarshal checkpoint %q: %w", runID, err)
	}
	return st, true, nil
}
