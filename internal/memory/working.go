// Package memory implements the two-tier memory subsystem from spec.md §9:
// a bounded-capacity WorkingMemory with attention-weighted decay/boost and
// periodic consolidation into a SQLite-backed LongTermMemory.
//
// Grounded on github.com/hashicorp/golang-lru/v2 (already used the same way
// in internal/resource and internal/state) for the bounded working set, and
// on the teacher-pack's modernc.org/sqlite usage in
// Heikkila-Pty-Ltd-cortex/internal/store/store.go (schema-in-a-const,
// sql.Open with WAL pragmas, explicit column lists) for the long-term tier.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pocketomega/axon/internal/goalmodel"
)

// attentionDecay and attentionBoost are the α/β weights from spec.md §9:
// each tick, an item's attention decays by α and a freshly-accessed item's
// attention is boosted by β, both applied multiplicatively-then-additively
// the way exponential moving averages usually are.
const (
	attentionDecay = 0.7
	attentionBoost = 0.3
)

// workingEntry pairs a MemoryItem with its current attention weight.
type workingEntry struct {
	item      goalmodel.MemoryItem
	attention float64
}

// WorkingMemory is the fast, bounded, in-process tier: a fixed-capacity LRU
// set of recently used items, with the least recently used item evicted (and
// handed to a ConsolidationSink, typically a LongTermMemory) to make room.
// Attention weights order MostSalient and drive Decay; they do not choose
// which item is evicted.
type WorkingMemory struct {
	mu       sync.Mutex
	cache    *lru.Cache[string, *workingEntry]
	capacity int

	consolidationBatch int
	sink               ConsolidationSink
}

// ConsolidationSink receives items evicted from working memory so they are
// not lost, only demoted to the slower tier.
type ConsolidationSink interface {
	Consolidate(items []goalmodel.MemoryItem) error
}

// Config controls WorkingMemory sizing.
type Config struct {
	Capacity           int // max items held, default 64
	ConsolidationBatch int // items flushed to the sink per consolidation pass, default 10
}

// DefaultConfig matches the bounded-batch Open Question resolution recorded
// in DESIGN.md: ConsolidationBatch=10.
func DefaultConfig() Config {
	return Config{Capacity: 64, ConsolidationBatch: 10}
}

// NewWorkingMemory builds a WorkingMemory that consolidates evictions into sink.
func NewWorkingMemory(cfg Config, sink ConsolidationSink) (*WorkingMemory, error) {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultConfig().Capacity
	}
	if cfg.ConsolidationBatch <= 0 {
		cfg.ConsolidationBatch = DefaultConfig().ConsolidationBatch
	}

	wm := &WorkingMemory{capacity: cfg.Capacity, consolidationBatch: cfg.ConsolidationBatch, sink: sink}
	cache, err := lru.NewWithEvict[string, *workingEntry](cfg.Capacity, wm.onEvict)
	if err != nil {
		return nil, err
	}
	wm.cache = cache
	return wm, nil
}

func (wm *WorkingMemory) onEvict(_ string, entry *workingEntry) {
	if wm.sink == nil {
		return
	}
	// Best-effort: a consolidation failure should not break the eviction
	// path that triggered it; the item is simply lost from working memory,
	// matching spec.md's "working memory is not durable" guarantee.
	_ = wm.sink.Consolidate([]goalmodel.MemoryItem{entry.item})
}

// Put adds or refreshes an item with a starting attention weight of 1.0 (a
// freshly-observed item is maximally salient).
func (wm *WorkingMemory) Put(item goalmodel.MemoryItem) {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	wm.cache.Add(item.ID, &workingEntry{item: item, attention: 1.0})
}

// GetItem satisfies resource.MemoryStore, exposing working-memory items
// through memory:// URIs without boosting their attention (a read-through
// resource fetch is not the same signal as the orchestrator's own recall).
func (wm *WorkingMemory) GetItem(_ ctxer, id string) (goalmodel.MemoryItem, bool, error) {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	entry, ok := wm.cache.Peek(id)
	if !ok {
		return goalmodel.MemoryItem{}, false, nil
	}
	return entry.item, true, nil
}

// Access retrieves an item and boosts its attention weight, the signal the
// reasoning/reflection engines send every time they actually use a recalled
// item (as opposed to merely observing it pass through resource://).
func (wm *WorkingMemory) Access(id string) (goalmodel.MemoryItem, bool) {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	entry, ok := wm.cache.Get(id)
	if !ok {
		return goalmodel.MemoryItem{}, false
	}
	entry.attention = entry.attention*attentionDecay + attentionBoost
	if entry.attention > 1.0 {
		entry.attention = 1.0
	}
	entry.item.AccessCount++
	entry.item.LastAccessed = time.Now()
	return entry.item, true
}

// Decay applies the attention decay step to every resident item without an
// accompanying access, the periodic tick described in spec.md §9. Items
// whose attention falls below floor are proactively consolidated even
// though the cache isn't full, keeping working memory focused on what's
// still salient.
func (wm *WorkingMemory) Decay(floor float64) {
	wm.mu.Lock()
	var stale []string
	for _, key := range wm.cache.Keys() {
		entry, ok := wm.cache.Peek(key)
		if !ok {
			continue
		}
		entry.attention *= attentionDecay
		if entry.attention < floor {
			stale = append(stale, key)
		}
	}
	wm.mu.Unlock()

	if len(stale) == 0 {
		return
	}
	wm.ConsolidateStale(stale)
}

// ConsolidateStale removes the named items from working memory and flushes
// them to the sink, capped at consolidationBatch per call (the "bounded
// batch" Open Question resolution); ids beyond the cap stay resident.
// Decay calls it with the items whose attention fell below its floor.
// Working memory does not track how long an item's attention stays high,
// so no sustained-attention promotion takes place.
func (wm *WorkingMemory) ConsolidateStale(ids []string) {
	if len(ids) > wm.consolidationBatch {
		ids = ids[:wm.consolidationBatch]
	}

	wm.mu.Lock()
	items := make([]goalmodel.MemoryItem, 0, len(ids))
	for _, id := range ids {
		if entry, ok := wm.cache.Peek(id); ok {
			items = append(items, entry.item)
			wm.cache.Remove(id)
		}
	}
	wm.mu.Unlock()

	if wm.sink != nil && len(items) > 0 {
		_ = wm.sink.Consolidate(items)
	}
}

// MostSalient returns up to n items ordered by descending attention, used
// by the reasoning engine to build its working-memory context window.
func (wm *WorkingMemory) MostSalient(n int) []goalmodel.MemoryItem {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	entries := make([]*workingEntry, 0, wm.cache.Len())
	for _, key := range wm.cache.Keys() {
		if e, ok := wm.cache.Peek(key); ok {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].attention > entries[j].attention })

	if n > len(entries) {
		n = len(entries)
	}
	out := make([]goalmodel.MemoryItem, n)
	for i := 0; i < n; i++ {
		out[i] = entries[i].item
	}
	return out
}

// Len reports how many items currently reside in working memory.
func (wm *WorkingMemory) Len() int {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	return wm.cache.Len()
}

// ctxer is context.Context under a local name, so GetItem has the exact
// signature resource.MemoryStore declares, as the LongTermMemory
// implementation (longterm.go) does; working memory never blocks, so
// GetItem ignores the context.
type ctxer = context.Context
