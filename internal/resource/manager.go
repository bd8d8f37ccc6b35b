// Package resource implements the URI-scheme resource layer described in
// spec.md §5: memory://, file://, and config:// readers behind one
// ResourceManager, backed by a single process-wide TTL cache so repeated
// reads of the same URI within its freshness window skip the underlying
// reader.
//
// Grounded on the teacher's internal/agent/read_cache.go (key/entry cache
// shape, write-tool invalidation idea) generalized from a tool-result cache
// into a URI-keyed resource cache, and on github.com/hashicorp/golang-lru/v2
// (already a teacher dependency) for bounded eviction instead of the
// teacher's unbounded map.
package resource

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pocketomega/axon/internal/agenterr"
)

// Reader resolves one URI scheme ("memory", "file", "config", ...) to bytes.
type Reader interface {
	// Read fetches the content addressed by uri, with the scheme already
	// stripped (e.g. "memory://goal/123" is passed as "goal/123").
	Read(ctx context.Context, uri string) ([]byte, string, error)
}

// ReaderFunc adapts a plain function to the Reader interface.
type ReaderFunc func(ctx context.Context, uri string) ([]byte, string, error)

func (f ReaderFunc) Read(ctx context.Context, uri string) ([]byte, string, error) {
	return f(ctx, uri)
}

// Resource is the result of a successful Get: raw content, a MIME type hint,
// and the URI it was read from.
type Resource struct {
	URI      string
	MIMEType string
	Content  []byte
}

type cacheEntry struct {
	resource Resource
	expires  time.Time
}

// Manager dispatches resource:// URIs to registered Readers and caches
// results for CacheTTL. It is process-wide by contract (spec.md §9): build
// exactly one Manager per process and share it, the same way httppool.Client
// is shared.
type Manager struct {
	mu      sync.RWMutex
	readers map[string]Reader
	cache   *lru.Cache[string, cacheEntry]
	ttl     time.Duration
}

// Config controls Manager construction.
type Config struct {
	CacheSize int           // max cached resources, default 256
	CacheTTL  time.Duration // default 5 minutes
}

// DefaultConfig returns the defaults used when zero values are passed to New.
func DefaultConfig() Config {
	return Config{CacheSize: 256, CacheTTL: 5 * time.Minute}
}

// New constructs a Manager with no readers registered. Call Register for
// each scheme the caller wants to serve.
func New(cfg Config) (*Manager, error) {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultConfig().CacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultConfig().CacheTTL
	}
	cache, err := lru.New[string, cacheEntry](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("resource: build cache: %w", err)
	}
	return &Manager{
		readers: make(map[string]Reader),
		cache:   cache,
		ttl:     cfg.CacheTTL,
	}, nil
}

// Register binds scheme (without "://") to a Reader. Registering the same
// scheme twice replaces the previous reader.
func (m *Manager) Register(scheme string, r Reader) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readers[scheme] = r
}

// Get resolves uri ("scheme://rest") through the matching Reader, serving a
// cached copy when one exists and has not expired.
func (m *Manager) Get(ctx context.Context, uri string) (Resource, error) {
	scheme, rest, ok := splitURI(uri)
	if !ok {
		return Resource{}, agenterr.New(agenterr.KindValidation, fmt.Sprintf("resource: malformed uri %q", uri))
	}

	if entry, ok := m.cacheGet(uri); ok {
		return entry, nil
	}

	m.mu.RLock()
	reader, ok := m.readers[scheme]
	m.mu.RUnlock()
	if !ok {
		return Resource{}, agenterr.New(agenterr.KindResource, fmt.Sprintf("resource: no reader registered for scheme %q", scheme))
	}

	content, mime, err := reader.Read(ctx, rest)
	if err != nil {
		return Resource{}, agenterr.Wrap(agenterr.KindResource, fmt.Sprintf("resource: read %q", uri), err)
	}

	res := Resource{URI: uri, MIMEType: mime, Content: content}
	m.cachePut(uri, res)
	return res, nil
}

// Invalidate drops any cached entry for uri. Callers whose writes make a
// prior read stale (e.g. a file write under file://) should call this with
// the same URI that was read, mirroring the teacher's write-tool
// invalidation of its read cache.
func (m *Manager) Invalidate(uri string) {
	m.cache.Remove(uri)
}

func (m *Manager) cacheGet(uri string) (Resource, bool) {
	entry, ok := m.cache.Get(uri)
	if !ok {
		return Resource{}, false
	}
	if time.Now().After(entry.expires) {
		m.cache.Remove(uri)
		return Resource{}, false
	}
	return entry.resource, true
}

func (m *Manager) cachePut(uri string, res Resource) {
	m.cache.Add(uri, cacheEntry{resource: res, expires: time.Now().Add(m.ttl)})
}

func splitURI(uri string) (scheme, rest string, ok bool) {
	i := strings.Index(uri, "://")
	if i < 0 {
		return "", "", false
	}
	return uri[:i], uri[i+3:], true
}
