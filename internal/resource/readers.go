package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pocketomega/axon/internal/goalmodel"
)

// MemoryStore is the subset of the long-term/working memory API the
// memory:// reader needs, kept narrow so this package does not import
// internal/memory (which in turn would create a cycle through resource
// caching). Implemented by *memory.LongTermMemory and *memory.WorkingMemory.
type MemoryStore interface {
	GetItem(ctx context.Context, id string) (goalmodel.MemoryItem, bool, error)
}

// NewMemoryReader exposes store through memory://<id> URIs.
func NewMemoryReader(store MemoryStore) Reader {
	return ReaderFunc(func(ctx context.Context, uri string) ([]byte, string, error) {
		id := strings.TrimPrefix(uri, "/")
		if id == "" {
			return nil, "", fmt.Errorf("resource: memory:// requires an id")
		}
		item, ok, err := store.GetItem(ctx, id)
		if err != nil {
			return nil, "", err
		}
		if !ok {
			return nil, "", fmt.Errorf("resource: memory item %q not found", id)
		}
		data, err := json.Marshal(item)
		if err != nil {
			return nil, "", err
		}
		return data, "application/json", nil
	})
}

// fileReader serves file:// URIs sandboxed to a single workspace root,
// mirroring the file-tool path sandbox (symlink resolution, prefix-collision
// guard) in the builtin file tools, generalized here into a read-only
// resource reader.
type fileReader struct {
	mu           sync.RWMutex
	workspaceDir string
}

// NewFileReader exposes files under workspaceDir through file:///rel/path
// URIs. Paths are resolved the same way the file_read tool resolves them:
// relative to workspaceDir, symlinks followed, escapes rejected.
func NewFileReader(workspaceDir string) Reader {
	return &fileReader{workspaceDir: workspaceDir}
}

const maxResourceFileSize = 1 << 20 // 1MB, matching the file_read tool's cap

func (r *fileReader) Read(_ context.Context, uri string) ([]byte, string, error) {
	r.mu.RLock()
	root := r.workspaceDir
	r.mu.RUnlock()

	rel := strings.TrimPrefix(uri, "/")
	resolved, err := resolveWithinRoot(rel, root)
	if err != nil {
		return nil, "", err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, "", fmt.Errorf("resource: stat %q: %w", resolved, err)
	}
	if info.IsDir() {
		return nil, "", fmt.Errorf("resource: %q is a directory", resolved)
	}
	if info.Size() > maxResourceFileSize {
		return nil, "", fmt.Errorf("resource: %q exceeds %d bytes", resolved, maxResourceFileSize)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, "", fmt.Errorf("resource: read %q: %w", resolved, err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(resolved))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return data, mimeType, nil
}

func resolveWithinRoot(rel, root string) (string, error) {
	if root == "" {
		return "", fmt.Errorf("resource: no workspace root configured for file:// reads")
	}
	resolved := filepath.Clean(filepath.Join(root, rel))

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resource: resolve workspace root: %w", err)
	}
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		realRoot = absRoot
	}

	absResolved, err := filepath.Abs(resolved)
	if err != nil {
		return "", fmt.Errorf("resource: resolve target: %w", err)
	}
	realResolved, err := filepath.EvalSymlinks(absResolved)
	if err != nil {
		realResolved = absResolved
	}

	if realResolved != realRoot && !strings.HasPrefix(realResolved, realRoot+string(os.PathSeparator)) {
		return "", fmt.Errorf("resource: path %q escapes workspace %q", rel, root)
	}
	return resolved, nil
}

// ConfigReader serves config:// URIs out of a flat in-memory key/value map
// populated at startup from environment and config-file values the
// orchestrator wants to expose read-only to the reasoning engine.
type ConfigReader struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewConfigReader builds a ConfigReader over an initial snapshot of values.
// A nil map starts empty; Set can add entries later.
func NewConfigReader(values map[string]string) *ConfigReader {
	if values == nil {
		values = make(map[string]string)
	}
	cp := make(map[string]string, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return &ConfigReader{values: cp}
}

// Set adds or replaces one config:// key.
func (r *ConfigReader) Set(key, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
}

func (r *ConfigReader) Read(_ context.Context, uri string) ([]byte, string, error) {
	key := strings.TrimPrefix(uri, "/")
	r.mu.RLock()
	v, ok := r.values[key]
	r.mu.RUnlock()
	if !ok {
		return nil, "", fmt.Errorf("resource: config key %q not set", key)
	}
	return []byte(v), "text/plain", nil
}
