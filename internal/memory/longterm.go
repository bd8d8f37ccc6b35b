package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pocketomega/axon/internal/agenterr"
	"github.com/pocketomega/axon/internal/goalmodel"
	"github.com/pocketomega/axon/internal/xlog"
)

// schema mirrors the "schema-in-a-const, CREATE TABLE/INDEX IF NOT EXISTS"
// idiom grounded on Heikkila-Pty-Ltd-cortex/internal/store/store.go's Open.
// spec.md §4.5 only mandates the contract, not a schema, so this is Axon's
// own normalization of MemoryItem onto SQLite columns.
const schema = `
CREATE TABLE IF NOT EXISTS memory_items (
	id            TEXT PRIMARY KEY,
	kind          TEXT NOT NULL,
	summary       TEXT NOT NULL,
	payload       TEXT NOT NULL,
	tags          TEXT NOT NULL,
	importance    REAL NOT NULL,
	created_at    DATETIME NOT NULL,
	last_accessed DATETIME NOT NULL,
	access_count  INTEGER NOT NULL,
	embedding     TEXT
);
CREATE INDEX IF NOT EXISTS idx_memory_items_kind ON memory_items(kind);
CREATE INDEX IF NOT EXISTS idx_memory_items_importance ON memory_items(importance);
CREATE INDEX IF NOT EXISTS idx_memory_items_created_at ON memory_items(created_at);
`

// LongTermMemory is the SQLite-backed default adapter for the capability
// spec.md §4.5 names: Store, Retrieve, Query, FindSimilar, with
// access-count/importance reinforcement on every retrieval. Grounded on
// Heikkila-Pty-Ltd-cortex's sql.Open+WAL-pragma+schema-in-const pattern,
// using modernc.org/sqlite (pure Go, no cgo) matching cortex's own choice.
type LongTermMemory struct {
	db  *sql.DB
	log *xlog.Logger
}

// Open creates or opens a SQLite database at dbPath (or an in-memory
// database when dbPath is ":memory:") and ensures the schema exists.
func Open(dbPath string) (*LongTermMemory, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	if dbPath == ":memory:" {
		dsn = dbPath
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("memory: open %s: %w", dbPath, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("memory: create schema: %w", err)
	}
	return &LongTermMemory{db: db, log: xlog.New("memory")}, nil
}

// Close releases the underlying database handle.
func (m *LongTermMemory) Close() error { return m.db.Close() }

// Store persists item, creating or overwriting the row for its id. Writes
// are serialized by SQLite's own locking; spec.md §5 requires long-term
// memory writes be serialized and reads concurrent, which WAL mode gives
// for free.
func (m *LongTermMemory) Store(ctx context.Context, item goalmodel.MemoryItem) error {
	payload, err := json.Marshal(item.Payload)
	if err != nil {
		return agenterr.Wrap(agenterr.KindSerialization, "memory: marshal payload", err)
	}
	tags := tagsToCSV(item.Tags)
	var embedding []byte
	if len(item.Embedding) > 0 {
		embedding, err = json.Marshal(item.Embedding)
		if err != nil {
			return agenterr.Wrap(agenterr.KindSerialization, "memory: marshal embedding", err)
		}
	}

	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	if item.LastAccessed.IsZero() {
		item.LastAccessed = item.CreatedAt
	}

	_, err = m.db.ExecContext(ctx, `
		INSERT INTO memory_items (id, kind, summary, payload, tags, importance, created_at, last_accessed, access_count, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind=excluded.kind, summary=excluded.summary, payload=excluded.payload,
			tags=excluded.tags, importance=excluded.importance,
			last_accessed=excluded.last_accessed, access_count=excluded.access_count,
			embedding=excluded.embedding`,
		item.ID, string(item.Kind), item.Summary, string(payload), tags, item.Importance,
		item.CreatedAt, item.LastAccessed, item.AccessCount, embedding)
	if err != nil {
		return agenterr.Wrap(agenterr.KindInternal, fmt.Sprintf("memory: store %q", item.ID), err)
	}
	return nil
}

// Retrieve loads one item by id, applying the reinforcement rule from
// spec.md §4.5: every retrieval increments access_count and updates
// last_accessed; every tenth access raises importance by 0.05 (capped 1.0).
func (m *LongTermMemory) Retrieve(ctx context.Context, id string) (goalmodel.MemoryItem, bool, error) {
	item, found, err := m.scanOne(ctx, `SELECT id, kind, summary, payload, tags, importance, created_at, last_accessed, access_count, embedding FROM memory_items WHERE id = ?`, id)
	if err != nil || !found {
		return goalmodel.MemoryItem{}, found, err
	}
	if err := m.reinforce(ctx, &item); err != nil {
		return item, true, err
	}
	return item, true, nil
}

// GetItem satisfies resource.MemoryStore without triggering reinforcement
// (a resource:// read is a passive observation, not a recall signal).
func (m *LongTermMemory) GetItem(ctx context.Context, id string) (goalmodel.MemoryItem, bool, error) {
	return m.scanOne(ctx, `SELECT id, kind, summary, payload, tags, importance, created_at, last_accessed, access_count, embedding FROM memory_items WHERE id = ?`, id)
}

func (m *LongTermMemory) reinforce(ctx context.Context, item *goalmodel.MemoryItem) error {
	item.AccessCount++
	item.LastAccessed = time.Now()
	if item.AccessCount%10 == 0 {
		item.Importance = math.Min(1.0, item.Importance+0.05)
	}
	_, err := m.db.ExecContext(ctx, `UPDATE memory_items SET access_count = ?, last_accessed = ?, importance = ? WHERE id = ?`,
		item.AccessCount, item.LastAccessed, item.Importance, item.ID)
	if err != nil {
		return agenterr.Wrap(agenterr.KindInternal, fmt.Sprintf("memory: reinforce %q", item.ID), err)
	}
	return nil
}

// Query runs a MemoryQuery against the store. Retrieval order is
// importance descending, then recency descending, ties broken by id, per
// spec.md §4.5.
func (m *LongTermMemory) Query(ctx context.Context, q goalmodel.MemoryQuery) ([]goalmodel.MemoryItem, error) {
	var where []string
	var args []any

	if q.Phrase != "" {
		where = append(where, "(summary LIKE ? OR payload LIKE ?)")
		like := "%" + q.Phrase + "%"
		args = append(args, like, like)
	}
	if len(q.KindFilter) > 0 {
		placeholders := make([]string, 0, len(q.KindFilter))
		for k := range q.KindFilter {
			placeholders = append(placeholders, "?")
			args = append(args, string(k))
		}
		where = append(where, fmt.Sprintf("kind IN (%s)", strings.Join(placeholders, ",")))
	}
	if q.TimeRangeStart != nil {
		where = append(where, "created_at >= ?")
		args = append(args, *q.TimeRangeStart)
	}
	if q.TimeRangeEnd != nil {
		where = append(where, "created_at <= ?")
		args = append(args, *q.TimeRangeEnd)
	}
	if q.ImportanceThreshold != nil {
		where = append(where, "importance >= ?")
		args = append(args, *q.ImportanceThreshold)
	}

	query := "SELECT id, kind, summary, payload, tags, importance, created_at, last_accessed, access_count, embedding FROM memory_items"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY importance DESC, created_at DESC, id ASC"

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, agenterr.Wrap(agenterr.KindInternal, "memory: query", err)
	}
	defer rows.Close()

	items, err := scanRows(rows)
	if err != nil {
		return nil, err
	}

	if len(q.TagFilter) > 0 {
		items = filterByTags(items, q.TagFilter)
	}
	if q.Limit > 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}
	return items, nil
}

func filterByTags(items []goalmodel.MemoryItem, tagFilter map[string]struct{}) []goalmodel.MemoryItem {
	out := items[:0]
	for _, item := range items {
		for tag := range tagFilter {
			if _, ok := item.Tags[tag]; ok {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

// FindSimilar ranks every stored item against target: embedding cosine
// similarity when both carry an embedding, Jaccard over tag sets otherwise,
// per spec.md §4.5. Only items scoring >= threshold are returned, most
// similar first.
func (m *LongTermMemory) FindSimilar(ctx context.Context, target goalmodel.MemoryItem, threshold float64) ([]goalmodel.MemoryItem, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT id, kind, summary, payload, tags, importance, created_at, last_accessed, access_count, embedding FROM memory_items WHERE id != ?`, target.ID)
	if err != nil {
		return nil, agenterr.Wrap(agenterr.KindInternal, "memory: find_similar", err)
	}
	defer rows.Close()

	items, err := scanRows(rows)
	if err != nil {
		return nil, err
	}

	type scored struct {
		item  goalmodel.MemoryItem
		score float64
	}
	var results []scored
	for _, item := range items {
		score := similarity(target, item)
		if score >= threshold {
			results = append(results, scored{item, score})
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].score > results[j].score })

	out := make([]goalmodel.MemoryItem, len(results))
	for i, r := range results {
		out[i] = r.item
	}
	return out, nil
}

func similarity(a, b goalmodel.MemoryItem) float64 {
	if len(a.Embedding) > 0 && len(b.Embedding) > 0 {
		return cosineSimilarity(a.Embedding, b.Embedding)
	}
	return jaccardSimilarity(a.Tags, b.Tags)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func jaccardSimilarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for tag := range a {
		if _, ok := b[tag]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func (m *LongTermMemory) scanOne(ctx context.Context, query string, args ...any) (goalmodel.MemoryItem, bool, error) {
	row := m.db.QueryRowContext(ctx, query, args...)
	item, err := scanRow(row)
	if err == sql.ErrNoRows {
		return goalmodel.MemoryItem{}, false, nil
	}
	if err != nil {
		return goalmodel.MemoryItem{}, false, agenterr.Wrap(agenterr.KindInternal, "memory: scan", err)
	}
	return item, true, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows so scanRow/scanRows share one
// field list.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(r rowScanner) (goalmodel.MemoryItem, error) {
	var (
		item         goalmodel.MemoryItem
		kind, tags   string
		payloadJSON  string
		embeddingRaw []byte
	)
	if err := r.Scan(&item.ID, &kind, &item.Summary, &payloadJSON, &tags, &item.Importance,
		&item.CreatedAt, &item.LastAccessed, &item.AccessCount, &embeddingRaw); err != nil {
		return goalmodel.MemoryItem{}, err
	}
	item.Kind = goalmodel.MemoryKind(kind)
	item.Tags = csvToTags(tags)
	if err := json.Unmarshal([]byte(payloadJSON), &item.Payload); err != nil {
		return goalmodel.MemoryItem{}, fmt.Errorf("memory: unmarshal payload: %w", err)
	}
	if len(embeddingRaw) > 0 {
		if err := json.Unmarshal(embeddingRaw, &item.Embedding); err != nil {
			return goalmodel.MemoryItem{}, fmt.Errorf("memory: unmarshal embedding: %w", err)
		}
	}
	return item, nil
}

func scanRows(rows *sql.Rows) ([]goalmodel.MemoryItem, error) {
	var items []goalmodel.MemoryItem
	for rows.Next() {
		item, err := scanRow(rows)
		if err != nil {
			return nil, agenterr.Wrap(agenterr.KindInternal, "memory: scan row", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func tagsToCSV(tags map[string]struct{}) string {
	if len(tags) == 0 {
		return ""
	}
	list := make([]string, 0, len(tags))
	for t := range tags {
		list = append(list, t)
	}
	sort.Strings(list)
	return strings.Join(list, ",")
}

func csvToTags(csv string) map[string]struct{} {
	tags := make(map[string]struct{})
	if csv == "" {
		return tags
	}
	for _, t := range strings.Split(csv, ",") {
		tags[t] = struct{}{}
	}
	return tags
}

// Consolidate satisfies memory.ConsolidationSink: items evicted from
// WorkingMemory are persisted here, matching spec.md §4.5's "consolidation
// promotes items... into long-term memory".
func (m *LongTermMemory) Consolidate(items []goalmodel.MemoryItem) error {
	ctx := context.Background()
	for _, item := range items {
		if err := m.Store(ctx, item); err != nil {
			return err
		}
	}
	return nil
}
