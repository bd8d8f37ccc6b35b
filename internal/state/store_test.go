package state

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pocketomega/axon/internal/goalmodel"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := DefaultConfig(t.TempDir())
	cfg.FlushInterval = time.Hour // avoid racing the background flusher in tests
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	want := goalmodel.PipelineState{RunID: "run-1", CurrentStep: 3, Data: map[string]any{"k": "v"}}
	s.Put(want)

	got, ok, err := s.Get(context.Background(), "run-1")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.CurrentStep != want.CurrentStep {
		t.Fatalf("expected CurrentStep %d, got %d", want.CurrentStep, got.CurrentStep)
	}
}

func TestStore_FlushPersistsToDisk(t *testing.T) {
	s := newTestStore(t)
	s.Put(goalmodel.PipelineState{RunID: "run-2", CurrentStep: 1})
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	// Force a cold read from disk by evicting the cache entry.
	s.cache.Remove("run-2")
	got, ok, err := s.Get(context.Background(), "run-2")
	if err != nil || !ok {
		t.Fatalf("Get after flush: ok=%v err=%v", ok, err)
	}
	if got.RunID != "run-2" {
		t.Fatalf("expected run-2, got %q", got.RunID)
	}
}

func TestStore_LargeEntryRoundTripsThroughCompression(t *testing.T) {
	s := newTestStore(t)
	big := strings.Repeat("x", 4096)
	s.Put(goalmodel.PipelineState{RunID: "run-3", Data: map[string]any{"blob": big}})
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	s.cache.Remove("run-3")

	got, ok, err := s.Get(context.Background(), "run-3")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.Data["blob"] != big {
		t.Fatal("expected compressed blob to round-trip unchanged")
	}
}

func TestStore_GetMissingReturnsFalse(t *testing.T) {
	s := newTestStore(t)
	_, ok, err := s.Get(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing checkpoint")
	}
}
