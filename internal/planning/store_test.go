package planning_test

import (
	"testing"

	"github.com/pocketomega/axon/internal/planning"
)

func TestStore_SetGetDelete(t *testing.T) {
	s := planning.NewStore()
	if s.Get("run1") != nil {
		t.Fatal("expected nil for unknown run")
	}

	plan := &planning.ExecutionPlan{CriticalPath: []string{"a", "b"}}
	s.Set("run1", plan)
	got := s.Get("run1")
	if got == nil || len(got.CriticalPath) != 2 {
		t.Fatalf("Get(run1) = %+v, want %+v", got, plan)
	}

	s.Delete("run1")
	if s.Get("run1") != nil {
		t.Fatal("expected nil after Delete")
	}
}
