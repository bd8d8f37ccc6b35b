package goalmodel

import (
	"testing"
	"time"
)

func TestNewGoalValidation(t *testing.T) {
	badIter := -1
	badTimeout := time.Duration(0)

	tests := []struct {
		name     string
		desc     string
		criteria []string
		iter     *int
		timeout  *time.Duration
		wantErr  bool
	}{
		{name: "valid", desc: "build a thing", criteria: []string{"compiles"}, wantErr: false},
		{name: "empty description", desc: "", criteria: []string{"compiles"}, wantErr: true},
		{name: "no criteria", desc: "build a thing", criteria: nil, wantErr: true},
		{name: "bad max iterations", desc: "build a thing", criteria: []string{"compiles"}, iter: &badIter, wantErr: true},
		{name: "zero timeout", desc: "build a thing", criteria: []string{"compiles"}, timeout: &badTimeout, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGoal(tt.desc, GoalCodeGeneration, PriorityMedium, tt.criteria)
			if tt.iter != nil && err == nil {
				g.MaxIterations = tt.iter
				err = g.Validate()
			}
			if tt.timeout != nil && err == nil {
				g.Timeout = tt.timeout
				err = g.Validate()
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewGoal/Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPriorityRank(t *testing.T) {
	if PriorityLow.Rank() >= PriorityHigh.Rank() {
		t.Fatalf("expected Low < High, got %d >= %d", PriorityLow.Rank(), PriorityHigh.Rank())
	}
	if PriorityCritical.Rank() <= PriorityHigh.Rank() {
		t.Fatalf("expected Critical > High")
	}
}

func TestTaskRetry(t *testing.T) {
	task := &Task{Status: TaskFailed, CurrentAttempt: 1, MaxAttempts: 3}
	if !task.CanRetry() {
		t.Fatalf("expected CanRetry true with attempt 1 < max 3")
	}
	task.CurrentAttempt = 3
	if task.CanRetry() {
		t.Fatalf("expected CanRetry false once attempts exhausted")
	}
}

func TestActionPlanAggregateRisk(t *testing.T) {
	p := &ActionPlan{Actions: []Action{
		{Risk: RiskLow},
		{Risk: RiskHigh},
		{Risk: RiskMedium},
	}}
	if got := p.AggregateRisk(); got != RiskHigh {
		t.Fatalf("AggregateRisk() = %v, want %v", got, RiskHigh)
	}
}
