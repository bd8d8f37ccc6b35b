package planning_test

import (
	"testing"

	"github.com/pocketomega/axon/internal/goalmodel"
	"github.com/pocketomega/axon/internal/planning"
)

func TestActionPlanner_InfersToolFromDescription(t *testing.T) {
	cases := []struct {
		description  string
		wantTool     string
		wantRisk     goalmodel.Risk
	}{
		{"run the test suite", "shell_command", goalmodel.RiskHigh},
		{"read the config file", "file_read", goalmodel.RiskLow},
		{"replace the old import path", "string_replace_editor", goalmodel.RiskMedium},
		{"summarize the findings", "", goalmodel.RiskLow},
	}

	planner := planning.NewActionPlanner()
	for _, tc := range cases {
		t.Run(tc.description, func(t *testing.T) {
			task := &goalmodel.Task{ID: "t1", Description: tc.description}
			plan := planner.Plan(task)
			if len(plan.Actions) != 1 {
				t.Fatalf("len(actions) = %d, want 1", len(plan.Actions))
			}
			got := plan.Actions[0]
			if got.ToolName != tc.wantTool {
				t.Errorf("tool = %q, want %q", got.ToolName, tc.wantTool)
			}
			if got.Risk != tc.wantRisk {
				t.Errorf("risk = %q, want %q", got.Risk, tc.wantRisk)
			}
		})
	}
}

func TestActionPlan_AggregateRisk(t *testing.T) {
	plan := &goalmodel.ActionPlan{Actions: []goalmodel.Action{
		{Risk: goalmodel.RiskLow},
		{Risk: goalmodel.RiskHigh},
		{Risk: goalmodel.RiskMedium},
	}}
	if got := plan.AggregateRisk(); got != goalmodel.RiskHigh {
		t.Errorf("AggregateRisk() = %q, want high", got)
	}
}
