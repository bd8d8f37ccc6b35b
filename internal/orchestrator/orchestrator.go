package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pocketomega/axon/internal/agenterr"
	"github.com/pocketomega/axon/internal/concurrency"
	"github.com/pocketomega/axon/internal/core"
	"github.com/pocketomega/axon/internal/engine"
	"github.com/pocketomega/axon/internal/goalmodel"
	"github.com/pocketomega/axon/internal/planning"
	"github.com/pocketomega/axon/internal/reasoning"
	"github.com/pocketomega/axon/internal/reflection"
	"github.com/pocketomega/axon/internal/state"
	"github.com/pocketomega/axon/internal/tool"
	"github.com/pocketomega/axon/internal/xlog"
)

// Orchestrator bundles the reasoning, planning, reflection, tool, state and
// resource sub-engines and drives one goal at a time through the
// core.Flow[runState] built by BuildOrchestratorFlow. One Orchestrator can
// run many goals sequentially or concurrently; each Run call gets its own
// runState and cancellation token, sharing the registry/monitor/store.
type Orchestrator struct {
	cfg Config
	log *xlog.Logger

	reasoningEngine  *reasoning.Engine
	decomposer       *planning.Decomposer
	analyzer         *planning.Analyzer
	actionPlanner    *planning.ActionPlanner
	reflectionEngine *reflection.Engine
	planStore        *planning.Store

	registry *tool.Registry
	monitor  *concurrency.ResourceMonitor
	store    *state.Store

	mu     sync.Mutex
	tokens map[string]*concurrency.CancellationToken
	runs   map[string]*runState
}

// NewOrchestrator builds an Orchestrator. store may be nil to disable
// checkpointing (e.g. in tests); registry must not be nil.
func NewOrchestrator(model engine.ModelEngine, registry *tool.Registry, store *state.Store, cfg Config) *Orchestrator {
	return &Orchestrator{
		cfg:              cfg,
		log:              xlog.New("orchestrator"),
		reasoningEngine:  reasoning.NewEngine(model),
		decomposer:       planning.NewDecomposer(model),
		analyzer:         planning.NewAnalyzer(),
		actionPlanner:    planning.NewActionPlanner(),
		reflectionEngine: reflection.NewEngine(),
		planStore:        planning.NewStore(),
		registry:         registry,
		monitor:          concurrency.NewMonitor(concurrency.DefaultConfig()),
		store:            store,
		tokens:           make(map[string]*concurrency.CancellationToken),
		runs:             make(map[string]*runState),
	}
}

// Run drives goal through the full R-P-A-O-R loop to completion, failure,
// or cancellation. The run id is generated inside Run and first reaches the
// caller in the returned Outcome.RunID; the run is deregistered before Run
// returns, so Cancel and Metrics report that id as an unknown run.
func (o *Orchestrator) Run(ctx context.Context, goal *goalmodel.Goal) (*Outcome, error) {
	if err := goal.Validate(); err != nil {
		return nil, agenterr.Wrap(agenterr.KindValidation, "orchestrator: invalid goal", err)
	}

	runID := uuid.NewString()
	token := concurrency.New(ctx)
	ctxState := goalmodel.NewExecutionContext(goal)
	rs := newRunState(runID, ctxState)

	o.mu.Lock()
	o.tokens[runID] = token
	o.runs[runID] = rs
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		delete(o.tokens, runID)
		delete(o.runs, runID)
		o.mu.Unlock()
	}()

	flow := BuildOrchestratorFlow(
		o.cfg, o.reasoningEngine, o.decomposer, o.analyzer, o.actionPlanner,
		o.registry, o.monitor, o.reflectionEngine, o.store, o.planStore,
	)

	o.log.Printf("run %s starting for goal %q", runID, goal.ID)
	action := flow.Run(token.Context(), rs)

	if o.store != nil {
		o.store.Put(checkpointOf(rs))
	}
	o.planStore.Delete(runID)

	return o.outcome(runID, rs, token, action), nil
}

func (o *Orchestrator) outcome(runID string, rs *runState, token *concurrency.CancellationToken, action core.Action) *Outcome {
	out := &Outcome{
		RunID:      runID,
		Snapshot:   rs.ctx.Snapshot(),
		Reflection: rs.lastReflection,
	}

	switch {
	case token.Context().Err() != nil:
		out.FinalState = FinalCancelled
		out.CancelReason = token.Reason()
		if out.CancelReason == concurrency.ReasonNone {
			out.CancelReason = concurrency.ReasonUser
		}
	case rs.final == FinalCompleted || (rs.final == "" && action == core.ActionSuccess):
		out.FinalState = FinalCompleted
	default:
		out.FinalState = FinalFailed
		out.Err = rs.err
		if out.Err == nil {
			out.Err = agenterr.New(agenterr.KindInternal, "orchestrator: run ended without reaching a success or an explicit failure")
		}
	}

	o.log.Printf("run %s finished: %s", runID, out.FinalState)
	return out
}

// Cancel trips the cancellation token for an in-flight run, if one exists
// under runID. Returns false if no such run is currently active.
func (o *Orchestrator) Cancel(runID string, reason concurrency.CancelReason) bool {
	o.mu.Lock()
	token, ok := o.tokens[runID]
	o.mu.Unlock()
	if !ok {
		return false
	}
	token.Cancel(reason)
	return true
}

// CurrentPlan returns the execution plan most recently scheduled for
// runID, or nil if the run has no plan yet (still in Reasoning) or has
// already finished.
func (o *Orchestrator) CurrentPlan(runID string) *planning.ExecutionPlan {
	return o.planStore.Get(runID)
}

// Metrics returns a point-in-time summary of an in-flight run.
func (o *Orchestrator) Metrics(runID string) (Metrics, bool) {
	o.mu.Lock()
	rs, ok := o.runs[runID]
	o.mu.Unlock()
	if !ok {
		return Metrics{}, false
	}
	snap := rs.ctx.Snapshot()
	return Metrics{
		RunID:           runID,
		IterationCount:  snap.IterationCount,
		ActiveTasks:     snap.ActiveCount,
		CompletedTasks:  snap.CompletedCount,
		SuccessfulTasks: snap.SuccessfulCount,
		Elapsed:         time.Since(rs.ctx.StartTime),
	}, true
}

// Close stops the orchestrator's background resource monitor. It does not
// close the registry or state store, which the caller owns.
func (o *Orchestrator) Close() {
	o.monitor.Stop()
}
