// Command axon drives one goal through the agent orchestrator and reports
// its outcome, mirroring how the teacher's cmd/omega wires config and tool
// registry before handing control to the core flow. It registers only the
// builtin tools; MCP servers listed in the YAML config are not connected.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pocketomega/axon/internal/config"
	"github.com/pocketomega/axon/internal/engine/openai"
	"github.com/pocketomega/axon/internal/goalmodel"
	"github.com/pocketomega/axon/internal/orchestrator"
	"github.com/pocketomega/axon/internal/state"
	"github.com/pocketomega/axon/internal/tool"
	"github.com/pocketomega/axon/internal/tool/builtin"
	"github.com/pocketomega/axon/internal/xlog"
)

var log = xlog.New("axon")

const (
	exitCompleted   = 0
	exitFailed      = 1
	exitCancelled   = 130
	exitConfigError = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		goalDesc   = flag.String("goal", "", "natural-language description of the goal to pursue (required)")
		criteria   multiFlag
		configPath = flag.String("config", "", "path to a YAML agent config file (optional)")
		workspace  = flag.String("workspace", ".", "workspace directory the file/shell tools are sandboxed to")
		priority   = flag.String("priority", string(goalmodel.PriorityMedium), "goal priority: low|medium|high|critical")
	)
	flag.Var(&criteria, "criterion", "a success criterion (repeatable)")
	flag.Parse()

	config.LoadEnv()

	if *goalDesc == "" {
		fmt.Fprintln(os.Stderr, "axon: -goal is required")
		return exitConfigError
	}

	agentCfg, err := config.LoadAgentConfig(*configPath)
	if err != nil {
		log.Printf("config error: %v", err)
		return exitConfigError
	}

	model, err := openai.NewClientFromEnv()
	if err != nil {
		log.Printf("model engine config error: %v", err)
		return exitConfigError
	}

	registry := tool.NewRegistry()
	registerBuiltinTools(registry, *workspace)

	checkpointDir, err := os.MkdirTemp("", "axon-checkpoints-*")
	if err != nil {
		log.Printf("checkpoint dir error: %v", err)
		return exitConfigError
	}
	stateStore, err := state.New(state.DefaultConfig(checkpointDir))
	if err != nil {
		log.Printf("state store config error: %v", err)
		return exitConfigError
	}
	defer stateStore.Close()

	goal, err := goalmodel.NewGoal(*goalDesc, goalmodel.GoalProblemSolving, goalmodel.Priority(*priority), criteria)
	if err != nil {
		log.Printf("invalid goal: %v", err)
		return exitConfigError
	}

	orc := orchestrator.NewOrchestrator(model, registry, stateStore, agentCfg.OrchestratorConfig())
	defer orc.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	out, err := orc.Run(ctx, goal)
	if err != nil {
		log.Printf("run failed to start: %v", err)
		return exitConfigError
	}

	log.Printf("run %s ended in state %s (iterations=%d)", out.RunID, out.FinalState, out.Snapshot.IterationCount)
	switch out.FinalState {
	case orchestrator.FinalCompleted:
		return exitCompleted
	case orchestrator.FinalCancelled:
		return exitCancelled
	default:
		if out.Err != nil {
			log.Printf("failure: %v", out.Err)
		}
		return exitFailed
	}
}

// registerBuiltinTools wires the sandboxed, workspace-scoped builtin tools
// into registry. Tools needing external credentials (search, HTTP) are not
// registered.
func registerBuiltinTools(registry *tool.Registry, workspace string) {
	sandbox := tool.SandboxConfig{AllowedPaths: []string{workspace}}

	registry.Register(builtin.NewFileReadTool(workspace))
	registry.Register(builtin.NewFileWriteTool(workspace))
	registry.Register(builtin.NewFileListTool(workspace))
	registry.Register(builtin.NewFileFindTool(workspace))
	registry.Register(builtin.NewFileGrepTool(workspace))
	registry.Register(builtin.NewFileOpenTool(workspace))
	registry.Register(builtin.NewFileMoveTool(workspace))
	registry.Register(builtin.NewFileDeleteTool(workspace))
	registry.Register(builtin.NewFilePatchTool(workspace))
	registry.Register(builtin.NewStringReplaceEditorTool(sandbox))
	registry.Register(builtin.NewSandboxedShellTool(sandbox, workspace))
	registry.Register(builtin.NewTimeTool())
}

// multiFlag collects repeated -criterion flags into a []string.
type multiFlag []string

func (m *multiFlag) String() string { return fmt.Sprintf("%v", []string(*m)) }
func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}
