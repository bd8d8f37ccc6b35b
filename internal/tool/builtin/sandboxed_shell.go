package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/pocketomega/axon/internal/tool"
)

// defaultShellExecTimeout and maxSandboxedOutputSize are the per-execution
// timeout and output cap from spec.md §4.7. Unlike shell_exec (the
// teacher's sh -c executor, kept for interactive/general-purpose use),
// SandboxedShellTool never invokes a shell: arguments are passed straight
// to exec.Command as an argv array.
const (
	defaultShellExecTimeout = 30 * time.Second
	maxSandboxedOutputSize  = 64 * 1024
)

// SandboxedShellTool runs a program with an explicit argv array against an
// allowed_commands allow-list, per spec.md §4.7: "spawn-with-argv only;
// arguments are passed as an argv array (never shell-interpreted)".
type SandboxedShellTool struct {
	sandbox tool.SandboxConfig
	timeout time.Duration
	workDir string
}

// NewSandboxedShellTool builds the tool, confined to sandbox.AllowedCommands.
func NewSandboxedShellTool(sandbox tool.SandboxConfig, workDir string) *SandboxedShellTool {
	return &SandboxedShellTool{sandbox: sandbox, timeout: defaultShellExecTimeout, workDir: workDir}
}

func (t *SandboxedShellTool) Name() string { return "shell_command" }

func (t *SandboxedShellTool) Description() string {
	return "Runs an allow-listed program with an explicit argument array; never interprets a shell string."
}

func (t *SandboxedShellTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "program", Type: "string", Description: "argv[0], must be in allowed_commands", Required: true},
		tool.SchemaParam{Name: "args", Type: "array", Description: "program arguments as a JSON array of strings, passed as argv[1:] without shell interpretation", Required: false},
	)
}

func (t *SandboxedShellTool) Init(_ context.Context) error { return nil }
func (t *SandboxedShellTool) Close() error                 { return nil }

type sandboxedShellArgs struct {
	Program string   `json:"program"`
	Args    []string `json:"args"`
}

func (t *SandboxedShellTool) Execute(ctx context.Context, raw json.RawMessage) (tool.ToolResult, error) {
	var a sandboxedShellArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return tool.ToolResult{Error: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}
	if a.Program == "" {
		return tool.ToolResult{Error: "program must not be empty"}, nil
	}

	argv := append([]string{a.Program}, a.Args...)
	if err := t.sandbox.ValidateCommand(argv); err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}

	runCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, a.Program, a.Args...)
	cmd.Dir = t.workDir
	cmd.Env = filterEnv(os.Environ())

	output, err := cmd.CombinedOutput()
	outStr := safeRuneTruncate(string(output), maxSandboxedOutputSize)

	exitCode := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	} else if err != nil && runCtx.Err() == context.DeadlineExceeded {
		return tool.ToolResult{Error: fmt.Sprintf("command timed out after %s: %s", t.timeout, strings.TrimSpace(outStr))}, nil
	} else if err != nil {
		return tool.ToolResult{Error: fmt.Sprintf("exec %q: %v", a.Program, err)}, nil
	}

	result, _ := json.Marshal(struct {
		Output   string `json:"output"`
		ExitCode int    `json:"exit_code"`
	}{Output: outStr, ExitCode: exitCode})
	return tool.ToolResult{Output: string(result)}, nil
}
