package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pocketomega/axon/internal/tool"
)

// StringReplaceEditorTool is the atomic text-substitution tool from
// spec.md §4.7: four occurrence modes (First, Last, All, Index(n)), an
// optional line-range filter, case-sensitive matching by default, an
// optional pre-edit backup, and dry_run support. A no-match is reported as
// a successful zero-count result, never an error.
type StringReplaceEditorTool struct {
	sandbox tool.SandboxConfig
}

// NewStringReplaceEditorTool builds the editor tool, confined to sandbox's
// allowed_paths.
func NewStringReplaceEditorTool(sandbox tool.SandboxConfig) *StringReplaceEditorTool {
	return &StringReplaceEditorTool{sandbox: sandbox}
}

func (t *StringReplaceEditorTool) Name() string { return "string_replace_editor" }

func (t *StringReplaceEditorTool) Description() string {
	return "Atomically substitutes text in a file with occurrence control (first, last, all, or a 1-based index), an optional line-range filter, and an optional dry run."
}

func (t *StringReplaceEditorTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "path", Type: "string", Description: "file to edit", Required: true},
		tool.SchemaParam{Name: "old", Type: "string", Description: "text to find", Required: true},
		tool.SchemaParam{Name: "new", Type: "string", Description: "replacement text", Required: true},
		tool.SchemaParam{Name: "occurrence", Type: "string", Description: "First, Last, All, or an integer index (1-based)", Required: false},
		tool.SchemaParam{Name: "case_sensitive", Type: "boolean", Description: "defaults to true", Required: false},
		tool.SchemaParam{Name: "backup", Type: "boolean", Description: "write path+\".bak\" before editing", Required: false},
		tool.SchemaParam{Name: "dry_run", Type: "boolean", Description: "report the match count without writing", Required: false},
		tool.SchemaParam{Name: "line_start", Type: "integer", Description: "1-based inclusive line-range start filter", Required: false},
		tool.SchemaParam{Name: "line_end", Type: "integer", Description: "1-based inclusive line-range end filter", Required: false},
	)
}

func (t *StringReplaceEditorTool) Init(_ context.Context) error { return nil }
func (t *StringReplaceEditorTool) Close() error                 { return nil }

type stringReplaceArgs struct {
	Path          string `json:"path"`
	Old           string `json:"old"`
	New           string `json:"new"`
	Occurrence    string `json:"occurrence"`
	CaseSensitive *bool  `json:"case_sensitive"`
	Backup        bool   `json:"backup"`
	DryRun        bool   `json:"dry_run"`
	LineStart     int    `json:"line_start"`
	LineEnd       int    `json:"line_end"`
}

// stringReplaceResult is marshaled into ToolResult.Output as JSON so
// callers can read replacements/matches_found programmatically.
type stringReplaceResult struct {
	Success        bool `json:"success"`
	Replacements   int  `json:"replacements"`
	MatchesFound   int  `json:"matches_found"`
	DryRun         bool `json:"dry_run,omitempty"`
	BackupWritten  bool `json:"backup_written,omitempty"`
}

func (t *StringReplaceEditorTool) Execute(_ context.Context, raw json.RawMessage) (tool.ToolResult, error) {
	var a stringReplaceArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return tool.ToolResult{Error: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}
	if a.Old == "" {
		return tool.ToolResult{Error: "old must not be empty"}, nil
	}

	resolved, err := t.sandbox.ValidatePath(a.Path)
	if err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return tool.ToolResult{Error: fmt.Sprintf("read %q: %v", a.Path, err)}, nil
	}
	content := string(data)

	caseSensitive := true
	if a.CaseSensitive != nil {
		caseSensitive = *a.CaseSensitive
	}

	positions := findMatches(content, a.Old, caseSensitive, a.LineStart, a.LineEnd)
	matchesFound := len(positions)

	if matchesFound == 0 {
		res, _ := json.Marshal(stringReplaceResult{Success: true, Replacements: 0, MatchesFound: 0})
		return tool.ToolResult{Output: string(res)}, nil
	}

	selected, err := selectOccurrences(positions, a.Occurrence)
	if err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}

	if a.DryRun {
		res, _ := json.Marshal(stringReplaceResult{Success: true, Replacements: len(selected), MatchesFound: matchesFound, DryRun: true})
		return tool.ToolResult{Output: string(res)}, nil
	}

	backupWritten := false
	if a.Backup {
		if err := os.WriteFile(resolved+".bak", data, 0o644); err != nil {
			return tool.ToolResult{Error: fmt.Sprintf("write backup: %v", err)}, nil
		}
		backupWritten = true
	}

	newContent := applyReplacements(content, a.Old, a.New, selected)
	if err := os.WriteFile(resolved, []byte(newContent), 0o644); err != nil {
		return tool.ToolResult{Error: fmt.Sprintf("write %q: %v", a.Path, err)}, nil
	}

	res, _ := json.Marshal(stringReplaceResult{
		Success:       true,
		Replacements:  len(selected),
		MatchesFound:  matchesFound,
		BackupWritten: backupWritten,
	})
	return tool.ToolResult{Output: string(res)}, nil
}

// findMatches returns the byte offset of every occurrence of old in
// content, restricted to lines in [lineStart,lineEnd] when either bound is
// set (1-based, inclusive; a zero bound is unbounded on that side).
func findMatches(content, old string, caseSensitive bool, lineStart, lineEnd int) []int {
	haystack, needle := content, old
	if !caseSensitive {
		haystack = strings.ToLower(content)
		needle = strings.ToLower(old)
	}

	var offsets []int
	for pos := 0; ; {
		idx := strings.Index(haystack[pos:], needle)
		if idx < 0 {
			break
		}
		offsets = append(offsets, pos+idx)
		pos += idx + len(needle)
		if pos >= len(haystack) {
			break
		}
	}

	if lineStart == 0 && lineEnd == 0 {
		return offsets
	}

	var filtered []int
	for _, off := range offsets {
		line := 1 + strings.Count(content[:off], "\n")
		if lineStart != 0 && line < lineStart {
			continue
		}
		if lineEnd != 0 && line > lineEnd {
			continue
		}
		filtered = append(filtered, off)
	}
	return filtered
}

// selectOccurrences maps the occurrence spec onto a subset of offsets.
// Empty/unset defaults to All, matching the tool's common case.
func selectOccurrences(offsets []int, occurrence string) ([]int, error) {
	switch strings.ToLower(strings.TrimSpace(occurrence)) {
	case "", "all":
		return offsets, nil
	case "first":
		return offsets[:1], nil
	case "last":
		return offsets[len(offsets)-1:], nil
	default:
		n, err := strconv.Atoi(occurrence)
		if err != nil {
			return nil, fmt.Errorf("tool: unrecognized occurrence %q (want First, Last, All, or an index)", occurrence)
		}
		if n < 1 || n > len(offsets) {
			return nil, fmt.Errorf("tool: occurrence index %d out of range (found %d matches)", n, len(offsets))
		}
		return offsets[n-1 : n], nil
	}
}

// applyReplacements rewrites content, substituting old with new at exactly
// the byte offsets in selected (a sorted, non-overlapping subset of old's
// occurrences, as produced by findMatches/selectOccurrences).
func applyReplacements(content, old, new string, selected []int) string {
	var sb strings.Builder
	last := 0
	for _, off := range selected {
		sb.WriteString(content[last:off])
		sb.WriteString(new)
		last = off + len(old)
	}
	sb.WriteString(content[last:])
	return sb.String()
}
