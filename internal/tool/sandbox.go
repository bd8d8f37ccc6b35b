package tool

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SandboxConfig is the per-tool allow-list from spec.md §4.7: a tool that
// touches the host is configured with a set of allowed path prefixes and/or
// allowed command names, checked before the underlying operation runs.
type SandboxConfig struct {
	AllowedPaths    []string
	AllowedCommands []string
}

// ValidatePath canonicalizes requested and rejects it unless it has one of
// cfg.AllowedPaths as a prefix, following symlinks so a symlink inside an
// allowed directory cannot point outside the allow-set.
func (cfg SandboxConfig) ValidatePath(requested string) (string, error) {
	if len(cfg.AllowedPaths) == 0 {
		return "", fmt.Errorf("tool: sandbox has no allowed_paths configured")
	}

	abs, err := filepath.Abs(requested)
	if err != nil {
		return "", fmt.Errorf("tool: resolve path %q: %w", requested, err)
	}
	canonical, err := resolveCanonical(abs)
	if err != nil {
		return "", err
	}

	for _, root := range cfg.AllowedPaths {
		rootAbs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		rootCanonical, err := resolveCanonical(rootAbs)
		if err != nil {
			rootCanonical = rootAbs
		}
		if canonical == rootCanonical || strings.HasPrefix(canonical, rootCanonical+string(os.PathSeparator)) {
			return canonical, nil
		}
	}
	return "", fmt.Errorf("tool: path %q is not a descendant of any allowed_paths entry", requested)
}

// resolveCanonical resolves symlinks on path, or on its nearest existing
// ancestor for a path that does not yet exist (a file about to be written).
func resolveCanonical(path string) (string, error) {
	if real, err := filepath.EvalSymlinks(path); err == nil {
		return real, nil
	}
	dir := filepath.Dir(path)
	for dir != filepath.Dir(dir) {
		if real, err := filepath.EvalSymlinks(dir); err == nil {
			return filepath.Join(real, path[len(dir):]), nil
		}
		dir = filepath.Dir(dir)
	}
	return path, nil
}

// ValidateCommand checks that argv[0] (the program name, never shell
// expanded) appears in cfg.AllowedCommands.
func (cfg SandboxConfig) ValidateCommand(argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("tool: empty command")
	}
	program := filepath.Base(argv[0])
	for _, allowed := range cfg.AllowedCommands {
		if allowed == argv[0] || allowed == program {
			return nil
		}
	}
	return fmt.Errorf("tool: command %q is not in allowed_commands", argv[0])
}
