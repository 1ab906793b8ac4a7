// SPDX-License-Identifier: MPL-2.0

package hostexec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// VirtualShell executes POSIX scripts with the embedded mvdan/sh interpreter.
// Minimal base images often ship without /bin/sh; running the provisioning
// script in-process removes that requirement.
type VirtualShell struct{}

// NewVirtualShell creates a new in-process shell.
func NewVirtualShell() *VirtualShell {
	return &VirtualShell{}
}

// CheckSyntax parses the script without executing it.
func (s *VirtualShell) CheckSyntax(script string) error {
	_, err := syntax.NewParser().Parse(strings.NewReader(script), "script")
	if err != nil {
		return fmt.Errorf("script syntax error: %w", err)
	}
	return nil
}

// RunScript parses and executes the script. Additional env vars are overlaid
// on the process environment. A non-zero script exit status is returned as
// an error carrying the exit code.
func (s *VirtualShell) RunScript(ctx context.Context, script string, env map[string]string, stdout, stderr io.Writer) error {
	prog, err := syntax.NewParser().Parse(strings.NewReader(script), "script")
	if err != nil {
		return fmt.Errorf("failed to parse script: %w", err)
	}

	runner, err := interp.New(
		interp.Env(expand.ListEnviron(environSlice(env)...)),
		interp.StdIO(nil, stdout, stderr),
	)
	if err != nil {
		return fmt.Errorf("failed to create interpreter: %w", err)
	}

	if err := runner.Run(ctx, prog); err != nil {
		var exitStatus interp.ExitStatus
		if errors.As(err, &exitStatus) {
			return fmt.Errorf("script exited with status %d", int(exitStatus))
		}
		return fmt.Errorf("script execution failed: %w", err)
	}
	return nil
}

// environSlice merges the process environment with the overlay env vars.
func environSlice(env map[string]string) []string {
	merged := processEnviron()
	for k, v := range env {
		merged = append(merged, k+"="+v)
	}
	return merged
}
