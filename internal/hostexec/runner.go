// SPDX-License-Identifier: MPL-2.0

// Package hostexec provides the command-execution seam used by provisioning
// and identity management. Callers describe commands as data; the runner
// decides how they execute (host exec or the in-process shell interpreter),
// which keeps the provisioning logic testable without touching the system.
package hostexec

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

type (
	// Command describes a single host command to execute.
	Command struct {
		// Argv is the program and its arguments. Must be non-empty.
		Argv []string
		// Env are additional environment variables (KEY=VALUE overlay on
		// the parent environment).
		Env map[string]string
		// Dir is the working directory. Empty means inherit.
		Dir string
	}

	// Runner executes host commands.
	Runner interface {
		// Run executes the command, streaming output to the given writers.
		// A nil writer discards that stream.
		Run(ctx context.Context, cmd Command, stdout, stderr io.Writer) error
		// Output executes the command and returns its stdout.
		Output(ctx context.Context, cmd Command) (string, error)
	}

	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// ExecRunner executes commands via os/exec on the host.
	ExecRunner struct {
		execCommand ExecCommandFunc
	}

	// ExecRunnerOption configures an ExecRunner.
	ExecRunnerOption func(*ExecRunner)
)

// WithExecCommand sets a custom exec command function for testing.
func WithExecCommand(fn ExecCommandFunc) ExecRunnerOption {
	return func(r *ExecRunner) {
		r.execCommand = fn
	}
}

// NewExecRunner creates a runner backed by os/exec.
func NewExecRunner(opts ...ExecRunnerOption) *ExecRunner {
	r := &ExecRunner{
		execCommand: exec.CommandContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Validate returns an error if the Command has an empty argv.
func (c Command) Validate() error {
	if len(c.Argv) == 0 || strings.TrimSpace(c.Argv[0]) == "" {
		return fmt.Errorf("command argv must be non-empty")
	}
	return nil
}

// String returns the command as a space-joined line, for logs and dry runs.
func (c Command) String() string {
	return strings.Join(c.Argv, " ")
}

// Run executes the command, streaming output to the given writers.
func (r *ExecRunner) Run(ctx context.Context, cmd Command, stdout, stderr io.Writer) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	execCmd := r.execCommand(ctx, cmd.Argv[0], cmd.Argv[1:]...)
	execCmd.Dir = cmd.Dir
	execCmd.Stdout = stdout
	execCmd.Stderr = stderr
	applyEnv(execCmd, cmd.Env)

	if err := execCmd.Run(); err != nil {
		return fmt.Errorf("command %q failed: %w", cmd.String(), err)
	}
	return nil
}

// Output executes the command and returns its stdout.
func (r *ExecRunner) Output(ctx context.Context, cmd Command) (string, error) {
	if err := cmd.Validate(); err != nil {
		return "", err
	}

	execCmd := r.execCommand(ctx, cmd.Argv[0], cmd.Argv[1:]...)
	execCmd.Dir = cmd.Dir
	applyEnv(execCmd, cmd.Env)

	out, err := execCmd.Output()
	if err != nil {
		return "", fmt.Errorf("command %q failed: %w", cmd.String(), err)
	}
	return string(out), nil
}

// applyEnv overlays env vars on the parent environment. exec.Cmd.Env being
// nil means "inherit everything"; once set to a non-nil slice, only the
// listed vars reach the child, so the parent environment is copied first.
func applyEnv(cmd *exec.Cmd, env map[string]string) {
	if len(env) == 0 {
		return
	}
	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
}
