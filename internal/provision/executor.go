// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"browserprov/internal/hostexec"
	"browserprov/internal/identity"
	"browserprov/internal/issue"
)

type (
	// Executor applies a plan directly to the host it runs on.
	Executor struct {
		runner   hostexec.Runner
		identity *identity.Manager
		logger   *log.Logger
		stdout   io.Writer
		stderr   io.Writer
	}

	// ExecutorOption configures an Executor.
	ExecutorOption func(*Executor)
)

// WithOutput streams command output to the given writers instead of
// discarding it.
func WithOutput(stdout, stderr io.Writer) ExecutorOption {
	return func(e *Executor) {
		e.stdout = stdout
		e.stderr = stderr
	}
}

// WithIdentityManager overrides the identity manager. Used in tests.
func WithIdentityManager(mgr *identity.Manager) ExecutorOption {
	return func(e *Executor) {
		e.identity = mgr
	}
}

// NewExecutor creates an Executor running commands through the given
// Runner.
func NewExecutor(runner hostexec.Runner, logger *log.Logger, opts ...ExecutorOption) *Executor {
	e := &Executor{
		runner:   runner,
		identity: identity.NewManager(runner),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply runs every step of the plan in order. The identity step goes
// through the identity manager so it stays idempotent; everything else
// runs as plain commands. The first failure aborts the whole run; a
// partially provisioned host must not look runnable.
func (e *Executor) Apply(ctx context.Context, plan *Plan) error {
	for _, step := range plan.Steps {
		e.logger.Info("applying step", "step", step.Name)

		if step.Name == StepCreateIdentity {
			if err := e.applyIdentity(ctx, plan.Policy); err != nil {
				return err
			}
			continue
		}

		for _, cmd := range step.Commands {
			cmd = expandGlobs(cmd)
			e.logger.Debug("running command", "command", cmd.String())
			if err := e.runner.Run(ctx, cmd, e.stdout, e.stderr); err != nil {
				return stepError(step.Name, cmd, err)
			}
		}
	}
	return nil
}

// ApplyScript renders the plan as a POSIX script and runs it through the
// in-process shell interpreter. This path works on minimal hosts that
// ship no /bin/sh.
func (e *Executor) ApplyScript(ctx context.Context, plan *Plan, shell *hostexec.VirtualShell) error {
	script, err := RenderScript(plan)
	if err != nil {
		return err
	}
	e.logger.Info("applying plan via virtual shell", "steps", len(plan.Steps))
	if err := shell.RunScript(ctx, script, nil, e.stdout, e.stderr); err != nil {
		return issue.WrapWithOperation(err, "apply provisioning script")
	}
	return nil
}

func (e *Executor) applyIdentity(ctx context.Context, policy Policy) error {
	if err := e.identity.EnsureUser(ctx, policy.RuntimeUser, policy.WorkDir); err != nil {
		return err
	}
	return e.identity.GrantWorkDir(ctx, policy.RuntimeUser, policy.WorkDir)
}

// expandGlobs substitutes glob arguments with their matches. Plan commands
// run through exec without a shell, so a pattern like /var/lib/apt/lists/*
// would otherwise reach the program as a literal string and match nothing.
// Unmatched patterns stay literal, the same as sh.
func expandGlobs(cmd hostexec.Command) hostexec.Command {
	expanded := make([]string, 0, len(cmd.Argv))
	for i, arg := range cmd.Argv {
		if i == 0 || !strings.ContainsAny(arg, "*?[") {
			expanded = append(expanded, arg)
			continue
		}
		matches, err := filepath.Glob(arg)
		if err != nil || len(matches) == 0 {
			expanded = append(expanded, arg)
			continue
		}
		expanded = append(expanded, matches...)
	}
	cmd.Argv = expanded
	return cmd
}

func stepError(stepName string, cmd hostexec.Command, err error) error {
	ctx := issue.NewErrorContext().
		WithOperation(stepName).
		WithResource(cmd.String()).
		Wrap(err)

	switch stepName {
	case StepInstallPackages:
		ctx.WithIssue(issue.PackageInstallFailedId).
			WithSuggestion("Run with --verbose to see the package manager output").
			WithSuggestion("Check that the package index is reachable from this host")
	case StepInstallBrowsers:
		ctx.WithIssue(issue.BrowserInstallFailedId).
			WithSuggestion("Verify the install tool is on PATH").
			WithSuggestion("Check that the install root is writable")
	}
	return ctx.Build()
}
