// SPDX-License-Identifier: MPL-2.0

// Package identity manages the non-root runtime identity that owns the
// application working directory. Browser binaries stay root-owned and
// world read+execute; the runtime user must never own them.
package identity

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"browserprov/internal/hostexec"
	"browserprov/internal/issue"
)

const (
	// DefaultUsername is the runtime identity created when none is configured.
	DefaultUsername = "scraper"

	// DefaultWorkDir is the application working directory granted to the
	// runtime identity.
	DefaultWorkDir = "/app"
)

// ErrInvalidUsername is the sentinel error wrapped by InvalidUsernameError.
var ErrInvalidUsername = errors.New("invalid username")

type (
	// InvalidUsernameError is returned when a username is empty or contains
	// characters the user database would reject. It wraps ErrInvalidUsername
	// for errors.Is() compatibility.
	InvalidUsernameError struct {
		Value string
	}

	// Manager creates the runtime identity and verifies the ownership
	// invariants around it. All host mutations go through the injected
	// Runner so tests can record commands instead of running them.
	Manager struct {
		runner     hostexec.Runner
		lookupUser func(username string) (*user.User, error)
	}

	// Option configures a Manager.
	Option func(*Manager)
)

// Error implements the error interface for InvalidUsernameError.
func (e *InvalidUsernameError) Error() string {
	return fmt.Sprintf("invalid username %q", e.Value)
}

// Unwrap returns ErrInvalidUsername for errors.Is() compatibility.
func (e *InvalidUsernameError) Unwrap() error { return ErrInvalidUsername }

// ValidateUsername rejects empty names and names the user database would
// refuse.
func ValidateUsername(username string) error {
	if username == "" {
		return &InvalidUsernameError{Value: username}
	}
	if strings.ContainsAny(username, " \t\n:/") {
		return &InvalidUsernameError{Value: username}
	}
	return nil
}

// WithLookupUser overrides the user database lookup. Used in tests.
func WithLookupUser(lookup func(username string) (*user.User, error)) Option {
	return func(m *Manager) {
		m.lookupUser = lookup
	}
}

// NewManager creates a Manager that runs host commands through the given
// Runner.
func NewManager(runner hostexec.Runner, opts ...Option) *Manager {
	m := &Manager{
		runner:     runner,
		lookupUser: user.Lookup,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// EnsureUser creates the runtime identity if it does not exist yet. The
// operation is idempotent: an existing user of the same name is accepted
// as-is.
func (m *Manager) EnsureUser(ctx context.Context, username, workDir string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}

	if _, err := m.lookupUser(username); err == nil {
		return nil
	} else if !isUnknownUser(err) {
		return issue.WrapWithContext(err, "look up runtime identity", username)
	}

	cmd := hostexec.Command{
		Argv: []string{
			"useradd",
			"--create-home",
			"--home-dir", workDir,
			"--shell", "/usr/sbin/nologin",
			username,
		},
	}
	if _, err := m.runner.Output(ctx, cmd); err != nil {
		return issue.NewErrorContext().
			WithOperation("create runtime identity").
			WithResource(username).
			WithIssue(issue.PrivilegeDropFailedId).
			WithSuggestion("Check that the build runs as root").
			WithSuggestion("Run 'browserprov verify' for details").
			Wrap(err).
			Build()
	}
	return nil
}

// GrantWorkDir transfers ownership of the working directory tree to the
// runtime identity.
func (m *Manager) GrantWorkDir(ctx context.Context, username, workDir string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	if workDir == "" || !filepath.IsAbs(workDir) {
		return fmt.Errorf("working directory must be an absolute path, got %q", workDir)
	}

	cmd := hostexec.Command{
		Argv: []string{"chown", "-R", username + ":" + username, workDir},
	}
	if _, err := m.runner.Output(ctx, cmd); err != nil {
		return issue.NewErrorContext().
			WithOperation("grant working directory to runtime identity").
			WithResource(workDir).
			WithIssue(issue.PrivilegeDropFailedId).
			Wrap(err).
			Build()
	}
	return nil
}

// VerifyBrowserAccess checks that the runtime identity can reach and run
// everything under the install root: every entry is world-readable,
// directories are world-traversable, and executable files carry the world
// execute bit. A permission mismatch here would otherwise surface later as
// an intermittent browser-launch failure, so it is reported immediately.
func (m *Manager) VerifyBrowserAccess(installRoot string) error {
	info, err := os.Stat(installRoot)
	if err != nil {
		return issue.WrapWithContext(err, "stat browser install root", installRoot)
	}
	if !info.IsDir() {
		return fmt.Errorf("browser install root %q is not a directory", installRoot)
	}

	var violations []string
	err = filepath.WalkDir(installRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.Type().IsRegular() && !d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		mode := fi.Mode().Perm()
		if mode&0o004 == 0 {
			violations = append(violations, fmt.Sprintf("%s: not world-readable (%04o)", path, mode))
		}
		if d.IsDir() && mode&0o001 == 0 {
			violations = append(violations, fmt.Sprintf("%s: directory not world-traversable (%04o)", path, mode))
		}
		// chmod a+rX semantics: whatever the owner can execute, everyone
		// must be able to execute. Data files carry no execute bit at all.
		if !d.IsDir() && mode&0o100 != 0 && mode&0o001 == 0 {
			violations = append(violations, fmt.Sprintf("%s: executable not world-executable (%04o)", path, mode))
		}
		return nil
	})
	if err != nil {
		return issue.WrapWithContext(err, "walk browser install root", installRoot)
	}

	if len(violations) > 0 {
		return issue.NewErrorContext().
			WithOperation("verify browser access for runtime identity").
			WithResource(installRoot).
			WithIssue(issue.PrivilegeDropFailedId).
			WithSuggestion("Re-run provisioning: the install step sets world read+execute on the install root").
			WithSuggestion(fmt.Sprintf("First violation: %s", violations[0])).
			Wrap(fmt.Errorf("%d permission violations under install root", len(violations))).
			Build()
	}
	return nil
}

func isUnknownUser(err error) bool {
	var unknown user.UnknownUserError
	return errors.As(err, &unknown)
}
