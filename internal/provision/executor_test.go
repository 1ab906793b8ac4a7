// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"errors"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"browserprov/internal/browser"
	"browserprov/internal/hostexec"
	"browserprov/internal/identity"
	"browserprov/internal/issue"
)

// mockRunner records commands and replays scripted results.
type mockRunner struct {
	commands []hostexec.Command
	failOn   string // substring of the command line that triggers an error
	outputs  map[string]string
}

func (r *mockRunner) Run(ctx context.Context, cmd hostexec.Command, stdout, stderr io.Writer) error {
	r.commands = append(r.commands, cmd)
	if r.failOn != "" && strings.Contains(cmd.String(), r.failOn) {
		return errors.New("exit status 100")
	}
	return nil
}

func (r *mockRunner) Output(ctx context.Context, cmd hostexec.Command) (string, error) {
	r.commands = append(r.commands, cmd)
	if r.failOn != "" && strings.Contains(cmd.String(), r.failOn) {
		return "", errors.New("exit status 100")
	}
	return r.outputs[cmd.String()], nil
}

func discardLogger() *log.Logger {
	return log.New(io.Discard)
}

func userAbsent(username string) (*user.User, error) {
	return nil, user.UnknownUserError(username)
}

func newTestExecutor(runner *mockRunner) *Executor {
	mgr := identity.NewManager(runner, identity.WithLookupUser(userAbsent))
	return NewExecutor(runner, discardLogger(), WithIdentityManager(mgr))
}

func TestExecutor_Apply(t *testing.T) {
	t.Parallel()

	plan, err := BuildPlan(NewPolicy(WithEngines(browser.EngineChromium)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	runner := &mockRunner{}
	if err := newTestExecutor(runner).Apply(context.Background(), plan); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var lines []string
	for _, cmd := range runner.commands {
		lines = append(lines, cmd.String())
	}
	joined := strings.Join(lines, "\n")

	for _, want := range []string{
		"apt-get update",
		"playwright install chromium",
		"useradd",
		"chown -R scraper:scraper /app",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected command %q to run, got:\n%s", want, joined)
		}
	}

	// apt-get update must precede the install.
	update := strings.Index(joined, "apt-get update")
	install := strings.Index(joined, "apt-get install")
	if update < 0 || install < 0 || update > install {
		t.Errorf("expected update before install, got:\n%s", joined)
	}
}

func TestExecutor_Apply_ExpandsCleanupGlob(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	leftover := filepath.Join(dir, "leftover.bin")
	if err := os.WriteFile(leftover, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	// The cleanup command carries a glob; without a shell in front of it,
	// rm would receive the pattern literally and delete nothing.
	plan := &Plan{Steps: []Step{{
		Name: StepInstallPackages,
		Commands: []hostexec.Command{
			{Argv: []string{"rm", "-rf", filepath.Join(dir, "*")}},
		},
	}}}

	runner := &mockRunner{}
	if err := newTestExecutor(runner).Apply(context.Background(), plan); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runner.commands) != 1 {
		t.Fatalf("expected 1 command, got %d", len(runner.commands))
	}

	argv := runner.commands[0].Argv
	if slices.Contains(argv, filepath.Join(dir, "*")) {
		t.Errorf("glob reached the runner literally: %v", argv)
	}
	if !slices.Contains(argv, leftover) {
		t.Errorf("expected %s in expanded argv, got %v", leftover, argv)
	}
}

func TestExecutor_Apply_UnmatchedGlobStaysLiteral(t *testing.T) {
	t.Parallel()

	pattern := filepath.Join(t.TempDir(), "empty", "*")
	plan := &Plan{Steps: []Step{{
		Name: StepInstallPackages,
		Commands: []hostexec.Command{
			{Argv: []string{"rm", "-rf", pattern}},
		},
	}}}

	runner := &mockRunner{}
	if err := newTestExecutor(runner).Apply(context.Background(), plan); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Contains(runner.commands[0].Argv, pattern) {
		t.Errorf("unmatched pattern must stay literal, got %v", runner.commands[0].Argv)
	}
}

func TestExecutor_Apply_StopsOnPackageFailure(t *testing.T) {
	t.Parallel()

	plan, err := BuildPlan(NewPolicy(WithEngines(browser.EngineChromium)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	runner := &mockRunner{failOn: "apt-get install"}
	err = newTestExecutor(runner).Apply(context.Background(), plan)
	if err == nil {
		t.Fatal("expected error when package installation fails")
	}

	var actionable *issue.ActionableError
	if !errors.As(err, &actionable) {
		t.Fatalf("expected an actionable error, got %T", err)
	}
	if actionable.Operation != StepInstallPackages {
		t.Errorf("expected operation %q, got %q", StepInstallPackages, actionable.Operation)
	}
	if !actionable.HasSuggestions() {
		t.Error("expected suggestions on the package failure")
	}

	// Nothing after the failed step may have run.
	for _, cmd := range runner.commands {
		if strings.Contains(cmd.String(), "playwright install") {
			t.Error("browser install must not run after a package failure")
		}
		if cmd.Argv[0] == "useradd" {
			t.Error("identity step must not run after a package failure")
		}
	}
}

func TestExecutor_Apply_IdentityIsIdempotent(t *testing.T) {
	t.Parallel()

	plan, err := BuildPlan(NewPolicy(
		WithEngines(browser.EngineChromium),
		WithStrategy(browser.StrategyOSPackage),
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	runner := &mockRunner{}
	mgr := identity.NewManager(runner, identity.WithLookupUser(func(username string) (*user.User, error) {
		return &user.User{Username: username, Uid: "1000"}, nil
	}))
	exec := NewExecutor(runner, discardLogger(), WithIdentityManager(mgr))

	if err := exec.Apply(context.Background(), plan); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, cmd := range runner.commands {
		if cmd.Argv[0] == "useradd" {
			t.Error("useradd must not run when the user already exists")
		}
	}
}

func TestExecutor_ApplyScript(t *testing.T) {
	t.Parallel()

	plan, err := BuildPlan(NewPolicy(WithEngines(browser.EngineChromium)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	script, err := RenderScript(plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The rendered script must at least parse in the virtual shell.
	shell := hostexec.NewVirtualShell()
	if err := shell.CheckSyntax(script); err != nil {
		t.Errorf("rendered script does not parse: %v", err)
	}
}
