// SPDX-License-Identifier: MPL-2.0

package identity

import (
	"context"
	"errors"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"testing"

	"browserprov/internal/hostexec"
)

// recordingRunner captures commands instead of executing them.
type recordingRunner struct {
	commands []hostexec.Command
	err      error
}

func (r *recordingRunner) Run(ctx context.Context, cmd hostexec.Command, stdout, stderr io.Writer) error {
	r.commands = append(r.commands, cmd)
	return r.err
}

func (r *recordingRunner) Output(ctx context.Context, cmd hostexec.Command) (string, error) {
	r.commands = append(r.commands, cmd)
	return "", r.err
}

func TestValidateUsername(t *testing.T) {
	t.Parallel()

	if err := ValidateUsername("scraper"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	for _, bad := range []string{"", "with space", "a:b", "a/b"} {
		err := ValidateUsername(bad)
		if !errors.Is(err, ErrInvalidUsername) {
			t.Errorf("expected ErrInvalidUsername for %q, got %v", bad, err)
		}
	}
}

func TestEnsureUser_CreatesWhenMissing(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{}
	mgr := NewManager(runner, WithLookupUser(func(username string) (*user.User, error) {
		return nil, user.UnknownUserError(username)
	}))

	if err := mgr.EnsureUser(context.Background(), "scraper", "/app"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runner.commands) != 1 {
		t.Fatalf("expected 1 command, got %d", len(runner.commands))
	}

	argv := runner.commands[0].Argv
	if argv[0] != "useradd" {
		t.Errorf("expected useradd, got %q", argv[0])
	}
	if argv[len(argv)-1] != "scraper" {
		t.Errorf("expected username as last arg, got %q", argv[len(argv)-1])
	}
}

func TestEnsureUser_IdempotentWhenPresent(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{}
	mgr := NewManager(runner, WithLookupUser(func(username string) (*user.User, error) {
		return &user.User{Username: username, Uid: "1000"}, nil
	}))

	if err := mgr.EnsureUser(context.Background(), "scraper", "/app"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runner.commands) != 0 {
		t.Errorf("expected no commands for an existing user, got %d", len(runner.commands))
	}
}

func TestEnsureUser_SurfacesFailure(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{err: errors.New("exit status 1")}
	mgr := NewManager(runner, WithLookupUser(func(username string) (*user.User, error) {
		return nil, user.UnknownUserError(username)
	}))

	if err := mgr.EnsureUser(context.Background(), "scraper", "/app"); err == nil {
		t.Error("expected error when useradd fails")
	}
}

func TestGrantWorkDir(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{}
	mgr := NewManager(runner)

	if err := mgr.GrantWorkDir(context.Background(), "scraper", "/app"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runner.commands) != 1 {
		t.Fatalf("expected 1 command, got %d", len(runner.commands))
	}

	argv := runner.commands[0].Argv
	want := []string{"chown", "-R", "scraper:scraper", "/app"}
	if len(argv) != len(want) {
		t.Fatalf("expected %v, got %v", want, argv)
	}
	for i := range want {
		if argv[i] != want[i] {
			t.Errorf("arg %d: expected %q, got %q", i, want[i], argv[i])
		}
	}
}

func TestGrantWorkDir_RejectsRelativePath(t *testing.T) {
	t.Parallel()

	mgr := NewManager(&recordingRunner{})
	if err := mgr.GrantWorkDir(context.Background(), "scraper", "app"); err == nil {
		t.Error("expected error for relative working directory")
	}
}

func TestVerifyBrowserAccess(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if err := os.Chmod(root, 0o755); err != nil {
		t.Fatal(err)
	}
	binDir := filepath.Join(root, "chromium-1234")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(binDir, "chrome"), []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	// Data files carry no execute bit and must still pass.
	if err := os.WriteFile(filepath.Join(binDir, "resources.pak"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	mgr := NewManager(&recordingRunner{})
	if err := mgr.VerifyBrowserAccess(root); err != nil {
		t.Errorf("unexpected error for world-readable tree: %v", err)
	}
}

func TestVerifyBrowserAccess_FlagsUnreadableFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "chrome"), []byte("x"), 0o750); err != nil {
		t.Fatal(err)
	}

	mgr := NewManager(&recordingRunner{})
	if err := mgr.VerifyBrowserAccess(root); err == nil {
		t.Error("expected error for file that is not world-readable")
	}
}

func TestVerifyBrowserAccess_FlagsNonWorldExecutableBinary(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if err := os.Chmod(root, 0o755); err != nil {
		t.Fatal(err)
	}
	// World-readable, owner-executable, but not world-executable: the
	// runtime identity can read the binary yet cannot launch it.
	if err := os.WriteFile(filepath.Join(root, "chrome"), []byte("#!/bin/sh\n"), 0o744); err != nil {
		t.Fatal(err)
	}

	mgr := NewManager(&recordingRunner{})
	if err := mgr.VerifyBrowserAccess(root); err == nil {
		t.Error("expected error for binary the runtime identity cannot execute")
	}
}

func TestVerifyBrowserAccess_MissingRoot(t *testing.T) {
	t.Parallel()

	mgr := NewManager(&recordingRunner{})
	if err := mgr.VerifyBrowserAccess(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing install root")
	}
}
