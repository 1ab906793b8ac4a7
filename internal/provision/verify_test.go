// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"browserprov/internal/browser"
	"browserprov/internal/identity"
)

func healthyLdd() string {
	return "\tlinux-vdso.so.1 (0x00007fff)\n\tlibc.so.6 => /lib/x86_64-linux-gnu/libc.so.6 (0x00007f00)\n"
}

func brokenLdd() string {
	return "\tlibnss3.so => not found\n\tlibc.so.6 => /lib/x86_64-linux-gnu/libc.so.6 (0x00007f00)\n"
}

func bundledFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := os.Chmod(root, 0o755); err != nil {
		t.Fatal(err)
	}
	dir := filepath.Join(root, "chromium-1234", "chrome-linux")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "chrome"), []byte("binary"), 0o755); err != nil {
		t.Fatal(err)
	}
	return root
}

func newTestVerifier(runner *mockRunner) *Verifier {
	mgr := identity.NewManager(runner, identity.WithLookupUser(userAbsent))
	return NewVerifier(runner, discardLogger(), WithVerifierIdentity(mgr))
}

func TestVerify_BundledHealthy(t *testing.T) {
	t.Parallel()

	root := bundledFixture(t)
	binary := filepath.Join(root, "chromium-1234", "chrome-linux", "chrome")

	runner := &mockRunner{outputs: map[string]string{
		"ldd " + binary: healthyLdd(),
	}}
	report, err := newTestVerifier(runner).Verify(context.Background(), NewPolicy(
		WithEngines(browser.EngineChromium),
		WithInstallRoot(root),
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.OK() {
		t.Errorf("expected clean report, failures: %v", report.Failed())
	}
}

func TestVerify_BundledMissingBinary(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if err := os.Chmod(root, 0o755); err != nil {
		t.Fatal(err)
	}

	report, err := newTestVerifier(&mockRunner{}).Verify(context.Background(), NewPolicy(
		WithEngines(browser.EngineChromium),
		WithInstallRoot(root),
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.OK() {
		t.Fatal("expected failure for missing browser binary")
	}
}

func TestVerify_BundledUnresolvedLibraries(t *testing.T) {
	t.Parallel()

	root := bundledFixture(t)
	binary := filepath.Join(root, "chromium-1234", "chrome-linux", "chrome")

	runner := &mockRunner{outputs: map[string]string{
		"ldd " + binary: brokenLdd(),
	}}
	report, err := newTestVerifier(runner).Verify(context.Background(), NewPolicy(
		WithEngines(browser.EngineChromium),
		WithInstallRoot(root),
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.OK() {
		t.Fatal("expected failure for unresolved shared library")
	}

	failed := report.Failed()
	if len(failed) != 1 {
		t.Fatalf("expected exactly one failed check, got %v", failed)
	}
	if got := failed[0].Detail; got != "libnss3.so => not found" {
		t.Errorf("expected the missing library named, got %q", got)
	}
}

func TestVerify_OSPackage(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{outputs: map[string]string{
		"which chromium":               "/usr/bin/chromium\n",
		"which chromium-driver":        "/usr/bin/chromium-driver\n",
		"ldd /usr/bin/chromium":        healthyLdd(),
		"ldd /usr/bin/chromium-driver": healthyLdd(),
	}}
	report, err := newTestVerifier(runner).Verify(context.Background(), NewPolicy(
		WithEngines(browser.EngineChromium),
		WithStrategy(browser.StrategyOSPackage),
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.OK() {
		t.Errorf("expected clean report, failures: %v", report.Failed())
	}
}

func TestVerify_OSPackageMissingFromPath(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{outputs: map[string]string{
		"which chromium":        "/usr/bin/chromium\n",
		"ldd /usr/bin/chromium": healthyLdd(),
		// chromium-driver lookup returns nothing
	}}
	report, err := newTestVerifier(runner).Verify(context.Background(), NewPolicy(
		WithEngines(browser.EngineChromium),
		WithStrategy(browser.StrategyOSPackage),
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.OK() {
		t.Fatal("expected failure when the driver is missing from PATH")
	}
}

func TestVerify_RejectsInvalidPolicy(t *testing.T) {
	t.Parallel()

	if _, err := newTestVerifier(&mockRunner{}).Verify(context.Background(), NewPolicy(WithEngines())); err == nil {
		t.Error("expected error for invalid policy")
	}
}
