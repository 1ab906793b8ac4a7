// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"browserprov/internal/browser"
	"browserprov/internal/hostexec"
	"browserprov/internal/identity"
)

type (
	// Finding is the result of one verification check.
	Finding struct {
		Check  string
		OK     bool
		Detail string
	}

	// Report collects the findings of a verification run.
	Report struct {
		Findings []Finding
	}

	// Verifier checks that a provisioned host matches its policy. The
	// failure mode it guards against, a browser that installs fine but
	// cannot launch, only surfaces at first use, long after the
	// provisioning logs have scrolled away.
	Verifier struct {
		runner   hostexec.Runner
		identity *identity.Manager
		logger   *log.Logger
	}

	// VerifierOption configures a Verifier.
	VerifierOption func(*Verifier)
)

// WithVerifierIdentity overrides the identity manager. Used in tests.
func WithVerifierIdentity(mgr *identity.Manager) VerifierOption {
	return func(v *Verifier) {
		v.identity = mgr
	}
}

// NewVerifier creates a Verifier running host checks through the given
// Runner.
func NewVerifier(runner hostexec.Runner, logger *log.Logger, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		runner:   runner,
		identity: identity.NewManager(runner),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// OK reports whether every check passed.
func (r *Report) OK() bool {
	for _, f := range r.Findings {
		if !f.OK {
			return false
		}
	}
	return true
}

// Failed returns the findings that did not pass.
func (r *Report) Failed() []Finding {
	var failed []Finding
	for _, f := range r.Findings {
		if !f.OK {
			failed = append(failed, f)
		}
	}
	return failed
}

func (r *Report) add(check string, ok bool, detail string) {
	r.Findings = append(r.Findings, Finding{Check: check, OK: ok, Detail: detail})
}

// Verify runs every check the policy implies and returns the full report.
// Checks keep going after a failure so one report names every problem.
func (v *Verifier) Verify(ctx context.Context, policy Policy) (*Report, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	report := &Report{}
	switch policy.Strategy {
	case browser.StrategyBundled:
		v.verifyBundled(ctx, policy, report)
	case browser.StrategyOSPackage:
		v.verifyOSPackage(ctx, policy, report)
	}

	for _, f := range report.Findings {
		v.logger.Debug("verification check", "check", f.Check, "ok", f.OK, "detail", f.Detail)
	}
	return report, nil
}

func (v *Verifier) verifyBundled(ctx context.Context, policy Policy, report *Report) {
	if err := v.identity.VerifyBrowserAccess(policy.InstallRoot); err != nil {
		report.add("install root permissions", false, err.Error())
	} else {
		report.add("install root permissions", true, "")
	}

	for _, engine := range policy.Engines {
		binary, err := findEngineBinary(policy.InstallRoot, engine)
		check := fmt.Sprintf("%s binary present", engine)
		if err != nil {
			report.add(check, false, err.Error())
			continue
		}
		report.add(check, true, binary)
		v.verifySharedLibraries(ctx, binary, report)
	}
}

func (v *Verifier) verifyOSPackage(ctx context.Context, policy Policy, report *Report) {
	packages, err := browser.ResolveDriverPackages(policy.Engines)
	if err != nil {
		report.add("resolve driver packages", false, err.Error())
		return
	}
	for _, pkg := range packages {
		out, err := v.runner.Output(ctx, hostexec.Command{Argv: []string{"which", pkg}})
		check := fmt.Sprintf("%s on PATH", pkg)
		if err != nil || strings.TrimSpace(out) == "" {
			report.add(check, false, fmt.Sprintf("%s not found on PATH", pkg))
			continue
		}
		binary := strings.TrimSpace(out)
		report.add(check, true, binary)
		v.verifySharedLibraries(ctx, binary, report)
	}
}

// verifySharedLibraries runs the dynamic linker's resolution against the
// binary and flags unresolved libraries. A missing shared library is the
// classic deferred failure: the install succeeds and the first launch
// dies.
func (v *Verifier) verifySharedLibraries(ctx context.Context, binary string, report *Report) {
	check := fmt.Sprintf("shared libraries of %s", filepath.Base(binary))
	out, err := v.runner.Output(ctx, hostexec.Command{Argv: []string{"ldd", binary}})
	if err != nil {
		report.add(check, false, fmt.Sprintf("ldd failed: %v", err))
		return
	}

	var missing []string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "not found") {
			missing = append(missing, strings.TrimSpace(line))
		}
	}
	if len(missing) > 0 {
		report.add(check, false, strings.Join(missing, "; "))
		return
	}
	report.add(check, true, "")
}

// findEngineBinary locates the engine's launcher under the install root.
// The vendor install tool nests binaries in versioned directories, so
// this walks rather than globs.
func findEngineBinary(installRoot string, engine browser.Engine) (string, error) {
	wanted := engine.BinaryName()
	var found string
	err := filepath.WalkDir(installRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if found != "" {
			return fs.SkipAll
		}
		if !d.IsDir() && d.Name() == wanted {
			found = path
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to scan install root %q: %w", installRoot, err)
	}
	if found == "" {
		return "", fmt.Errorf("no %s binary under %s", wanted, installRoot)
	}
	return found, nil
}
