// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"sort"
	"strings"

	"browserprov/internal/browser"
	"browserprov/internal/envdesc"
	"browserprov/internal/hostexec"
)

// Step names. Renderers and the executor key behavior off these, so they
// are constants rather than free-form strings.
const (
	StepInstallPackages = "install OS packages"
	StepInstallBrowsers = "install browser engines"
	StepCreateIdentity  = "create runtime identity"
)

type (
	// Step is one ordered phase of a provisioning plan.
	Step struct {
		Name     string
		Commands []hostexec.Command
	}

	// Plan is a fully resolved provisioning policy: ordered steps plus the
	// runtime environment descriptor. Plans are deterministic; building
	// the same policy twice yields the same plan.
	Plan struct {
		Policy     Policy
		Descriptor envdesc.Descriptor
		Packages   []string
		Steps      []Step
	}
)

// BuildPlan resolves a policy into an executable plan.
func BuildPlan(policy Policy) (*Plan, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	descriptor, err := policy.Descriptor()
	if err != nil {
		return nil, err
	}

	packages, err := resolvePackages(policy)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Policy:     policy,
		Descriptor: descriptor,
		Packages:   packages,
	}
	plan.Steps = append(plan.Steps, packagesStep(packages))
	if policy.Strategy == browser.StrategyBundled {
		plan.Steps = append(plan.Steps, browsersStep(policy))
	}
	plan.Steps = append(plan.Steps, identityStep(policy))
	return plan, nil
}

func resolvePackages(policy Policy) ([]string, error) {
	if policy.Strategy == browser.StrategyOSPackage {
		return browser.ResolveDriverPackages(policy.Engines)
	}
	return browser.ResolveDependencies(policy.Engines)
}

// packagesStep installs the package set and drops the package index in
// the same step. Leaving the index behind bloats every image built from
// the rendered Dockerfile.
func packagesStep(packages []string) Step {
	installArgv := append([]string{"apt-get", "install", "-y", "--no-install-recommends"}, packages...)
	return Step{
		Name: StepInstallPackages,
		Commands: []hostexec.Command{
			{Argv: []string{"apt-get", "update"}},
			{Argv: installArgv},
			{Argv: []string{"rm", "-rf", "/var/lib/apt/lists/*"}},
		},
	}
}

// browsersStep places vendor browser builds under the install root and
// opens them to every user. The binaries stay root-owned; the runtime
// identity only ever needs read+execute.
func browsersStep(policy Policy) Step {
	installArgv := []string{"playwright", "install"}
	for _, engine := range policy.Engines {
		installArgv = append(installArgv, engine.String())
	}
	return Step{
		Name: StepInstallBrowsers,
		Commands: []hostexec.Command{
			{
				Argv: installArgv,
				Env:  map[string]string{envdesc.KeyBrowserRoot: policy.InstallRoot},
			},
			{Argv: []string{"chmod", "-R", "a+rX", policy.InstallRoot}},
		},
	}
}

func identityStep(policy Policy) Step {
	return Step{
		Name: StepCreateIdentity,
		Commands: []hostexec.Command{
			{Argv: []string{
				"useradd",
				"--create-home",
				"--home-dir", policy.WorkDir,
				"--shell", "/usr/sbin/nologin",
				policy.RuntimeUser,
			}},
			{Argv: []string{"chown", "-R", policy.RuntimeUser + ":" + policy.RuntimeUser, policy.WorkDir}},
		},
	}
}

// shellLine renders a command as a single shell line, quoting arguments
// that need it and prefixing per-command environment overrides.
func shellLine(cmd hostexec.Command) string {
	var parts []string
	keys := make([]string, 0, len(cmd.Env))
	for key := range cmd.Env {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		parts = append(parts, key+"="+shellQuote(cmd.Env[key]))
	}
	for _, arg := range cmd.Argv {
		parts = append(parts, shellQuote(arg))
	}
	return strings.Join(parts, " ")
}

func shellQuote(arg string) string {
	if arg == "" {
		return "''"
	}
	if strings.ContainsAny(arg, " \t\n\"'$&|<>;()`\\") {
		// Globs must stay unquoted; none of our arguments mix globs with
		// characters that need quoting.
		if strings.ContainsAny(arg, "*?[") {
			return arg
		}
		return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
	}
	return arg
}
