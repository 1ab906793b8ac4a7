// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"errors"
	"fmt"
	"path/filepath"

	"browserprov/internal/browser"
	"browserprov/internal/envdesc"
	"browserprov/internal/identity"
)

const (
	// DefaultBaseImage is the distribution image the Dockerfile rendering
	// builds on.
	DefaultBaseImage = "python:3.12-slim"

	// DefaultInstallRoot is where bundled browser binaries are placed. It
	// lives outside any user home so the privilege drop cannot orphan it.
	DefaultInstallRoot = "/usr/lib/browsers"

	// DefaultAppEntrypoint starts the application server.
	DefaultAppEntrypoint = "streamlit run app.py"
)

// ErrStrategyConflict is returned when the engine set is not valid for
// the chosen install strategy.
var ErrStrategyConflict = errors.New("engine set conflicts with install strategy")

type (
	// Policy is the desired state of a browser runtime environment.
	Policy struct {
		// Engines to install. Bundled installs accept any combination;
		// OS-package installs accept exactly chromium.
		Engines []browser.Engine

		// Strategy selects where browser binaries come from.
		Strategy browser.Strategy

		// BaseImage is the image the Dockerfile rendering builds on.
		BaseImage string

		// InstallRoot is where bundled browsers are placed. Ignored for
		// the ospackage strategy.
		InstallRoot string

		// RuntimeUser is the non-root identity that runs the application.
		RuntimeUser string

		// WorkDir is the application working directory, owned by RuntimeUser.
		WorkDir string

		// BindAddress and BindPort configure where the application listens.
		BindAddress string
		BindPort    envdesc.BindPort

		// AppEntrypoint is the command that starts the application.
		AppEntrypoint string
	}

	// PolicyOption mutates a Policy during construction.
	PolicyOption func(*Policy)
)

// WithEngines sets the engine list.
func WithEngines(engines ...browser.Engine) PolicyOption {
	return func(p *Policy) { p.Engines = engines }
}

// WithStrategy sets the install strategy.
func WithStrategy(strategy browser.Strategy) PolicyOption {
	return func(p *Policy) { p.Strategy = strategy }
}

// WithBaseImage sets the base image for the Dockerfile rendering.
func WithBaseImage(image string) PolicyOption {
	return func(p *Policy) { p.BaseImage = image }
}

// WithInstallRoot sets the bundled install root.
func WithInstallRoot(root string) PolicyOption {
	return func(p *Policy) { p.InstallRoot = root }
}

// WithRuntimeUser sets the non-root runtime identity.
func WithRuntimeUser(username string) PolicyOption {
	return func(p *Policy) { p.RuntimeUser = username }
}

// WithWorkDir sets the application working directory.
func WithWorkDir(dir string) PolicyOption {
	return func(p *Policy) { p.WorkDir = dir }
}

// WithBindAddress sets the address the application listens on.
func WithBindAddress(address string) PolicyOption {
	return func(p *Policy) { p.BindAddress = address }
}

// WithBindPort sets the application port.
func WithBindPort(port envdesc.BindPort) PolicyOption {
	return func(p *Policy) { p.BindPort = port }
}

// WithAppEntrypoint sets the application start command.
func WithAppEntrypoint(entrypoint string) PolicyOption {
	return func(p *Policy) { p.AppEntrypoint = entrypoint }
}

// NewPolicy creates a Policy with defaults applied, then runs the options.
func NewPolicy(opts ...PolicyOption) Policy {
	p := Policy{
		Engines:       []browser.Engine{browser.EngineChromium},
		Strategy:      browser.StrategyBundled,
		BaseImage:     DefaultBaseImage,
		InstallRoot:   DefaultInstallRoot,
		RuntimeUser:   identity.DefaultUsername,
		WorkDir:       identity.DefaultWorkDir,
		BindAddress:   envdesc.DefaultBindAddress,
		BindPort:      envdesc.DefaultBindPort,
		AppEntrypoint: DefaultAppEntrypoint,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Validate checks every field and the cross-field strategy rules. All
// violations are reported together.
func (p Policy) Validate() error {
	var errs []error

	if len(p.Engines) == 0 {
		errs = append(errs, browser.ErrNoEngines)
	}
	for _, engine := range p.Engines {
		if err := engine.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := p.Strategy.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := p.validateStrategyRules(); err != nil {
		errs = append(errs, err)
	}

	if p.BaseImage == "" {
		errs = append(errs, errors.New("base image must not be empty"))
	}
	if p.Strategy == browser.StrategyBundled && !filepath.IsAbs(p.InstallRoot) {
		errs = append(errs, fmt.Errorf("install root must be an absolute path, got %q", p.InstallRoot))
	}
	if err := identity.ValidateUsername(p.RuntimeUser); err != nil {
		errs = append(errs, err)
	}
	if !filepath.IsAbs(p.WorkDir) {
		errs = append(errs, fmt.Errorf("working directory must be an absolute path, got %q", p.WorkDir))
	}
	if err := p.BindPort.Validate(); err != nil {
		errs = append(errs, err)
	}
	if p.AppEntrypoint == "" {
		errs = append(errs, errors.New("application entrypoint must not be empty"))
	}

	return errors.Join(errs...)
}

// validateStrategyRules enforces that exactly one install strategy is in
// effect and that its engine set is valid: ospackage installs are limited
// to chromium because that is the only engine the distribution packages
// pair with a matching driver.
func (p Policy) validateStrategyRules() error {
	if p.Strategy != browser.StrategyOSPackage {
		return nil
	}
	for _, engine := range p.Engines {
		if engine != browser.EngineChromium {
			return fmt.Errorf("%w: %s is not installable from OS packages", ErrStrategyConflict, engine)
		}
	}
	return nil
}

// Descriptor derives the runtime environment descriptor for this policy.
// Only bundled installs export a browser root.
func (p Policy) Descriptor() (envdesc.Descriptor, error) {
	browserRoot := ""
	if p.Strategy == browser.StrategyBundled {
		browserRoot = p.InstallRoot
	}
	return envdesc.New(browserRoot, p.BindAddress, p.BindPort)
}
