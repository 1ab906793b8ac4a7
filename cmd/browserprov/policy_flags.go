// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/spf13/pflag"

	"browserprov/internal/browser"
	"browserprov/internal/config"
	"browserprov/internal/envdesc"
	"browserprov/internal/provision"
)

// policyFlags are the flags shared by every command that needs a
// provisioning policy. Flags override the configuration file.
type policyFlags struct {
	engines     []string
	strategy    string
	baseImage   string
	installRoot string
	user        string
	workDir     string
	port        uint16
}

func (f *policyFlags) register(fs *pflag.FlagSet) {
	fs.StringSliceVar(&f.engines, "engine", nil, "browser engine to install (repeatable: chromium, firefox, webkit)")
	fs.StringVar(&f.strategy, "strategy", "", "install strategy (bundled or ospackage)")
	fs.StringVar(&f.baseImage, "base-image", "", "base image for Dockerfile rendering")
	fs.StringVar(&f.installRoot, "install-root", "", "install root for bundled browsers")
	fs.StringVar(&f.user, "user", "", "non-root runtime user")
	fs.StringVar(&f.workDir, "workdir", "", "application working directory")
	fs.Uint16Var(&f.port, "port", 0, "application port")
}

// policy builds the effective policy: configuration first, flags on top.
func (f *policyFlags) policy(cfg *config.Config) (provision.Policy, error) {
	if len(f.engines) > 0 {
		cfg.Provision.Engines = f.engines
	}
	if f.strategy != "" {
		cfg.Provision.Strategy = f.strategy
	}
	if f.baseImage != "" {
		cfg.Provision.BaseImage = f.baseImage
	}
	if f.installRoot != "" {
		cfg.Provision.InstallRoot = f.installRoot
	}
	if f.user != "" {
		cfg.Provision.RuntimeUser = f.user
	}
	if f.workDir != "" {
		cfg.Provision.WorkDir = f.workDir
	}
	if f.port != 0 {
		cfg.Server.BindPort = f.port
	}

	policy, err := cfg.Policy()
	if err != nil {
		return provision.Policy{}, err
	}
	return policy, nil
}

// engineNames returns the valid engine names, for flag help and errors.
func engineNames() []string {
	engines := browser.Engines()
	names := make([]string, len(engines))
	for i, engine := range engines {
		names[i] = engine.String()
	}
	return names
}

// probePort resolves the port the monitor should probe: the --port flag
// wins, then the port environment variables, then the configuration.
func probePort(flagPort uint16, cfg *config.Config) (envdesc.BindPort, error) {
	if flagPort != 0 {
		return envdesc.BindPort(flagPort), nil
	}
	fromEnv, err := envdesc.PortFromEnv(nil)
	if err != nil {
		return 0, err
	}
	if fromEnv != 0 {
		return fromEnv, nil
	}
	return envdesc.BindPort(cfg.Server.BindPort), nil
}
