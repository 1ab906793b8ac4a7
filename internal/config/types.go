// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"time"

	"browserprov/internal/browser"
	"browserprov/internal/envdesc"
	"browserprov/internal/health"
	"browserprov/internal/identity"
	"browserprov/internal/provision"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidHealthConfig is the sentinel error wrapped by InvalidHealthConfigError.
	ErrInvalidHealthConfig = errors.New("invalid health config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not
	// recognized. It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// InvalidHealthConfigError is returned when health timings are not
	// positive. It wraps ErrInvalidHealthConfig for errors.Is() compatibility.
	InvalidHealthConfigError struct {
		Field string
		Value int
	}

	// ProvisionConfig selects what gets installed and how.
	ProvisionConfig struct {
		// Engines are the browser engines to install.
		Engines []string `mapstructure:"engines"`
		// Strategy is "bundled" or "ospackage".
		Strategy string `mapstructure:"strategy"`
		// BaseImage is the base image for Dockerfile rendering.
		BaseImage string `mapstructure:"base_image"`
		// InstallRoot is where bundled browsers are placed.
		InstallRoot string `mapstructure:"install_root"`
		// RuntimeUser is the non-root identity that runs the application.
		RuntimeUser string `mapstructure:"runtime_user"`
		// WorkDir is the application working directory.
		WorkDir string `mapstructure:"workdir"`
		// AppEntrypoint is the command that starts the application.
		AppEntrypoint string `mapstructure:"app_entrypoint"`
	}

	// ServerConfig configures where the application listens.
	ServerConfig struct {
		BindAddress string `mapstructure:"bind_address"`
		BindPort    uint16 `mapstructure:"bind_port"`
	}

	// HealthConfig configures the liveness monitor. All timings are in
	// seconds so the config file needs no duration syntax.
	HealthConfig struct {
		GraceSeconds     int `mapstructure:"grace_seconds"`
		IntervalSeconds  int `mapstructure:"interval_seconds"`
		TimeoutSeconds   int `mapstructure:"timeout_seconds"`
		FailureThreshold int `mapstructure:"failure_threshold"`
	}

	// UIConfig holds terminal output preferences.
	UIConfig struct {
		ColorScheme ColorScheme `mapstructure:"color_scheme"`
		Verbose     bool        `mapstructure:"verbose"`
	}

	// Config is the root browserprov configuration.
	Config struct {
		Provision ProvisionConfig `mapstructure:"provision"`
		Server    ServerConfig    `mapstructure:"server"`
		Health    HealthConfig    `mapstructure:"health"`
		UI        UIConfig        `mapstructure:"ui"`
	}
)

// Validate returns an error if the ColorScheme is not one of the defined schemes.
func (c ColorScheme) Validate() error {
	switch c {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return nil
	default:
		return &InvalidColorSchemeError{Value: c}
	}
}

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns ErrInvalidColorScheme for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// Error implements the error interface for InvalidHealthConfigError.
func (e *InvalidHealthConfigError) Error() string {
	return fmt.Sprintf("invalid health config: %s must be positive, got %d", e.Field, e.Value)
}

// Unwrap returns ErrInvalidHealthConfig for errors.Is() compatibility.
func (e *InvalidHealthConfigError) Unwrap() error { return ErrInvalidHealthConfig }

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Provision: ProvisionConfig{
			Engines:       []string{browser.EngineChromium.String()},
			Strategy:      browser.StrategyBundled.String(),
			BaseImage:     provision.DefaultBaseImage,
			InstallRoot:   provision.DefaultInstallRoot,
			RuntimeUser:   identity.DefaultUsername,
			WorkDir:       identity.DefaultWorkDir,
			AppEntrypoint: provision.DefaultAppEntrypoint,
		},
		Server: ServerConfig{
			BindAddress: envdesc.DefaultBindAddress,
			BindPort:    uint16(envdesc.DefaultBindPort),
		},
		Health: HealthConfig{
			GraceSeconds:     int(health.DefaultGracePeriod / time.Second),
			IntervalSeconds:  int(health.DefaultInterval / time.Second),
			TimeoutSeconds:   int(health.DefaultTimeout / time.Second),
			FailureThreshold: health.DefaultFailureThreshold,
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
			Verbose:     false,
		},
	}
}

// Validate checks the whole configuration. All violations are reported
// together.
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.Policy(); err != nil {
		errs = append(errs, err)
	}
	if err := c.UI.ColorScheme.Validate(); err != nil {
		errs = append(errs, err)
	}
	for _, field := range []struct {
		name  string
		value int
	}{
		{"grace_seconds", c.Health.GraceSeconds},
		{"interval_seconds", c.Health.IntervalSeconds},
		{"timeout_seconds", c.Health.TimeoutSeconds},
		{"failure_threshold", c.Health.FailureThreshold},
	} {
		if field.value <= 0 {
			errs = append(errs, &InvalidHealthConfigError{Field: field.name, Value: field.value})
		}
	}

	return errors.Join(errs...)
}

// Policy builds the provisioning policy this configuration describes.
func (c *Config) Policy() (provision.Policy, error) {
	engines, err := browser.ParseEngines(c.Provision.Engines)
	if err != nil {
		return provision.Policy{}, err
	}

	policy := provision.NewPolicy(
		provision.WithEngines(engines...),
		provision.WithStrategy(browser.Strategy(c.Provision.Strategy)),
		provision.WithBaseImage(c.Provision.BaseImage),
		provision.WithInstallRoot(c.Provision.InstallRoot),
		provision.WithRuntimeUser(c.Provision.RuntimeUser),
		provision.WithWorkDir(c.Provision.WorkDir),
		provision.WithBindAddress(c.Server.BindAddress),
		provision.WithBindPort(envdesc.BindPort(c.Server.BindPort)),
		provision.WithAppEntrypoint(c.Provision.AppEntrypoint),
	)
	if err := policy.Validate(); err != nil {
		return provision.Policy{}, err
	}
	return policy, nil
}

// MonitorOptions builds the health monitor options this configuration
// describes.
func (c *Config) MonitorOptions() health.Options {
	return health.Options{
		GracePeriod:      time.Duration(c.Health.GraceSeconds) * time.Second,
		Interval:         time.Duration(c.Health.IntervalSeconds) * time.Second,
		Timeout:          time.Duration(c.Health.TimeoutSeconds) * time.Second,
		FailureThreshold: c.Health.FailureThreshold,
	}
}
