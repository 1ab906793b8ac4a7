// SPDX-License-Identifier: MPL-2.0

// Package browser defines the browser engine domain: the engines a
// provisioning policy can request, the installation strategies that place
// them on disk, and the OS shared-library sets each engine needs to run
// headlessly.
package browser

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// EngineChromium is the Chromium-family headless engine.
	EngineChromium Engine = "chromium"
	// EngineFirefox is the Firefox-family headless engine.
	EngineFirefox Engine = "firefox"
	// EngineWebKit is the WebKit-family headless engine.
	EngineWebKit Engine = "webkit"

	// StrategyBundled installs vendor-distributed browser builds into a
	// single configurable install root via the vendor install tool.
	StrategyBundled Strategy = "bundled"
	// StrategyOSPackage installs the distribution's browser package plus
	// its matching driver package. Browsers land in the distribution's
	// default paths; no install root is configured.
	StrategyOSPackage Strategy = "ospackage"
)

var (
	// ErrInvalidEngine is the sentinel error wrapped by InvalidEngineError.
	ErrInvalidEngine = errors.New("invalid browser engine")

	// ErrInvalidStrategy is the sentinel error wrapped by InvalidStrategyError.
	ErrInvalidStrategy = errors.New("invalid install strategy")
)

type (
	// Engine identifies a headless-capable browser runtime.
	Engine string

	// InvalidEngineError is returned when an Engine value is not one of the
	// supported engines. It wraps ErrInvalidEngine for errors.Is() compatibility.
	InvalidEngineError struct {
		Value Engine
	}

	// Strategy identifies how browser engines are placed on the filesystem.
	// Exactly one strategy is active per provisioning policy; mixing both
	// would create two conflicting sources of truth for the browser location.
	Strategy string

	// InvalidStrategyError is returned when a Strategy value is not recognized.
	// It wraps ErrInvalidStrategy for errors.Is() compatibility.
	InvalidStrategyError struct {
		Value Strategy
	}
)

// Engines returns all supported engines in canonical order.
func Engines() []Engine {
	return []Engine{EngineChromium, EngineFirefox, EngineWebKit}
}

// String returns the string representation of the Engine.
func (e Engine) String() string { return string(e) }

// Validate returns an error if the Engine is not one of the supported engines.
func (e Engine) Validate() error {
	switch e {
	case EngineChromium, EngineFirefox, EngineWebKit:
		return nil
	default:
		return &InvalidEngineError{Value: e}
	}
}

// Error implements the error interface for InvalidEngineError.
func (e *InvalidEngineError) Error() string {
	return fmt.Sprintf("invalid browser engine %q (valid: chromium, firefox, webkit)", e.Value)
}

// Unwrap returns ErrInvalidEngine for errors.Is() compatibility.
func (e *InvalidEngineError) Unwrap() error { return ErrInvalidEngine }

// String returns the string representation of the Strategy.
func (s Strategy) String() string { return string(s) }

// Validate returns an error if the Strategy is not one of the defined strategies.
func (s Strategy) Validate() error {
	switch s {
	case StrategyBundled, StrategyOSPackage:
		return nil
	default:
		return &InvalidStrategyError{Value: s}
	}
}

// Error implements the error interface for InvalidStrategyError.
func (e *InvalidStrategyError) Error() string {
	return fmt.Sprintf("invalid install strategy %q (valid: bundled, ospackage)", e.Value)
}

// Unwrap returns ErrInvalidStrategy for errors.Is() compatibility.
func (e *InvalidStrategyError) Unwrap() error { return ErrInvalidStrategy }

// ParseEngines converts raw engine names into validated Engines.
// Names are lowercased and deduplicated; the original order of first
// occurrence is preserved. An unrecognized name fails the whole parse;
// a partially-resolved engine set must never reach installation.
func ParseEngines(names []string) ([]Engine, error) {
	seen := make(map[Engine]bool, len(names))
	engines := make([]Engine, 0, len(names))

	for _, name := range names {
		engine := Engine(strings.ToLower(strings.TrimSpace(name)))
		if err := engine.Validate(); err != nil {
			return nil, err
		}
		if seen[engine] {
			continue
		}
		seen[engine] = true
		engines = append(engines, engine)
	}

	return engines, nil
}
