// SPDX-License-Identifier: MPL-2.0

package browser

import (
	"errors"
	"fmt"
)

// ErrNoEngines is returned when dependency resolution is requested for an
// empty engine set.
var ErrNoEngines = errors.New("no browser engines requested")

// commonPackages are required by every engine for headless rendering:
// TLS trust for page loads and a baseline font so text layout does not
// silently degrade to tofu glyphs.
var commonPackages = []string{
	"ca-certificates",
	"fonts-liberation",
}

// dependencySets maps each engine to the ordered OS shared-library packages
// it needs to launch headlessly. The lists cover the graphics stack stubs,
// font rendering, audio stub, and sandboxing libraries. Nothing unrelated
// to headless operation belongs here.
var dependencySets = map[Engine][]string{
	EngineChromium: {
		"libnss3",
		"libnspr4",
		"libatk1.0-0",
		"libatk-bridge2.0-0",
		"libcups2",
		"libdrm2",
		"libxkbcommon0",
		"libxcomposite1",
		"libxdamage1",
		"libxfixes3",
		"libxrandr2",
		"libgbm1",
		"libasound2",
		"libpango-1.0-0",
		"libcairo2",
	},
	EngineFirefox: {
		"libgtk-3-0",
		"libdbus-glib-1-2",
		"libasound2",
		"libx11-xcb1",
		"libxtst6",
	},
	EngineWebKit: {
		"libwoff1",
		"libopus0",
		"libwebpdemux2",
		"libharfbuzz-icu0",
		"libgstreamer1.0-0",
		"libgstreamer-plugins-base1.0-0",
		"libenchant-2-2",
		"libsecret-1-0",
		"libhyphen0",
		"libegl1",
		"libgles2",
	},
}

// driverPackages are the distribution browser + driver pairs used by the
// ospackage strategy. Only Chromium has a driver-paired distribution package.
var driverPackages = map[Engine][]string{
	EngineChromium: {"chromium", "chromium-driver"},
}

// ResolveDependencies returns the minimal ordered set of OS packages needed
// to run every requested engine headlessly. Shared packages appear once, at
// the position of their first contributing engine. An empty or invalid
// engine set fails loudly: a build-time error here is strictly better than a
// browser that fails to launch at runtime.
func ResolveDependencies(engines []Engine) ([]string, error) {
	if len(engines) == 0 {
		return nil, ErrNoEngines
	}

	seen := make(map[string]bool)
	packages := make([]string, 0, 32)
	add := func(names []string) {
		for _, name := range names {
			if seen[name] {
				continue
			}
			seen[name] = true
			packages = append(packages, name)
		}
	}

	add(commonPackages)
	for _, engine := range engines {
		deps, ok := dependencySets[engine]
		if !ok {
			return nil, fmt.Errorf("resolve dependencies: %w", &InvalidEngineError{Value: engine})
		}
		add(deps)
	}

	return packages, nil
}

// ResolveDriverPackages returns the distribution browser + driver packages
// for the ospackage strategy. Engines without a driver-paired distribution
// package are rejected.
func ResolveDriverPackages(engines []Engine) ([]string, error) {
	if len(engines) == 0 {
		return nil, ErrNoEngines
	}

	packages := make([]string, 0, 2*len(engines))
	for _, engine := range engines {
		pair, ok := driverPackages[engine]
		if !ok {
			return nil, fmt.Errorf("engine %q has no driver-paired OS package: %w", engine, ErrInvalidStrategy)
		}
		packages = append(packages, pair...)
	}

	return packages, nil
}

// BinaryName returns the executable name each engine installs, used by
// post-provision verification to locate the binary under the install root.
func (e Engine) BinaryName() string {
	switch e {
	case EngineChromium:
		return "chrome"
	case EngineFirefox:
		return "firefox"
	case EngineWebKit:
		return "MiniBrowser"
	default:
		return string(e)
	}
}
