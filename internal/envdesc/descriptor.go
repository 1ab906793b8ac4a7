// SPDX-License-Identifier: MPL-2.0

// Package envdesc builds the Runtime Environment Descriptor: the fixed set
// of configuration keys the application reads at startup to locate browsers
// and bind its listener. The key set never depends on the installation
// strategy, so application code never branches on how browsers were placed
// on disk; only values differ.
package envdesc

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	// KeyUnbuffered disables interpreter output buffering so logs stream
	// immediately instead of batching.
	KeyUnbuffered = "PYTHONUNBUFFERED"
	// KeyBrowserRoot is the browser install root the application uses to
	// locate engine binaries. Omitted from rendered output when no root
	// exists (ospackage strategy: engines use their own discovery paths).
	KeyBrowserRoot = "PLAYWRIGHT_BROWSERS_PATH"
	// KeyBindAddress is the listener bind address.
	KeyBindAddress = "STREAMLIT_SERVER_ADDRESS"
	// KeyBindPort is the listener bind port.
	KeyBindPort = "STREAMLIT_SERVER_PORT"
	// KeyHeadless forces headless mode; containers have no display server.
	KeyHeadless = "STREAMLIT_SERVER_HEADLESS"

	// DefaultBindAddress binds all interfaces.
	DefaultBindAddress = "0.0.0.0"
	// DefaultBindPort is the UI server's default port.
	DefaultBindPort BindPort = 8501
)

var (
	// ErrInvalidBindPort is the sentinel error wrapped by InvalidBindPortError.
	ErrInvalidBindPort = errors.New("invalid bind port")

	// ErrInvalidBindAddress is returned when the bind address is empty.
	ErrInvalidBindAddress = errors.New("invalid bind address: must be non-empty")
)

type (
	// BindPort is a TCP listener port. A valid port must be greater than zero.
	BindPort uint16

	// InvalidBindPortError is returned when a BindPort value is zero.
	// It wraps ErrInvalidBindPort for errors.Is() compatibility.
	InvalidBindPortError struct {
		Value BindPort
	}

	// Descriptor is the Runtime Environment Descriptor. It is constructed
	// once before the application process starts and is immutable
	// thereafter; no key may depend on a value computed after start.
	Descriptor struct {
		// BrowserRoot is the browser install root. Empty means the engines'
		// own default discovery paths are in effect and the key is omitted
		// from rendered output.
		BrowserRoot string `toml:"browser_root,omitempty"`
		// BindAddress is the listener bind address.
		BindAddress string `toml:"bind_address"`
		// BindPort is the listener bind port.
		BindPort BindPort `toml:"bind_port"`
	}

	// Entry is a single rendered key/value pair.
	Entry struct {
		Key   string
		Value string
	}
)

// String returns the string representation of the BindPort.
func (p BindPort) String() string { return strconv.Itoa(int(p)) }

// Validate returns an error if the BindPort is zero.
func (p BindPort) Validate() error {
	if p == 0 {
		return &InvalidBindPortError{Value: p}
	}
	return nil
}

// Error implements the error interface for InvalidBindPortError.
func (e *InvalidBindPortError) Error() string {
	return fmt.Sprintf("invalid bind port %d: must be greater than zero", e.Value)
}

// Unwrap returns ErrInvalidBindPort for errors.Is() compatibility.
func (e *InvalidBindPortError) Unwrap() error { return ErrInvalidBindPort }

// New builds a Descriptor, applying defaults for unset address and port.
func New(browserRoot, bindAddress string, bindPort BindPort) (Descriptor, error) {
	if bindAddress == "" {
		bindAddress = DefaultBindAddress
	}
	if bindPort == 0 {
		bindPort = DefaultBindPort
	}

	d := Descriptor{
		BrowserRoot: browserRoot,
		BindAddress: bindAddress,
		BindPort:    bindPort,
	}
	if err := d.Validate(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

// Validate returns an error if any descriptor field is invalid.
func (d Descriptor) Validate() error {
	var errs []error
	if strings.TrimSpace(d.BindAddress) == "" {
		errs = append(errs, ErrInvalidBindAddress)
	}
	if err := d.BindPort.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Entries returns the descriptor as ordered key/value pairs. The key order
// is fixed. The browser root entry carries an empty value when no install
// root exists; renderers skip empty values so a nonexistent path is never
// emitted into the environment.
func (d Descriptor) Entries() []Entry {
	return []Entry{
		{Key: KeyUnbuffered, Value: "1"},
		{Key: KeyBrowserRoot, Value: d.BrowserRoot},
		{Key: KeyBindAddress, Value: d.BindAddress},
		{Key: KeyBindPort, Value: d.BindPort.String()},
		{Key: KeyHeadless, Value: "true"},
	}
}

// Environ returns the descriptor as an environment map, omitting empty
// values.
func (d Descriptor) Environ() map[string]string {
	env := make(map[string]string, 5)
	for _, entry := range d.Entries() {
		if entry.Value == "" {
			continue
		}
		env[entry.Key] = entry.Value
	}
	return env
}

// PortFromEnv resolves a port override from the process environment.
// The dedicated server port variable wins over the generic PORT variable;
// zero means no override is present. A malformed value is an error rather
// than a silent fallback to the default.
func PortFromEnv(lookup func(string) (string, bool)) (BindPort, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, key := range []string{KeyBindPort, "PORT"} {
		raw, ok := lookup(key)
		if !ok || raw == "" {
			continue
		}
		parsed, err := strconv.ParseUint(raw, 10, 16)
		if err != nil {
			return 0, fmt.Errorf("invalid port in %s=%q: %w", key, raw, err)
		}
		port := BindPort(parsed)
		if err := port.Validate(); err != nil {
			return 0, fmt.Errorf("invalid port in %s=%q: %w", key, raw, err)
		}
		return port, nil
	}
	return 0, nil
}
