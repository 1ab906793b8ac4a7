// SPDX-License-Identifier: MPL-2.0

package envdesc

import (
	"errors"
	"strings"
	"testing"
)

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	d, err := New("", "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.BindAddress != DefaultBindAddress {
		t.Errorf("expected default address %q, got %q", DefaultBindAddress, d.BindAddress)
	}
	if d.BindPort != DefaultBindPort {
		t.Errorf("expected default port %d, got %d", DefaultBindPort, d.BindPort)
	}
}

func TestNew_PortOverride(t *testing.T) {
	t.Parallel()

	d, err := New("/usr/lib/browsers", "", 9000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	env := d.Environ()
	if env[KeyBindPort] != "9000" {
		t.Errorf("expected port 9000 in environ, got %q", env[KeyBindPort])
	}
	if env[KeyBindPort] == DefaultBindPort.String() {
		t.Error("port override must not fall back to the hard-coded default")
	}
}

func TestEntries_KeySetFixedAcrossStrategies(t *testing.T) {
	t.Parallel()

	bundled, err := New("/usr/lib/browsers", "", 8501)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ospackage, err := New("", "", 8080)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bundledEntries := bundled.Entries()
	ospackageEntries := ospackage.Entries()
	if len(bundledEntries) != len(ospackageEntries) {
		t.Fatalf("key set differs: %d vs %d entries", len(bundledEntries), len(ospackageEntries))
	}
	for i := range bundledEntries {
		if bundledEntries[i].Key != ospackageEntries[i].Key {
			t.Errorf("key %d differs: %q vs %q", i, bundledEntries[i].Key, ospackageEntries[i].Key)
		}
	}
}

func TestEnviron_OmitsNonexistentBrowserRoot(t *testing.T) {
	t.Parallel()

	d, err := New("", "", 8080)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	env := d.Environ()
	if _, ok := env[KeyBrowserRoot]; ok {
		t.Error("environ must not contain a browser root that does not exist")
	}
	if env[KeyUnbuffered] != "1" {
		t.Errorf("expected unbuffered output flag, got %q", env[KeyUnbuffered])
	}
	if env[KeyHeadless] != "true" {
		t.Errorf("headless must always be forced true, got %q", env[KeyHeadless])
	}
	if env[KeyBindAddress] != "0.0.0.0" {
		t.Errorf("expected all-interfaces bind, got %q", env[KeyBindAddress])
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	if err := (Descriptor{BindAddress: "0.0.0.0", BindPort: 8501}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := (Descriptor{BindAddress: " ", BindPort: 0}).Validate()
	if !errors.Is(err, ErrInvalidBindAddress) {
		t.Errorf("expected ErrInvalidBindAddress, got %v", err)
	}
	if !errors.Is(err, ErrInvalidBindPort) {
		t.Errorf("expected ErrInvalidBindPort, got %v", err)
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	d, err := New("/usr/lib/browsers", "", 8501)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		format Format
		want   []string
	}{
		{FormatExport, []string{`export PYTHONUNBUFFERED="1"`, `export STREAMLIT_SERVER_PORT="8501"`}},
		{FormatDotenv, []string{"PLAYWRIGHT_BROWSERS_PATH=/usr/lib/browsers", "STREAMLIT_SERVER_HEADLESS=true"}},
		{FormatDockerfile, []string{"ENV STREAMLIT_SERVER_ADDRESS=0.0.0.0", "ENV STREAMLIT_SERVER_PORT=8501"}},
		{FormatTOML, []string{"browser_root = '/usr/lib/browsers'", "bind_port = 8501"}},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			t.Parallel()

			out, err := d.Render(tt.format)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("expected output to contain %q, got:\n%s", want, out)
				}
			}
		})
	}

	if _, err := d.Render("yaml"); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestRender_NoBrowserRootLineWhenEmpty(t *testing.T) {
	t.Parallel()

	d, err := New("", "", 8080)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := d.Render(FormatDotenv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, KeyBrowserRoot) {
		t.Errorf("dotenv output must omit empty browser root, got:\n%s", out)
	}
}

func TestPortFromEnv(t *testing.T) {
	t.Parallel()

	lookup := func(env map[string]string) func(string) (string, bool) {
		return func(key string) (string, bool) {
			v, ok := env[key]
			return v, ok
		}
	}

	port, err := PortFromEnv(lookup(map[string]string{KeyBindPort: "9000", "PORT": "8080"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if port != 9000 {
		t.Errorf("server port variable must win over PORT, got %d", port)
	}

	port, err = PortFromEnv(lookup(map[string]string{"PORT": "8080"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if port != 8080 {
		t.Errorf("expected PORT fallback 8080, got %d", port)
	}

	port, err = PortFromEnv(lookup(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if port != 0 {
		t.Errorf("expected zero (no override), got %d", port)
	}

	if _, err := PortFromEnv(lookup(map[string]string{"PORT": "not-a-port"})); err == nil {
		t.Error("expected error for malformed port")
	}
}
