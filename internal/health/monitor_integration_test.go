// SPDX-License-Identifier: MPL-2.0

// Integration tests that probe a real containerized HTTP endpoint.
// These tests use testcontainers-go and require Docker or Podman.
package health

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// checkTestcontainersAvailable safely checks if testcontainers can be used.
// Returns true if containers are available, false otherwise.
func checkTestcontainersAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		return false
	}
	defer provider.Close()
	return true
}

// TestMonitor_Integration probes an HTTP server running in a container and
// drives the full monitor loop against it.
func TestMonitor_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if !checkTestcontainersAvailable() {
		t.Skip("skipping container integration tests: testcontainers provider not available")
	}

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "nginx:alpine",
		ExposedPorts: []string{"80/tcp"},
		WaitingFor:   wait.ForListeningPort("80/tcp").WithStartupTimeout(60 * time.Second),
	}
	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("failed to start container: %v", err)
	}
	defer func() {
		if err := ctr.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}()

	host, err := ctr.Host(ctx)
	if err != nil {
		t.Fatalf("failed to resolve container host: %v", err)
	}
	mapped, err := ctr.MappedPort(ctx, "80")
	if err != nil {
		t.Fatalf("failed to resolve mapped port: %v", err)
	}

	prober := NewHTTPProber(host, uint16(mapped.Int()), "/", 5*time.Second)
	monitor := NewMonitor(prober, nil, Options{
		GracePeriod:      time.Second,
		Interval:         200 * time.Millisecond,
		Timeout:          5 * time.Second,
		FailureThreshold: 3,
	})

	rec, state := monitor.ProbeOnce(ctx)
	if !rec.OK() {
		t.Fatalf("expected success probing %s, got %s (%s)", prober.URL(), rec.Outcome, rec.Detail)
	}
	if state != StateHealthy {
		t.Errorf("expected healthy, got %s", state)
	}

	runCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := monitor.Run(runCtx); err != nil {
		t.Errorf("expected clean shutdown, got %v", err)
	}
	if monitor.State() != StateTerminated {
		t.Errorf("expected terminated, got %s", monitor.State())
	}
}
