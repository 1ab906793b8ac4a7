// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"strings"
	"testing"

	"browserprov/internal/browser"
	"browserprov/internal/envdesc"
)

func TestRenderDockerfile(t *testing.T) {
	t.Parallel()

	plan, err := BuildPlan(NewPolicy(WithEngines(browser.EngineChromium)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := RenderDockerfile(plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		"FROM python:3.12-slim",
		"ENV PYTHONUNBUFFERED=1",
		"ENV PLAYWRIGHT_BROWSERS_PATH=/usr/lib/browsers",
		"ENV STREAMLIT_SERVER_ADDRESS=0.0.0.0",
		"ENV STREAMLIT_SERVER_PORT=8501",
		"ENV STREAMLIT_SERVER_HEADLESS=true",
		"apt-get update",
		"--no-install-recommends",
		"rm -rf /var/lib/apt/lists/*",
		"PLAYWRIGHT_BROWSERS_PATH=/usr/lib/browsers playwright install chromium",
		"useradd",
		"WORKDIR /app",
		"USER scraper",
		"EXPOSE 8501",
		"HEALTHCHECK --interval=30s --timeout=10s --start-period=5s --retries=3",
		`CMD python -c "import urllib.request; urllib.request.urlopen('http://localhost:8501/_stcore/health', timeout=10)" || exit 1`,
		`CMD ["streamlit", "run", "app.py"]`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected Dockerfile to contain %q, got:\n%s", want, out)
		}
	}
}

func TestRenderDockerfile_HealthcheckUsesBaseImageInterpreter(t *testing.T) {
	t.Parallel()

	for _, strategy := range []browser.Strategy{browser.StrategyBundled, browser.StrategyOSPackage} {
		plan, err := BuildPlan(NewPolicy(
			WithEngines(browser.EngineChromium),
			WithStrategy(strategy),
		))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out, err := RenderDockerfile(plan)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// The slim base image ships no curl and nothing installs it, so a
		// curl-based probe would leave every image permanently unhealthy.
		if strings.Contains(out, "curl") {
			t.Errorf("%s: healthcheck must not depend on curl:\n%s", strategy, out)
		}
		if !strings.Contains(out, `CMD python -c`) {
			t.Errorf("%s: healthcheck must use the base image interpreter:\n%s", strategy, out)
		}
	}
}

func TestRenderDockerfile_StepsAreSingleLayers(t *testing.T) {
	t.Parallel()

	plan, err := BuildPlan(NewPolicy(WithEngines(browser.EngineChromium)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := RenderDockerfile(plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := strings.Count(out, "RUN "); got != len(plan.Steps) {
		t.Errorf("expected one RUN per step (%d), got %d", len(plan.Steps), got)
	}
	if !strings.Contains(out, "apt-get update && \\\n    apt-get install") {
		t.Errorf("expected update and install joined in one layer, got:\n%s", out)
	}
}

func TestRenderDockerfile_OSPackageOmitsBrowserRoot(t *testing.T) {
	t.Parallel()

	plan, err := BuildPlan(NewPolicy(
		WithEngines(browser.EngineChromium),
		WithStrategy(browser.StrategyOSPackage),
		WithBindPort(8080),
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := RenderDockerfile(plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Contains(out, envdesc.KeyBrowserRoot) {
		t.Errorf("OS-package image must not export a browser root, got:\n%s", out)
	}
	if !strings.Contains(out, "EXPOSE 8080") {
		t.Errorf("expected alternate port exposed, got:\n%s", out)
	}
	if !strings.Contains(out, "http://localhost:8080/_stcore/health") {
		t.Errorf("healthcheck must follow the configured port, got:\n%s", out)
	}
	if strings.Contains(out, "playwright install") {
		t.Errorf("OS-package image must not run the vendor install tool, got:\n%s", out)
	}
}

func TestRenderScript(t *testing.T) {
	t.Parallel()

	plan, err := BuildPlan(NewPolicy(WithEngines(browser.EngineChromium)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := RenderScript(plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(out, "#!/bin/sh\nset -eu\n") {
		t.Errorf("script must fail on first error, got:\n%s", out)
	}
	for _, want := range []string{
		`export PYTHONUNBUFFERED="1"`,
		`export STREAMLIT_SERVER_HEADLESS="true"`,
		"id -u scraper >/dev/null 2>&1 || useradd",
		"chown -R scraper:scraper /app",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected script to contain %q, got:\n%s", want, out)
		}
	}
}

func TestRender_EmptyPlan(t *testing.T) {
	t.Parallel()

	if _, err := RenderDockerfile(nil); err == nil {
		t.Error("expected error for nil plan")
	}
	if _, err := RenderScript(&Plan{}); err == nil {
		t.Error("expected error for empty plan")
	}
}
