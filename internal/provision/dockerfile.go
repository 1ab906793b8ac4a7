// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"fmt"
	"strings"
	"time"

	"browserprov/internal/envdesc"
	"browserprov/internal/health"
)

// RenderDockerfile renders the plan as a container image recipe. The
// generated image starts the application as the non-root runtime identity
// and carries a HEALTHCHECK probing the liveness endpoint with the same
// timings the monitor uses.
func RenderDockerfile(plan *Plan) (string, error) {
	if plan == nil || len(plan.Steps) == 0 {
		return "", fmt.Errorf("cannot render an empty plan")
	}

	envLines, err := plan.Descriptor.Render(envdesc.FormatDockerfile)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "FROM %s\n\n", plan.Policy.BaseImage)

	sb.WriteString("# Runtime environment\n")
	sb.WriteString(envLines)
	sb.WriteString("\n")

	for _, step := range plan.Steps {
		fmt.Fprintf(&sb, "# %s\n", capitalize(step.Name))
		sb.WriteString(renderRun(step))
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "WORKDIR %s\n", plan.Policy.WorkDir)
	sb.WriteString("COPY --chown=" + plan.Policy.RuntimeUser + ":" + plan.Policy.RuntimeUser + " . " + plan.Policy.WorkDir + "\n\n")

	// Everything after this line runs unprivileged.
	fmt.Fprintf(&sb, "USER %s\n\n", plan.Policy.RuntimeUser)

	fmt.Fprintf(&sb, "EXPOSE %d\n\n", plan.Policy.BindPort)
	sb.WriteString(renderHealthcheck(plan))
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "CMD %s\n", jsonArgv(strings.Fields(plan.Policy.AppEntrypoint)))
	return sb.String(), nil
}

// renderRun joins a step's commands into a single RUN instruction so each
// step produces exactly one image layer.
func renderRun(step Step) string {
	lines := make([]string, 0, len(step.Commands))
	for _, cmd := range step.Commands {
		lines = append(lines, shellLine(cmd))
	}
	return "RUN " + strings.Join(lines, " && \\\n    ") + "\n"
}

// renderHealthcheck probes the liveness endpoint with the interpreter the
// base image ships. The slim base carries no curl, and the dependency set
// must stay limited to headless rendering, so the probe is a one-liner on
// the Python that runs the application anyway. urlopen raises on refused
// connections and non-2xx responses, so the command exits non-zero exactly
// when the probe fails.
func renderHealthcheck(plan *Plan) string {
	probe := fmt.Sprintf(
		"import urllib.request; urllib.request.urlopen('http://localhost:%d%s', timeout=%d)",
		plan.Policy.BindPort,
		health.DefaultLivenessPath,
		int(health.DefaultTimeout/time.Second),
	)
	return fmt.Sprintf(
		"HEALTHCHECK --interval=%s --timeout=%s --start-period=%s --retries=%d \\\n  CMD python -c \"%s\" || exit 1\n",
		health.DefaultInterval,
		health.DefaultTimeout,
		health.DefaultGracePeriod,
		health.DefaultFailureThreshold,
		probe,
	)
}

func jsonArgv(argv []string) string {
	quoted := make([]string, len(argv))
	for i, arg := range argv {
		quoted[i] = `"` + arg + `"`
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
