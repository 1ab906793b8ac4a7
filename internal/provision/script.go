// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"fmt"
	"strings"

	"browserprov/internal/envdesc"
)

// RenderScript renders the plan as a POSIX provisioning script for hosts
// that are not built from a container image. The script fails on the
// first error; a partially provisioned host must not look runnable.
func RenderScript(plan *Plan) (string, error) {
	if plan == nil || len(plan.Steps) == 0 {
		return "", fmt.Errorf("cannot render an empty plan")
	}

	exports, err := plan.Descriptor.Render(envdesc.FormatExport)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("#!/bin/sh\n")
	sb.WriteString("set -eu\n\n")

	sb.WriteString("# Runtime environment\n")
	sb.WriteString(exports)
	sb.WriteString("\n")

	for _, step := range plan.Steps {
		fmt.Fprintf(&sb, "echo '>>> %s'\n", step.Name)
		for _, cmd := range step.Commands {
			// Re-running the script on an already provisioned host must
			// not trip set -e on the existing user.
			if cmd.Argv[0] == "useradd" {
				fmt.Fprintf(&sb, "id -u %s >/dev/null 2>&1 || ", plan.Policy.RuntimeUser)
			}
			sb.WriteString(shellLine(cmd))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("echo '>>> provisioning complete'\n")
	return sb.String(), nil
}
