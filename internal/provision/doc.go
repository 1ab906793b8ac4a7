// SPDX-License-Identifier: MPL-2.0

// Package provision turns a provisioning policy into an executable plan.
//
// A Policy describes the desired browser runtime: which engines, which
// install strategy, where the binaries live, and which non-root identity
// runs the application. BuildPlan resolves the policy into ordered steps
// whose commands are the single source of truth for every rendering:
//
//	plan, err := provision.BuildPlan(policy)
//	// provision.RenderDockerfile(plan): container image recipe
//	// provision.RenderScript(plan):     POSIX provisioning script
//	// executor.Apply(ctx, plan):        run directly on the host
//
// All three outputs are derived from the same plan, so an image built
// from the Dockerfile and a host provisioned by the script end up with
// the same packages, the same browsers, and the same identity layout.
package provision
