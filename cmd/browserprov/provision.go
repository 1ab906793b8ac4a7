// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"browserprov/internal/hostexec"
	"browserprov/internal/provision"
)

var (
	provisionFlags   policyFlags
	provisionDryRun  bool
	provisionVirtual bool

	provisionCmd = &cobra.Command{
		Use:   "provision",
		Short: "Provision a browser runtime on this host",
		Long: `Provision a browser runtime on this host.

Installs the shared-library dependency set, places browser engines
according to the install strategy, and creates the non-root runtime
identity. Run as root; the application itself never runs privileged.

Engines must be one of: ` + strings.Join(engineNames(), ", ") + `.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProvision(cmd)
		},
	}
)

func init() {
	provisionFlags.register(provisionCmd.Flags())
	provisionCmd.Flags().BoolVar(&provisionDryRun, "dry-run", false, "print the provisioning plan without applying it")
	provisionCmd.Flags().BoolVar(&provisionVirtual, "virtual-shell", false, "apply the plan through the built-in shell interpreter")
}

func runProvision(cmd *cobra.Command) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	policy, err := provisionFlags.policy(cfg)
	if err != nil {
		return err
	}
	plan, err := provision.BuildPlan(policy)
	if err != nil {
		return err
	}

	if provisionDryRun {
		script, err := provision.RenderScript(plan)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), script)
		return nil
	}

	logger := newLogger()
	executor := provision.NewExecutor(
		hostexec.NewExecRunner(),
		logger,
		provision.WithOutput(os.Stdout, os.Stderr),
	)

	if provisionVirtual {
		err = executor.ApplyScript(ctx, plan, hostexec.NewVirtualShell())
	} else {
		err = executor.Apply(ctx, plan)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Provisioning failed: ")+formatErrorForDisplay(err, verbose))
		return &ExitError{Code: 1, Err: err}
	}

	logger.Info("provisioning complete",
		"strategy", policy.Strategy.String(),
		"engines", len(policy.Engines),
		"user", policy.RuntimeUser)
	fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("✓ provisioning complete"))
	return nil
}
