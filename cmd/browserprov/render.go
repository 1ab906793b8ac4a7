// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"browserprov/internal/provision"
)

var (
	renderFlags  policyFlags
	renderOutput string

	renderCmd = &cobra.Command{
		Use:   "render",
		Short: "Render the provisioning plan as a Dockerfile or script",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	renderDockerfileCmd = &cobra.Command{
		Use:   "dockerfile",
		Short: "Render a container image recipe",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, provision.RenderDockerfile)
		},
	}

	renderScriptCmd = &cobra.Command{
		Use:   "script",
		Short: "Render a POSIX provisioning script",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, provision.RenderScript)
		},
	}
)

func init() {
	renderFlags.register(renderCmd.PersistentFlags())
	renderCmd.PersistentFlags().StringVarP(&renderOutput, "output", "o", "", "write to file instead of stdout")
	renderCmd.AddCommand(renderDockerfileCmd)
	renderCmd.AddCommand(renderScriptCmd)
}

func runRender(cmd *cobra.Command, render func(*provision.Plan) (string, error)) error {
	cfg, err := loadConfig(cmd.Context())
	if err != nil {
		return err
	}
	policy, err := renderFlags.policy(cfg)
	if err != nil {
		return err
	}
	plan, err := provision.BuildPlan(policy)
	if err != nil {
		return err
	}

	out, err := render(plan)
	if err != nil {
		return err
	}

	if renderOutput != "" {
		if err := os.WriteFile(renderOutput, []byte(out), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", renderOutput, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("✓ wrote ")+CmdStyle.Render(renderOutput))
		return nil
	}

	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
