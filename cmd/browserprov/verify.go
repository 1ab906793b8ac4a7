// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"browserprov/internal/hostexec"
	"browserprov/internal/provision"
)

var (
	verifyFlags policyFlags

	verifyCmd = &cobra.Command{
		Use:   "verify",
		Short: "Verify a provisioned browser runtime",
		Long: `Verify a provisioned browser runtime.

Checks that every browser binary the policy names is present, that its
shared libraries resolve, and that the permission layout lets the
non-root runtime identity launch it. Exits non-zero if any check fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd)
		},
	}
)

func init() {
	verifyFlags.register(verifyCmd.Flags())
}

func runVerify(cmd *cobra.Command) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	policy, err := verifyFlags.policy(cfg)
	if err != nil {
		return err
	}

	verifier := provision.NewVerifier(hostexec.NewExecRunner(), newLogger())
	report, err := verifier.Verify(ctx, policy)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, finding := range report.Findings {
		if finding.OK {
			fmt.Fprintln(out, SuccessStyle.Render("✓ ")+finding.Check)
			continue
		}
		fmt.Fprintln(out, ErrorStyle.Render("✗ ")+finding.Check+": "+finding.Detail)
	}

	if !report.OK() {
		failed := len(report.Failed())
		fmt.Fprintln(out, ErrorStyle.Render(fmt.Sprintf("%d check(s) failed", failed)))
		return &ExitError{Code: 1, Err: fmt.Errorf("%d verification checks failed", failed)}
	}

	fmt.Fprintln(out, SuccessStyle.Render("✓ runtime verified"))
	return nil
}
