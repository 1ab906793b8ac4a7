// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"browserprov/internal/health"
)

var (
	monitorOnce    bool
	monitorPort    uint16
	monitorAddress string
	monitorPath    string

	monitorCmd = &cobra.Command{
		Use:   "monitor",
		Short: "Monitor the application's liveness endpoint",
		Long: `Monitor the application's liveness endpoint.

Without flags, probes periodically and logs state transitions until
interrupted. With --once, performs a single probe and exits 0 on
success and 1 on failure, which makes it usable as a container
HEALTHCHECK command.

Port precedence: --port flag, then STREAMLIT_SERVER_PORT, then PORT,
then the configured port.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(cmd)
		},
	}
)

func init() {
	monitorCmd.Flags().BoolVar(&monitorOnce, "once", false, "probe once and exit")
	monitorCmd.Flags().Uint16Var(&monitorPort, "port", 0, "override the application port")
	monitorCmd.Flags().StringVar(&monitorAddress, "address", "127.0.0.1", "address to probe")
	monitorCmd.Flags().StringVar(&monitorPath, "path", health.DefaultLivenessPath, "liveness endpoint path")
}

func runMonitor(cmd *cobra.Command) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	port, err := probePort(monitorPort, cfg)
	if err != nil {
		return err
	}

	opts := cfg.MonitorOptions()
	logger := newLogger()
	prober := health.NewHTTPProber(monitorAddress, uint16(port), monitorPath, opts.Timeout)
	monitor := health.NewMonitor(prober, logger, opts)

	if monitorOnce {
		rec, _ := monitor.ProbeOnce(ctx)
		if rec.OK() {
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("✓ ")+prober.URL())
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), ErrorStyle.Render("✗ ")+prober.URL()+": "+rec.Detail)
		return &ExitError{Code: 1, Err: fmt.Errorf("liveness probe failed: %s", rec.Outcome)}
	}

	logger.Info("monitoring liveness endpoint",
		"url", prober.URL(),
		"interval", opts.Interval,
		"failure_threshold", opts.FailureThreshold)

	if err := monitor.Run(ctx); err != nil {
		return &ExitError{Code: 1, Err: err}
	}
	return nil
}
