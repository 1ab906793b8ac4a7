// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"browserprov/internal/browser"
	"browserprov/internal/envdesc"
)

var (
	envFormat  string
	envPort    uint16
	envAddress string

	envCmd = &cobra.Command{
		Use:   "env",
		Short: "Print the runtime environment descriptor",
		Long: `Print the runtime environment descriptor.

The descriptor carries the variables the application and its browsers
need at runtime: unbuffered output, the browser install root, and the
server's bind address, port, and headless flag.

Port precedence: --port flag, then STREAMLIT_SERVER_PORT, then PORT,
then the configured port.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnv(cmd)
		},
	}
)

func init() {
	envCmd.Flags().StringVar(&envFormat, "format", "dotenv", "output format (export, dotenv, dockerfile, toml)")
	envCmd.Flags().Uint16Var(&envPort, "port", 0, "override the application port")
	envCmd.Flags().StringVar(&envAddress, "address", "", "override the bind address")
}

func runEnv(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd.Context())
	if err != nil {
		return err
	}

	port, err := probePort(envPort, cfg)
	if err != nil {
		return err
	}

	address := cfg.Server.BindAddress
	if envAddress != "" {
		address = envAddress
	}

	browserRoot := ""
	if cfg.Provision.Strategy == browser.StrategyBundled.String() {
		browserRoot = cfg.Provision.InstallRoot
	}

	descriptor, err := envdesc.New(browserRoot, address, port)
	if err != nil {
		return err
	}

	out, err := descriptor.Render(envdesc.Format(envFormat))
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
