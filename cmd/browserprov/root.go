// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"browserprov/internal/browser"
	"browserprov/internal/config"
	"browserprov/internal/health"
	"browserprov/internal/issue"
	"browserprov/internal/provision"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables verbose output
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "browserprov",
		Short: "Provision and verify headless browser runtimes",
		Long: TitleStyle.Render("browserprov") + SubtitleStyle.Render(" - Provision and verify headless browser runtimes") + `

browserprov prepares hosts and container images for headless browser
automation: it installs browser engines with their shared-library
dependencies, sets up the non-root runtime identity, exports the
runtime environment, and monitors the application's liveness endpoint.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Pick your engines and install strategy (bundled or ospackage)
  2. Render a Dockerfile or provision the current host directly
  3. Verify the install before first launch

` + SubtitleStyle.Render("Examples:") + `
  browserprov provision --engine chromium     Provision this host
  browserprov render dockerfile               Print an image recipe
  browserprov env --format dotenv             Print the runtime environment
  browserprov verify                          Check a provisioned host
  browserprov monitor --once                  Probe the liveness endpoint once`,
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/browserprov/config.cue)")

	// Add subcommands
	rootCmd.AddCommand(provisionCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(envCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(configCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// Use fang.Execute for enhanced Cobra styling
	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		renderIssueEntry(os.Stderr, err)
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// issueFor maps an error to its issue catalog entry. Errors that carry an
// explicit entry win; sentinel errors from the domain packages are
// classified here because those packages cannot see the catalog.
func issueFor(err error) issue.Id {
	var ae *issue.ActionableError
	if errors.As(err, &ae) && ae.Issue != 0 {
		return ae.Issue
	}
	switch {
	case errors.Is(err, browser.ErrInvalidEngine):
		return issue.UnknownEngineId
	case errors.Is(err, provision.ErrStrategyConflict):
		return issue.StrategyConflictId
	case errors.Is(err, health.ErrUnhealthy):
		return issue.LivenessUnreachableId
	}
	return 0
}

// renderIssueEntry prints the catalog entry matching a fatal error, giving
// the user the help text behind the one-line message.
func renderIssueEntry(stderr io.Writer, err error) {
	id := issueFor(err)
	if id == 0 {
		return
	}
	entry := issue.Get(id)
	if entry == nil {
		return
	}
	rendered, renderErr := entry.Render("dark")
	if renderErr != nil {
		return
	}
	fmt.Fprint(stderr, rendered)
}

// loadConfig loads the configuration, honoring the --config flag.
func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx, config.LoadOptions{ConfigFilePath: cfgFile})
	if err != nil {
		return nil, err
	}
	if cfg.UI.Verbose {
		verbose = true
	}
	return cfg, nil
}

// newLogger creates the CLI logger, honoring the verbose flag.
func newLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: false,
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
