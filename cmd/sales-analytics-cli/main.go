// Package main provides the sales analytics CLI entrypoint.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/app"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/config"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/observability"
)

const version = "0.1.0"

var (
	// Global flags
	cfgFile    string
	outputJSON bool
	verbose    bool
	noColor    bool
	tenant     string

	// Configuration, logger and output
	cfg    *config.Config
	logger *observability.Logger
	ui     *UI
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sales-analytics-cli",
		Short: "Analyze marketplace sales exports from the command line",
		Long: `Sales Analytics CLI reads sales exports (CSV or spreadsheet) from Amazon,
Flipkart, Meesho or any other source and produces the same analysis document
as the API.

Use this tool to:
- Analyze a single export, or a sales file paired with its returns file
- Analyze many exports at once
- Inspect what the analyzer detects before running it
- Browse, show and delete saved analyses

All commands support --json for automation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			level := "warn"
			if verbose {
				level = "debug"
			}
			logger = observability.NewLogger(observability.LogConfig{
				Level:       level,
				Format:      "console",
				Output:      cmd.ErrOrStderr(),
				ServiceName: "sales-analytics-cli",
			})

			if noColor {
				color.NoColor = true
			}
			ui = NewUI(cmd.OutOrStdout(), cmd.ErrOrStderr(), outputJSON, noColor, IsTerminal())

			if tenant == "" {
				tenant = cfg.Tenancy.DefaultTenant
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file path (default: uses env vars)")
	flags.BoolVar(&outputJSON, "json", false, "output in JSON format")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")
	flags.StringVar(&tenant, "tenant", "", "tenant for saved analyses (default: tenancy.default_tenant)")

	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newDetectCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openServices builds the analyzer and record store from the loaded config.
func openServices(ctx context.Context) (*app.Services, error) {
	svc, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize services: %w", err)
	}
	return svc, nil
}

func closeServices(svc *app.Services) {
	if err := svc.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close services")
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newVersionCmd creates the version subcommand.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"version": version})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sales-analytics-cli v%s\n", version)
			return nil
		},
	}
}
