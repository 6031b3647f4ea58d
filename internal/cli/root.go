// Package cli provides the command-line interface for leaf-health.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/anime-shed/leaf-health-go/internal/config"
	"github.com/anime-shed/leaf-health-go/internal/logger"
)

var (
	// Version is set at build time.
	Version = "1.0.0"

	// Global flags
	verbose bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "leafctl",
	Short: "Offline plant-leaf health analysis",
	Long: `leafctl runs the leaf health pipeline without the HTTP server.

It reads the same environment (and .env file) as the API server, so model
folders, catalog overrides and treatment tables are shared.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		logger.SetOutput(os.Stderr)
		var err error
		cfg, err = config.LoadFromEnv()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg.LogLevel = "warn"
		if verbose {
			cfg.LogLevel = "debug"
		}
		logger.SetLevel(cfg.LogLevel)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(heuristicsCmd)
	rootCmd.AddCommand(recommendCmd)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
