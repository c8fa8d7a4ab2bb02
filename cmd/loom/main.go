package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/petal-labs/loom/cli"
)

// Set via ldflags at build time.
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "loom",
	Short: "Loom function-graph CLI",
	Long:  "Loom is a CLI for validating, rendering, and walking function-graph definitions.",
	// SilenceUsage prevents printing usage on every error
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "", false, "Suppress all output except errors")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate(fmt.Sprintf("loom version %s\n", version))

	rootCmd.AddCommand(cli.NewRunCmd())
	rootCmd.AddCommand(cli.NewStepCmd())
	rootCmd.AddCommand(cli.NewRenderCmd())
	rootCmd.AddCommand(cli.NewValidateCmd())
	rootCmd.AddCommand(cli.NewOpsCmd())
}
