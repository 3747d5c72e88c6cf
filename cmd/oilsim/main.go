// Command oilsim runs backtests and Monte Carlo studies of options
// strategies on a synthetic oil-futures price process.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes: 0 success, 1 configuration-validation failure, 2
// numerical/pricing failure.
const (
	exitOK          = 0
	exitConfigError = 1
	exitNumerical   = 2
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "oilsim",
	Short: "oilsim backtests and Monte Carlo-studies options strategies on oil futures",
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug-level logging")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(exitConfigError)
	}
}
