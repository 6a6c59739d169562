package commands

import (
	"github.com/spf13/cobra"
)

// Build metadata, set with -ldflags "-X github.com/wonny/delaycast/cmd/delaycast/commands.Version=..."
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var (
	// Global flags
	env     string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "delaycast",
	Short: "delaycast - 배송 지연 예측 (학습 + 서빙)",
	Long: `delaycast

Predicts whether an e-commerce order will be delivered later than the
5 day SLA. One binary trains the candidate models, writes the artifact
and serves predictions over HTTP.

Usage:
  go run ./cmd/delaycast [command]

Examples:
  go run ./cmd/delaycast train --data ecommerce_orders_clean.csv
  go run ./cmd/delaycast serve --watch
  go run ./cmd/delaycast predict --price 29.99 --quantity 2 ...
  go run ./cmd/delaycast schedule --cron "@weekly"`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment (development|staging|production), overrides ENV")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
