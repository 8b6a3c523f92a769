// Package cli implements the wellsync terminal client.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	storeLocation string
	endpointURL   string
	rulesPath     string
	verbose       bool
)

var rootCmd = &cobra.Command{
	Use:           "wellsync",
	Short:         "wellsync tracks your wellness history from the terminal",
	Long:          "wellsync is a local-first wellness tracker: body metrics, food, water, activity and daily check-ins, with optional sync to a remote sheet endpoint.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storeLocation, "store", "", "Slot store: SQLite path, redis:// URL or memory: (default: user config dir)")
	rootCmd.PersistentFlags().StringVar(&endpointURL, "endpoint", "", "Remote sync endpoint to store before running the command")
	rootCmd.PersistentFlags().StringVar(&rulesPath, "rules", "", "Gamification rules YAML file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log remote activity")
}
