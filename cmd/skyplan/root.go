package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "skyplan",
	Short: "Goal-driven launch intelligence engine",
	Long: `Skyplan turns free-form questions about rocket launches into
executable plans over data capabilities, runs them, and judges the
results against the goal.

Given a goal like "will weather delay the next launch?", skyplan
selects the capabilities that can answer it (launch lookup, weather,
news sentiment, market data), orders them by their data dependencies,
runs independent ones in parallel, and replans when results fall
short, up to a bounded number of iterations.

Capabilities fetch live data:
- launch:  upcoming SpaceX launches (api.spacexdata.com)
- weather: pad conditions and delay risk (openweathermap.org)
- news:    headline sentiment (newsapi.org)
- market:  crypto market mood (coingecko.com)`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
