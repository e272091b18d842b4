package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "offerpilot",
	Short: "Enroll every available Citi merchant offer in an open browser tab",
	Long: `offerpilot attaches to a Chromium browser over the DevTools protocol,
scrolls the merchant offers page until lazy loading settles, and then enrolls
each un-enrolled offer one at a time.

Start the browser with --remote-debugging-port=9222 and log in first.

Examples:
  offerpilot targets                        # List tabs and the one that matches
  offerpilot run                            # Enroll everything on the matched tab
  offerpilot run --url https://online.citi.com/US/ag/products-offers/merchantoffers
  offerpilot rehearse --offers 40 --batch 8 --instant
  offerpilot history                        # Recent runs from the journal`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	f := rootCmd.PersistentFlags()
	f.StringP("config", "c", "", "YAML config file")
	f.String("log-level", "", "Log level (debug, info, warn, error)")
	f.String("db", "", "SQLite journal path")
	f.Bool("no-journal", false, "Do not record runs")
	f.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9100)")

	rootCmd.AddCommand(runCmd, targetsCmd, rehearseCmd, historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
