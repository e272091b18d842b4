package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"offerpilot/pkg/api"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Enroll all available offers on the matched browser tab",
	Long: `Attach to the browser tab whose URL matches the configured pattern,
wait for the offers page to settle, and enroll every offer that is not yet
enrolled. Press s, q or ctrl+c to stop after the current offer.`,
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.String("devtools", "", "DevTools HTTP endpoint (default http://127.0.0.1:9222)")
	f.String("target", "", "Attach to this target ID instead of matching by URL")
	f.String("url", "", "Navigate the tab to this URL before starting")
	f.String("match", "", "URL pattern used to pick the tab")
	f.String("match-mode", "", "Pattern mode: exact, prefix, regex or glob")
	f.Int("retries", -1, "Re-click an offer this many times when no dialog appears")
	f.Bool("plain", false, "Log progress lines instead of the terminal panel")
}

func runRun(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd, interactive(cmd))
	if err != nil {
		return err
	}
	defer a.close()

	f := cmd.Flags()
	if v, _ := f.GetString("devtools"); v != "" {
		a.cfg.DevTools.URL = v
	}
	if v, _ := f.GetString("target"); v != "" {
		a.cfg.DevTools.TargetID = v
	}
	if v, _ := f.GetString("url"); v != "" {
		a.cfg.DevTools.Navigate = v
	}
	if v, _ := f.GetString("match"); v != "" {
		a.cfg.Target.Pattern = v
	}
	if v, _ := f.GetString("match-mode"); v != "" {
		a.cfg.Target.Mode = v
	}
	if v, _ := f.GetInt("retries"); v >= 0 {
		a.cfg.Policy.TimeoutRetries = v
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sum, err := a.execute(ctx, api.RunOptions{}, !interactive(cmd))
	if sum.Run != "" {
		printSummary(cmd.OutOrStdout(), sum)
	}
	return err
}
