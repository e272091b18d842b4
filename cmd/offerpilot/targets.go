package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"offerpilot/pkg/api"
)

var targetsCmd = &cobra.Command{
	Use:     "targets",
	Aliases: []string{"tabs"},
	Short:   "List browser tabs and mark the one a run would attach to",
	RunE:    runTargets,
}

func init() {
	targetsCmd.Flags().String("devtools", "", "DevTools HTTP endpoint")
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func runTargets(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.close()
	if v, _ := cmd.Flags().GetString("devtools"); v != "" {
		a.cfg.DevTools.URL = v
	}

	targets, err := api.NewService(a.log).ListTargets(cmd.Context(), a.cfg)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No targets.")
		return nil
	}

	t := newTable("", "ID", "TYPE", "TITLE", "URL")
	for _, tg := range targets {
		mark := ""
		if tg.IsCurrent {
			mark = "*"
		}
		t.Row(mark, string(tg.ID), tg.Type, truncate(tg.Title, 40), truncate(tg.URL, 70))
	}
	fmt.Fprintln(cmd.OutOrStdout(), t.Render())
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
