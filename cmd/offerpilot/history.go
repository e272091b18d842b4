package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"offerpilot/internal/reporter"
	"offerpilot/internal/storage"
	"offerpilot/pkg/model"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recorded runs, or the offers settled in one run",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.IntP("limit", "n", 10, "Number of runs to show")
	f.Bool("enrolled", false, "List every offer label ever enrolled")
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.close()
	if a.journal == nil {
		return errors.New("journal disabled")
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if all, _ := cmd.Flags().GetBool("enrolled"); all {
		labels, err := a.journal.EnrolledLabels(ctx)
		if err != nil {
			return err
		}
		for _, l := range labels {
			fmt.Fprintln(out, l)
		}
		return nil
	}

	if len(args) == 1 {
		rec, err := a.journal.Run(ctx, model.RunID(args[0]))
		if storage.IsNotFound(err) {
			return fmt.Errorf("run %s not found", args[0])
		}
		if err != nil {
			return err
		}
		t := newTable("#", "OUTCOME", "TRIES", "TIME", "OFFER")
		for i, it := range rec.Items {
			t.Row(strconv.Itoa(i+1), it.Outcome, strconv.Itoa(it.Attempts),
				strconv.FormatFloat(float64(it.DurationMs)/1000, 'f', 1, 64)+"s", it.Label)
		}
		fmt.Fprintf(out, "Run %s on %s\n", rec.ID, rec.URL)
		fmt.Fprintln(out, t.Render())
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := a.journal.RecentRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}
	t := newTable("RUN", "STARTED", "RESULT", "SETTLED", "ENROLLED", "REJECTED", "TIMEOUT", "ELAPSED")
	for _, r := range runs {
		result := r.StopReason
		if result == "" {
			result = "running"
		}
		t.Row(r.ID, r.StartedAt.Local().Format("2006-01-02 15:04"), result,
			fmt.Sprintf("%d/%d", r.Completed, r.Total),
			strconv.Itoa(r.Enrolled), strconv.Itoa(r.Rejected), strconv.Itoa(r.TimedOut),
			reporter.FormatElapsed(msDuration(r.ElapsedMs)))
	}
	fmt.Fprintln(out, t.Render())
	return nil
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func msDuration(ms int64) time.Duration { return time.Duration(ms) * time.Millisecond }
