package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"offerpilot/internal/enroll"
	"offerpilot/internal/rehearsal"
	"offerpilot/pkg/api"
	"offerpilot/pkg/model"
)

var rehearseCmd = &cobra.Command{
	Use:   "rehearse",
	Short: "Run the enrollment loop against a saved or generated offers page",
	Long: `Rehearse drives the same scan and enroll loop against an in-memory copy
of the offers page, so selectors and timing can be checked without touching
a real account. Offers beyond --batch are hidden until the page is scrolled.

Examples:
  offerpilot rehearse --offers 30 --enrolled 5 --batch 8 --instant
  offerpilot rehearse --html saved.html --reject "Coffee" --silent "Books"
  offerpilot rehearse --dialog-delay 3 --instant
  offerpilot rehearse --speed 0.05 --out after.html`,
	RunE: runRehearse,
}

func init() {
	f := rehearseCmd.Flags()
	f.String("html", "", "Saved offers page; a generated page is used when empty")
	f.Int("offers", 20, "Offers on the generated page")
	f.Int("enrolled", 0, "Offers already enrolled on the generated page")
	f.Int("batch", 6, "Offers revealed per scroll (0 shows everything)")
	f.StringSlice("reject", nil, "Offers whose label contains this text are rejected")
	f.StringSlice("silent", nil, "Offers whose label contains this text never open a dialog")
	f.Int("dialog-delay", 0, "Confirmation checks that miss the dialog after each click")
	f.Bool("instant", false, "Use a virtual clock so waits take no real time")
	f.Float64("speed", 0.1, "Scale all waits by this factor when not instant")
	f.String("out", "", "Write the final page HTML to this file")
	f.Bool("plain", false, "Log progress lines instead of the terminal panel")
}

func runRehearse(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd, interactive(cmd))
	if err != nil {
		return err
	}
	defer a.close()

	f := cmd.Flags()
	htmlPath, _ := f.GetString("html")
	offers, _ := f.GetInt("offers")
	enrolled, _ := f.GetInt("enrolled")
	batch, _ := f.GetInt("batch")
	reject, _ := f.GetStringSlice("reject")
	silent, _ := f.GetStringSlice("silent")
	delay, _ := f.GetInt("dialog-delay")
	instant, _ := f.GetBool("instant")
	speed, _ := f.GetFloat64("speed")
	out, _ := f.GetString("out")

	var (
		src    io.Reader
		target = model.TargetInfo{ID: "rehearsal", Type: "page", Title: "Merchant Offers"}
	)
	if htmlPath != "" {
		file, err := os.Open(htmlPath)
		if err != nil {
			return fmt.Errorf("open page: %w", err)
		}
		defer file.Close()
		src = file
		target.URL = "file://" + htmlPath
	} else {
		src = strings.NewReader(rehearsal.Synthetic(rehearsal.Merchants(offers), enrolled))
		target.URL = "about:rehearsal"
	}

	gw, err := rehearsal.Load(src, a.cfg.Page, rehearsal.Options{
		BatchSize:   batch,
		Reject:      reject,
		Silent:      silent,
		DialogDelay: delay,
	})
	if err != nil {
		return err
	}

	opts := api.RunOptions{Gateway: gw, Target: target}
	if instant {
		opts.Clock = enroll.NewVirtualClock(time.Now())
	} else if speed > 0 && speed != 1 {
		a.cfg.Timing = a.cfg.Timing.Scale(speed)
		if err := a.cfg.Timing.Validate(); err != nil {
			return fmt.Errorf("speed %.3f: %w", speed, err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sum, runErr := a.execute(ctx, opts, !interactive(cmd))
	if sum.Run != "" {
		printSummary(cmd.OutOrStdout(), sum)
		st := gw.Stats()
		fmt.Fprintf(cmd.OutOrStdout(), "  page        %d scrolls, %d clicks, %d dialogs, %d still hidden\n",
			st.Scrolls, st.Triggers, st.Dialogs, gw.Pending())
	}

	if out != "" {
		page, err := gw.HTML()
		if err != nil {
			return err
		}
		if err := os.WriteFile(out, []byte(page), 0o644); err != nil {
			return fmt.Errorf("write page: %w", err)
		}
	}
	return runErr
}
