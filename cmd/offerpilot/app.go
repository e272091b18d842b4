package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"offerpilot/internal/config"
	"offerpilot/internal/logger"
	"offerpilot/internal/metrics"
	"offerpilot/internal/reporter"
	"offerpilot/internal/storage"
	"offerpilot/pkg/api"
	"offerpilot/pkg/model"
)

// app 命令共享的运行环境
type app struct {
	cfg     *config.Config
	log     logger.Logger
	logFile io.Closer
	journal *storage.Journal
	metrics *metrics.Metrics
	server  *metrics.Server
}

// newApp 读取配置并按需打开日志、运行记录和指标服务。
// interactive 为 true 时终端被进度面板占用，日志只写文件。
func newApp(cmd *cobra.Command, interactive bool) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Sqlite.Dsn = db
	}
	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		cfg.Metrics.Addr = addr
	}

	writers := cfg.Log.Writer
	if interactive {
		writers = without(writers, "console")
	}
	l, closer := logger.New(logger.Options{
		Level:   cfg.Log.Level,
		Writers: writers,
		File:    cfg.Log.File,
	})
	a := &app{cfg: cfg, log: l, logFile: closer}

	if skip, _ := cmd.Flags().GetBool("no-journal"); !skip && cfg.Sqlite.Dsn != "" {
		j, err := storage.Open(cfg.Sqlite.Dsn, cfg.Sqlite.Prefix, l)
		if err != nil {
			a.close()
			return nil, err
		}
		a.journal = j
	}
	if cfg.Metrics.Addr != "" {
		a.metrics = metrics.New()
		a.server = metrics.Serve(cfg.Metrics.Addr, a.metrics, l)
	}
	return a, nil
}

func (a *app) close() {
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := a.server.Shutdown(ctx); err != nil {
			a.log.Err(err, "关闭指标服务失败")
		}
		cancel()
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.log.Err(err, "关闭运行记录失败")
		}
	}
	_ = a.logFile.Close()
}

// execute 启动运行并阻塞到结束；终端下显示进度面板，否则输出进度日志
func (a *app) execute(ctx context.Context, opts api.RunOptions, plain bool) (model.Summary, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts.Config = a.cfg
	opts.Journal = a.journal
	opts.Metrics = a.metrics

	svc := api.NewService(a.log)
	if plain {
		lr := reporter.NewLogReporter(a.log, a.cfg.Timing.HeartbeatInterval)
		lr.Start(runCtx)
		opts.Reporter = lr
		id, err := svc.StartRun(runCtx, opts)
		if err != nil {
			return model.Summary{}, err
		}
		return svc.Wait(context.Background(), id)
	}

	ui := reporter.NewTUI(cancel)
	opts.Reporter = ui
	id, err := svc.StartRun(runCtx, opts)
	if err != nil {
		return model.Summary{}, err
	}

	type result struct {
		sum model.Summary
		err error
	}
	done := make(chan result, 1)
	go func() {
		sum, err := svc.Wait(context.Background(), id)
		done <- result{sum, err}
	}()
	if err := ui.Run(); err != nil {
		a.log.Err(err, "进度面板异常退出")
		cancel()
	}
	r := <-done
	return r.sum, r.err
}

func interactive(cmd *cobra.Command) bool {
	plain, _ := cmd.Flags().GetBool("plain")
	return !plain && isatty.IsTerminal(os.Stdout.Fd())
}

func printSummary(w io.Writer, s model.Summary) {
	fmt.Fprintf(w, "\nRun %s %s in %s\n", s.Run, s.StopReason, reporter.FormatElapsed(s.Elapsed))
	fmt.Fprintf(w, "  settled     %d / %d\n", s.Completed, s.Total)
	fmt.Fprintf(w, "  enrolled    %d\n", s.Enrolled)
	fmt.Fprintf(w, "  rejected    %d\n", s.Rejected)
	fmt.Fprintf(w, "  timed out   %d\n", s.TimedOut)
	if s.TriggerFailed > 0 {
		fmt.Fprintf(w, "  not clicked %d\n", s.TriggerFailed)
	}
	fmt.Fprintf(w, "  scan rounds %d\n", s.ScanRounds)
}

func without(list []string, drop string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != drop {
			out = append(out, v)
		}
	}
	return out
}
