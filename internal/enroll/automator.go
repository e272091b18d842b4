package enroll

import (
	"context"
	"fmt"
	"time"

	"offerpilot/internal/config"
	"offerpilot/internal/logger"
	"offerpilot/pkg/model"
)

// Config Automator 的依赖与参数
type Config struct {
	RunID     model.RunID
	Gateway   PageGateway
	Reporter  Reporter
	Clock     Clock
	Timing    config.Timing
	Policy    config.Policy
	ErrorText string
	Events    chan<- model.Event
	Logger    logger.Logger
}

// Automator 驱动一次完整的扫描与报名流程。
// 所有状态都由调用 Run 的协程独占，外部只能拿到快照。
type Automator struct {
	gateway    PageGateway
	classifier *Classifier
	attempted  *AttemptedSet
	state      *RunState
	reporter   Reporter
	clock      Clock
	timing     config.Timing
	policy     config.Policy
	errorText  string
	events     chan<- model.Event
	log        logger.Logger
	summary    model.Summary
}

// New 创建 Automator，未提供的依赖使用默认实现
func New(cfg Config) *Automator {
	if cfg.Reporter == nil {
		cfg.Reporter = nopReporter{}
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	attempted := NewAttemptedSet()
	return &Automator{
		gateway:    cfg.Gateway,
		classifier: NewClassifier(cfg.Gateway, attempted),
		attempted:  attempted,
		state:      newRunState(cfg.RunID),
		reporter:   cfg.Reporter,
		clock:      cfg.Clock,
		timing:     cfg.Timing,
		policy:     cfg.Policy,
		errorText:  cfg.ErrorText,
		events:     cfg.Events,
		log:        cfg.Logger.With("run", string(cfg.RunID)),
		summary:    model.Summary{Run: cfg.RunID},
	}
}

// Run 等待页面就绪，扫描直至稳定，再逐个报名。
// 操作员取消不视为错误，返回的 Summary.StopReason 为 cancelled。
func (a *Automator) Run(ctx context.Context) (model.Summary, error) {
	a.log.Info("脚本已初始化")
	a.report()

	if err := a.WaitReady(ctx); err != nil {
		if ctx.Err() != nil {
			return a.halt(model.StopCancelled), nil
		}
		return a.halt(model.StopFailed), err
	}

	a.state.start(a.clock.Now())
	a.enterPhase(model.PhaseScanning)
	converged, err := a.scan(ctx)
	if err != nil {
		a.log.Err(err, "扫描失败")
		return a.halt(model.StopFailed), fmt.Errorf("scan: %w", err)
	}
	if !converged {
		return a.halt(model.StopCancelled), nil
	}

	a.enterPhase(model.PhaseProcessing)
	drained, err := a.drain(ctx)
	if err != nil {
		a.log.Err(err, "报名流程中断")
		return a.halt(model.StopFailed), fmt.Errorf("enroll: %w", err)
	}
	if !drained {
		return a.halt(model.StopCancelled), nil
	}
	return a.halt(model.StopCompleted), nil
}

// WaitReady 按固定间隔轮询，直到文档加载完成且出现报名按钮
func (a *Automator) WaitReady(ctx context.Context) error {
	var deadline time.Time
	if a.timing.ReadyTimeout > 0 {
		deadline = a.clock.Now().Add(a.timing.ReadyTimeout)
	}
	for {
		ready, err := a.gateway.IsDocumentReady(ctx)
		switch {
		case err != nil:
			a.log.Debug("检查页面状态失败", "error", err.Error())
		case ready:
			a.log.Info("页面已稳定，开始过滤扫描")
			return nil
		}
		if !deadline.IsZero() && !a.clock.Now().Before(deadline) {
			return fmt.Errorf("%w after %s", ErrNotReady, a.timing.ReadyTimeout)
		}
		if err := a.clock.Sleep(ctx, a.timing.ReadyPollInterval); err != nil {
			return err
		}
	}
}

// Snapshot 当前状态拷贝
func (a *Automator) Snapshot() model.Snapshot {
	return a.state.snapshot(a.clock.Now())
}

// Attempted 本次运行已尝试过的标签
func (a *Automator) Attempted() []string {
	return a.attempted.Labels()
}

func (a *Automator) enterPhase(p model.Phase) {
	a.state.setPhase(p)
	a.report()
	a.sendEvent(model.Event{Type: model.EventPhase, Phase: p})
}

func (a *Automator) halt(reason model.StopReason) model.Summary {
	a.state.stop(reason)
	snap := a.Snapshot()
	a.reporter.Update(snap)
	a.sendEvent(model.Event{Type: model.EventPhase, Phase: model.PhaseStopped})

	a.summary.Total = snap.Total
	a.summary.Completed = snap.Completed
	a.summary.Elapsed = snap.Elapsed
	a.summary.StopReason = reason
	a.log.Info("运行结束",
		"reason", string(reason),
		"completed", a.summary.Completed,
		"total", a.summary.Total,
		"enrolled", a.summary.Enrolled,
		"rejected", a.summary.Rejected,
		"timedOut", a.summary.TimedOut,
		"triggerFailed", a.summary.TriggerFailed,
		"elapsed", snap.Elapsed.String(),
	)
	return a.summary
}

func (a *Automator) report() {
	a.reporter.Update(a.Snapshot())
}

// sendEvent 非阻塞发送事件，自动添加运行 ID 与时间戳
func (a *Automator) sendEvent(evt model.Event) {
	if a.events == nil {
		return
	}
	evt.Run = a.summary.Run
	evt.Timestamp = a.clock.Now().UnixMilli()
	select {
	case a.events <- evt:
	default:
		a.log.Debug("事件队列已满，丢弃事件", "type", evt.Type)
	}
}
