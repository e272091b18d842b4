package handler

import (
	"context"
	"time"

	"offerpilot/internal/logger"
	"offerpilot/internal/metrics"
	"offerpilot/pkg/model"
)

// ItemRecorder 持久化条目结果，storage.Journal 是它的实现
type ItemRecorder interface {
	RecordItem(ctx context.Context, evt model.Event) error
}

// Handler 事件处理器，把 Automator 发出的事件分发到指标、记录与日志
type Handler struct {
	metrics  *metrics.Metrics
	recorder ItemRecorder
	log      logger.Logger
	stats    Stats
}

// Config 配置选项，所有依赖都可为空
type Config struct {
	Metrics  *metrics.Metrics
	Recorder ItemRecorder
	Logger   logger.Logger
}

// Stats 已处理事件的计数
type Stats struct {
	Phases       int
	Rounds       int
	Settled      int
	RecordErrors int
	Last         time.Time
}

// New 创建事件处理器
func New(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	return &Handler{
		metrics:  cfg.Metrics,
		recorder: cfg.Recorder,
		log:      cfg.Logger,
	}
}

// Consume 持续处理事件直到通道关闭，返回处理统计
func (h *Handler) Consume(ctx context.Context, events <-chan model.Event) Stats {
	for evt := range events {
		h.Handle(ctx, evt)
	}
	return h.stats
}

// Handle 处理单个事件
func (h *Handler) Handle(ctx context.Context, evt model.Event) {
	l := h.log.With("run", string(evt.Run))
	h.stats.Last = time.UnixMilli(evt.Timestamp)

	switch evt.Type {
	case model.EventPhase:
		h.stats.Phases++
		l.Debug("阶段切换", "phase", string(evt.Phase))

	case model.EventRound:
		h.stats.Rounds++
		h.metrics.ObserveRound(evt.Count)
		l.Debug("扫描轮次完成", "found", evt.Count)

	case model.EventSettled:
		h.stats.Settled++
		h.metrics.ObserveItem(evt.Outcome, evt.Attempts, evt.Duration)
		if h.recorder != nil {
			if err := h.recorder.RecordItem(ctx, evt); err != nil {
				h.stats.RecordErrors++
				l.Err(err, "写入条目记录失败", "label", evt.Label)
			}
		}
		if evt.Outcome == model.OutcomeEnrolled {
			l.Info("报名完成", "label", evt.Label, "attempts", evt.Attempts)
		} else {
			l.Warn("报名未成功", "label", evt.Label, "outcome", string(evt.Outcome), "attempts", evt.Attempts)
		}

	default:
		l.Debug("忽略未知事件", "type", evt.Type)
	}
}
