package reporter

import (
	"context"
	"sync"
	"time"

	"offerpilot/internal/logger"
	"offerpilot/pkg/model"
)

// LogReporter 非终端环境下以日志输出进度
type LogReporter struct {
	mu        sync.Mutex
	log       logger.Logger
	heartbeat time.Duration
	last      model.Snapshot
	seen      bool

	// receivedAt 最近一次快照到达的时间，心跳据此推算已用时间
	receivedAt time.Time
	now        func() time.Time
}

// NewLogReporter 创建日志进度输出，heartbeat<=0 时不输出心跳
func NewLogReporter(l logger.Logger, heartbeat time.Duration) *LogReporter {
	if l == nil {
		l = logger.NewNop()
	}
	return &LogReporter{log: l, heartbeat: heartbeat, now: time.Now}
}

// Update 计数或阶段变化时输出一行进度
func (r *LogReporter) Update(s model.Snapshot) {
	r.mu.Lock()
	changed := !r.seen ||
		s.Phase != r.last.Phase ||
		s.Total != r.last.Total ||
		s.Completed != r.last.Completed
	r.last = s
	r.seen = true
	r.receivedAt = r.now()
	r.mu.Unlock()

	if changed {
		r.emit(s)
	}
}

// Start 后台输出心跳直到 ctx 结束或运行停止
func (r *LogReporter) Start(ctx context.Context) {
	if r.heartbeat <= 0 {
		return
	}
	go func() {
		t := time.NewTicker(r.heartbeat)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if !r.beat() {
					return
				}
			}
		}
	}()
}

// beat 输出一次心跳，运行已停止时返回 false
func (r *LogReporter) beat() bool {
	r.mu.Lock()
	s, seen, at := r.last, r.seen, r.receivedAt
	r.mu.Unlock()
	if !seen {
		return true
	}
	if s.Phase == model.PhaseStopped {
		return false
	}
	s.Elapsed += r.now().Sub(at)
	r.emit(s)
	return true
}

func (r *LogReporter) emit(s model.Snapshot) {
	r.log.Info(Headline(s),
		"phase", string(s.Phase),
		"completed", s.Completed,
		"total", s.Total,
		"remaining", s.Remaining(),
		"elapsed", FormatElapsed(s.Elapsed),
	)
}
