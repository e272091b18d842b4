package session

import (
	"context"
	"sync"

	"offerpilot/internal/enroll"
	"offerpilot/pkg/model"
)

// Session 一次运行的句柄，保存最新快照并转发给进度展示方
type Session struct {
	ID     model.RunID
	Target model.TargetInfo

	mu       sync.RWMutex
	snap     model.Snapshot
	reporter enroll.Reporter
	cancel   context.CancelFunc
	done     chan struct{}
	summary  model.Summary
	err      error
}

// New 创建会话，reporter 可为空
func New(id model.RunID, target model.TargetInfo, cancel context.CancelFunc, reporter enroll.Reporter) *Session {
	return &Session{
		ID:       id,
		Target:   target,
		snap:     model.Snapshot{Run: id, Phase: model.PhaseIdle},
		reporter: reporter,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Update 实现 enroll.Reporter
func (s *Session) Update(snap model.Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
	if s.reporter != nil {
		s.reporter.Update(snap)
	}
}

// Snapshot 最近一次快照
func (s *Session) Snapshot() model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Stop 请求取消，正在处理的条目会先完成
func (s *Session) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Finish 记录运行结果，只能调用一次
func (s *Session) Finish(sum model.Summary, err error) {
	s.mu.Lock()
	s.summary = sum
	s.err = err
	s.mu.Unlock()
	close(s.done)
}

// Done 运行结束时关闭
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait 等待运行结束
func (s *Session) Wait(ctx context.Context) (model.Summary, error) {
	select {
	case <-ctx.Done():
		return model.Summary{}, ctx.Err()
	case <-s.done:
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary, s.err
}
