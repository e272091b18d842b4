package enroll

import (
	"sort"
	"time"

	"offerpilot/pkg/model"
)

// AttemptedSet 本次运行已尝试过的标签，只增不减
type AttemptedSet struct {
	labels map[string]struct{}
}

func NewAttemptedSet() *AttemptedSet {
	return &AttemptedSet{labels: make(map[string]struct{})}
}

func (s *AttemptedSet) Add(label string) { s.labels[label] = struct{}{} }

func (s *AttemptedSet) Has(label string) bool {
	_, ok := s.labels[label]
	return ok
}

func (s *AttemptedSet) Len() int { return len(s.labels) }

// Labels 排序后的标签列表
func (s *AttemptedSet) Labels() []string {
	out := make([]string, 0, len(s.labels))
	for l := range s.labels {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// RunState 运行状态，只由控制协程读写
type RunState struct {
	run        model.RunID
	phase      model.Phase
	total      int
	completed  int
	startedAt  time.Time
	stopReason model.StopReason
}

func newRunState(run model.RunID) *RunState {
	return &RunState{run: run, phase: model.PhaseIdle}
}

func (s *RunState) start(at time.Time) {
	s.startedAt = at
	s.phase = model.PhaseScanning
}

func (s *RunState) setPhase(p model.Phase) { s.phase = p }

func (s *RunState) setTotal(n int) { s.total = n }

// settle 每个已决的优惠恰好调用一次
func (s *RunState) settle() { s.completed++ }

// finish 排空后对齐显示用的总数，completed 保持单调
func (s *RunState) finish() {
	if s.total != s.completed {
		s.total = s.completed
	}
}

func (s *RunState) stop(reason model.StopReason) {
	s.phase = model.PhaseStopped
	s.stopReason = reason
}

func (s *RunState) snapshot(now time.Time) model.Snapshot {
	var elapsed time.Duration
	if !s.startedAt.IsZero() {
		elapsed = now.Sub(s.startedAt)
	}
	return model.Snapshot{
		Run:        s.run,
		Phase:      s.phase,
		Total:      s.total,
		Completed:  s.completed,
		StartedAt:  s.startedAt,
		Elapsed:    elapsed,
		StopReason: s.stopReason,
	}
}
