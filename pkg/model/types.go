package model

import "time"

type RunID string
type TargetID string

// Phase 自动化运行阶段
type Phase string

const (
	PhaseIdle       Phase = "Idle"
	PhaseScanning   Phase = "Scanning"
	PhaseProcessing Phase = "Processing"
	PhaseStopped    Phase = "Stopped"
)

// StopReason 进入 Stopped 阶段的原因
type StopReason string

const (
	StopNone      StopReason = ""
	StopCompleted StopReason = "completed"
	StopCancelled StopReason = "cancelled"
	StopFailed    StopReason = "failed"
)

// Outcome 单个优惠的最终结果，计数层面四种结果等价
type Outcome string

const (
	OutcomeEnrolled      Outcome = "enrolled"
	OutcomeRejected      Outcome = "rejected"
	OutcomeTimeout       Outcome = "timeout"
	OutcomeTriggerFailed Outcome = "trigger_failed"
)

// Candidate 页面上一个报名按钮的原始观测
type Candidate struct {
	Label    string `json:"label"`
	Enrolled bool   `json:"enrolled"`
}

// Item 经过分类后可操作的优惠
type Item struct {
	Label string `json:"label"`
}

// Snapshot 运行状态的只读拷贝，交给进度展示方
type Snapshot struct {
	Run        RunID         `json:"run"`
	Phase      Phase         `json:"phase"`
	Total      int           `json:"total"`
	Completed  int           `json:"completed"`
	StartedAt  time.Time     `json:"startedAt"`
	Elapsed    time.Duration `json:"elapsed"`
	StopReason StopReason    `json:"stopReason,omitempty"`
}

// Remaining 剩余数量，可能为负（总数会波动）
func (s Snapshot) Remaining() int { return s.Total - s.Completed }

// Event 类型
const (
	EventPhase   = "phase"
	EventRound   = "scan_round"
	EventSettled = "item_settled"
)

type Event struct {
	Type      string        `json:"type"`
	Run       RunID         `json:"run"`
	Phase     Phase         `json:"phase,omitempty"`
	Label     string        `json:"label,omitempty"`
	Outcome   Outcome       `json:"outcome,omitempty"`
	Attempts  int           `json:"attempts,omitempty"`
	Count     int           `json:"count,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	Timestamp int64         `json:"timestamp"`
}

// Summary 一次运行的汇总
type Summary struct {
	Run           RunID         `json:"run"`
	Total         int           `json:"total"`
	Completed     int           `json:"completed"`
	Enrolled      int           `json:"enrolled"`
	Rejected      int           `json:"rejected"`
	TimedOut      int           `json:"timedOut"`
	TriggerFailed int           `json:"triggerFailed"`
	ScanRounds    int           `json:"scanRounds"`
	Elapsed       time.Duration `json:"elapsed"`
	StopReason    StopReason    `json:"stopReason"`
}

// Tally 按结果累计
func (s *Summary) Tally(o Outcome) {
	switch o {
	case OutcomeEnrolled:
		s.Enrolled++
	case OutcomeRejected:
		s.Rejected++
	case OutcomeTimeout:
		s.TimedOut++
	case OutcomeTriggerFailed:
		s.TriggerFailed++
	}
}

type TargetInfo struct {
	ID        TargetID `json:"id"`
	Type      string   `json:"type"`
	URL       string   `json:"url"`
	Title     string   `json:"title"`
	IsCurrent bool     `json:"isCurrent"`
}
