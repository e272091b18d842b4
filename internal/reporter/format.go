package reporter

import (
	"fmt"
	"time"

	"offerpilot/pkg/model"
)

// Title 面板标题
const Title = "Citi Offer Automator"

// FormatElapsed 以 mm:ss 展示耗时，分钟数不回绕
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// Complete 是否显示完成状态
func Complete(s model.Snapshot) bool {
	if s.Phase == model.PhaseStopped {
		return s.StopReason == model.StopCompleted
	}
	return s.Phase == model.PhaseProcessing && s.Total > 0 && s.Remaining() <= 0
}

// Headline 当前阶段的主文案
func Headline(s model.Snapshot) string {
	switch {
	case s.Phase == model.PhaseIdle:
		return "Waiting for the offers page..."
	case s.Phase == model.PhaseScanning:
		return fmt.Sprintf("Scanning for un-enrolled offers... Found: %d", s.Total)
	case Complete(s):
		return "Process Complete!"
	case s.Phase == model.PhaseStopped && s.StopReason == model.StopFailed:
		return "Stopped: page unreachable."
	case s.Phase == model.PhaseStopped:
		return "Stopped."
	default:
		return fmt.Sprintf("%d / %d", s.Completed, s.Total)
	}
}

// Ratio 进度条比例，总数为零或计数波动时截断到 [0,1]
func Ratio(s model.Snapshot) float64 {
	if Complete(s) {
		return 1
	}
	if s.Total <= 0 {
		return 0
	}
	r := float64(s.Completed) / float64(s.Total)
	if r > 1 {
		return 1
	}
	return r
}
