package enroll

import (
	"context"

	"offerpilot/pkg/model"
)

// scan 反复滚动触发懒加载，直到可报名数量连续若干轮不再增长。
// 返回 false 表示被取消。
func (a *Automator) scan(ctx context.Context) (bool, error) {
	lastCount, streak := 0, 0
	threshold := a.timing.StabilityThreshold

	for round := 1; ; round++ {
		if ctx.Err() != nil {
			a.log.Info("扫描已取消", "round", round)
			return false, nil
		}

		began := a.clock.Now()
		if err := a.wiggle(ctx); err != nil {
			if ctx.Err() != nil {
				return false, nil
			}
			a.log.Warn("滚动页面失败", "round", round, "error", err.Error())
		}
		if err := a.clock.Sleep(ctx, a.timing.RoundSettle-a.clock.Now().Sub(began)); err != nil {
			return false, nil
		}

		items, err := a.classifier.Classify(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return false, nil
			}
			return false, err
		}
		current := len(items)
		a.summary.ScanRounds = round
		a.state.setTotal(current)
		a.report()
		a.sendEvent(model.Event{Type: model.EventRound, Count: current})

		switch {
		case current > lastCount:
			a.log.Info("发现新的可报名优惠，继续滚动", "found", current, "round", round)
			streak = 0
		case streak < threshold:
			streak++
			a.log.Info("检查稳定性", "streak", streak, "threshold", threshold, "found", current)
		default:
			a.log.Info("扫描完成", "toAccept", current, "rounds", round)
			return true, nil
		}
		lastCount = current
	}
}

// wiggle 滚到底部，回退一段再滚到底部，部分懒加载只在方向变化时触发
func (a *Automator) wiggle(ctx context.Context) error {
	if err := a.gateway.ScrollToEnd(ctx); err != nil {
		return err
	}
	if err := a.clock.Sleep(ctx, a.timing.ScrollSettle); err != nil {
		return err
	}
	if err := a.gateway.ScrollBy(ctx, -a.timing.NudgeDistance); err != nil {
		return err
	}
	if err := a.clock.Sleep(ctx, a.timing.NudgeDelay); err != nil {
		return err
	}
	return a.gateway.ScrollToEnd(ctx)
}
