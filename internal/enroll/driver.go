package enroll

import (
	"context"
	"strings"
	"time"

	"offerpilot/internal/logger"
	"offerpilot/pkg/model"
)

// drain 逐个处理分类结果，每处理完一个都重新分类，直到为空。
// 返回 false 表示被取消。
func (a *Automator) drain(ctx context.Context) (bool, error) {
	for {
		if ctx.Err() != nil {
			a.log.Info("报名已取消", "completed", a.state.completed)
			return false, nil
		}

		items, err := a.classifier.Classify(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return false, nil
			}
			return false, err
		}
		if len(items) == 0 {
			a.log.Info("没有更多优惠")
			a.state.finish()
			a.report()
			return true, nil
		}

		item := items[0]
		// 先记录再点击，保证每个标签至多尝试一次
		a.attempted.Add(item.Label)

		// 已经开始的单项流程不响应取消，避免页面停在弹框中间
		itemCtx := context.WithoutCancel(ctx)
		began := a.clock.Now()
		outcome, attempts, confirmed := a.process(itemCtx, item)

		a.state.settle()
		a.summary.Tally(outcome)
		a.report()
		a.sendEvent(model.Event{
			Type:     model.EventSettled,
			Label:    item.Label,
			Outcome:  outcome,
			Attempts: attempts,
			Duration: a.clock.Now().Sub(began),
		})

		if confirmed {
			a.awaitFade(itemCtx, item.Label)
		}
		_ = a.clock.Sleep(itemCtx, a.timing.SettleDelay)
	}
}

// process 点击、等待确认框、判定结果并关闭确认框
func (a *Automator) process(ctx context.Context, item model.Item) (model.Outcome, int, bool) {
	l := a.log.With("label", item.Label)
	l.Info("报名下一个优惠")

	attempts := 0
	for {
		attempts++
		if err := a.gateway.TriggerAction(ctx, item.Label); err != nil {
			l.Err(err, "点击报名按钮失败", "attempt", attempts)
			return model.OutcomeTriggerFailed, attempts, false
		}
		if a.awaitConfirmation(ctx, l) {
			break
		}
		if attempts > a.policy.TimeoutRetries {
			l.Warn("确认框未出现，跳过以免卡住", "polls", a.timing.ConfirmPollLimit, "attempts", attempts)
			return model.OutcomeTimeout, attempts, false
		}
		l.Warn("确认框未出现，重新点击", "attempt", attempts)
	}

	outcome := a.inspect(ctx, l)
	if err := a.gateway.DismissConfirmation(ctx); err != nil {
		l.Err(err, "关闭确认框失败")
	}
	return outcome, attempts, true
}

// awaitConfirmation 固定间隔轮询确认框，最多 ConfirmPollLimit 次
func (a *Automator) awaitConfirmation(ctx context.Context, l logger.Logger) bool {
	for poll := 1; poll <= a.timing.ConfirmPollLimit; poll++ {
		if err := a.clock.Sleep(ctx, a.timing.ConfirmPollInterval); err != nil {
			return false
		}
		found, err := a.gateway.FindConfirmation(ctx)
		if err != nil {
			l.Debug("查询确认框失败", "poll", poll, "error", err.Error())
			continue
		}
		if found {
			return true
		}
	}
	return false
}

// inspect 在页面全文中精确匹配错误文案
func (a *Automator) inspect(ctx context.Context, l logger.Logger) model.Outcome {
	if a.errorText == "" {
		l.Info("报名成功")
		return model.OutcomeEnrolled
	}
	text, err := a.gateway.BodyText(ctx)
	if err != nil {
		l.Warn("读取页面文本失败，按成功处理", "error", err.Error())
		return model.OutcomeEnrolled
	}
	if strings.Contains(text, a.errorText) {
		l.Warn("出现错误弹框，本次运行跳过该优惠")
		return model.OutcomeRejected
	}
	l.Info("报名成功")
	return model.OutcomeEnrolled
}

// awaitFade 等待确认框完全消失，避免残留弹框拦截下一次点击
func (a *Automator) awaitFade(ctx context.Context, label string) {
	for poll := 1; poll <= a.timing.FadePollLimit; poll++ {
		if err := a.clock.Sleep(ctx, a.timing.FadePollInterval); err != nil {
			return
		}
		found, err := a.gateway.FindConfirmation(ctx)
		if err == nil && !found {
			return
		}
	}
	waited := a.timing.FadePollInterval * time.Duration(a.timing.FadePollLimit)
	a.log.Warn("确认框未消失，继续处理下一个", "label", label, "waited", waited.String())
}
