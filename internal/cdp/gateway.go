package cdp

import (
	"context"
	"encoding/json"
	"fmt"

	adapter "offerpilot/internal/adapter/cdp"
	"offerpilot/internal/config"
	"offerpilot/internal/enroll"
	"offerpilot/pkg/model"
)

// Evaluator 执行页面脚本，Manager 是它的实现
type Evaluator interface {
	Evaluate(ctx context.Context, expr string) (json.RawMessage, error)
}

// Gateway 基于 Runtime.evaluate 的页面网关
type Gateway struct {
	eval    Evaluator
	scripts *Scripts
}

var _ enroll.PageGateway = (*Gateway)(nil)

// NewGateway 创建页面网关
func NewGateway(e Evaluator, p config.Page) (*Gateway, error) {
	s, err := NewScripts(p)
	if err != nil {
		return nil, err
	}
	return &Gateway{eval: e, scripts: s}, nil
}

func (g *Gateway) IsDocumentReady(ctx context.Context) (bool, error) {
	return g.evalBool(ctx, g.scripts.Ready())
}

func (g *Gateway) ListCandidates(ctx context.Context) ([]model.Candidate, error) {
	raw, err := g.eval.Evaluate(ctx, g.scripts.List())
	if err != nil {
		return nil, err
	}
	return adapter.ToCandidates(raw)
}

func (g *Gateway) TriggerAction(ctx context.Context, label string) error {
	expr, err := g.scripts.Trigger(label)
	if err != nil {
		return err
	}
	clicked, err := g.evalBool(ctx, expr)
	if err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("%w: %s", enroll.ErrControlNotFound, label)
	}
	return nil
}

func (g *Gateway) FindConfirmation(ctx context.Context) (bool, error) {
	return g.evalBool(ctx, g.scripts.Find())
}

// DismissConfirmation 确认框已自行消失时不视为错误
func (g *Gateway) DismissConfirmation(ctx context.Context) error {
	_, err := g.evalBool(ctx, g.scripts.Dismiss())
	return err
}

func (g *Gateway) BodyText(ctx context.Context) (string, error) {
	raw, err := g.eval.Evaluate(ctx, g.scripts.BodyText())
	if err != nil {
		return "", err
	}
	return adapter.ToString(raw)
}

func (g *Gateway) ScrollToEnd(ctx context.Context) error {
	_, err := g.eval.Evaluate(ctx, g.scripts.ScrollToEnd())
	return err
}

func (g *Gateway) ScrollBy(ctx context.Context, dy int) error {
	expr, err := g.scripts.ScrollBy(dy)
	if err != nil {
		return err
	}
	_, err = g.eval.Evaluate(ctx, expr)
	return err
}

func (g *Gateway) evalBool(ctx context.Context, expr string) (bool, error) {
	raw, err := g.eval.Evaluate(ctx, expr)
	if err != nil {
		return false, err
	}
	return adapter.ToBool(raw)
}
