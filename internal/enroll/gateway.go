package enroll

import (
	"context"
	"errors"

	"offerpilot/pkg/model"
)

var (
	// ErrNotReady 页面在等待时限内未进入可操作状态
	ErrNotReady = errors.New("page not ready")
	// ErrControlNotFound 按标签找不到报名按钮
	ErrControlNotFound = errors.New("action control not found")
)

// PageGateway 页面边界。选择器与标记对核心逻辑不可见
type PageGateway interface {
	// IsDocumentReady 文档加载完成且至少存在一个报名按钮
	IsDocumentReady(ctx context.Context) (bool, error)
	// ListCandidates 按文档顺序返回所有报名按钮
	ListCandidates(ctx context.Context) ([]model.Candidate, error)
	// TriggerAction 点击指定标签的报名按钮
	TriggerAction(ctx context.Context, label string) error
	// FindConfirmation 全局查询确认框的关闭按钮
	FindConfirmation(ctx context.Context) (bool, error)
	DismissConfirmation(ctx context.Context) error
	BodyText(ctx context.Context) (string, error)
	ScrollToEnd(ctx context.Context) error
	ScrollBy(ctx context.Context, dy int) error
}

// Reporter 进度展示方，Update 需幂等
type Reporter interface {
	Update(s model.Snapshot)
}

// ReporterFunc 函数适配器
type ReporterFunc func(model.Snapshot)

func (f ReporterFunc) Update(s model.Snapshot) { f(s) }

type nopReporter struct{}

func (nopReporter) Update(model.Snapshot) {}
