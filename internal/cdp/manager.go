package cdp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	adapter "offerpilot/internal/adapter/cdp"
	"offerpilot/internal/logger"
	"offerpilot/internal/rules"
	"offerpilot/pkg/model"

	"github.com/mafredri/cdp"
	"github.com/mafredri/cdp/devtool"
	"github.com/mafredri/cdp/protocol/page"
	"github.com/mafredri/cdp/protocol/runtime"
	"github.com/mafredri/cdp/rpcc"
)

var (
	ErrNoTarget    = errors.New("no matching target")
	ErrNotAttached = errors.New("not attached")
	ErrScript      = errors.New("page script failed")
)

// Manager 管理与单个浏览器标签页的 DevTools 连接
type Manager struct {
	devtoolsURL string
	conn        *rpcc.Conn
	client      *cdp.Client
	target      model.TargetInfo
	log         logger.Logger
}

// New 创建连接管理器
func New(devtoolsURL string, l logger.Logger) *Manager {
	if l == nil {
		l = logger.NewNop()
	}
	return &Manager{devtoolsURL: devtoolsURL, log: l}
}

// ListTargets 列出浏览器当前所有目标
func (m *Manager) ListTargets(ctx context.Context) ([]model.TargetInfo, error) {
	dt := devtool.New(m.devtoolsURL)
	targets, err := dt.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	out := make([]model.TargetInfo, 0, len(targets))
	for _, t := range targets {
		info := adapter.ToTargetInfo(t)
		info.IsCurrent = m.client != nil && info.ID == m.target.ID
		out = append(out, info)
	}
	return out, nil
}

// Attach 连接到指定目标；id 为空时由 matcher 挑选第一个匹配的页面
func (m *Manager) Attach(ctx context.Context, id model.TargetID, matcher *rules.Matcher) (model.TargetInfo, error) {
	dt := devtool.New(m.devtoolsURL)
	targets, err := dt.List(ctx)
	if err != nil {
		return model.TargetInfo{}, fmt.Errorf("list targets: %w", err)
	}

	var sel *devtool.Target
	if id != "" {
		for _, t := range targets {
			if model.TargetID(t.ID) == id {
				sel = t
				break
			}
		}
	} else {
		infos := make([]model.TargetInfo, len(targets))
		for i, t := range targets {
			infos[i] = adapter.ToTargetInfo(t)
		}
		if info, ok := matcher.Select(infos); ok {
			for _, t := range targets {
				if model.TargetID(t.ID) == info.ID {
					sel = t
					break
				}
			}
		}
	}
	if sel == nil {
		return model.TargetInfo{}, ErrNoTarget
	}

	conn, err := rpcc.DialContext(ctx, sel.WebSocketDebuggerURL)
	if err != nil {
		return model.TargetInfo{}, fmt.Errorf("dial %s: %w", sel.ID, err)
	}
	m.conn = conn
	m.client = cdp.NewClient(conn)
	m.target = adapter.ToTargetInfo(sel)
	m.target.IsCurrent = true
	m.log.Info("已附加目标", "target", sel.ID, "url", sel.URL, "title", sel.Title)
	return m.target, nil
}

// Navigate 打开指定地址，页面就绪由调用方轮询判断
func (m *Manager) Navigate(ctx context.Context, url string) error {
	if m.client == nil {
		return ErrNotAttached
	}
	if err := m.client.Page.Enable(ctx); err != nil {
		return fmt.Errorf("enable page domain: %w", err)
	}
	reply, err := m.client.Page.Navigate(ctx, page.NewNavigateArgs(url))
	if err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	if reply.ErrorText != nil && *reply.ErrorText != "" {
		return fmt.Errorf("navigate %s: %s", url, *reply.ErrorText)
	}
	m.log.Info("已打开页面", "url", url)
	return nil
}

// Evaluate 在页面中执行表达式并按值返回结果
func (m *Manager) Evaluate(ctx context.Context, expr string) (json.RawMessage, error) {
	if m.client == nil {
		return nil, ErrNotAttached
	}
	reply, err := m.client.Runtime.Evaluate(ctx, runtime.NewEvaluateArgs(expr).SetReturnByValue(true))
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	if ex := reply.ExceptionDetails; ex != nil {
		msg := ex.Text
		if ex.Exception != nil && ex.Exception.Description != nil {
			msg = *ex.Exception.Description
		}
		return nil, fmt.Errorf("%w: %s", ErrScript, msg)
	}
	return reply.Result.Value, nil
}

// Detach 关闭连接
func (m *Manager) Detach() error {
	if m.conn == nil {
		return nil
	}
	err := m.conn.Close()
	m.conn = nil
	m.client = nil
	m.log.Info("已断开目标", "target", string(m.target.ID))
	return err
}
