package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"offerpilot/internal/cdp"
	"offerpilot/internal/config"
	"offerpilot/internal/enroll"
	"offerpilot/internal/handler"
	"offerpilot/internal/logger"
	"offerpilot/internal/metrics"
	"offerpilot/internal/rules"
	"offerpilot/internal/session"
	"offerpilot/internal/storage"
	"offerpilot/pkg/model"
)

var ErrRunNotFound = errors.New("run not found")

const eventBuffer = 256

// RunOptions 启动一次运行所需的依赖
type RunOptions struct {
	Config *config.Config
	// Gateway 为空时通过 DevTools 附加到匹配的标签页
	Gateway  enroll.PageGateway
	Target   model.TargetInfo
	Reporter enroll.Reporter
	Clock    enroll.Clock
	Journal  *storage.Journal
	Metrics  *metrics.Metrics
}

// Service 管理运行会话
type Service struct {
	sessions *session.Manager
	log      logger.Logger
}

// New 创建服务
func New(l logger.Logger) *Service {
	if l == nil {
		l = logger.NewNop()
	}
	return &Service{
		sessions: session.NewManager(l),
		log:      l,
	}
}

// ListTargets 列出浏览器中的标签页，并标记与配置匹配的那个
func (s *Service) ListTargets(ctx context.Context, cfg *config.Config) ([]model.TargetInfo, error) {
	matcher, err := rules.New(cfg.Target.Mode, cfg.Target.Pattern)
	if err != nil {
		return nil, err
	}
	targets, err := cdp.New(cfg.DevTools.URL, s.log).ListTargets(ctx)
	if err != nil {
		return nil, err
	}
	if sel, ok := matcher.Select(targets); ok {
		for i := range targets {
			targets[i].IsCurrent = targets[i].ID == sel.ID
		}
	}
	return targets, nil
}

// StartRun 启动一次运行并立即返回运行 ID，ctx 取消等同于 StopRun
func (s *Service) StartRun(ctx context.Context, opts RunOptions) (model.RunID, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	id := model.RunID(uuid.NewString())
	l := s.log.With("run", string(id))

	gw, target, detach, err := s.gateway(ctx, cfg, opts, l)
	if err != nil {
		return "", err
	}

	clock := opts.Clock
	if clock == nil {
		clock = enroll.RealClock{}
	}

	runCtx, cancel := context.WithCancel(ctx)
	sess := session.New(id, target, cancel, opts.Reporter)
	events := make(chan model.Event, eventBuffer)
	hcfg := handler.Config{Metrics: opts.Metrics, Logger: l}
	if opts.Journal != nil {
		hcfg.Recorder = opts.Journal
		if err := opts.Journal.BeginRun(ctx, id, target, clock.Now()); err != nil {
			l.Err(err, "写入运行记录失败")
		}
	}
	h := handler.New(hcfg)
	a := enroll.New(enroll.Config{
		RunID:     id,
		Gateway:   gw,
		Reporter:  sess,
		Clock:     clock,
		Timing:    cfg.Timing,
		Policy:    cfg.Policy,
		ErrorText: cfg.Page.ErrorText,
		Events:    events,
		Logger:    s.log,
	})
	s.sessions.Add(sess)

	go func() {
		defer cancel()
		handled := make(chan handler.Stats, 1)
		go func() { handled <- h.Consume(context.WithoutCancel(runCtx), events) }()

		sum, runErr := a.Run(runCtx)
		close(events)
		stats := <-handled
		l.Debug("事件处理完成", "settled", stats.Settled, "rounds", stats.Rounds, "recordErrors", stats.RecordErrors)

		if opts.Journal != nil {
			if err := opts.Journal.FinishRun(context.WithoutCancel(runCtx), sum, clock.Now()); err != nil {
				l.Err(err, "写入运行汇总失败")
			}
		}
		if detach != nil {
			if err := detach(); err != nil {
				l.Err(err, "断开页面连接失败")
			}
		}
		sess.Finish(sum, runErr)
	}()
	return id, nil
}

func (s *Service) gateway(ctx context.Context, cfg *config.Config, opts RunOptions, l logger.Logger) (enroll.PageGateway, model.TargetInfo, func() error, error) {
	if opts.Gateway != nil {
		return opts.Gateway, opts.Target, nil, nil
	}
	matcher, err := rules.New(cfg.Target.Mode, cfg.Target.Pattern)
	if err != nil {
		return nil, model.TargetInfo{}, nil, err
	}
	mgr := cdp.New(cfg.DevTools.URL, l)
	target, err := mgr.Attach(ctx, model.TargetID(cfg.DevTools.TargetID), matcher)
	if err != nil {
		return nil, model.TargetInfo{}, nil, fmt.Errorf("attach: %w", err)
	}
	if cfg.DevTools.Navigate != "" {
		if err := mgr.Navigate(ctx, cfg.DevTools.Navigate); err != nil {
			_ = mgr.Detach()
			return nil, model.TargetInfo{}, nil, err
		}
	}
	gw, err := cdp.NewGateway(mgr, cfg.Page)
	if err != nil {
		_ = mgr.Detach()
		return nil, model.TargetInfo{}, nil, err
	}
	return gw, target, mgr.Detach, nil
}

// StopRun 请求停止运行
func (s *Service) StopRun(id model.RunID) error {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	sess.Stop()
	return nil
}

// Snapshot 运行的最新进度
func (s *Service) Snapshot(id model.RunID) (model.Snapshot, error) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return model.Snapshot{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return sess.Snapshot(), nil
}

// Wait 等待运行结束并移除会话
func (s *Service) Wait(ctx context.Context, id model.RunID) (model.Summary, error) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return model.Summary{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	sum, err := sess.Wait(ctx)
	if ctx.Err() == nil {
		s.sessions.Delete(id)
	}
	return sum, err
}

// Runs 当前登记的运行
func (s *Service) Runs() []model.RunID {
	list := s.sessions.List()
	out := make([]model.RunID, 0, len(list))
	for _, sess := range list {
		out = append(out, sess.ID)
	}
	return out
}
