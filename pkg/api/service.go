package api

import (
	"context"

	"offerpilot/internal/config"
	"offerpilot/internal/logger"
	"offerpilot/internal/service"
	"offerpilot/pkg/model"
)

// RunOptions 启动运行的参数
type RunOptions = service.RunOptions

// Service 服务接口
type Service interface {
	// ListTargets 列出浏览器标签页
	ListTargets(ctx context.Context, cfg *config.Config) ([]model.TargetInfo, error)

	// StartRun 启动一次报名运行
	StartRun(ctx context.Context, opts RunOptions) (model.RunID, error)

	// StopRun 请求停止运行
	StopRun(id model.RunID) error

	// Snapshot 获取运行进度
	Snapshot(id model.RunID) (model.Snapshot, error)

	// Wait 等待运行结束
	Wait(ctx context.Context, id model.RunID) (model.Summary, error)
}

// NewService 创建并返回服务接口实现
func NewService(l logger.Logger) Service {
	return service.New(l)
}
