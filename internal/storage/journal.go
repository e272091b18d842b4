package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"offerpilot/internal/ctxkeys"
	"offerpilot/internal/logger"
	"offerpilot/pkg/model"
)

// Journal 基于 SQLite 的运行记录
type Journal struct {
	db  *gorm.DB
	log logger.Logger
}

// Open 打开（必要时创建）数据库并迁移表结构
func Open(dsn, prefix string, l logger.Logger) (*Journal, error) {
	if l == nil {
		l = logger.NewNop()
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         newJournalLogger(l),
		NamingStrategy: schema.NamingStrategy{TablePrefix: prefix},
	})
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", dsn, err)
	}
	if err := db.AutoMigrate(&RunRecord{}, &ItemRecord{}); err != nil {
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	l.Debug("运行记录已打开", "dsn", dsn)
	return &Journal{db: db, log: l}, nil
}

// BeginRun 写入运行起始记录
func (j *Journal) BeginRun(ctx context.Context, run model.RunID, target model.TargetInfo, at time.Time) error {
	rec := RunRecord{
		ID:        string(run),
		Target:    string(target.ID),
		URL:       target.URL,
		StartedAt: at,
	}
	return j.withRun(ctx, run).Create(&rec).Error
}

// RecordItem 追加一条条目结果
func (j *Journal) RecordItem(ctx context.Context, evt model.Event) error {
	rec := ItemRecord{
		RunID:      string(evt.Run),
		Label:      evt.Label,
		Outcome:    string(evt.Outcome),
		Attempts:   evt.Attempts,
		DurationMs: evt.Duration.Milliseconds(),
		SettledAt:  time.UnixMilli(evt.Timestamp),
	}
	return j.withRun(ctx, evt.Run).Create(&rec).Error
}

// FinishRun 写入运行汇总
func (j *Journal) FinishRun(ctx context.Context, s model.Summary, at time.Time) error {
	res := j.withRun(ctx, s.Run).Model(&RunRecord{}).Where("id = ?", string(s.Run)).Updates(map[string]any{
		"finished_at":    at,
		"stop_reason":    string(s.StopReason),
		"total":          s.Total,
		"completed":      s.Completed,
		"enrolled":       s.Enrolled,
		"rejected":       s.Rejected,
		"timed_out":      s.TimedOut,
		"trigger_failed": s.TriggerFailed,
		"scan_rounds":    s.ScanRounds,
		"elapsed_ms":     s.Elapsed.Milliseconds(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("finish run %s: %w", s.Run, gorm.ErrRecordNotFound)
	}
	return nil
}

// RecentRuns 按开始时间倒序返回最近的运行
func (j *Journal) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	var runs []RunRecord
	err := j.db.WithContext(ctx).Order("started_at desc").Limit(limit).Find(&runs).Error
	return runs, err
}

// Run 查询一次运行及其条目
func (j *Journal) Run(ctx context.Context, run model.RunID) (RunRecord, error) {
	var rec RunRecord
	err := j.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&rec, "id = ?", string(run)).Error
	return rec, err
}

// EnrolledLabels 返回历史上报名成功过的标签
func (j *Journal) EnrolledLabels(ctx context.Context) ([]string, error) {
	var labels []string
	err := j.db.WithContext(ctx).Model(&ItemRecord{}).
		Where("outcome = ?", string(model.OutcomeEnrolled)).
		Distinct().Order("label").Pluck("label", &labels).Error
	return labels, err
}

// IsNotFound 判断查询结果是否为空
func IsNotFound(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }

// Close 关闭底层连接
func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (j *Journal) withRun(ctx context.Context, run model.RunID) *gorm.DB {
	return j.db.WithContext(context.WithValue(ctx, ctxkeys.RunIDKey{}, string(run)))
}
