package storage

import (
	"context"
	"errors"
	"time"

	"offerpilot/internal/ctxkeys"
	applog "offerpilot/internal/logger"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// journalLogger 把报名日志库的 SQL 输出并入应用日志，每条记录带所属运行 ID
type journalLogger struct {
	log   applog.Logger
	level gormlogger.LogLevel
	slow  time.Duration
	now   func() time.Time
}

func newJournalLogger(l applog.Logger) *journalLogger {
	return &journalLogger{log: l, level: gormlogger.Warn, slow: time.Second, now: time.Now}
}

// LogMode gorm.Config.Debug 等会调用，返回调整级别后的副本
func (j *journalLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	c := *j
	c.level = level
	return &c
}

func (j *journalLogger) Info(ctx context.Context, msg string, data ...any) {
	if j.level >= gormlogger.Info {
		j.forRun(ctx).Info(msg, "data", data)
	}
}

func (j *journalLogger) Warn(ctx context.Context, msg string, data ...any) {
	if j.level >= gormlogger.Warn {
		j.forRun(ctx).Warn(msg, "data", data)
	}
}

func (j *journalLogger) Error(ctx context.Context, msg string, data ...any) {
	if j.level >= gormlogger.Error {
		j.forRun(ctx).Error(msg, "data", data)
	}
}

// Trace 记录一条报名日志 SQL；查询历史运行时的未找到不算错误
func (j *journalLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if j.level <= gormlogger.Silent {
		return
	}
	took := j.now().Sub(begin)
	l := j.forRun(ctx)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && j.level >= gormlogger.Error:
		sql, rows := fc()
		l.Err(err, "写入报名日志失败", "sql", sql, "rows", rows, "took", took)
	case j.slow > 0 && took > j.slow && j.level >= gormlogger.Warn:
		sql, rows := fc()
		l.Warn("报名日志 SQL 过慢", "sql", sql, "rows", rows, "took", took, "slow", j.slow)
	case j.level >= gormlogger.Info:
		sql, rows := fc()
		l.Debug("报名日志 SQL", "sql", sql, "rows", rows, "took", took)
	}
}

func (j *journalLogger) forRun(ctx context.Context) applog.Logger {
	if id := runID(ctx); id != "" {
		return j.log.With("run", id)
	}
	return j.log
}

func runID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxkeys.RunIDKey{}).(string)
	return id
}
