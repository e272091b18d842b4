package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger 结构化日志接口，kv 为成对的键值
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	Err(err error, msg string, kv ...any)
	With(kv ...any) Logger
}

// Options 日志输出配置
type Options struct {
	Level   string
	Writers []string // console / file
	File    string
	Console io.Writer
}

type zeroLogger struct {
	z zerolog.Logger
}

// New 按配置创建 zerolog 日志器，返回的 Closer 用于关闭文件输出
func New(opts Options) (Logger, io.Closer) {
	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	var (
		writers []io.Writer
		closer  io.Closer = nopCloser{}
	)
	for _, w := range opts.Writers {
		switch w {
		case "console":
			out := opts.Console
			if out == nil {
				out = os.Stderr
			}
			writers = append(writers, zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"})
		case "file":
			if opts.File == "" {
				continue
			}
			lj := &lumberjack.Logger{
				Filename:   opts.File,
				MaxSize:    10,
				MaxBackups: 3,
				MaxAge:     7,
				Compress:   true,
			}
			writers = append(writers, lj)
			closer = lj
		}
	}
	if len(writers) == 0 {
		return NewNop(), closer
	}

	z := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().Timestamp().Logger()
	return &zeroLogger{z: z}, closer
}

// NewWriter 直接包装一个 io.Writer，主要用于测试捕获 JSON 日志
func NewWriter(w io.Writer, level zerolog.Level) Logger {
	return &zeroLogger{z: zerolog.New(w).Level(level).With().Timestamp().Logger()}
}

func (l *zeroLogger) Debug(msg string, kv ...any) { l.z.Debug().Fields(kv).Msg(msg) }
func (l *zeroLogger) Info(msg string, kv ...any)  { l.z.Info().Fields(kv).Msg(msg) }
func (l *zeroLogger) Warn(msg string, kv ...any)  { l.z.Warn().Fields(kv).Msg(msg) }
func (l *zeroLogger) Error(msg string, kv ...any) { l.z.Error().Fields(kv).Msg(msg) }

func (l *zeroLogger) Err(err error, msg string, kv ...any) {
	l.z.Error().Err(err).Fields(kv).Msg(msg)
}

func (l *zeroLogger) With(kv ...any) Logger {
	return &zeroLogger{z: l.z.With().Fields(kv).Logger()}
}

type nop struct{}

// NewNop 返回丢弃所有输出的日志器
func NewNop() Logger { return nop{} }

func (nop) Debug(string, ...any)      {}
func (nop) Info(string, ...any)       {}
func (nop) Warn(string, ...any)       {}
func (nop) Error(string, ...any)      {}
func (nop) Err(error, string, ...any) {}
func (n nop) With(...any) Logger      { return n }

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
