package xlog

import (
	"context"
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Format 日志输出格式
type Format string

const (
	// FormatJSON JSON 格式输出，适合生产环境采集
	FormatJSON Format = "json"
	// FormatText 文本格式输出，适合本地调试
	FormatText Format = "text"
)

// RotateConfig 日志文件轮转配置
// 字段语义与 lumberjack 保持一致。
type RotateConfig struct {
	// Filename 日志文件路径
	Filename string
	// MaxSizeMB 单个文件最大体积（MB），超过后切割
	MaxSizeMB int
	// MaxBackups 保留的旧文件数量
	MaxBackups int
	// MaxAgeDays 旧文件保留天数
	MaxAgeDays int
	// Compress 是否压缩旧文件
	Compress bool
}

// options 内部配置结构
type options struct {
	level  Level
	format Format
	output io.Writer
	rotate *RotateConfig
}

// Option 日志配置选项
type Option func(*options)

// WithLevel 设置初始日志级别
func WithLevel(level Level) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithFormat 设置输出格式
// 非法值被忽略（保持默认值 text）。
func WithFormat(format Format) Option {
	return func(o *options) {
		if format == FormatJSON || format == FormatText {
			o.format = format
		}
	}
}

// WithOutput 设置输出目标
// 与 WithRotation 同时设置时，以 WithRotation 为准。
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.output = w
		}
	}
}

// WithRotation 启用基于 lumberjack 的文件轮转输出
func WithRotation(cfg RotateConfig) Option {
	return func(o *options) {
		if cfg.Filename != "" {
			o.rotate = &cfg
		}
	}
}

// xlogger Logger 的 slog 实现
type xlogger struct {
	sl       *slog.Logger
	levelVar *slog.LevelVar
}

// New 创建日志实例
//
// 默认输出 text 格式到 stderr，级别 Info。
func New(opts ...Option) LoggerWithLevel {
	o := &options{
		level:  LevelInfo,
		format: FormatText,
		output: os.Stderr,
	}
	for _, opt := range opts {
		opt(o)
	}

	out := o.output
	if o.rotate != nil {
		out = &lumberjack.Logger{
			Filename:   o.rotate.Filename,
			MaxSize:    o.rotate.MaxSizeMB,
			MaxBackups: o.rotate.MaxBackups,
			MaxAge:     o.rotate.MaxAgeDays,
			Compress:   o.rotate.Compress,
		}
	}

	levelVar := new(slog.LevelVar)
	levelVar.Set(o.level)

	handlerOpts := &slog.HandlerOptions{Level: levelVar}
	var handler slog.Handler
	if o.format == FormatJSON {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}

	return &xlogger{
		sl:       slog.New(handler),
		levelVar: levelVar,
	}
}

func (l *xlogger) Debug(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.sl.LogAttrs(ctx, slog.LevelDebug, msg, attrs...)
}

func (l *xlogger) Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.sl.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (l *xlogger) Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.sl.LogAttrs(ctx, slog.LevelWarn, msg, attrs...)
}

func (l *xlogger) Error(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.sl.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

func (l *xlogger) With(attrs ...slog.Attr) Logger {
	if len(attrs) == 0 {
		return l
	}
	args := make([]any, 0, len(attrs))
	for _, a := range attrs {
		args = append(args, a)
	}
	return &xlogger{
		sl:       l.sl.With(args...),
		levelVar: l.levelVar,
	}
}

func (l *xlogger) SetLevel(level Level) {
	l.levelVar.Set(level)
}

func (l *xlogger) GetLevel() Level {
	return l.levelVar.Level()
}

// nopLogger 空实现
type nopLogger struct{}

// Nop 返回空日志实现，所有方法为空操作
func Nop() Logger {
	return nopLogger{}
}

func (nopLogger) Debug(context.Context, string, ...slog.Attr) {}
func (nopLogger) Info(context.Context, string, ...slog.Attr)  {}
func (nopLogger) Warn(context.Context, string, ...slog.Attr)  {}
func (nopLogger) Error(context.Context, string, ...slog.Attr) {}
func (nopLogger) With(...slog.Attr) Logger                    { return nopLogger{} }

// 确保实现了接口
var (
	_ LoggerWithLevel = (*xlogger)(nil)
	_ Logger          = nopLogger{}
)
