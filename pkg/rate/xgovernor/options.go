package xgovernor

import (
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/omeyang/xgovern/pkg/observability/xlog"
	"github.com/omeyang/xgovern/pkg/rate/xbackoff"
)

// options 治理器配置选项集合
type options struct {
	config        Config
	logger        xlog.Logger
	meterProvider metric.MeterProvider
	backoff       *xbackoff.Controller
}

// defaultOptions 返回默认选项
func defaultOptions() *options {
	return &options{
		config: DefaultConfig(),
		logger: xlog.Nop(),
	}
}

// Option 治理器配置选项
type Option func(*options)

// WithConfig 整体替换配置
// 配置在 New 中统一校验。
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.config = cfg.clone()
	}
}

// WithPolicy 覆盖单个模式的策略
func WithPolicy(pattern string, p Policy) Option {
	return func(o *options) {
		if o.config.Policies == nil {
			o.config.Policies = make(map[string]Policy)
		}
		o.config.Policies[pattern] = p
	}
}

// WithDefaultPolicy 设置兜底策略
func WithDefaultPolicy(p Policy) Option {
	return func(o *options) {
		o.config.Default = p
	}
}

// WithSafetyBuffer 设置安全余量，取值 [0, 1)
func WithSafetyBuffer(buffer float64) Option {
	return func(o *options) {
		o.config.SafetyBuffer = buffer
	}
}

// WithRejectionWindow 设置拒绝信号的生效时长
func WithRejectionWindow(d time.Duration) Option {
	return func(o *options) {
		o.config.RejectionWindow = d
	}
}

// WithPatternCapacity 设置计数器缓存的模式容量
func WithPatternCapacity(n int) Option {
	return func(o *options) {
		o.config.PatternCapacity = n
	}
}

// WithLogger 设置日志记录器
// nil 被忽略（保持无操作日志器）。
func WithLogger(logger xlog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMeterProvider 设置指标提供者
// 不设置时不收集指标。
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// WithBackoff 设置退避控制器
// nil 被忽略（New 会创建默认控制器）。多个治理器可共享同一控制器，
// 让任意模式的拒绝抬升全局退避水位。
func WithBackoff(c *xbackoff.Controller) Option {
	return func(o *options) {
		if c != nil {
			o.backoff = c
		}
	}
}
