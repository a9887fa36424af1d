package xpool

import (
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/omeyang/xgovern/pkg/observability/xlog"
	"github.com/omeyang/xgovern/pkg/proxy/xrotate"
)

// DefaultRemovalThreshold 默认的连续失败移除阈值
const DefaultRemovalThreshold = 5

// options 内部配置结构
type options struct {
	strategy         xrotate.Strategy
	strategyName     xrotate.Name
	removalThreshold int
	banCooldown      time.Duration
	logger           xlog.Logger
	meterProvider    metric.MeterProvider
}

// Option 池配置选项
type Option func(*options)

func defaultOptions() *options {
	return &options{
		removalThreshold: DefaultRemovalThreshold,
		logger:           xlog.Nop(),
	}
}

// WithStrategy 直接设置策略实例
// 优先级高于 WithStrategyName。
func WithStrategy(s xrotate.Strategy) Option {
	return func(o *options) {
		if s != nil {
			o.strategy = s
		}
	}
}

// WithStrategyName 按名称设置策略，构造时解析
// 名称无法识别时 New 返回 xrotate.ErrUnknownStrategy。
func WithStrategyName(name xrotate.Name) Option {
	return func(o *options) {
		o.strategyName = name
	}
}

// WithRemovalThreshold 设置连续失败移除阈值
// 达到阈值的路由被整体移出池。必须为正，否则 New 返回 [ErrInvalidThreshold]。
func WithRemovalThreshold(n int) Option {
	return func(o *options) {
		o.removalThreshold = n
	}
}

// WithBanCooldown 设置新注册路由的封禁冷却时长
func WithBanCooldown(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.banCooldown = d
		}
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger xlog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMeterProvider 设置指标提供器
// nil 表示不收集指标。
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}
