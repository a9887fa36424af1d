package xadmit

import (
	"time"

	"github.com/omeyang/xgovern/pkg/observability/xlog"
	"github.com/omeyang/xgovern/pkg/proxy/xpool"
)

// 默认配置参数
const (
	// DefaultMaxWait Execute 愿意等待的时长上限
	DefaultMaxWait = 5 * time.Minute
	// DefaultAttempts Execute 的最大尝试次数（含首次）
	DefaultAttempts = 3
	// DefaultBreakerTimeout 熔断器从打开到半开的恢复时长
	DefaultBreakerTimeout = 30 * time.Second
)

// options 门面配置选项集合
type options struct {
	pool             *xpool.Pool
	logger           xlog.Logger
	maxWait          time.Duration
	attempts         uint
	breakerThreshold uint32
	breakerTimeout   time.Duration
}

// defaultOptions 返回默认选项
func defaultOptions() *options {
	return &options{
		logger:         xlog.Nop(),
		maxWait:        DefaultMaxWait,
		attempts:       DefaultAttempts,
		breakerTimeout: DefaultBreakerTimeout,
	}
}

// Option 门面配置选项
type Option func(*options)

// WithPool 设置路由池
// 不设置时 Admit 的 Route 始终为 nil，Execute 直连。
func WithPool(p *xpool.Pool) Option {
	return func(o *options) {
		o.pool = p
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

// WithMaxWait 设置 Execute 愿意等待的时长上限
// 建议等待超过上限时 Execute 直接失败。非正值被忽略。
func WithMaxWait(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.maxWait = d
		}
	}
}

// WithAttempts 设置 Execute 的最大尝试次数（含首次）
// 零值被忽略（保持默认值 3）。
func WithAttempts(n uint) Option {
	return func(o *options) {
		if n > 0 {
			o.attempts = n
		}
	}
}

// WithBreaker 启用按模式熔断
//
// threshold 为触发熔断的连续失败次数，0 表示不启用熔断。
func WithBreaker(threshold uint32) Option {
	return func(o *options) {
		o.breakerThreshold = threshold
	}
}

// WithBreakerTimeout 设置熔断器从打开到半开的恢复时长
// 非正值被忽略（保持默认值 30s）。
func WithBreakerTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.breakerTimeout = d
		}
	}
}
