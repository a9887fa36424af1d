package xgovernor

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/omeyang/xgovern/pkg/observability/xlog"
	"github.com/omeyang/xgovern/pkg/rate/xbackoff"
	"github.com/omeyang/xgovern/pkg/rate/xwindow"
)

// quota 上游反馈的配额快照
type quota struct {
	limit     int
	remaining int
	resetAt   time.Time
}

// Governor 自适应限速治理器
//
// 配置与计数器缓存由 mu 保护，配额快照与拒绝时间戳各有独立锁，
// 计数器与退避控制器自带锁。所有方法并发安全。
type Governor struct {
	mu       sync.Mutex
	config   Config
	counters *lru.Cache[string, *xwindow.Counter]

	quotaMu sync.Mutex
	quotas  map[string]quota

	rejectMu      sync.Mutex
	lastRejection time.Time

	backoff *xbackoff.Controller
	logger  xlog.Logger
	metrics *Metrics
	now     func() time.Time
}

// New 创建治理器
func New(opts ...Option) (*Governor, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	if err := o.config.Validate(); err != nil {
		return nil, err
	}

	counters, err := lru.New[string, *xwindow.Counter](o.config.PatternCapacity)
	if err != nil {
		return nil, err
	}

	metrics, err := NewMetrics(o.meterProvider)
	if err != nil {
		return nil, err
	}

	backoff := o.backoff
	if backoff == nil {
		backoff = xbackoff.New()
	}

	return &Governor{
		config:   o.config,
		counters: counters,
		quotas:   make(map[string]quota),
		backoff:  backoff,
		logger:   o.logger,
		metrics:  metrics,
		now:      time.Now,
	}, nil
}

// WaitTime 返回当前发起请求前建议等待的时长
//
// 按优先级检查：存活配额快照耗尽 > 窗口计数达到有效上限 >
// 近期出现过上游拒绝。三者均不满足时返回 0。
// 本方法不阻塞，等待由调用方执行。
func (g *Governor) WaitTime(endpoint string) time.Duration {
	pattern := Pattern(endpoint)
	now := g.now()
	ctx := context.Background()

	if wait := g.quotaWait(pattern, now); wait > 0 {
		g.metrics.RecordDecision(ctx, pattern, reasonQuota, wait)
		g.logger.Debug(ctx, "quota exhausted, waiting for reset",
			slog.String("pattern", pattern),
			slog.Duration("wait", wait),
		)
		return wait
	}

	policy, counter := g.counterFor(pattern)
	count := counter.Count()
	effective := policy.EffectiveLimit(g.safetyBuffer())
	if count >= effective {
		wait := policy.Window
		if rate := counter.Rate(); rate > 0 {
			// 估算最早的 count-effective+1 个事件滑出窗口所需的时间
			est := time.Duration(float64(count-effective+1) / rate * float64(time.Second))
			if est < wait {
				wait = est
			}
		}
		g.metrics.RecordDecision(ctx, pattern, reasonWindow, wait)
		g.logger.Debug(ctx, "window limit reached",
			slog.String("pattern", pattern),
			slog.Int("count", count),
			slog.Int("effective_limit", effective),
			slog.Duration("wait", wait),
		)
		return wait
	}

	if g.recentRejection(now) {
		wait := g.backoff.NextDelay()
		g.metrics.RecordDecision(ctx, pattern, reasonBackoff, wait)
		g.logger.Debug(ctx, "recent rejection, backing off",
			slog.String("pattern", pattern),
			slog.Int("attempts", g.backoff.Attempts()),
			slog.Duration("wait", wait),
		)
		return wait
	}

	g.metrics.RecordDecision(ctx, pattern, reasonNone, 0)
	return 0
}

// CanProceed 报告现在是否可以立即发起请求
func (g *Governor) CanProceed(endpoint string) bool {
	return g.WaitTime(endpoint) == 0
}

// RecordRequest 记录一次已发出的请求
// 同时将退避状态归零：请求能发出去说明上游仍在接收。
func (g *Governor) RecordRequest(endpoint string) {
	pattern := Pattern(endpoint)
	_, counter := g.counterFor(pattern)
	counter.Record(1)
	g.backoff.RecordSuccess()
	g.metrics.RecordRequest(context.Background(), pattern)
}

// RecordRejection 记录一次上游显式拒绝（请求过多）
// 拒绝会抬升退避水位，并在拒绝窗口内让 WaitTime 返回退避延迟。
func (g *Governor) RecordRejection(endpoint string) {
	pattern := Pattern(endpoint)

	g.rejectMu.Lock()
	g.lastRejection = g.now()
	g.rejectMu.Unlock()

	g.backoff.RecordFailure()
	g.metrics.RecordRejection(context.Background(), pattern)
	g.logger.Warn(context.Background(), "upstream rejection recorded",
		slog.String("pattern", pattern),
		slog.Int("attempts", g.backoff.Attempts()),
	)
}

// IngestFeedback 采纳上游响应携带的配额反馈
//
// 反馈必须满足 limit > 0、remaining >= 0 且 resetAt 非零，
// 否则被静默丢弃（仅记录 Debug 日志）。同一模式后写覆盖。
func (g *Governor) IngestFeedback(endpoint string, limit, remaining int, resetAt time.Time) {
	pattern := Pattern(endpoint)
	ctx := context.Background()

	if limit <= 0 || remaining < 0 || resetAt.IsZero() {
		g.metrics.RecordFeedback(ctx, pattern, false)
		g.logger.Debug(ctx, "malformed quota feedback dropped",
			slog.String("pattern", pattern),
			slog.Int("limit", limit),
			slog.Int("remaining", remaining),
			slog.Time("reset_at", resetAt),
		)
		return
	}

	g.quotaMu.Lock()
	g.quotas[pattern] = quota{limit: limit, remaining: remaining, resetAt: resetAt}
	g.quotaMu.Unlock()

	g.metrics.RecordFeedback(ctx, pattern, true)
}

// RemainingQuota 返回模式的剩余配额估计
//
// 存在存活的配额快照时以快照为准，否则按"配置上限 - 窗口计数"
// 估算，下限为 0。
func (g *Governor) RemainingQuota(endpoint string) int {
	pattern := Pattern(endpoint)
	now := g.now()

	g.quotaMu.Lock()
	q, ok := g.quotas[pattern]
	g.quotaMu.Unlock()
	if ok && now.Before(q.resetAt) {
		return q.remaining
	}

	policy, counter := g.counterFor(pattern)
	remaining := policy.Limit - counter.Count()
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// ApplyConfig 热更新配置
//
// 新配置先整体校验，失败时保持原配置不变。窗口长度发生变化的模式
// 会丢弃旧计数器按新窗口重建（计数从零开始），其余模式的计数保留。
func (g *Governor) ApplyConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg = cfg.clone()

	g.mu.Lock()
	old := g.config
	g.config = cfg
	for _, pattern := range g.counters.Keys() {
		if cfg.PolicyFor(pattern).Window != old.PolicyFor(pattern).Window {
			g.counters.Remove(pattern)
		}
	}
	g.mu.Unlock()

	g.logger.Info(context.Background(), "governor config applied",
		slog.Int("patterns", len(cfg.Policies)),
		slog.Float64("safety_buffer", cfg.SafetyBuffer),
	)
	return nil
}

// Config 返回当前配置的拷贝
func (g *Governor) Config() Config {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.config.clone()
}

// Reset 清空全部运行期状态（计数器、配额快照、拒绝与退避状态）
// 配置保持不变。
func (g *Governor) Reset() {
	g.mu.Lock()
	g.counters.Purge()
	g.mu.Unlock()

	g.quotaMu.Lock()
	clear(g.quotas)
	g.quotaMu.Unlock()

	g.rejectMu.Lock()
	g.lastRejection = time.Time{}
	g.rejectMu.Unlock()

	g.backoff.Reset()
}

// PatternStats 单个模式的统计快照
type PatternStats struct {
	Pattern        string        `json:"pattern"`
	Count          int           `json:"count"`
	Rate           float64       `json:"rate"`
	Limit          int           `json:"limit"`
	EffectiveLimit int           `json:"effective_limit"`
	Window         time.Duration `json:"window"`
	QuotaRemaining int           `json:"quota_remaining"` // -1 表示无存活快照
	QuotaResetAt   time.Time     `json:"quota_reset_at,omitzero"`
}

// Stats 治理器统计快照
type Stats struct {
	Patterns        []PatternStats `json:"patterns"`
	BackoffAttempts int            `json:"backoff_attempts"`
	RecentRejection bool           `json:"recent_rejection"`
}

// Stats 返回治理器统计快照，模式按字典序排列
func (g *Governor) Stats() Stats {
	now := g.now()

	g.mu.Lock()
	cfg := g.config
	patterns := g.counters.Keys()
	counters := make(map[string]*xwindow.Counter, len(patterns))
	for _, p := range patterns {
		if c, ok := g.counters.Peek(p); ok {
			counters[p] = c
		}
	}
	g.mu.Unlock()

	buffer := cfg.SafetyBuffer
	slices.Sort(patterns)

	stats := Stats{
		BackoffAttempts: g.backoff.Attempts(),
		RecentRejection: g.recentRejection(now),
	}
	for _, pattern := range patterns {
		counter, ok := counters[pattern]
		if !ok {
			continue
		}
		policy := cfg.PolicyFor(pattern)
		ps := PatternStats{
			Pattern:        pattern,
			Count:          counter.Count(),
			Rate:           counter.Rate(),
			Limit:          policy.Limit,
			EffectiveLimit: policy.EffectiveLimit(buffer),
			Window:         policy.Window,
			QuotaRemaining: -1,
		}
		g.quotaMu.Lock()
		if q, okq := g.quotas[pattern]; okq && now.Before(q.resetAt) {
			ps.QuotaRemaining = q.remaining
			ps.QuotaResetAt = q.resetAt
		}
		g.quotaMu.Unlock()
		stats.Patterns = append(stats.Patterns, ps)
	}
	return stats
}

// quotaWait 返回配额快照要求的等待时长
// 无存活快照或仍有余量时返回 0，过期快照顺带清理。
func (g *Governor) quotaWait(pattern string, now time.Time) time.Duration {
	g.quotaMu.Lock()
	defer g.quotaMu.Unlock()

	q, ok := g.quotas[pattern]
	if !ok {
		return 0
	}
	if !now.Before(q.resetAt) {
		delete(g.quotas, pattern)
		return 0
	}
	if q.remaining > 0 {
		return 0
	}
	return q.resetAt.Sub(now)
}

// counterFor 返回模式的策略与计数器，计数器按需创建
func (g *Governor) counterFor(pattern string) (Policy, *xwindow.Counter) {
	g.mu.Lock()
	defer g.mu.Unlock()

	policy := g.config.PolicyFor(pattern)
	if c, ok := g.counters.Get(pattern); ok {
		return policy, c
	}
	// 策略在构造与热更新时均已校验，窗口必为正
	c, _ := xwindow.New(policy.Window, xwindow.WithTimeSource(g.now))
	g.counters.Add(pattern, c)
	return policy, c
}

// safetyBuffer 返回当前安全余量
func (g *Governor) safetyBuffer() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.config.SafetyBuffer
}

// recentRejection 报告拒绝窗口内是否出现过上游拒绝
func (g *Governor) recentRejection(now time.Time) bool {
	g.mu.Lock()
	window := g.config.RejectionWindow
	g.mu.Unlock()

	g.rejectMu.Lock()
	defer g.rejectMu.Unlock()
	return !g.lastRejection.IsZero() && now.Sub(g.lastRejection) < window
}
