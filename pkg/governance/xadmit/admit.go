package xadmit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	retry "github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker/v2"

	"github.com/omeyang/xgovern/pkg/observability/xlog"
	"github.com/omeyang/xgovern/pkg/proxy/xpool"
	"github.com/omeyang/xgovern/pkg/proxy/xroute"
	"github.com/omeyang/xgovern/pkg/rate/xgovernor"
)

// Decision 准入决策
type Decision struct {
	// Wait 建议等待时长，0 表示可以立即发起请求
	Wait time.Duration
	// Route 选中的路由；未配置路由池、池被禁用或无可用路由时为 nil
	Route *xroute.Route
}

// Outcome 一次请求的结果回报
type Outcome struct {
	// Endpoint 请求的端点路径
	Endpoint string
	// RouteID 实际使用的路由 ID，直连时为空
	RouteID string
	// Success 请求是否成功
	Success bool
	// Latency 请求耗时
	Latency time.Duration
	// Rejected 上游是否返回了限速拒绝
	Rejected bool
	// Banned 上游是否返回了封禁信号（针对所用路由）
	Banned bool
	// QuotaLimit/QuotaRemaining/QuotaResetAt 响应携带的配额反馈，
	// QuotaLimit <= 0 时整组忽略
	QuotaLimit     int
	QuotaRemaining int
	QuotaResetAt   time.Time
}

// Result Execute 操作函数回传的请求结果
type Result struct {
	// Rejected 上游返回了限速拒绝（请求本身未出错但被限流）
	Rejected bool
	// Banned 上游返回了封禁信号
	Banned bool
	// QuotaLimit/QuotaRemaining/QuotaResetAt 响应携带的配额反馈
	QuotaLimit     int
	QuotaRemaining int
	QuotaResetAt   time.Time
}

// RequestFunc Execute 执行的操作函数
// route 可能为 nil（未配置路由池或暂无可用路由），表示直连。
type RequestFunc func(ctx context.Context, route *xroute.Route) (Result, error)

// Facade 请求治理门面
//
// 治理器与路由池各自并发安全，熔断器注册表由独立互斥锁保护。
// 所有方法并发安全。
type Facade struct {
	governor *xgovernor.Governor
	pool     *xpool.Pool
	logger   xlog.Logger

	maxWait          time.Duration
	attempts         uint
	breakerThreshold uint32
	breakerTimeout   time.Duration

	breakerMu sync.Mutex
	breakers  map[string]*gobreaker.TwoStepCircuitBreaker[any]
}

// New 创建治理门面
// governor 不能为 nil，否则返回 ErrNilGovernor。
func New(governor *xgovernor.Governor, opts ...Option) (*Facade, error) {
	if governor == nil {
		return nil, ErrNilGovernor
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return &Facade{
		governor:         governor,
		pool:             o.pool,
		logger:           o.logger,
		maxWait:          o.maxWait,
		attempts:         o.attempts,
		breakerThreshold: o.breakerThreshold,
		breakerTimeout:   o.breakerTimeout,
		breakers:         make(map[string]*gobreaker.TwoStepCircuitBreaker[any]),
	}, nil
}

// Admit 给出当前请求的准入决策
//
// 返回建议等待时长与选中的路由。本方法不阻塞、不消耗任何计数，
// 调用方等待 Wait 后发起请求，并在完成后调用 Report。
// 端点模式的熔断器处于打开状态时，返回熔断恢复时长、不选路由。
func (f *Facade) Admit(endpoint, country string) Decision {
	if f.breakerState(endpoint) == gobreaker.StateOpen {
		return Decision{Wait: f.breakerTimeout}
	}

	d := Decision{Wait: f.governor.WaitTime(endpoint)}
	if f.pool != nil {
		d.Route = f.pool.Get(country)
	}
	return d
}

// Report 回报一次请求的结果
//
// 结果同时回灌限速治理器与路由池：被拒绝的请求抬升退避水位，
// 成功或普通失败计入请求窗口；携带路由 ID 时更新路由健康状态；
// 携带配额反馈时更新配额快照。
func (f *Facade) Report(o Outcome) {
	if o.Rejected {
		f.governor.RecordRejection(o.Endpoint)
	} else {
		f.governor.RecordRequest(o.Endpoint)
	}

	if o.QuotaLimit > 0 {
		f.governor.IngestFeedback(o.Endpoint, o.QuotaLimit, o.QuotaRemaining, o.QuotaResetAt)
	}

	if f.pool != nil && o.RouteID != "" {
		f.pool.ReportOutcome(o.RouteID, o.Success, o.Latency, o.Banned)
	}
}

// Execute 执行一次受治理的请求（阻塞）
//
// 每次尝试依次经过：等待治理器建议的时长（响应 ctx 取消）、
// 熔断器检查、选路、执行 fn、结果回报。被拒绝的尝试会在下一轮
// 按退避后的建议时长重试，最多尝试构造时配置的次数。
//
// 建议等待超过 MaxWait 上限、熔断器打开、ctx 取消都会立即终止，
// 不再重试。
func (f *Facade) Execute(ctx context.Context, endpoint, country string, fn RequestFunc) error {
	if fn == nil {
		return ErrNilFunc
	}

	return retry.New(
		retry.Context(ctx),
		retry.Attempts(f.attempts),
		retry.LastErrorOnly(true),
		// 尝试间的节奏由治理器的建议等待控制，重试自身不再延迟
		retry.DelayType(func(_ uint, _ error, _ retry.DelayContext) time.Duration {
			return 0
		}),
	).Do(func() error {
		return f.attempt(ctx, endpoint, country, fn)
	})
}

// attempt 执行单次尝试
func (f *Facade) attempt(ctx context.Context, endpoint, country string, fn RequestFunc) error {
	wait := f.governor.WaitTime(endpoint)
	if wait > f.maxWait {
		f.logger.Warn(ctx, "suggested wait exceeds cap, giving up",
			slog.String("endpoint", endpoint),
			slog.Duration("wait", wait),
			slog.Duration("max_wait", f.maxWait),
		)
		return retry.Unrecoverable(fmt.Errorf("%w: %s > %s", ErrWaitExceeded, wait, f.maxWait))
	}
	if err := sleepCtx(ctx, wait); err != nil {
		return retry.Unrecoverable(err)
	}

	done, err := f.allow(endpoint)
	if err != nil {
		return retry.Unrecoverable(fmt.Errorf("%w: %s", ErrCircuitOpen, xgovernor.Pattern(endpoint)))
	}

	var route *xroute.Route
	if f.pool != nil {
		route = f.pool.Get(country)
	}

	start := time.Now()
	res, fnErr := fn(ctx, route)
	latency := time.Since(start)

	outcome := Outcome{
		Endpoint:       endpoint,
		Success:        fnErr == nil && !res.Rejected,
		Latency:        latency,
		Rejected:       res.Rejected,
		Banned:         res.Banned,
		QuotaLimit:     res.QuotaLimit,
		QuotaRemaining: res.QuotaRemaining,
		QuotaResetAt:   res.QuotaResetAt,
	}
	if route != nil {
		outcome.RouteID = route.ID()
	}
	f.Report(outcome)

	if fnErr != nil {
		done(fnErr)
		return fnErr
	}
	if res.Rejected {
		done(ErrRejected)
		return ErrRejected
	}
	done(nil)
	return nil
}

// breakerState 返回端点模式熔断器的当前状态（只读，不消耗半开名额）
// 未启用熔断或该模式还没有熔断器时视为 Closed。
func (f *Facade) breakerState(endpoint string) gobreaker.State {
	if f.breakerThreshold == 0 {
		return gobreaker.StateClosed
	}
	f.breakerMu.Lock()
	cb, ok := f.breakers[xgovernor.Pattern(endpoint)]
	f.breakerMu.Unlock()
	if !ok {
		return gobreaker.StateClosed
	}
	return cb.State()
}

// allow 取得端点模式的熔断器执行许可
// 未启用熔断时返回空操作的 done。
func (f *Facade) allow(endpoint string) (func(error), error) {
	if f.breakerThreshold == 0 {
		return func(error) {}, nil
	}

	pattern := xgovernor.Pattern(endpoint)

	f.breakerMu.Lock()
	cb, ok := f.breakers[pattern]
	if !ok {
		cb = gobreaker.NewTwoStepCircuitBreaker[any](gobreaker.Settings{
			Name:        pattern,
			MaxRequests: 1,
			Timeout:     f.breakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= f.breakerThreshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				f.logger.Warn(context.Background(), "circuit state changed",
					slog.String("pattern", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()),
				)
			},
		})
		f.breakers[pattern] = cb
	}
	f.breakerMu.Unlock()

	return cb.Allow()
}

// Stats 门面统计快照
type Stats struct {
	Governor xgovernor.Stats   `json:"governor"`
	Pool     *xpool.Stats      `json:"pool,omitempty"` // 未配置路由池时为 nil
	Breakers map[string]string `json:"breakers,omitempty"`
}

// Stats 返回门面统计快照
func (f *Facade) Stats() Stats {
	stats := Stats{Governor: f.governor.Stats()}

	if f.pool != nil {
		ps := f.pool.Stats()
		stats.Pool = &ps
	}

	f.breakerMu.Lock()
	if len(f.breakers) > 0 {
		stats.Breakers = make(map[string]string, len(f.breakers))
		for pattern, cb := range f.breakers {
			stats.Breakers[pattern] = cb.State().String()
		}
	}
	f.breakerMu.Unlock()

	return stats
}

// sleepCtx 等待 d 或 ctx 取消，先到者生效
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
