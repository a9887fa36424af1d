package xpool

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/omeyang/xgovern/pkg/observability/xlog"
	"github.com/omeyang/xgovern/pkg/proxy/xroute"
	"github.com/omeyang/xgovern/pkg/proxy/xrotate"
)

// Pool 上游路由池
//
// 注册表与国家索引由池级互斥锁保护；路由状态由各路由自身的锁保护。
// 选择请求分发给构造时选定的策略，策略调用发生在池锁之外。
type Pool struct {
	mu        sync.Mutex
	routes    map[string]*xroute.Route
	order     []string            // 注册顺序，保证迭代确定性
	byCountry map[string][]string // 大写国家码 → 路由 ID 列表
	enabled   bool

	strategy         xrotate.Strategy
	removalThreshold int
	banCooldown      time.Duration
	logger           xlog.Logger
	metrics          *Metrics
}

// New 创建路由池
func New(opts ...Option) (*Pool, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	if o.removalThreshold <= 0 {
		return nil, ErrInvalidThreshold
	}

	strategy := o.strategy
	if strategy == nil {
		var err error
		strategy, err = xrotate.NewStrategy(o.strategyName)
		if err != nil {
			return nil, err
		}
	}

	metrics, err := NewMetrics(o.meterProvider)
	if err != nil {
		return nil, err
	}

	return &Pool{
		routes:           make(map[string]*xroute.Route),
		byCountry:        make(map[string][]string),
		enabled:          true,
		strategy:         strategy,
		removalThreshold: o.removalThreshold,
		banCooldown:      o.banCooldown,
		logger:           o.logger,
		metrics:          metrics,
	}, nil
}

// AddRoute 注册一条路由，返回其 ID
//
// 同一 host:port 重复注册时覆盖原记录（计数与健康状态重置）。
func (p *Pool) AddRoute(cfg xroute.Config) (string, error) {
	var routeOpts []xroute.Option
	if p.banCooldown > 0 {
		routeOpts = append(routeOpts, xroute.WithBanCooldown(p.banCooldown))
	}

	r, err := xroute.New(cfg, routeOpts...)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	id := r.ID()
	if old, ok := p.routes[id]; ok {
		p.dropIndexLocked(id, old.Country())
	}
	p.routes[id] = r
	p.order = append(p.order, id)
	if c := r.Country(); c != "" {
		p.byCountry[c] = append(p.byCountry[c], id)
	}

	p.logger.Debug(context.Background(), "route added",
		slog.String("route_id", id),
		slog.String("host", r.Host()),
		slog.String("country", r.Country()),
	)
	return id, nil
}

// RemoveRoute 移除一条路由，路由不存在时返回 false
func (p *Pool) RemoveRoute(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.removeLocked(id)
}

func (p *Pool) removeLocked(id string) bool {
	r, ok := p.routes[id]
	if !ok {
		return false
	}
	p.dropIndexLocked(id, r.Country())
	delete(p.routes, id)
	return true
}

// dropIndexLocked 从注册顺序与国家索引中剔除 id
// 调用方必须持有 p.mu。
func (p *Pool) dropIndexLocked(id, country string) {
	if i := slices.Index(p.order, id); i >= 0 {
		p.order = slices.Delete(p.order, i, i+1)
	}
	if country == "" {
		return
	}
	ids := p.byCountry[country]
	if i := slices.Index(ids, id); i >= 0 {
		p.byCountry[country] = slices.Delete(ids, i, i+1)
	}
	if len(p.byCountry[country]) == 0 {
		delete(p.byCountry, country)
	}
}

// Get 按策略取一条可用路由
//
// country 非空时只在该国家（大小写不敏感）的路由中选择。
// 池被禁用或当前无可用路由时返回 nil——这是"稍后再试"的正常结果，
// 不是错误。
func (p *Pool) Get(country string) *xroute.Route {
	available := p.available(country)
	if len(available) == 0 {
		p.metrics.RecordSelection(context.Background(), string(p.strategy.Name()), false)
		return nil
	}

	// 策略调用在池锁之外，基于候选快照
	r := p.strategy.Pick(available)
	p.metrics.RecordSelection(context.Background(), string(p.strategy.Name()), r != nil)
	return r
}

// available 收集当前可用路由，按注册顺序排列
func (p *Pool) available(country string) []*xroute.Route {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.enabled {
		return nil
	}

	ids := p.order
	if country != "" {
		ids = p.byCountry[strings.ToUpper(country)]
	}

	routes := make([]*xroute.Route, 0, len(ids))
	for _, id := range ids {
		r, ok := p.routes[id]
		if !ok {
			continue
		}
		if r.IsAvailable() {
			routes = append(routes, r)
		}
	}
	return routes
}

// ReportOutcome 上报一次经由路由的请求结果
//
// success 为 true 时记录成功与延迟；否则记录失败，ban 表示上游
// 返回了显式封禁信号。失败后连续失败数达到移除阈值的路由被
// 整体移出池。未知 ID 为空操作。
func (p *Pool) ReportOutcome(id string, success bool, latency time.Duration, ban bool) {
	p.mu.Lock()
	r, ok := p.routes[id]
	p.mu.Unlock()
	if !ok {
		return
	}

	if success {
		r.RecordSuccess(latency)
		p.metrics.RecordOutcome(context.Background(), true, false)
		return
	}

	r.RecordFailure(ban)
	p.metrics.RecordOutcome(context.Background(), false, ban)

	if ban {
		p.logger.Warn(context.Background(), "route banned by upstream",
			slog.String("route_id", id),
			slog.String("host", r.Host()),
		)
	}

	if r.ConsecutiveFailures() >= p.removalThreshold {
		p.mu.Lock()
		removed := p.removeLocked(id)
		p.mu.Unlock()
		if removed {
			p.metrics.RecordRemoval(context.Background())
			p.logger.Warn(context.Background(), "route removed after repeated failures",
				slog.String("route_id", id),
				slog.String("host", r.Host()),
				slog.Int("consecutive_failures", r.ConsecutiveFailures()),
			)
		}
	}
}

// Enable 启用池
func (p *Pool) Enable() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = true
}

// Disable 禁用池，禁用期间 Get 一律返回 nil
func (p *Pool) Disable() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = false
}

// Enabled 返回池是否启用
func (p *Pool) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// Len 返回池中路由数量
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.routes)
}

// Clear 移除全部路由
func (p *Pool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.routes = make(map[string]*xroute.Route)
	p.order = nil
	p.byCountry = make(map[string][]string)
}

// Stats 池状态快照
type Stats struct {
	Total     int          `json:"total"`
	Healthy   int          `json:"healthy"`
	Degraded  int          `json:"degraded"`
	Unhealthy int          `json:"unhealthy"`
	Banned    int          `json:"banned"`
	Unknown   int          `json:"unknown"`
	Countries int          `json:"countries"`
	Strategy  xrotate.Name `json:"strategy"`
	Enabled   bool         `json:"enabled"`
}

// Stats 返回池状态快照
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	routes := make([]*xroute.Route, 0, len(p.routes))
	for _, r := range p.routes {
		routes = append(routes, r)
	}
	stats := Stats{
		Total:     len(routes),
		Countries: len(p.byCountry),
		Strategy:  p.strategy.Name(),
		Enabled:   p.enabled,
	}
	p.mu.Unlock()

	for _, r := range routes {
		switch r.Status() {
		case xroute.StatusHealthy:
			stats.Healthy++
		case xroute.StatusDegraded:
			stats.Degraded++
		case xroute.StatusUnhealthy:
			stats.Unhealthy++
		case xroute.StatusBanned:
			stats.Banned++
		default:
			stats.Unknown++
		}
	}
	return stats
}

// Snapshots 返回全部路由的状态快照，按注册顺序排列
func (p *Pool) Snapshots() []xroute.Snapshot {
	p.mu.Lock()
	routes := make([]*xroute.Route, 0, len(p.order))
	for _, id := range p.order {
		if r, ok := p.routes[id]; ok {
			routes = append(routes, r)
		}
	}
	p.mu.Unlock()

	snaps := make([]xroute.Snapshot, 0, len(routes))
	for _, r := range routes {
		snaps = append(snaps, r.Snapshot())
	}
	return snaps
}
