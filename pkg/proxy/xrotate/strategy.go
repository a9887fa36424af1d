package xrotate

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/omeyang/xgovern/pkg/proxy/xroute"
)

// Name 策略名称，用于配置文件选择策略
type Name string

// 内置策略名称
const (
	StrategyRoundRobin      Name = "round_robin"
	StrategyRandom          Name = "random"
	StrategyLeastUsed       Name = "least_used"
	StrategyBestPerformance Name = "best_performance"
)

// Strategy 路由选择策略接口
//
// Pick 从已按可用性过滤的候选集合中选出一条路由。
// 空候选集返回 nil——调用方应将其视为"当前无路由可用"而非错误。
type Strategy interface {
	// Pick 选择一条路由
	Pick(available []*xroute.Route) *xroute.Route

	// Name 返回策略名称
	Name() Name
}

// NewStrategy 按名称创建策略实例
//
// 名称无法识别时返回 [ErrUnknownStrategy]。
func NewStrategy(name Name) (Strategy, error) {
	switch name {
	case StrategyRoundRobin, "":
		return NewRoundRobin(), nil
	case StrategyRandom:
		return NewRandom(), nil
	case StrategyLeastUsed:
		return NewLeastUsed(), nil
	case StrategyBestPerformance:
		return NewBestPerformance(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// RoundRobin 循环轮换策略
//
// 游标为策略实例全局，每次选择后推进；候选集大小变化时按模回绕。
type RoundRobin struct {
	mu    sync.Mutex
	index int
}

// NewRoundRobin 创建循环轮换策略
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

func (s *RoundRobin) Pick(available []*xroute.Route) *xroute.Route {
	if len(available) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r := available[s.index%len(available)]
	s.index++
	return r
}

func (s *RoundRobin) Name() Name { return StrategyRoundRobin }

// Random 均匀随机策略
type Random struct{}

// NewRandom 创建均匀随机策略
func NewRandom() *Random {
	return &Random{}
}

func (s *Random) Pick(available []*xroute.Route) *xroute.Route {
	if len(available) == 0 {
		return nil
	}
	return available[rand.IntN(len(available))]
}

func (s *Random) Name() Name { return StrategyRandom }

// LeastUsed 最少使用策略
//
// 取累计请求数最小的路由，平局时取迭代顺序中的首个，保证确定性。
type LeastUsed struct{}

// NewLeastUsed 创建最少使用策略
func NewLeastUsed() *LeastUsed {
	return &LeastUsed{}
}

func (s *LeastUsed) Pick(available []*xroute.Route) *xroute.Route {
	if len(available) == 0 {
		return nil
	}

	best := available[0]
	bestCount := best.RequestCount()
	for _, r := range available[1:] {
		if c := r.RequestCount(); c < bestCount {
			best = r
			bestCount = c
		}
	}
	return best
}

func (s *LeastUsed) Name() Name { return StrategyLeastUsed }

// BestPerformance 最佳性能策略
//
// score = 0.7 * 成功率*100 + 0.3 * max(0, 100 - EMA延迟秒数*10)，取最高。
// 无请求记录的路由成功率按 0 计。
type BestPerformance struct{}

// NewBestPerformance 创建最佳性能策略
func NewBestPerformance() *BestPerformance {
	return &BestPerformance{}
}

func (s *BestPerformance) Pick(available []*xroute.Route) *xroute.Route {
	if len(available) == 0 {
		return nil
	}

	best := available[0]
	bestScore := score(best)
	for _, r := range available[1:] {
		if sc := score(r); sc > bestScore {
			best = r
			bestScore = sc
		}
	}
	return best
}

func (s *BestPerformance) Name() Name { return StrategyBestPerformance }

func score(r *xroute.Route) float64 {
	successScore := r.SuccessRate() * 100
	timeScore := 100 - r.AvgLatency().Seconds()*10
	if timeScore < 0 {
		timeScore = 0
	}
	return 0.7*successScore + 0.3*timeScore
}

// 确保实现了接口
var (
	_ Strategy = (*RoundRobin)(nil)
	_ Strategy = (*Random)(nil)
	_ Strategy = (*LeastUsed)(nil)
	_ Strategy = (*BestPerformance)(nil)
)
