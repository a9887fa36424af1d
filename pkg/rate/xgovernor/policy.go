package xgovernor

import (
	"fmt"
	"maps"
	"time"
)

// 默认配置参数
const (
	// DefaultSafetyBuffer 默认安全余量：提前在配置上限的 90% 处减速
	DefaultSafetyBuffer = 0.1
	// DefaultRejectionWindow 拒绝信号的生效时长
	DefaultRejectionWindow = time.Minute
	// DefaultPatternCapacity 计数器缓存的模式容量上限
	DefaultPatternCapacity = 512
)

// Policy 单个端点模式的限速策略
type Policy struct {
	Limit  int           `json:"limit"`  // 窗口内允许的请求上限
	Window time.Duration `json:"window"` // 窗口长度
}

// Validate 校验策略合法性
func (p Policy) Validate() error {
	if p.Limit <= 0 {
		return fmt.Errorf("%w: limit %d", ErrInvalidPolicy, p.Limit)
	}
	if p.Window <= 0 {
		return fmt.Errorf("%w: window %s", ErrInvalidPolicy, p.Window)
	}
	return nil
}

// EffectiveLimit 扣除安全余量后的有效上限（向下取整）
func (p Policy) EffectiveLimit(buffer float64) int {
	return int(float64(p.Limit) * (1 - buffer))
}

// Config 治理器配置
type Config struct {
	// Policies 按模式配置的策略，键为模式（如 "/tweets"）
	Policies map[string]Policy `json:"policies"`
	// Default 未配置模式的兜底策略
	Default Policy `json:"default"`
	// SafetyBuffer 安全余量，取值 [0, 1)
	SafetyBuffer float64 `json:"safety_buffer"`
	// RejectionWindow 拒绝信号触发退避的时间窗口
	RejectionWindow time.Duration `json:"rejection_window"`
	// PatternCapacity 计数器缓存容量，超出后按 LRU 逐出冷门模式
	PatternCapacity int `json:"pattern_capacity"`
}

// DefaultConfig 返回与上游公开限速档位对齐的默认配置
func DefaultConfig() Config {
	return Config{
		Policies: map[string]Policy{
			"/tweets":  {Limit: 300, Window: 15 * time.Minute},
			"/users":   {Limit: 300, Window: 15 * time.Minute},
			"/search":  {Limit: 180, Window: 15 * time.Minute},
			"/lists":   {Limit: 75, Window: 15 * time.Minute},
			"/graphql": {Limit: 50, Window: 15 * time.Minute},
		},
		Default:         Policy{Limit: 300, Window: 15 * time.Minute},
		SafetyBuffer:    DefaultSafetyBuffer,
		RejectionWindow: DefaultRejectionWindow,
		PatternCapacity: DefaultPatternCapacity,
	}
}

// Validate 校验配置合法性
func (c Config) Validate() error {
	for pattern, p := range c.Policies {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w (pattern %q)", err, pattern)
		}
	}
	if err := c.Default.Validate(); err != nil {
		return fmt.Errorf("%w (default)", err)
	}
	if c.SafetyBuffer < 0 || c.SafetyBuffer >= 1 {
		return fmt.Errorf("%w: %v", ErrInvalidBuffer, c.SafetyBuffer)
	}
	if c.RejectionWindow <= 0 {
		return fmt.Errorf("%w: rejection window %s", ErrInvalidPolicy, c.RejectionWindow)
	}
	if c.PatternCapacity <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCapacity, c.PatternCapacity)
	}
	return nil
}

// PolicyFor 返回模式对应的策略，未配置的模式回落到兜底策略
func (c Config) PolicyFor(pattern string) Policy {
	if p, ok := c.Policies[pattern]; ok {
		return p
	}
	return c.Default
}

// clone 返回配置的深拷贝（Policies 为值类型，浅拷贝即深拷贝）
func (c Config) clone() Config {
	out := c
	out.Policies = maps.Clone(c.Policies)
	return out
}
