package xbackoff

import (
	"crypto/rand"
	"encoding/binary"
	"math"
	"sync"
	"time"
)

// Controller 指数退避控制器
//
// 跟踪连续失败次数并据此计算下一次延迟。
// 失败次数只在 RecordFailure 时递增，RecordSuccess/Reset 时归零，
// 进程重启后不保留。
type Controller struct {
	mu         sync.Mutex
	baseDelay  time.Duration
	maxDelay   time.Duration
	multiplier float64
	jitter     float64
	attempts   int
}

// Option 控制器配置选项
type Option func(*Controller)

// WithBaseDelay 设置基础延迟
// 非正值被忽略（保持默认值 1s）。
func WithBaseDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.baseDelay = d
		}
	}
}

// WithMaxDelay 设置最大延迟
// 非正值被忽略（保持默认值 5m）。
func WithMaxDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.maxDelay = d
		}
	}
}

// WithMultiplier 设置乘数因子（>= 1.0）
// 传入 1.0 表示固定延迟（无指数增长），小于 1.0 的值被忽略。
func WithMultiplier(m float64) Option {
	return func(c *Controller) {
		if m >= 1 {
			c.multiplier = m
		}
	}
}

// WithJitter 设置抖动因子，钳制到 [0, 1]
func WithJitter(j float64) Option {
	return func(c *Controller) {
		if j < 0 {
			j = 0
		} else if j > 1 {
			j = 1
		}
		c.jitter = j
	}
}

// New 创建退避控制器
//
// 默认值：
//   - baseDelay: 1s
//   - maxDelay: 5m
//   - multiplier: 2.0
//   - jitter: 0.1 (10%)
func New(opts ...Option) *Controller {
	c := &Controller{
		baseDelay:  time.Second,
		maxDelay:   5 * time.Minute,
		multiplier: 2.0,
		jitter:     0.1,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxDelay < c.baseDelay {
		c.maxDelay = c.baseDelay
	}
	return c
}

// NextDelay 计算当前失败次数对应的延迟
//
// 先按 min(base * multiplier^attempts, maxDelay) 钳制，再施加对称抖动，
// 因此结果至多为 maxDelay * (1 + jitter)，且永远非负。
func (c *Controller) NextDelay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	delay := float64(c.baseDelay) * math.Pow(c.multiplier, float64(c.attempts))

	// attempts 极大时 math.Pow 溢出为 +Inf，NaN/负数一律按已达上限处理
	if math.IsNaN(delay) || delay < 0 || delay >= float64(c.maxDelay) {
		delay = float64(c.maxDelay)
	}

	if c.jitter > 0 {
		delay += delay * (randomFloat64()*2 - 1) * c.jitter
	}

	if delay < 0 {
		return 0
	}
	return time.Duration(delay)
}

// RecordFailure 记录一次失败，失败次数加一
func (c *Controller) RecordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts++
}

// RecordSuccess 记录一次成功，失败次数归零
func (c *Controller) RecordSuccess() {
	c.Reset()
}

// Reset 重置退避状态
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts = 0
}

// Attempts 返回当前失败次数
func (c *Controller) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

const (
	floatBits  = 53
	floatScale = 1.0 / (1 << floatBits)
)

// randomFloat64 返回 [0, 1) 内的随机数
func randomFloat64() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand 失败时返回 0，意味着无抖动（安全默认值）
		return 0
	}
	return float64(binary.LittleEndian.Uint64(buf[:])>>11) * floatScale
}
