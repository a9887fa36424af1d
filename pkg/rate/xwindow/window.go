package xwindow

import (
	"sync"
	"time"
)

// defaultSubBuckets 默认子桶数量
// 窗口划分为 window/15 粒度的子桶，和上游 API 的 15 分钟窗口对齐时
// 每个子桶恰好覆盖 1 分钟。
const defaultSubBuckets = 15

// bucket 一个子时间片内的请求计数
type bucket struct {
	start time.Time
	count int
}

// Counter 滑动窗口计数器
//
// 记录尾随窗口内的事件数量。过期子桶在每次读写前被剔除，
// 因此任何时刻观测到的样本时间戳都落在 [now-window, now] 内。
type Counter struct {
	mu      sync.Mutex
	window  time.Duration
	span    time.Duration // 单个子桶覆盖的时间片
	buckets []bucket      // 按时间升序
	now     func() time.Time
}

// Option 计数器配置选项
type Option func(*Counter)

// WithSubBuckets 设置子桶数量
// 子桶越多精度越高、内存越大。非正值被忽略（保持默认值 15）。
func WithSubBuckets(n int) Option {
	return func(c *Counter) {
		if n > 0 {
			c.span = c.window / time.Duration(n)
		}
	}
}

// WithTimeSource 设置时间源，主要用于测试
// nil 被忽略（保持 time.Now）。
func WithTimeSource(now func() time.Time) Option {
	return func(c *Counter) {
		if now != nil {
			c.now = now
		}
	}
}

// New 创建滑动窗口计数器
//
// window 为窗口长度，必须为正，否则返回 [ErrInvalidWindow]。
func New(window time.Duration, opts ...Option) (*Counter, error) {
	if window <= 0 {
		return nil, ErrInvalidWindow
	}

	c := &Counter{
		window: window,
		span:   window / defaultSubBuckets,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	// 极短窗口下 window/n 可能截断为 0，退化为每次 Record 一个子桶
	if c.span <= 0 {
		c.span = 1
	}
	return c, nil
}

// Record 记录 n 个发生在"当前时刻"的事件
// n <= 0 时为空操作。
func (c *Counter) Record(n int) {
	if n <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.prune(now)

	// 当前时刻仍落在最后一个子桶的时间片内时合并计数，否则开新桶
	if len(c.buckets) > 0 {
		last := &c.buckets[len(c.buckets)-1]
		if now.Sub(last.start) < c.span {
			last.count += n
			return
		}
	}
	c.buckets = append(c.buckets, bucket{start: now, count: n})
}

// Count 返回窗口内的事件总数
func (c *Counter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.prune(c.now())

	total := 0
	for _, b := range c.buckets {
		total += b.count
	}
	return total
}

// Rate 返回窗口内的平均速率（事件/秒）
func (c *Counter) Rate() float64 {
	return float64(c.Count()) / c.window.Seconds()
}

// Window 返回窗口长度
func (c *Counter) Window() time.Duration {
	return c.window
}

// Reset 清空所有计数
func (c *Counter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buckets = c.buckets[:0]
}

// prune 剔除起始时间早于 now-window 的子桶
// 调用方必须持有 c.mu。
func (c *Counter) prune(now time.Time) {
	cutoff := now.Add(-c.window)
	i := 0
	for i < len(c.buckets) && c.buckets[i].start.Before(cutoff) {
		i++
	}
	if i > 0 {
		c.buckets = append(c.buckets[:0], c.buckets[i:]...)
	}
}
