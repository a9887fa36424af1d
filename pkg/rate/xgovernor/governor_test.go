package xgovernor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/goleak"

	"github.com/omeyang/xgovern/pkg/rate/xbackoff"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeClock 可手动推进的测试时钟
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

// newTestGovernor 创建注入了假时钟的治理器
func newTestGovernor(t *testing.T, opts ...Option) (*Governor, *fakeClock) {
	t.Helper()
	g, err := New(opts...)
	require.NoError(t, err)
	clock := newFakeClock()
	g.now = clock.Now
	return g, clock
}

func TestNew(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		g, err := New()
		require.NoError(t, err)
		cfg := g.Config()
		assert.InDelta(t, DefaultSafetyBuffer, cfg.SafetyBuffer, 1e-9)
		assert.Equal(t, 300, cfg.PolicyFor("/tweets").Limit)
		assert.Equal(t, 50, cfg.PolicyFor("/graphql").Limit)
		assert.Equal(t, 300, cfg.PolicyFor("/no-such-pattern").Limit)
	})

	t.Run("InvalidBuffer", func(t *testing.T) {
		_, err := New(WithSafetyBuffer(1.5))
		assert.ErrorIs(t, err, ErrInvalidBuffer)
	})

	t.Run("InvalidPolicy", func(t *testing.T) {
		_, err := New(WithPolicy("/tweets", Policy{Limit: 0, Window: time.Minute}))
		assert.ErrorIs(t, err, ErrInvalidPolicy)
	})

	t.Run("InvalidCapacity", func(t *testing.T) {
		_, err := New(WithPatternCapacity(-1))
		assert.ErrorIs(t, err, ErrInvalidCapacity)
	})
}

func TestWaitTime(t *testing.T) {
	t.Run("ColdStart", func(t *testing.T) {
		g, _ := newTestGovernor(t)
		assert.Equal(t, time.Duration(0), g.WaitTime("/tweets/123"))
		assert.True(t, g.CanProceed("/tweets/123"))
	})

	t.Run("WindowLimitReached", func(t *testing.T) {
		g, clock := newTestGovernor(t)

		// 有效上限 = 300 * 0.9 = 270
		for i := 0; i < 269; i++ {
			g.RecordRequest("/tweets/123")
		}
		assert.Equal(t, time.Duration(0), g.WaitTime("/tweets/123"))

		g.RecordRequest("/tweets/123")
		wait := g.WaitTime("/tweets/123")
		assert.Greater(t, wait, time.Duration(0))
		assert.LessOrEqual(t, wait, 15*time.Minute)

		// 窗口滑过后恢复
		clock.Advance(15*time.Minute + time.Second)
		assert.Equal(t, time.Duration(0), g.WaitTime("/tweets/123"))
	})

	t.Run("WindowLimitCappedAtWindow", func(t *testing.T) {
		g, _ := newTestGovernor(t,
			WithPolicy("/search", Policy{Limit: 10, Window: time.Minute}),
			WithSafetyBuffer(0.5),
		)

		// 有效上限 5，一次性打满远超上限
		for i := 0; i < 100; i++ {
			g.RecordRequest("/search")
		}
		wait := g.WaitTime("/search")
		assert.Greater(t, wait, time.Duration(0))
		assert.LessOrEqual(t, wait, time.Minute)
	})

	t.Run("QuotaExhausted", func(t *testing.T) {
		g, clock := newTestGovernor(t)
		resetAt := clock.Now().Add(2 * time.Minute)

		g.IngestFeedback("/tweets/123", 300, 0, resetAt)
		assert.Equal(t, 2*time.Minute, g.WaitTime("/tweets/123"))

		// 快照过期后恢复
		clock.Advance(2*time.Minute + time.Second)
		assert.Equal(t, time.Duration(0), g.WaitTime("/tweets/123"))
	})

	t.Run("QuotaWithRemainingDoesNotWait", func(t *testing.T) {
		g, clock := newTestGovernor(t)
		g.IngestFeedback("/tweets/1", 300, 42, clock.Now().Add(time.Minute))
		assert.Equal(t, time.Duration(0), g.WaitTime("/tweets/1"))
	})

	t.Run("QuotaTakesPriorityOverWindow", func(t *testing.T) {
		g, clock := newTestGovernor(t)
		for i := 0; i < 300; i++ {
			g.RecordRequest("/tweets/1")
		}
		g.IngestFeedback("/tweets/1", 300, 0, clock.Now().Add(7*time.Minute))

		assert.Equal(t, 7*time.Minute, g.WaitTime("/tweets/1"))
	})

	t.Run("RecentRejectionBacksOff", func(t *testing.T) {
		backoff := xbackoff.New(
			xbackoff.WithBaseDelay(2*time.Second),
			xbackoff.WithJitter(0),
		)
		g, clock := newTestGovernor(t, WithBackoff(backoff))

		g.RecordRejection("/tweets/1")
		assert.Equal(t, 4*time.Second, g.WaitTime("/tweets/1")) // 2s * 2^1

		g.RecordRejection("/tweets/1")
		assert.Equal(t, 8*time.Second, g.WaitTime("/tweets/1")) // 2s * 2^2

		// 拒绝窗口过后不再退避
		clock.Advance(time.Minute + time.Second)
		assert.Equal(t, time.Duration(0), g.WaitTime("/tweets/1"))
	})

	t.Run("RequestResetsBackoff", func(t *testing.T) {
		backoff := xbackoff.New(
			xbackoff.WithBaseDelay(2*time.Second),
			xbackoff.WithJitter(0),
		)
		g, _ := newTestGovernor(t, WithBackoff(backoff))

		g.RecordRejection("/tweets/1")
		g.RecordRejection("/tweets/1")
		g.RecordRequest("/tweets/1")

		// 退避归零但拒绝仍在窗口内，回到基础档位
		assert.Equal(t, 2*time.Second, g.WaitTime("/tweets/1"))
	})

	t.Run("PatternsIndependent", func(t *testing.T) {
		g, _ := newTestGovernor(t,
			WithPolicy("/search", Policy{Limit: 2, Window: time.Minute}),
			WithSafetyBuffer(0),
		)

		g.RecordRequest("/search?q=a")
		g.RecordRequest("/search?q=b")
		assert.Greater(t, g.WaitTime("/search?q=c"), time.Duration(0))
		assert.Equal(t, time.Duration(0), g.WaitTime("/tweets/1"))
	})
}

func TestIngestFeedback(t *testing.T) {
	t.Run("MalformedDropped", func(t *testing.T) {
		g, clock := newTestGovernor(t)
		resetAt := clock.Now().Add(time.Minute)

		g.IngestFeedback("/tweets/1", 0, 0, resetAt)    // limit 非正
		g.IngestFeedback("/tweets/1", 300, -1, resetAt) // remaining 为负
		g.IngestFeedback("/tweets/1", 300, 0, time.Time{})

		assert.Equal(t, time.Duration(0), g.WaitTime("/tweets/1"))
		assert.Equal(t, 300, g.RemainingQuota("/tweets/1"))
	})

	t.Run("LastWriteWins", func(t *testing.T) {
		g, clock := newTestGovernor(t)
		resetAt := clock.Now().Add(time.Minute)

		g.IngestFeedback("/tweets/1", 300, 100, resetAt)
		g.IngestFeedback("/tweets/1", 300, 7, resetAt)
		assert.Equal(t, 7, g.RemainingQuota("/tweets/1"))
	})
}

func TestRemainingQuota(t *testing.T) {
	t.Run("LiveSnapshotWins", func(t *testing.T) {
		g, clock := newTestGovernor(t)
		g.RecordRequest("/tweets/1")
		g.IngestFeedback("/tweets/1", 300, 250, clock.Now().Add(time.Minute))

		assert.Equal(t, 250, g.RemainingQuota("/tweets/1"))
	})

	t.Run("FallsBackToLocalEstimate", func(t *testing.T) {
		g, clock := newTestGovernor(t)
		g.IngestFeedback("/tweets/1", 300, 250, clock.Now().Add(time.Minute))
		for i := 0; i < 10; i++ {
			g.RecordRequest("/tweets/1")
		}

		clock.Advance(2 * time.Minute)
		assert.Equal(t, 290, g.RemainingQuota("/tweets/1"))
	})
}

func TestApplyConfig(t *testing.T) {
	t.Run("InvalidRejected", func(t *testing.T) {
		g, _ := newTestGovernor(t)
		bad := DefaultConfig()
		bad.SafetyBuffer = 2

		assert.ErrorIs(t, g.ApplyConfig(bad), ErrInvalidBuffer)
		assert.InDelta(t, DefaultSafetyBuffer, g.Config().SafetyBuffer, 1e-9)
	})

	t.Run("LimitChangeKeepsCounts", func(t *testing.T) {
		g, _ := newTestGovernor(t)
		for i := 0; i < 9; i++ {
			g.RecordRequest("/tweets/1")
		}

		cfg := g.Config()
		cfg.Policies["/tweets"] = Policy{Limit: 10, Window: 15 * time.Minute}
		require.NoError(t, g.ApplyConfig(cfg))

		// 计数保留：9 >= 有效上限 10*0.9=9
		assert.Greater(t, g.WaitTime("/tweets/1"), time.Duration(0))
	})

	t.Run("WindowChangeRebuildsCounter", func(t *testing.T) {
		g, _ := newTestGovernor(t)
		for i := 0; i < 300; i++ {
			g.RecordRequest("/tweets/1")
		}
		require.Greater(t, g.WaitTime("/tweets/1"), time.Duration(0))

		cfg := g.Config()
		cfg.Policies["/tweets"] = Policy{Limit: 300, Window: 5 * time.Minute}
		require.NoError(t, g.ApplyConfig(cfg))

		// 窗口变化丢弃旧计数
		assert.Equal(t, time.Duration(0), g.WaitTime("/tweets/1"))
	})
}

func TestReset(t *testing.T) {
	g, clock := newTestGovernor(t)

	for i := 0; i < 300; i++ {
		g.RecordRequest("/tweets/1")
	}
	g.RecordRejection("/tweets/1")
	g.IngestFeedback("/tweets/1", 300, 0, clock.Now().Add(time.Hour))
	require.Greater(t, g.WaitTime("/tweets/1"), time.Duration(0))

	g.Reset()

	assert.Equal(t, time.Duration(0), g.WaitTime("/tweets/1"))
	assert.Equal(t, 300, g.RemainingQuota("/tweets/1"))
	assert.Equal(t, 0, g.backoff.Attempts())
}

func TestStats(t *testing.T) {
	g, clock := newTestGovernor(t)

	g.RecordRequest("/users/1")
	g.RecordRequest("/tweets/1")
	g.RecordRequest("/tweets/2")
	g.IngestFeedback("/tweets/1", 300, 200, clock.Now().Add(time.Minute))
	g.RecordRejection("/search")

	stats := g.Stats()
	assert.True(t, stats.RecentRejection)
	assert.Equal(t, 1, stats.BackoffAttempts)
	require.Len(t, stats.Patterns, 2)

	// 字典序：/tweets 在 /users 之前
	tweets, users := stats.Patterns[0], stats.Patterns[1]
	assert.Equal(t, "/tweets", tweets.Pattern)
	assert.Equal(t, 2, tweets.Count)
	assert.Equal(t, 270, tweets.EffectiveLimit)
	assert.Equal(t, 200, tweets.QuotaRemaining)
	assert.Equal(t, "/users", users.Pattern)
	assert.Equal(t, -1, users.QuotaRemaining)
}

func TestPatternCapacityEviction(t *testing.T) {
	g, _ := newTestGovernor(t, WithPatternCapacity(2))

	g.RecordRequest("/tweets/1")
	g.RecordRequest("/users/1")
	g.RecordRequest("/search?q=x")

	assert.LessOrEqual(t, len(g.Stats().Patterns), 2)
}

func TestConcurrentUse(t *testing.T) {
	g, _ := newTestGovernor(t)

	var wg sync.WaitGroup
	endpoints := []string{"/tweets/1", "/users/2", "/search?q=go", "/lists/9"}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				ep := endpoints[(i+j)%len(endpoints)]
				if g.WaitTime(ep) == 0 {
					g.RecordRequest(ep)
				}
				g.IngestFeedback(ep, 300, 100, time.Now().Add(time.Minute))
				_ = g.RemainingQuota(ep)
			}
		}(i)
	}
	wg.Wait()

	assert.NotEmpty(t, g.Stats().Patterns)
}

func TestMetricsRecorded(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	g, err := New(WithMeterProvider(mp))
	require.NoError(t, err)

	g.RecordRequest("/tweets/1")
	_ = g.WaitTime("/tweets/1")
	g.RecordRejection("/tweets/1")
	g.IngestFeedback("/tweets/1", 300, 10, time.Now().Add(time.Minute))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.NotEmpty(t, rm.ScopeMetrics)

	names := make(map[string]bool)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	assert.True(t, names[metricNameRequestsTotal])
	assert.True(t, names[metricNameDecisionsTotal])
	assert.True(t, names[metricNameRejectionsTotal])
	assert.True(t, names[metricNameFeedbackTotal])
}
