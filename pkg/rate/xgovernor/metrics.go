package xgovernor

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// 指标名称常量
const (
	// metricNameDecisionsTotal 等待决策计数器
	metricNameDecisionsTotal = "xgovernor.decisions.total"
	// metricNameWaitSeconds 等待时长直方图
	metricNameWaitSeconds = "xgovernor.wait.seconds"
	// metricNameRequestsTotal 已记录请求计数器
	metricNameRequestsTotal = "xgovernor.requests.total"
	// metricNameRejectionsTotal 上游拒绝计数器
	metricNameRejectionsTotal = "xgovernor.rejections.total"
	// metricNameFeedbackTotal 配额反馈计数器
	metricNameFeedbackTotal = "xgovernor.feedback.total"
)

// 决策原因，作为指标属性上报
const (
	reasonNone    = "none"
	reasonQuota   = "quota"
	reasonWindow  = "window"
	reasonBackoff = "backoff"
)

// Metrics 治理器指标收集器
type Metrics struct {
	decisionsTotal  metric.Int64Counter
	waitSeconds     metric.Float64Histogram
	requestsTotal   metric.Int64Counter
	rejectionsTotal metric.Int64Counter
	feedbackTotal   metric.Int64Counter
}

// NewMetrics 创建指标收集器
// 如果 meterProvider 为 nil，返回 nil（不收集指标）。
func NewMetrics(meterProvider metric.MeterProvider) (*Metrics, error) {
	if meterProvider == nil {
		return nil, nil
	}

	meter := meterProvider.Meter("xgovernor",
		metric.WithInstrumentationVersion("1.0.0"),
	)

	decisionsTotal, err := meter.Int64Counter(
		metricNameDecisionsTotal,
		metric.WithDescription("等待决策次数"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}

	waitSeconds, err := meter.Float64Histogram(
		metricNameWaitSeconds,
		metric.WithDescription("建议等待时长"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestsTotal, err := meter.Int64Counter(
		metricNameRequestsTotal,
		metric.WithDescription("已记录的请求次数"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	rejectionsTotal, err := meter.Int64Counter(
		metricNameRejectionsTotal,
		metric.WithDescription("上游拒绝次数"),
		metric.WithUnit("{rejection}"),
	)
	if err != nil {
		return nil, err
	}

	feedbackTotal, err := meter.Int64Counter(
		metricNameFeedbackTotal,
		metric.WithDescription("配额反馈次数"),
		metric.WithUnit("{feedback}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		decisionsTotal:  decisionsTotal,
		waitSeconds:     waitSeconds,
		requestsTotal:   requestsTotal,
		rejectionsTotal: rejectionsTotal,
		feedbackTotal:   feedbackTotal,
	}, nil
}

// RecordDecision 记录一次等待决策
func (m *Metrics) RecordDecision(ctx context.Context, pattern, reason string, wait time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("pattern", pattern),
		attribute.String("reason", reason),
	)
	m.decisionsTotal.Add(ctx, 1, attrs)
	if wait > 0 {
		m.waitSeconds.Record(ctx, wait.Seconds(), attrs)
	}
}

// RecordRequest 记录一次已发出的请求
func (m *Metrics) RecordRequest(ctx context.Context, pattern string) {
	if m == nil {
		return
	}
	m.requestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("pattern", pattern),
	))
}

// RecordRejection 记录一次上游拒绝
func (m *Metrics) RecordRejection(ctx context.Context, pattern string) {
	if m == nil {
		return
	}
	m.rejectionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("pattern", pattern),
	))
}

// RecordFeedback 记录一次配额反馈
// accepted 表示反馈是否通过校验被采纳。
func (m *Metrics) RecordFeedback(ctx context.Context, pattern string, accepted bool) {
	if m == nil {
		return
	}
	m.feedbackTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("pattern", pattern),
		attribute.Bool("accepted", accepted),
	))
}
