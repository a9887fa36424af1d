package xpool

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// 指标名称常量
const (
	// metricNameSelectionsTotal 路由选择次数计数器
	metricNameSelectionsTotal = "xpool.selections.total"
	// metricNameOutcomesTotal 结果上报计数器
	metricNameOutcomesTotal = "xpool.outcomes.total"
	// metricNameRemovalsTotal 自动移除次数计数器
	metricNameRemovalsTotal = "xpool.removals.total"
)

// Metrics 路由池指标收集器
type Metrics struct {
	selectionsTotal metric.Int64Counter
	outcomesTotal   metric.Int64Counter
	removalsTotal   metric.Int64Counter
}

// NewMetrics 创建指标收集器
// 如果 meterProvider 为 nil，返回 nil（不收集指标）。
func NewMetrics(meterProvider metric.MeterProvider) (*Metrics, error) {
	if meterProvider == nil {
		return nil, nil
	}

	meter := meterProvider.Meter("xpool",
		metric.WithInstrumentationVersion("1.0.0"),
	)

	selectionsTotal, err := meter.Int64Counter(
		metricNameSelectionsTotal,
		metric.WithDescription("路由选择次数"),
		metric.WithUnit("{selection}"),
	)
	if err != nil {
		return nil, err
	}

	outcomesTotal, err := meter.Int64Counter(
		metricNameOutcomesTotal,
		metric.WithDescription("结果上报次数"),
		metric.WithUnit("{report}"),
	)
	if err != nil {
		return nil, err
	}

	removalsTotal, err := meter.Int64Counter(
		metricNameRemovalsTotal,
		metric.WithDescription("连续失败触发的自动移除次数"),
		metric.WithUnit("{route}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		selectionsTotal: selectionsTotal,
		outcomesTotal:   outcomesTotal,
		removalsTotal:   removalsTotal,
	}, nil
}

// RecordSelection 记录一次路由选择
// picked 表示是否选出了路由（false 为无可用路由）。
func (m *Metrics) RecordSelection(ctx context.Context, strategy string, picked bool) {
	if m == nil {
		return
	}
	m.selectionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("strategy", strategy),
		attribute.Bool("picked", picked),
	))
}

// RecordOutcome 记录一次结果上报
func (m *Metrics) RecordOutcome(ctx context.Context, success, ban bool) {
	if m == nil {
		return
	}
	m.outcomesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("success", success),
		attribute.Bool("ban", ban),
	))
}

// RecordRemoval 记录一次自动移除
func (m *Metrics) RecordRemoval(ctx context.Context) {
	if m == nil {
		return
	}
	m.removalsTotal.Add(ctx, 1)
}
