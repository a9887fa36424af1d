// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog 扩展
//
// 设计原则：
//   - 指标遵循 OpenTelemetry 语义规范（见各业务包的 metrics.go）
//   - 日志接口 ctx 优先，支持动态级别控制
package observability
