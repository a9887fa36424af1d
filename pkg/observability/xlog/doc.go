// Package xlog 提供基于 log/slog 的结构化日志能力。
//
// # 设计理念
//
//   - 强制 context 传递，方法签名只接受 slog.Attr，保证类型安全
//   - 动态级别控制：共享 slog.LevelVar，运行时调整无需重建
//   - 可选文件轮转：通过 lumberjack 按大小/数量/天数切割
//
// # 快速开始
//
//	logger := xlog.New(
//	    xlog.WithLevel(xlog.LevelInfo),
//	    xlog.WithFormat(xlog.FormatJSON),
//	)
//
//	logger.Info(ctx, "route selected",
//	    slog.String("route_id", id),
//	    slog.String("strategy", "round_robin"),
//	)
//
// # 空实现
//
// 组件未配置日志时使用 Nop()，所有方法为空操作，避免散落的 nil 检查。
package xlog
