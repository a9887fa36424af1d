// Package xroute 提供上游路由（代理）记录及其健康状态机。
//
// # 核心概念
//
//   - Route：一条上游路径的记录，含累计计数、EMA 延迟、连续失败数、健康状态
//   - Status：健康状态枚举 {Unknown, Healthy, Degraded, Unhealthy, Banned}
//
// # 状态机
//
//   - Unknown → Healthy：首次成功
//   - Healthy → Degraded：上次成功后的首次失败
//   - Degraded → Unhealthy：连续失败达到 3 次
//   - 任意状态 → Banned：失败被显式标记为封禁信号，封禁期默认 1 小时
//   - Banned → Unknown：封禁到期后在可用性查询时惰性转出（无后台定时器）
//   - 任意状态 → Healthy：任意成功（封禁生效期内除外），连续失败数归零
//
// 延迟按 α=0.3 的指数移动平均跟踪，首个样本直接作为初值。
//
// # 并发安全
//
// 每条 Route 由自身互斥锁保护，状态转移与计数更新原子完成。
package xroute
