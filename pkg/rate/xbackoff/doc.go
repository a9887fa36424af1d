// Package xbackoff 提供带抖动的指数退避控制器。
//
// # 设计理念
//
// 控制器自身维护失败次数状态：失败递增、成功归零。延迟计算为
//
//	delay = min(base * multiplier^attempts, maxDelay) ± jitter
//
// 抖动在钳制到 maxDelay 之后施加，因此实际延迟至多超出上限
// jitter 比例；延迟永远非负。
//
// # 快速开始
//
//	ctrl := xbackoff.New(
//	    xbackoff.WithBaseDelay(time.Second),
//	    xbackoff.WithMaxDelay(5*time.Minute),
//	)
//
//	ctrl.RecordFailure()
//	time.Sleep(ctrl.NextDelay())
//	// 请求成功后
//	ctrl.RecordSuccess()
//
// # 并发安全
//
// 所有操作通过实例内的互斥锁串行化。
package xbackoff
