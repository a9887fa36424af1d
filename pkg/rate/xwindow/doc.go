// Package xwindow 提供滑动窗口计数器，用于统计单个逻辑端点在
// 尾随时间窗口内的请求量。
//
// # 设计理念
//
// 与固定窗口计数器不同，滑动窗口不受时钟边界影响，统计结果更平滑。
// 内部将窗口划分为固定数量的子桶（默认 15 个），以常数内存换取
// 桶粒度的近似精度——准入决策只需要粗粒度的计数，这是可接受的取舍。
//
// # 核心概念
//
//   - Counter：滑动窗口计数器，Record/Count/Rate 三个操作
//   - 子桶：窗口内的固定时间分片，过期子桶在每次读写前被剔除
//
// # 快速开始
//
//	counter, err := xwindow.New(15 * time.Minute)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	counter.Record(1)
//	if counter.Count() >= 270 {
//	    // 接近配额，延迟请求
//	}
//
// # 并发安全
//
// 所有读写操作通过实例内的互斥锁串行化，临界区为 O(子桶数)。
package xwindow
