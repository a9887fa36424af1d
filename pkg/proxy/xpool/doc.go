// Package xpool 提供线程安全的上游路由池。
//
// # 设计理念
//
// 池持有全部路由记录，按配置的策略（xrotate）分发选择请求，
// 并根据成败上报执行移除策略：连续失败达到阈值的路由被整体移出池，
// 而不是仅标记为不健康——持续劣化的路由应被剪除，而非无限重试。
//
// # 核心概念
//
//   - AddRoute/RemoveRoute：注册与注销，同一 host:port 重复注册即覆盖
//   - Get：按策略取一条可用路由，可选按国家过滤；无可用路由返回 nil
//   - ReportOutcome：上报请求结果，驱动健康状态机与移除策略
//
// # 快速开始
//
//	pool, err := xpool.New(
//	    xpool.WithStrategyName(xrotate.StrategyRoundRobin),
//	    xpool.WithRemovalThreshold(5),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	id, _ := pool.AddRoute(xroute.Config{Host: "proxy1.example.com", Port: 8080})
//	if r := pool.Get(""); r != nil {
//	    // 经 r.URL() 发起请求
//	    pool.ReportOutcome(r.ID(), true, 120*time.Millisecond, false)
//	}
//	_ = id
//
// # 并发安全
//
// 池级互斥锁只保护注册表与索引；路由自身的状态由各自的锁保护。
// 策略选择在池锁之外进行，避免跨组件持锁。
package xpool
