// Package xrotate 提供路由轮换选择策略。
//
// # 设计理念
//
// 每种策略实现同一个 Strategy 接口，在构造时选定一次，
// 运行期不再做字符串分发。候选集合由调用方（xpool）按可用性
// 和地理标签过滤后传入；空候选集返回 nil，表示"当前无路由可用"，
// 属正常结果而非错误。
//
// # 内置策略
//
//   - RoundRobin：循环游标，游标为策略全局（跨调用方共享）
//   - Random：均匀随机
//   - LeastUsed：累计请求数最小者，平局取迭代顺序首个
//   - BestPerformance：按成功率与 EMA 延迟加权打分取最高
//
// # 快速开始
//
//	strategy, err := xrotate.NewStrategy(xrotate.StrategyRoundRobin)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	route := strategy.Pick(available)
package xrotate
