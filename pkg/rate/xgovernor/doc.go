// Package xgovernor 提供按端点模式自适应限速的治理引擎。
//
// # 设计理念
//
// 治理器为每个端点模式维护一个滑动窗口计数器（xwindow），结合上游
// 反馈的配额快照与退避控制器（xbackoff），对"现在能否发请求、
// 需要等多久"给出非阻塞决策。治理器自身从不 sleep——等待时长
// 由调用方在自己的并发上下文中消化。
//
// # 决策顺序（WaitTime）
//
//  1. 存在存活的配额快照且 remaining <= 0：等到快照的重置时刻
//  2. 窗口计数达到有效上限（配置上限 × (1-安全余量)）：按当前速率
//     估算旧事件滑出窗口所需时间，上限为窗口长度；速率为 0 时等满窗口
//  3. 最近 60 秒内出现过上游拒绝：按退避控制器给出延迟
//  4. 否则无需等待
//
// # 核心概念
//
//   - 端点模式：请求路径的首段（如 /tweets/123 → /tweets），策略按模式配置
//   - 配额快照：上游响应头报告的 (limit, remaining, reset)，存活期内
//     优先于本地估算，过期即失效，写入为后写覆盖
//   - 拒绝信号：上游显式返回"请求过多"，触发有界时间内的退避
//
// # 快速开始
//
//	gov, err := xgovernor.New(
//	    xgovernor.WithLogger(logger),
//	    xgovernor.WithMeterProvider(meterProvider),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if wait := gov.WaitTime("/tweets/123"); wait > 0 {
//	    select {
//	    case <-time.After(wait):
//	    case <-ctx.Done():
//	        return ctx.Err()
//	    }
//	}
//	// 发起请求后
//	gov.RecordRequest("/tweets/123")
//	gov.IngestFeedback("/tweets/123", limit, remaining, resetAt)
//
// # 配置热更新
//
// 策略可从 YAML/JSON 文件加载（LoadConfigFile），并通过 FileProvider
// 监视文件变更热更新（ApplyConfig）。
//
// # 错误语义
//
// 运行期状况（配额耗尽、拒绝、未识别模式）一律是返回值，不是错误；
// 只有构造期的配置错误会失败。畸形反馈被静默忽略（仅记录 Debug 日志）。
package xgovernor
