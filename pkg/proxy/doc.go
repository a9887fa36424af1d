// Package proxy 提供上游路由（代理出口）管理相关的子包。
//
// 子包列表：
//   - xroute: 单条路由的配置、健康状态与延迟统计
//   - xrotate: 路由选择策略（轮询、随机、最少使用、最佳性能）
//   - xpool: 路由池，维护注册表、国家索引与自动剔除
//
// 设计原则：
//   - 无可用路由是正常结果（返回 nil），不是错误
//   - 凭据只出现在 URL 渲染结果中，永不进入日志与快照
package proxy
