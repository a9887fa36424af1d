// Package governance 提供请求治理门面相关的子包。
//
// 子包列表：
//   - xadmit: 组合限速治理器、路由池与熔断器的统一入口
package governance
