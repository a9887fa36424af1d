// Package rate 提供客户端限速相关的子包。
//
// 子包列表：
//   - xwindow: 滑动窗口计数器
//   - xbackoff: 指数退避控制器
//   - xgovernor: 按端点模式的自适应限速治理器
//
// 设计原则：
//   - 非阻塞：所有决策返回"建议等待时长"，等待由调用方执行
//   - 各结构自带锁，锁内不跨组件调用
package rate
