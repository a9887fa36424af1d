package xadmit

import "errors"

// 预定义错误，使用 errors.Is 进行比较
var (
	// ErrNilGovernor 表示治理器为 nil
	ErrNilGovernor = errors.New("xadmit: governor is nil")

	// ErrNilFunc 表示操作函数为 nil
	ErrNilFunc = errors.New("xadmit: fn is nil")

	// ErrRejected 表示请求被上游限速拒绝
	ErrRejected = errors.New("xadmit: request rejected by upstream")

	// ErrCircuitOpen 表示端点模式的熔断器处于打开状态
	ErrCircuitOpen = errors.New("xadmit: circuit open")

	// ErrWaitExceeded 表示建议等待时长超过了 Execute 的等待上限
	ErrWaitExceeded = errors.New("xadmit: wait time exceeds cap")
)
