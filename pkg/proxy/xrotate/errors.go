package xrotate

import "errors"

// 预定义错误，使用 errors.Is 进行比较
var (
	// ErrUnknownStrategy 表示策略名称无法识别
	ErrUnknownStrategy = errors.New("xrotate: unknown strategy")
)
