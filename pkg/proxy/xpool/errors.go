package xpool

import "errors"

// 预定义错误，使用 errors.Is 进行比较
var (
	// ErrInvalidThreshold 表示移除阈值非法（必须为正）
	ErrInvalidThreshold = errors.New("xpool: removal threshold must be positive")
)
