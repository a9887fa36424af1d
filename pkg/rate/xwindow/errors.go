package xwindow

import "errors"

// 预定义错误，使用 errors.Is 进行比较
var (
	// ErrInvalidWindow 表示窗口长度非法（必须为正）
	ErrInvalidWindow = errors.New("xwindow: window must be positive")
)
