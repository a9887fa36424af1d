package xgovernor

import "errors"

// 预定义错误，使用 errors.Is 进行比较
var (
	// ErrInvalidPolicy 表示端点策略非法（上限或窗口非正）
	ErrInvalidPolicy = errors.New("xgovernor: invalid policy")

	// ErrInvalidBuffer 表示安全余量不在 [0, 1) 区间
	ErrInvalidBuffer = errors.New("xgovernor: safety buffer out of range")

	// ErrInvalidCapacity 表示模式容量非法（必须为正）
	ErrInvalidCapacity = errors.New("xgovernor: pattern capacity must be positive")

	// ErrUnsupportedFormat 表示配置文件格式不受支持
	ErrUnsupportedFormat = errors.New("xgovernor: unsupported config format")

	// ErrLoadFailed 表示配置加载失败
	ErrLoadFailed = errors.New("xgovernor: config load failed")
)
