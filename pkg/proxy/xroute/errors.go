package xroute

import "errors"

// 预定义错误，使用 errors.Is 进行比较
var (
	// ErrEmptyHost 表示主机名为空
	ErrEmptyHost = errors.New("xroute: host is empty")

	// ErrInvalidPort 表示端口不在 [1, 65535] 范围内
	ErrInvalidPort = errors.New("xroute: port out of range")

	// ErrInvalidScheme 表示不支持的代理协议
	ErrInvalidScheme = errors.New("xroute: unsupported scheme")
)
