package xroute

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// makeID 从 host:port 确定性导出路由标识
//
// 同一 host:port 重复注册时映射到同一 ID，注册即覆盖。
func makeID(host string, port int) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(fmt.Sprintf("%s:%d", host, port)))
}
