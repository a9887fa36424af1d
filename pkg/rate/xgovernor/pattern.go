package xgovernor

import "strings"

// DefaultPattern 无法归类的端点所使用的兜底模式
const DefaultPattern = "default"

// Pattern 从端点路径导出策略模式
//
// 取路径的首段作为模式（如 /tweets/123/replies → /tweets），
// 查询串与片段被忽略。空路径或根路径归入 [DefaultPattern]。
func Pattern(endpoint string) string {
	path := endpoint
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return DefaultPattern
	}
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	return "/" + path
}
