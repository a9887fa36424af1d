// xgovctl 是限速治理配置的命令行工具。
//
// 用法:
//
//	xgovctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config   策略配置文件路径 (yaml/json)，省略时使用内置默认策略
//
// 命令:
//
//	validate       校验配置文件
//	policies       打印生效的策略表
//	pattern <端点> 打印端点归属的策略模式
//	simulate       离线模拟：按配置记录请求并输出治理决策
//	help           显示帮助信息
//
// 退出码:
//
//	0: 命令执行成功
//	1: 命令执行失败（配置非法、文件不存在等）
//	2: 参数错误（缺少必需参数、未知命令等）
//
// 示例:
//
//	xgovctl -c governor.yaml validate
//	xgovctl -c governor.yaml policies
//	xgovctl pattern /tweets/123/replies
//	xgovctl -c governor.yaml simulate --endpoint /search --requests 200
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

// 版本信息（可通过 -ldflags 注入）
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run())
}

// createApp 创建 CLI 应用
func createApp() *cli.Command {
	return &cli.Command{
		Name:    "xgovctl",
		Usage:   "限速治理配置命令行工具",
		Version: fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "策略配置文件路径 (yaml/json)",
			},
		},
		Commands:       createCommands(),
		DefaultCommand: "help",
		// urfave/cli 默认在 ExitCoder 错误时直接 os.Exit，
		// 改由 run() 统一映射退出码
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(os.Stderr, err)
			}
		},
	}
}

func run() int {
	app := createApp()

	if err := app.Run(context.Background(), os.Args); err != nil {
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(os.Stderr, "参数错误: %v\n", usageErr)
			return 2
		}
		if _, ok := err.(cli.ExitCoder); ok {
			return 2
		}
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		return 1
	}
	return 0
}
