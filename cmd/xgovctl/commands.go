package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xgovern/pkg/rate/xgovernor"
)

// usageError 表示参数错误，对应退出码 2
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

// createCommands 创建所有子命令
func createCommands() []*cli.Command {
	return []*cli.Command{
		createValidateCommand(),
		createPoliciesCommand(),
		createPatternCommand(),
		createSimulateCommand(),
	}
}

// createValidateCommand 创建 validate 子命令
func createValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "校验配置文件",
		Action: func(_ context.Context, cmd *cli.Command) error {
			path := cmd.String("config")
			if path == "" {
				return &usageError{msg: "validate 需要 --config 参数"}
			}
			return cmdValidate(os.Stdout, path)
		},
	}
}

// createPoliciesCommand 创建 policies 子命令
func createPoliciesCommand() *cli.Command {
	return &cli.Command{
		Name:    "policies",
		Aliases: []string{"p"},
		Usage:   "打印生效的策略表（文件配置与内置默认值合并后）",
		Action: func(_ context.Context, cmd *cli.Command) error {
			return cmdPolicies(os.Stdout, cmd.String("config"))
		},
	}
}

// createPatternCommand 创建 pattern 子命令
func createPatternCommand() *cli.Command {
	return &cli.Command{
		Name:      "pattern",
		Usage:     "打印端点归属的策略模式",
		ArgsUsage: "<endpoint>",
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return &usageError{msg: "pattern 需要恰好一个端点参数"}
			}
			fmt.Fprintln(os.Stdout, xgovernor.Pattern(cmd.Args().First()))
			return nil
		},
	}
}

// createSimulateCommand 创建 simulate 子命令
func createSimulateCommand() *cli.Command {
	return &cli.Command{
		Name:    "simulate",
		Aliases: []string{"s"},
		Usage:   "离线模拟：按配置记录请求并输出治理决策",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "endpoint",
				Aliases: []string{"e"},
				Usage:   "目标端点路径",
				Value:   "/tweets",
			},
			&cli.IntFlag{
				Name:    "requests",
				Aliases: []string{"n"},
				Usage:   "模拟的请求数量",
				Value:   100,
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			n := cmd.Int("requests")
			if n < 0 {
				return &usageError{msg: "requests 不能为负数"}
			}
			return cmdSimulate(os.Stdout, cmd.String("config"), cmd.String("endpoint"), n)
		},
	}
}

// loadConfig 加载配置，path 为空时返回内置默认配置
func loadConfig(path string) (xgovernor.Config, error) {
	if path == "" {
		return xgovernor.DefaultConfig(), nil
	}
	return xgovernor.LoadConfigFile(path)
}

// cmdValidate 校验配置文件
func cmdValidate(w io.Writer, path string) error {
	cfg, err := xgovernor.LoadConfigFile(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "配置合法: %d 个模式, 安全余量 %.0f%%, 拒绝窗口 %s\n",
		len(cfg.Policies), cfg.SafetyBuffer*100, cfg.RejectionWindow)
	return nil
}

// cmdPolicies 打印生效的策略表
func cmdPolicies(w io.Writer, path string) error {
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}

	patterns := make([]string, 0, len(cfg.Policies))
	for pattern := range cfg.Policies {
		patterns = append(patterns, pattern)
	}
	slices.Sort(patterns)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATTERN\tLIMIT\tWINDOW\tEFFECTIVE")
	for _, pattern := range patterns {
		p := cfg.Policies[pattern]
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\n",
			pattern, p.Limit, p.Window, p.EffectiveLimit(cfg.SafetyBuffer))
	}
	fmt.Fprintf(tw, "%s\t%d\t%s\t%d\n",
		xgovernor.DefaultPattern, cfg.Default.Limit, cfg.Default.Window,
		cfg.Default.EffectiveLimit(cfg.SafetyBuffer))
	return tw.Flush()
}

// cmdSimulate 模拟记录 n 个请求后的治理决策
func cmdSimulate(w io.Writer, path, endpoint string, n int) error {
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}

	gov, err := xgovernor.New(xgovernor.WithConfig(cfg))
	if err != nil {
		return err
	}

	start := time.Now()
	for i := 0; i < n; i++ {
		gov.RecordRequest(endpoint)
	}

	pattern := xgovernor.Pattern(endpoint)
	policy := cfg.PolicyFor(pattern)
	wait := gov.WaitTime(endpoint)

	fmt.Fprintf(w, "端点:       %s\n", endpoint)
	fmt.Fprintf(w, "模式:       %s\n", pattern)
	fmt.Fprintf(w, "策略:       %d 次 / %s (有效上限 %d)\n",
		policy.Limit, policy.Window, policy.EffectiveLimit(cfg.SafetyBuffer))
	fmt.Fprintf(w, "已记录:     %d 次 (耗时 %s)\n", n, time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(w, "剩余配额:   %d\n", gov.RemainingQuota(endpoint))
	fmt.Fprintf(w, "建议等待:   %s\n", wait)
	if wait == 0 {
		fmt.Fprintln(w, "结论:       可以立即发起请求")
	} else {
		fmt.Fprintln(w, "结论:       需要等待")
	}
	return nil
}
