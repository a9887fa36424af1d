package xgovernor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	kjson "github.com/knadh/koanf/parsers/json"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/omeyang/xgovern/pkg/observability/xlog"
)

// defaultDebounce 文件变更的防抖间隔
// 编辑器保存往往触发多个连续事件，合并为一次重载。
const defaultDebounce = 200 * time.Millisecond

// filePolicy 配置文件中的单模式策略
// 窗口以秒为单位，避免依赖各格式的时长字面量解析。
type filePolicy struct {
	Limit         int `koanf:"limit"`
	WindowSeconds int `koanf:"window_seconds"`
}

// fileConfig 配置文件的顶层结构
// 缺省字段保持 DefaultConfig 的取值，指针字段用于区分"未设置"与零值。
type fileConfig struct {
	SafetyBuffer           *float64              `koanf:"safety_buffer"`
	RejectionWindowSeconds int                   `koanf:"rejection_window_seconds"`
	PatternCapacity        int                   `koanf:"pattern_capacity"`
	Default                *filePolicy           `koanf:"default"`
	Policies               map[string]filePolicy `koanf:"policies"`
}

// ParseConfig 从原始字节解析配置
//
// format 支持 "json"、"yaml"、"yml"。文件中出现的字段覆盖
// DefaultConfig 的对应项；policies 按模式逐条合并（同名覆盖，
// 未提及的默认模式保留）。解析结果在返回前整体校验。
func ParseConfig(data []byte, format string) (Config, error) {
	var parser koanf.Parser
	switch strings.ToLower(format) {
	case "json":
		parser = kjson.Parser()
	case "yaml", "yml":
		parser = kyaml.Parser()
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	var fc fileConfig
	if err := k.Unmarshal("", &fc); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	cfg := DefaultConfig()
	if fc.SafetyBuffer != nil {
		cfg.SafetyBuffer = *fc.SafetyBuffer
	}
	if fc.RejectionWindowSeconds > 0 {
		cfg.RejectionWindow = time.Duration(fc.RejectionWindowSeconds) * time.Second
	}
	if fc.PatternCapacity > 0 {
		cfg.PatternCapacity = fc.PatternCapacity
	}
	if fc.Default != nil {
		cfg.Default = fc.Default.toPolicy()
	}
	for pattern, fp := range fc.Policies {
		cfg.Policies[normalizePattern(pattern)] = fp.toPolicy()
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfigFile 从文件加载配置，格式由扩展名决定
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	format := strings.TrimPrefix(filepath.Ext(path), ".")
	return ParseConfig(data, format)
}

// toPolicy 转换为运行期策略
func (fp filePolicy) toPolicy() Policy {
	return Policy{
		Limit:  fp.Limit,
		Window: time.Duration(fp.WindowSeconds) * time.Second,
	}
}

// normalizePattern 规整配置文件中的模式键
// 允许写 "tweets" 或 "/tweets"，兜底键 "default" 原样保留。
func normalizePattern(pattern string) string {
	if pattern == DefaultPattern {
		return pattern
	}
	if !strings.HasPrefix(pattern, "/") {
		return "/" + pattern
	}
	return pattern
}

// FileProvider 监视配置文件并在变更时推送新配置
type FileProvider struct {
	path     string
	debounce time.Duration
	logger   xlog.Logger
}

// FileProviderOption FileProvider 配置选项
type FileProviderOption func(*FileProvider)

// WithProviderLogger 设置日志记录器
// nil 被忽略。
func WithProviderLogger(logger xlog.Logger) FileProviderOption {
	return func(p *FileProvider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithDebounce 设置防抖间隔
// 非正值被忽略（保持默认值 200ms）。
func WithDebounce(d time.Duration) FileProviderOption {
	return func(p *FileProvider) {
		if d > 0 {
			p.debounce = d
		}
	}
}

// NewFileProvider 创建配置文件监视器
func NewFileProvider(path string, opts ...FileProviderOption) *FileProvider {
	p := &FileProvider{
		path:     path,
		debounce: defaultDebounce,
		logger:   xlog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load 读取当前文件内容
func (p *FileProvider) Load() (Config, error) {
	return LoadConfigFile(p.path)
}

// Watch 阻塞监视文件变更，每次变更防抖后重载并调用 apply
//
// 监视的是文件所在目录，兼容编辑器与配置管理工具的原子替换
// （写临时文件后 rename）。重载失败时保留现有配置并记录告警。
// ctx 取消后返回 nil。
func (p *FileProvider) Watch(ctx context.Context, apply func(Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		return err
	}

	target := filepath.Clean(p.path)
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(p.debounce)
				fire = timer.C
			} else {
				timer.Reset(p.debounce)
			}

		case <-fire:
			cfg, err := p.Load()
			if err != nil {
				p.logger.Warn(ctx, "config reload failed, keeping current config",
					slog.String("path", p.path),
					slog.Any("error", err),
				)
				continue
			}
			p.logger.Info(ctx, "config file reloaded",
				slog.String("path", p.path),
			)
			apply(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.logger.Warn(ctx, "config watcher error",
				slog.Any("error", err),
			)
		}
	}
}
