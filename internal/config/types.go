package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/any-hub/edgesim/internal/behavior"
	"github.com/any-hub/edgesim/internal/edge"
	"github.com/any-hub/edgesim/internal/origin"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// GlobalConfig 描述全局运行时行为，所有 behavior 共享同一份参数。
type GlobalConfig struct {
	ListenPort      int      `mapstructure:"ListenPort"`
	LogLevel        string   `mapstructure:"LogLevel"`
	LogFilePath     string   `mapstructure:"LogFilePath"`
	LogMaxSize      int      `mapstructure:"LogMaxSize"`
	LogMaxBackups   int      `mapstructure:"LogMaxBackups"`
	LogCompress     bool     `mapstructure:"LogCompress"`
	StoragePath     string   `mapstructure:"StoragePath"`
	DisableCache    bool     `mapstructure:"DisableCache"`
	UpstreamTimeout Duration `mapstructure:"UpstreamTimeout"`
	// ViewerResponseOnOriginShortCircuit 让 origin-request 的终结响应仍经过 viewer-response。
	ViewerResponseOnOriginShortCircuit bool `mapstructure:"ViewerResponseOnOriginShortCircuit"`
}

// FunctionConfig 是一条 [[Function]] 绑定：pattern 的某个阶段使用目录中的哪个函数。
type FunctionConfig struct {
	Pattern string `mapstructure:"Pattern"`
	Stage   string `mapstructure:"Stage"`
	Handler string `mapstructure:"Handler"`
}

// OriginConfig 是一条 [[Origin]] 映射。Target 为空表示 none 源站。
type OriginConfig struct {
	Pattern string              `mapstructure:"Pattern"`
	Target  string              `mapstructure:"Target"`
	Custom  *CustomOriginConfig `mapstructure:"Custom"`
}

// CustomOriginConfig 对应 [Origin.Custom]，未填写的字段由 Target 回填。
type CustomOriginConfig struct {
	Protocol         string   `mapstructure:"Protocol"`
	Domain           string   `mapstructure:"Domain"`
	Port             int      `mapstructure:"Port"`
	Path             string   `mapstructure:"Path"`
	ReadTimeout      Duration `mapstructure:"ReadTimeout"`
	KeepaliveTimeout Duration `mapstructure:"KeepaliveTimeout"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global    GlobalConfig     `mapstructure:",squash"`
	Functions []FunctionConfig `mapstructure:"Function"`
	Origins   []OriginConfig   `mapstructure:"Origin"`
}

// Bindings 将 [[Function]] 转换为行为注册表的绑定列表，保持声明顺序。
// 调用前应已通过 Validate，无法识别的阶段会被跳过。
func (c *Config) Bindings() []behavior.Binding {
	bindings := make([]behavior.Binding, 0, len(c.Functions))
	for _, fn := range c.Functions {
		stage, err := edge.ParseStage(fn.Stage)
		if err != nil {
			continue
		}
		bindings = append(bindings, behavior.Binding{
			Pattern: fn.Pattern,
			Stage:   stage,
			Handler: fn.Handler,
		})
	}
	return bindings
}

// OriginSpecs 将 [[Origin]] 转换为行为注册表的源站映射。
func (c *Config) OriginSpecs() []behavior.OriginSpec {
	specs := make([]behavior.OriginSpec, 0, len(c.Origins))
	for _, o := range c.Origins {
		spec := behavior.OriginSpec{Pattern: o.Pattern, Target: o.Target}
		if o.Custom != nil {
			spec.Custom = &origin.CustomConfig{
				Protocol:         o.Custom.Protocol,
				Domain:           o.Custom.Domain,
				Port:             o.Custom.Port,
				Path:             o.Custom.Path,
				ReadTimeout:      o.Custom.ReadTimeout.DurationValue(),
				KeepaliveTimeout: o.Custom.KeepaliveTimeout.DurationValue(),
			}
		}
		specs = append(specs, spec)
	}
	return specs
}

// HandlerNames 返回配置引用的函数名（去重后按出现顺序），供诊断输出注册状态。
func (c *Config) HandlerNames() []string {
	seen := make(map[string]struct{}, len(c.Functions))
	var names []string
	for _, fn := range c.Functions {
		if _, ok := seen[fn.Handler]; ok {
			continue
		}
		seen[fn.Handler] = struct{}{}
		names = append(names, fn.Handler)
	}
	return names
}
