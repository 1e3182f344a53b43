package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/any-hub/edgesim/internal/behavior"
)

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	if err := rejectOriginLevelConnectionFields(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)
	for i := range cfg.Functions {
		applyFunctionDefaults(&cfg.Functions[i])
	}
	for i := range cfg.Origins {
		applyOriginDefaults(&cfg.Origins[i])
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	absStorage, err := filepath.Abs(cfg.Global.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("无法解析缓存目录: %w", err)
	}
	cfg.Global.StoragePath = absStorage

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 3000)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("StoragePath", "./.edgesim-cache")
	v.SetDefault("DisableCache", false)
	v.SetDefault("UpstreamTimeout", 0)
	v.SetDefault("ViewerResponseOnOriginShortCircuit", false)
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.ListenPort == 0 {
		g.ListenPort = 3000
	}
	if strings.TrimSpace(g.LogLevel) == "" {
		g.LogLevel = "info"
	}
	if strings.TrimSpace(g.StoragePath) == "" {
		g.StoragePath = "./.edgesim-cache"
	}
}

func applyFunctionDefaults(f *FunctionConfig) {
	f.Pattern = strings.TrimSpace(f.Pattern)
	if f.Pattern == "" {
		f.Pattern = behavior.DefaultPattern
	}
	f.Stage = strings.TrimSpace(f.Stage)
	f.Handler = strings.ToLower(strings.TrimSpace(f.Handler))
}

func applyOriginDefaults(o *OriginConfig) {
	o.Pattern = strings.TrimSpace(o.Pattern)
	if o.Pattern == "" {
		o.Pattern = behavior.DefaultPattern
	}
	o.Target = strings.TrimSpace(o.Target)
	if o.Custom != nil {
		o.Custom.Protocol = strings.ToLower(strings.TrimSpace(o.Custom.Protocol))
		o.Custom.Domain = strings.TrimSpace(o.Custom.Domain)
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}

// connectionFields 只能写在 [Origin.Custom] 中。
var connectionFields = []string{"Protocol", "Domain", "Port", "ReadTimeout", "KeepaliveTimeout"}

func rejectOriginLevelConnectionFields(v *viper.Viper) error {
	raw := v.Get("Origin")
	origins, ok := raw.([]interface{})
	if !ok {
		return nil
	}

	for idx, entry := range origins {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		pattern := fmt.Sprintf("#%d", idx)
		for key, value := range m {
			if strings.EqualFold(key, "Pattern") {
				if s, ok := value.(string); ok && s != "" {
					pattern = s
				}
			}
		}
		for key := range m {
			for _, field := range connectionFields {
				if strings.EqualFold(key, field) {
					return newFieldError(originField(pattern, field), "字段应写在 [Origin.Custom] 中")
				}
			}
		}
	}

	return nil
}
