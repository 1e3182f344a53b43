package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/edgesim/internal/edge"
	"github.com/any-hub/edgesim/internal/functions"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if g.StoragePath == "" {
		return newFieldError("Global.StoragePath", "不能为空")
	}
	if _, err := logrus.ParseLevel(g.LogLevel); err != nil {
		return newFieldError("Global.LogLevel", "无法识别的日志级别")
	}
	if g.UpstreamTimeout.DurationValue() < 0 {
		return newFieldError("Global.UpstreamTimeout", "不能为负数")
	}

	for i := range c.Functions {
		fn := &c.Functions[i]
		if err := validatePattern(fn.Pattern); err != nil {
			return newFieldError(functionField(i, "Pattern"), err.Error())
		}
		stage, err := edge.ParseStage(fn.Stage)
		if err != nil {
			return newFieldError(functionField(i, "Stage"), "仅支持 viewer-request|origin-request|origin-response|viewer-response")
		}
		fn.Stage = stage.String()

		if fn.Handler == "" {
			return newFieldError(functionField(i, "Handler"), "不能为空")
		}
		def, ok := functions.Resolve(fn.Handler)
		if !ok {
			return newFieldError(functionField(i, "Handler"), fmt.Sprintf("未注册函数: %s", fn.Handler))
		}
		if !def.Supports(stage) {
			return newFieldError(functionField(i, "Stage"), fmt.Sprintf("函数 %s 不支持阶段 %s", def.Name, stage))
		}
	}

	seenPatterns := map[string]struct{}{}
	for i := range c.Origins {
		o := &c.Origins[i]
		if err := validatePattern(o.Pattern); err != nil {
			return newFieldError(originField(o.Pattern, "Pattern"), err.Error())
		}
		if _, exists := seenPatterns[o.Pattern]; exists {
			return newFieldError(originField(o.Pattern, "Pattern"), "重复")
		}
		seenPatterns[o.Pattern] = struct{}{}

		if err := validateTarget(o.Target); err != nil {
			return fmt.Errorf("%s: %w", originField(o.Pattern, "Target"), err)
		}
		if o.Custom != nil {
			if err := validateCustom(o.Pattern, o.Custom); err != nil {
				return err
			}
		}
	}

	return nil
}

func validatePattern(pattern string) error {
	if pattern == "" {
		return errors.New("不能为空")
	}
	if _, err := glob.Compile(pattern); err != nil {
		return fmt.Errorf("无法解析 pattern: %v", err)
	}
	return nil
}

// validateTarget 接受空值（none）、文件系统路径、file:// 与 http/https URL。
func validateTarget(raw string) error {
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, ".") || filepath.IsAbs(raw) {
		return nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	switch parsed.Scheme {
	case "http", "https":
		if parsed.Host == "" {
			return fmt.Errorf("源站缺少 Host: %s", raw)
		}
	case "":
		// 无 scheme 的相对目录，按 file 源站处理。
	case "file":
		if parsed.Host == "" && parsed.Path == "" {
			return fmt.Errorf("file 源站缺少目录: %s", raw)
		}
	default:
		return fmt.Errorf("仅支持 http/https/file 或本地目录，源站: %s", raw)
	}
	return nil
}

func validateCustom(pattern string, c *CustomOriginConfig) error {
	switch c.Protocol {
	case "", "http", "https":
	default:
		return newFieldError(originField(pattern, "Custom.Protocol"), "仅支持 http/https")
	}
	if c.Port < 0 || c.Port > 65535 {
		return newFieldError(originField(pattern, "Custom.Port"), "必须在 0-65535")
	}
	if strings.ContainsAny(c.Domain, "/ ") {
		return newFieldError(originField(pattern, "Custom.Domain"), "不允许包含路径或空格")
	}
	if c.ReadTimeout.DurationValue() < 0 || c.KeepaliveTimeout.DurationValue() < 0 {
		return newFieldError(originField(pattern, "Custom"), "超时不能为负数")
	}
	return nil
}
