package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// RequestFields 提供 behavior/请求行/源站类型/命中状态字段，供边缘请求日志复用。
func RequestFields(pattern, method, path, originKind string, cacheHit bool) logrus.Fields {
	return logrus.Fields{
		"behavior":    pattern,
		"method":      method,
		"path":        path,
		"origin_kind": originKind,
		"cache_hit":   cacheHit,
	}
}
