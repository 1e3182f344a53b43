package config

import "fmt"

// FieldError 提供字段路径与错误原因，便于 CLI 向用户反馈。
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// newFieldError 创建包含字段路径与原因的 error，便于 CLI 定位。
func newFieldError(field, reason string) error {
	return FieldError{Field: field, Reason: reason}
}

// functionField 拼接 Function 级字段路径，输出 Function[0].Stage 形式。
func functionField(idx int, field string) string {
	return fmt.Sprintf("Function[%d].%s", idx, field)
}

// originField 拼接 Origin 级字段路径，方便输出 Origin[/api/*].Target 形式。
func originField(pattern, field string) string {
	if pattern == "" {
		return fmt.Sprintf("Origin[].%s", field)
	}
	return fmt.Sprintf("Origin[%s].%s", pattern, field)
}
