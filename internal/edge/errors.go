package edge

import (
	"errors"
	"fmt"
)

// ErrNotFound 表示缓存或源站中不存在对应资源，引擎会将其转为 404。
var ErrNotFound = errors.New("edge resource not found")

// UpstreamError 描述访问 http/https 源站时的传输层失败。
type UpstreamError struct {
	Target string
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("upstream request failed: %v", e.Err)
	}
	return fmt.Sprintf("upstream request to %s failed: %v", e.Target, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsNotFound 判断 err 是否属于 NotFound 分类。
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
