package behavior

import (
	"fmt"

	"github.com/gobwas/glob"

	"github.com/any-hub/edgesim/internal/edge"
	"github.com/any-hub/edgesim/internal/origin"
)

// FunctionSet 聚合同一 pattern 下每个阶段至多一个处理器以及对应的源站。
type FunctionSet struct {
	pattern  string
	matcher  glob.Glob
	handlers map[edge.Stage]boundHandler
	origin   *origin.Origin
}

type boundHandler struct {
	name    string
	handler edge.Handler
}

// NewFunctionSet 编译 pattern 并创建空的 FunctionSet；origin 为 nil 时使用 none 源站。
func NewFunctionSet(pattern string, o *origin.Origin) (*FunctionSet, error) {
	matcher, err := glob.Compile(pattern)
	if err != nil {
		return nil, &PatternError{Pattern: pattern, Err: err}
	}
	if o == nil {
		o = origin.None()
	}
	return &FunctionSet{
		pattern:  pattern,
		matcher:  matcher,
		handlers: make(map[edge.Stage]boundHandler, 4),
		origin:   o,
	}, nil
}

// Bind 为 stage 绑定处理器，同一阶段重复绑定时后者覆盖前者。只应在构建阶段调用。
func (s *FunctionSet) Bind(stage edge.Stage, name string, handler edge.Handler) {
	if handler == nil {
		delete(s.handlers, stage)
		return
	}
	s.handlers[stage] = boundHandler{name: name, handler: handler}
}

// Pattern 返回声明时的原始 pattern。
func (s *FunctionSet) Pattern() string {
	return s.pattern
}

// Matches 判断 path 是否命中该 pattern。
func (s *FunctionSet) Matches(path string) bool {
	return s.matcher.Match(path)
}

// Handler 返回阶段处理器；未绑定时 ok 为 false，表示该阶段直接透传。
func (s *FunctionSet) Handler(stage edge.Stage) (edge.Handler, bool) {
	bound, ok := s.handlers[stage]
	return bound.handler, ok
}

// HandlerNames 返回已绑定阶段到处理器名称的副本，供诊断输出。
func (s *FunctionSet) HandlerNames() map[edge.Stage]string {
	names := make(map[edge.Stage]string, len(s.handlers))
	for stage, bound := range s.handlers {
		names[stage] = bound.name
	}
	return names
}

// Origin 返回该 pattern 的源站，永不为 nil。
func (s *FunctionSet) Origin() *origin.Origin {
	return s.origin
}

// PatternError 表示 pattern 表达式无法编译，属于构建期的致命错误。
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid behavior pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}
