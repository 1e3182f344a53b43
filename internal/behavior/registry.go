package behavior

import (
	"errors"
	"fmt"
	"strings"

	"github.com/any-hub/edgesim/internal/edge"
	"github.com/any-hub/edgesim/internal/origin"
)

// DefaultPattern 是兜底 pattern，构建后的 Registry 一定包含它。
const DefaultPattern = "*"

// Binding 是一条声明式的 (pattern, stage, handler) 绑定。
type Binding struct {
	Pattern string
	Stage   edge.Stage
	Handler string
}

// OriginSpec 描述 pattern 对应的源站 target 与可选的自定义源站配置。
type OriginSpec struct {
	Pattern string
	Target  string
	Custom  *origin.CustomConfig
}

// HandlerResolver 将处理器名称解析为可调用的 Handler，并校验其支持的阶段。
type HandlerResolver interface {
	Lookup(name string, stage edge.Stage) (edge.Handler, error)
}

// Registry 按注册顺序保存 FunctionSet，"*" 固定排在最后。构建完成后只读，可并发查询。
type Registry struct {
	ordered  []*FunctionSet
	index    map[string]*FunctionSet
	fallback *FunctionSet
}

// Build 将绑定按 pattern 分组为 FunctionSet。pattern 的顺序取其在 bindings 中首次出现的位置，
// 仅出现在 origins 中的 pattern 依次追加；"*" 无论在何处声明都排在最后，且未声明时自动创建。
// 任一 pattern 无法编译、处理器无法解析或源站无法构造时返回错误。
func Build(bindings []Binding, origins []OriginSpec, resolver HandlerResolver, opts ...origin.Option) (*Registry, error) {
	if resolver == nil && len(bindings) > 0 {
		return nil, errors.New("handler resolver is nil")
	}

	originByPattern := make(map[string]OriginSpec, len(origins))
	var patterns []string
	seen := make(map[string]struct{})
	addPattern := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		patterns = append(patterns, p)
	}

	for _, b := range bindings {
		addPattern(normalizePattern(b.Pattern))
	}
	for _, spec := range origins {
		p := normalizePattern(spec.Pattern)
		if _, dup := originByPattern[p]; dup {
			return nil, fmt.Errorf("duplicate origin mapping for pattern %q", p)
		}
		originByPattern[p] = spec
		addPattern(p)
	}
	addPattern(DefaultPattern)

	registry := &Registry{index: make(map[string]*FunctionSet, len(patterns))}
	for _, p := range patterns {
		o := origin.None()
		if spec, ok := originByPattern[p]; ok {
			built, err := origin.New(spec.Target, spec.Custom, opts...)
			if err != nil {
				return nil, fmt.Errorf("origin for pattern %q: %w", p, err)
			}
			o = built
		}
		set, err := NewFunctionSet(p, o)
		if err != nil {
			return nil, err
		}
		registry.index[p] = set
		if p == DefaultPattern {
			registry.fallback = set
			continue
		}
		registry.ordered = append(registry.ordered, set)
	}
	registry.ordered = append(registry.ordered, registry.fallback)

	for _, b := range bindings {
		p := normalizePattern(b.Pattern)
		handler, err := resolver.Lookup(b.Handler, b.Stage)
		if err != nil {
			return nil, fmt.Errorf("pattern %q stage %s: %w", p, b.Stage, err)
		}
		registry.index[p].Bind(b.Stage, b.Handler, handler)
	}
	return registry, nil
}

// Match 按注册顺序返回第一个命中 path 的 FunctionSet，均未命中时返回 "*"。
func (r *Registry) Match(path string) *FunctionSet {
	for _, set := range r.ordered {
		if set.Matches(path) {
			return set
		}
	}
	return r.fallback
}

// Default 返回 "*" 对应的 FunctionSet。
func (r *Registry) Default() *FunctionSet {
	return r.fallback
}

// Lookup 按 pattern 精确查找 FunctionSet。
func (r *Registry) Lookup(pattern string) (*FunctionSet, bool) {
	set, ok := r.index[normalizePattern(pattern)]
	return set, ok
}

// List 返回按匹配顺序排列的 FunctionSet 列表，用于调试或 /-/behaviors 输出。
func (r *Registry) List() []*FunctionSet {
	result := make([]*FunctionSet, len(r.ordered))
	copy(result, r.ordered)
	return result
}

func normalizePattern(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return DefaultPattern
	}
	return p
}
