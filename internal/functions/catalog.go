package functions

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/any-hub/edgesim/internal/edge"
)

// ErrDuplicateFunction indicates a function name is already registered.
var ErrDuplicateFunction = errors.New("edge function already registered")

// ErrUnknownFunction indicates a binding references a name nobody registered.
var ErrUnknownFunction = errors.New("edge function not registered")

// Definition 描述目录中的一个边缘函数。Stages 为空表示可绑定到任意阶段。
type Definition struct {
	Name        string
	Description string
	Stages      []edge.Stage
	Handler     edge.Handler
}

// Supports 判断函数能否绑定到 stage。
func (d Definition) Supports(stage edge.Stage) bool {
	if len(d.Stages) == 0 {
		return true
	}
	for _, s := range d.Stages {
		if s == stage {
			return true
		}
	}
	return false
}

// Catalog 是线程安全的函数目录，通常只在 init() 阶段写入。
type Catalog struct {
	mu    sync.RWMutex
	funcs map[string]Definition
}

// NewCatalog 创建空目录，测试可用它替代全局目录。
func NewCatalog() *Catalog {
	return &Catalog{funcs: make(map[string]Definition)}
}

var globalCatalog = NewCatalog()

// Default 返回进程级目录，内置函数在 init() 中注册到这里。
func Default() *Catalog {
	return globalCatalog
}

// Register 将函数加入全局目录，重复名称返回 ErrDuplicateFunction。
func Register(def Definition) error {
	return globalCatalog.Register(def)
}

// MustRegister 在注册失败时 panic，适合 init() 中调用。
func MustRegister(def Definition) {
	if err := Register(def); err != nil {
		panic(err)
	}
}

// Resolve 返回全局目录中的函数定义。
func Resolve(name string) (Definition, bool) {
	return globalCatalog.Resolve(name)
}

// List 返回按名称排序的全局函数列表。
func List() []Definition {
	return globalCatalog.List()
}

// Names 返回全局目录中的全部名称。
func Names() []string {
	return globalCatalog.Names()
}

// Status 返回 registered / missing，供诊断端使用。
func Status(name string) string {
	if _, ok := globalCatalog.Resolve(name); ok {
		return "registered"
	}
	return "missing"
}

// Snapshot 返回一组名称的注册状态。
func Snapshot(names []string) map[string]string {
	out := make(map[string]string, len(names))
	for _, name := range names {
		if normalized := normalizeName(name); normalized != "" {
			out[normalized] = Status(normalized)
		}
	}
	return out
}

// Register 将函数加入目录。
func (c *Catalog) Register(def Definition) error {
	name := normalizeName(def.Name)
	if name == "" {
		return errors.New("function name required")
	}
	if def.Handler == nil {
		return fmt.Errorf("function %s: handler required", name)
	}
	def.Name = name
	def.Stages = append([]edge.Stage(nil), def.Stages...)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.funcs[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateFunction, name)
	}
	c.funcs[name] = def
	return nil
}

// Resolve 返回指定名称的函数定义，名称大小写不敏感。
func (c *Catalog) Resolve(name string) (Definition, bool) {
	normalized := normalizeName(name)
	if normalized == "" {
		return Definition{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	def, ok := c.funcs[normalized]
	return def, ok
}

// Lookup 解析 handler 引用并确认其支持目标阶段，供行为注册表构建时调用。
func (c *Catalog) Lookup(name string, stage edge.Stage) (edge.Handler, error) {
	def, ok := c.Resolve(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	if !def.Supports(stage) {
		return nil, fmt.Errorf("function %s cannot be bound to %s", def.Name, stage)
	}
	return def.Handler, nil
}

// List 返回按名称排序的函数列表。
func (c *Catalog) List() []Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.funcs) == 0 {
		return nil
	}
	names := make([]string, 0, len(c.funcs))
	for name := range c.funcs {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]Definition, 0, len(names))
	for _, name := range names {
		result = append(result, c.funcs[name])
	}
	return result
}

// Names 返回排序后的名称列表。
func (c *Catalog) Names() []string {
	defs := c.List()
	out := make([]string, len(defs))
	for i, def := range defs {
		out[i] = def.Name
	}
	return out
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
