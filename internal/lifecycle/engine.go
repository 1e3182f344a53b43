package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/edgesim/internal/behavior"
	"github.com/any-hub/edgesim/internal/cache"
	"github.com/any-hub/edgesim/internal/edge"
	"github.com/any-hub/edgesim/internal/metrics"
)

// CacheStatus 描述一次请求与缓存的关系，透传给 X-Edge-Cache 响应头。
type CacheStatus string

const (
	CacheHit    CacheStatus = "Hit"
	CacheMiss   CacheStatus = "Miss"
	CacheBypass CacheStatus = "Bypass"
)

// Options 控制引擎的可选行为。
type Options struct {
	// DisableCache 为 true 时完全跳过 CACHE_CHECK 与缓存写入。
	DisableCache bool
	// ViewerResponseOnOriginShortCircuit 为 true 时 origin-request 的终结响应仍会经过 viewer-response。
	ViewerResponseOnOriginShortCircuit bool
	// Metrics 可为空。
	Metrics *metrics.Recorder
}

// Engine 持有只读的行为注册表与共享缓存，可被任意多个请求并发调用。
type Engine struct {
	registry *behavior.Registry
	store    cache.Store
	logger   *logrus.Logger
	opts     Options
}

// Outcome 是一次生命周期执行的结果：最终响应以及命中的行为、缓存状态与终止路径。
type Outcome struct {
	Response edge.Response
	Behavior string
	Cache    CacheStatus
	Path     string
}

// New 构造引擎。store 为 nil 等同于禁用缓存；logger 为 nil 时丢弃日志。
func New(registry *behavior.Registry, store cache.Store, logger *logrus.Logger, opts Options) (*Engine, error) {
	if registry == nil {
		return nil, errors.New("behavior registry is nil")
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	if store == nil {
		opts.DisableCache = true
	}
	return &Engine{registry: registry, store: store, logger: logger, opts: opts}, nil
}

// Registry 返回注入的行为注册表。
func (e *Engine) Registry() *behavior.Registry {
	return e.registry
}

// CacheEnabled 报告本引擎是否读写缓存。
func (e *Engine) CacheEnabled() bool {
	return !e.opts.DisableCache
}

// Match 选择服务 path 的 FunctionSet。
func (e *Engine) Match(path string) *behavior.FunctionSet {
	return e.registry.Match(path)
}

// Run 按请求路径匹配行为并执行完整生命周期。未分类的错误原样返回，由传输层决定状态码。
func (e *Engine) Run(ctx context.Context, req edge.Request) (Outcome, error) {
	return e.RunWith(ctx, req, e.registry.Match(req.Path))
}

// RunWith 使用调用方已匹配好的 FunctionSet 执行生命周期。
func (e *Engine) RunWith(ctx context.Context, req edge.Request, set *behavior.FunctionSet) (Outcome, error) {
	if set == nil {
		set = e.registry.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	started := time.Now()
	r := &run{
		engine: e,
		set:    set,
		ev:     edge.NewEvent(set.Pattern(), req),
		cache:  CacheBypass,
	}
	err := r.execute(ctx)
	if err != nil {
		e.opts.Metrics.RecordRun(metrics.PathError, time.Since(started))
		return Outcome{}, err
	}
	e.opts.Metrics.RecordRun(r.path, time.Since(started))

	return Outcome{
		Response: r.ev.Response.Clone(),
		Behavior: set.Pattern(),
		Cache:    r.cache,
		Path:     r.path,
	}, nil
}

// Purge 清空缓存；未启用缓存时直接返回。
func (e *Engine) Purge(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	if err := e.store.Purge(ctx); err != nil {
		return fmt.Errorf("purge cache: %w", err)
	}
	e.logger.WithField("action", "cache_purge").Info("cache_purged")
	return nil
}

// Invalidate 删除单个请求对应的缓存条目。key 按缓存检查时的请求计算，
// 因此 req 应与 viewer-request 处理之后的请求一致；未指定方法时按 GET 处理。
func (e *Engine) Invalidate(ctx context.Context, req edge.Request) error {
	if e.store == nil {
		return nil
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if err := e.store.Remove(ctx, req); err != nil {
		return fmt.Errorf("invalidate %s: %w", req.URI(), err)
	}
	e.logger.WithFields(logrus.Fields{"action": "cache_invalidate", "path": req.Path}).Info("cache_invalidated")
	return nil
}
