package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/edgesim/internal/behavior"
	"github.com/any-hub/edgesim/internal/cache"
	"github.com/any-hub/edgesim/internal/edge"
	"github.com/any-hub/edgesim/internal/metrics"
)

type state uint8

const (
	stateViewerRequest state = iota
	stateCacheCheck
	stateOriginRequest
	stateOriginFetch
	stateOriginResponse
	stateViewerResponse
	stateDone
)

var stateNames = [...]string{
	stateViewerRequest:  "VIEWER_REQUEST",
	stateCacheCheck:     "CACHE_CHECK",
	stateOriginRequest:  "ORIGIN_REQUEST",
	stateOriginFetch:    "ORIGIN_FETCH",
	stateOriginResponse: "ORIGIN_RESPONSE",
	stateViewerResponse: "VIEWER_RESPONSE",
	stateDone:           "DONE",
}

func (s state) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", s)
}

// run 保存单个请求的全部可变状态，不与其他请求共享。
type run struct {
	engine *Engine
	set    *behavior.FunctionSet
	ev     edge.Event

	// cacheReq 是 CACHE_CHECK 时看到的请求，回源成功后以它为 key 写缓存。
	cacheReq *edge.Request
	fetchOK  bool
	cache    CacheStatus
	path     string
}

// execute 驱动状态机；每个状态只会前进，不会回退，保证至多访问一次。
func (r *run) execute(ctx context.Context) error {
	current := stateViewerRequest
	for current != stateDone {
		next, err := r.step(ctx, current)
		if err != nil {
			return err
		}
		if next <= current {
			return fmt.Errorf("lifecycle: illegal transition %s -> %s", current, next)
		}
		r.engine.logger.WithFields(logrus.Fields{
			"action":   "lifecycle",
			"behavior": r.set.Pattern(),
			"stage":    current.String(),
			"next":     next.String(),
		}).Debug("lifecycle_transition")
		current = next
	}
	return nil
}

func (r *run) step(ctx context.Context, current state) (state, error) {
	switch current {
	case stateViewerRequest:
		return r.viewerRequest(ctx)
	case stateCacheCheck:
		return r.cacheCheck(ctx), nil
	case stateOriginRequest:
		return r.originRequest(ctx)
	case stateOriginFetch:
		return r.originFetch(ctx), nil
	case stateOriginResponse:
		return r.originResponse(ctx)
	case stateViewerResponse:
		return r.viewerResponse(ctx)
	default:
		return stateDone, fmt.Errorf("lifecycle: unknown state %s", current)
	}
}

func (r *run) viewerRequest(ctx context.Context) (state, error) {
	res, err := r.invoke(ctx, edge.StageViewerRequest)
	if err != nil {
		return stateDone, err
	}
	if resp, ok := res.Response(); ok {
		r.ev = r.ev.WithResponse(resp)
		r.path = metrics.PathViewerShortCircuit
		return stateViewerResponse, nil
	}
	r.ev = r.ev.WithRequest(res.Request())
	return stateCacheCheck, nil
}

func (r *run) cacheCheck(ctx context.Context) state {
	e := r.engine
	if e.opts.DisableCache {
		return stateOriginRequest
	}

	req := r.ev.Request.Clone()
	r.cacheReq = &req
	r.cache = CacheMiss

	entry, err := e.store.Get(ctx, req)
	switch {
	case err == nil:
		e.opts.Metrics.RecordCacheLookup("hit")
		r.cache = CacheHit
		r.path = metrics.PathCacheHit
		r.ev = r.ev.WithResponse(entry.Response())
		return stateViewerResponse
	case errors.Is(err, cache.ErrNotFound):
		e.opts.Metrics.RecordCacheLookup("miss")
	default:
		e.opts.Metrics.RecordCacheLookup("error")
		e.logger.WithError(err).
			WithFields(logrus.Fields{"action": "lifecycle", "behavior": r.set.Pattern(), "path": req.Path}).
			Warn("cache_get_failed")
	}
	return stateOriginRequest
}

func (r *run) originRequest(ctx context.Context) (state, error) {
	res, err := r.invoke(ctx, edge.StageOriginRequest)
	if err != nil {
		return stateDone, err
	}
	if resp, ok := res.Response(); ok {
		r.ev = r.ev.WithResponse(resp)
		r.path = metrics.PathOriginShortCircuit
		if r.engine.opts.ViewerResponseOnOriginShortCircuit {
			return stateViewerResponse, nil
		}
		return stateDone, nil
	}

	r.ev = r.ev.WithRequest(res.Request())
	if params := r.set.Origin().ConnectionParams(r.ev.Request); params != nil {
		r.ev = r.ev.WithOrigin(*params)
	}
	return stateOriginFetch, nil
}

// originFetch 将 NotFound 归类为 404，其余失败归类为携带错误描述的 500；两者都不写缓存。
func (r *run) originFetch(ctx context.Context) state {
	o := r.set.Origin()
	kind := string(o.Kind())
	r.path = metrics.PathOrigin

	resp, err := o.Fetch(ctx, r.ev)
	switch {
	case err == nil:
		r.fetchOK = true
		r.engine.opts.Metrics.RecordOriginFetch(kind, "ok")
	case edge.IsNotFound(err):
		r.engine.opts.Metrics.RecordOriginFetch(kind, "not_found")
		resp = edge.NewResponse(http.StatusNotFound, []byte(http.StatusText(http.StatusNotFound)))
	default:
		r.engine.opts.Metrics.RecordOriginFetch(kind, "error")
		r.engine.logger.WithError(err).
			WithFields(logrus.Fields{"action": "lifecycle", "behavior": r.set.Pattern(), "origin_kind": kind}).
			Warn("origin_fetch_failed")
		resp = edge.NewResponse(http.StatusInternalServerError, []byte(err.Error()))
	}
	r.ev = r.ev.WithResponse(resp)
	return stateOriginResponse
}

func (r *run) originResponse(ctx context.Context) (state, error) {
	if err := r.applyResponseStage(ctx, edge.StageOriginResponse); err != nil {
		return stateDone, err
	}

	e := r.engine
	if r.fetchOK && r.cacheReq != nil && !e.opts.DisableCache {
		if _, err := e.store.Put(ctx, *r.cacheReq, *r.ev.Response); err != nil {
			e.opts.Metrics.RecordCacheWrite("error")
			e.logger.WithError(err).
				WithFields(logrus.Fields{"action": "lifecycle", "behavior": r.set.Pattern(), "path": r.cacheReq.Path}).
				Warn("cache_put_failed")
		} else {
			e.opts.Metrics.RecordCacheWrite("ok")
		}
	}
	return stateViewerResponse, nil
}

func (r *run) viewerResponse(ctx context.Context) (state, error) {
	if err := r.applyResponseStage(ctx, edge.StageViewerResponse); err != nil {
		return stateDone, err
	}
	return stateDone, nil
}

// applyResponseStage 在响应阶段调用处理器：Terminal 替换当前响应，Continue 保持不变。
func (r *run) applyResponseStage(ctx context.Context, stage edge.Stage) error {
	res, err := r.invoke(ctx, stage)
	if err != nil {
		return err
	}
	if resp, ok := res.Response(); ok {
		r.ev = r.ev.WithResponse(resp)
	}
	return nil
}

// invoke 调用阶段处理器；未绑定或返回零值 Result 时原样放行。处理器错误附带阶段信息后向上传播。
func (r *run) invoke(ctx context.Context, stage edge.Stage) (edge.Result, error) {
	handler, ok := r.set.Handler(stage)
	r.ev = r.ev.At(stage)
	if !ok {
		return edge.Pass(r.ev), nil
	}

	res, err := handler.Invoke(ctx, r.ev.Clone())
	if err != nil {
		r.engine.opts.Metrics.RecordStage(stage.String(), "error")
		return edge.Result{}, fmt.Errorf("%s handler for %q: %w", stage, r.set.Pattern(), err)
	}
	if !res.IsSet() {
		res = edge.Pass(r.ev)
	}
	if res.IsTerminal() {
		r.engine.opts.Metrics.RecordStage(stage.String(), "terminal")
	} else {
		r.engine.opts.Metrics.RecordStage(stage.String(), "continue")
	}
	return res, nil
}
