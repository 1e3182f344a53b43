// Package cachecontrol 在 origin-response 阶段为缺少 Cache-Control 的成功响应补充默认策略。
package cachecontrol

import (
	"context"

	"github.com/any-hub/edgesim/internal/edge"
	"github.com/any-hub/edgesim/internal/functions"
)

// Name 是配置中引用本函数的名称。
const Name = "cache-control"

// DefaultPolicy 是补齐时写入的 Cache-Control 值。
const DefaultPolicy = "public, max-age=3600"

func init() {
	functions.MustRegister(functions.Definition{
		Name:        Name,
		Description: "Sets a default Cache-Control on 2xx origin responses that carry none",
		Stages:      []edge.Stage{edge.StageOriginResponse},
		Handler:     edge.HandlerFunc(apply),
	})
}

func apply(_ context.Context, ev edge.Event) (edge.Result, error) {
	if ev.Response == nil {
		return edge.Pass(ev), nil
	}
	status := ev.Response.StatusCode
	if status < 200 || status > 299 || ev.Response.Headers.Has("Cache-Control") {
		return edge.Pass(ev), nil
	}
	return edge.Terminal(ev.Response.WithHeader("Cache-Control", DefaultPolicy)), nil
}
