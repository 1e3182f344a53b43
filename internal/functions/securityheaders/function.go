// Package securityheaders 为响应补齐常见的安全头部，已有值保持不变。
package securityheaders

import (
	"context"

	"github.com/any-hub/edgesim/internal/edge"
	"github.com/any-hub/edgesim/internal/functions"
)

// Name 是配置中引用本函数的名称。
const Name = "security-headers"

var defaults = []edge.HeaderField{
	{Key: "Strict-Transport-Security", Value: "max-age=63072000; includeSubDomains; preload"},
	{Key: "X-Content-Type-Options", Value: "nosniff"},
	{Key: "X-Frame-Options", Value: "DENY"},
	{Key: "Referrer-Policy", Value: "same-origin"},
}

func init() {
	functions.MustRegister(functions.Definition{
		Name:        Name,
		Description: "Adds HSTS, nosniff, frame and referrer policies when the response lacks them",
		Stages:      []edge.Stage{edge.StageOriginResponse, edge.StageViewerResponse},
		Handler:     edge.HandlerFunc(apply),
	})
}

func apply(_ context.Context, ev edge.Event) (edge.Result, error) {
	if ev.Response == nil {
		return edge.Pass(ev), nil
	}
	resp := ev.Response.Clone()
	for _, field := range defaults {
		if !resp.Headers.Has(field.Key) {
			resp.Headers = resp.Headers.Adding(field.Key, field.Value)
		}
	}
	return edge.Terminal(resp), nil
}
