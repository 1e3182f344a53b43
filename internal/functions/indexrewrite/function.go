// Package indexrewrite 将目录形式的请求路径补全为 index.html，模拟静态站点的默认文档行为。
package indexrewrite

import (
	"context"
	"strings"

	"github.com/any-hub/edgesim/internal/edge"
	"github.com/any-hub/edgesim/internal/functions"
)

// Name 是配置中引用本函数的名称。
const Name = "index-rewrite"

const indexDocument = "index.html"

func init() {
	functions.MustRegister(functions.Definition{
		Name:        Name,
		Description: "Rewrites directory paths (trailing slash) to their index.html document",
		Stages:      []edge.Stage{edge.StageViewerRequest, edge.StageOriginRequest},
		Handler:     edge.HandlerFunc(rewrite),
	})
}

func rewrite(_ context.Context, ev edge.Event) (edge.Result, error) {
	return edge.Continue(ev.Request.WithPath(indexPath(ev.Request.Path))), nil
}

func indexPath(p string) string {
	if p == "" {
		return "/" + indexDocument
	}
	if strings.HasSuffix(p, "/") {
		return p + indexDocument
	}
	return p
}
