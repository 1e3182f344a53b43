// Package httpsredirect 在 viewer-request 阶段把明文 HTTP 请求以 301 重定向到 HTTPS。
package httpsredirect

import (
	"context"
	"net/http"
	"strings"

	"github.com/any-hub/edgesim/internal/edge"
	"github.com/any-hub/edgesim/internal/functions"
)

// Name 是配置中引用本函数的名称。
const Name = "https-redirect"

// 优先读取 CDN 注入的协议头，其次是通用的 X-Forwarded-Proto。
var protoHeaders = []string{"CloudFront-Forwarded-Proto", "X-Forwarded-Proto"}

func init() {
	functions.MustRegister(functions.Definition{
		Name:        Name,
		Description: "Answers plain-HTTP viewer requests with a 301 to the HTTPS URL",
		Stages:      []edge.Stage{edge.StageViewerRequest},
		Handler:     edge.HandlerFunc(redirect),
	})
}

func redirect(_ context.Context, ev edge.Event) (edge.Result, error) {
	req := ev.Request
	if !strings.EqualFold(viewerProtocol(req), "http") {
		return edge.Pass(ev), nil
	}
	host := req.Host()
	if host == "" {
		return edge.Pass(ev), nil
	}

	resp := edge.NewResponse(http.StatusMovedPermanently, nil)
	resp.Headers = edge.Headers{
		{Key: "Location", Value: "https://" + host + req.URI()},
		{Key: "Cache-Control", Value: "max-age=3600"},
	}
	return edge.Terminal(resp), nil
}

func viewerProtocol(req edge.Request) string {
	for _, key := range protoHeaders {
		if value := strings.TrimSpace(req.Headers.Get(key)); value != "" {
			return value
		}
	}
	return ""
}
