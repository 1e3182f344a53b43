package origin

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/any-hub/edgesim/internal/edge"
)

// httpClient 将请求转发到 http/https 源站并完整缓冲响应体。
type httpClient struct {
	kind   Kind
	base   *url.URL
	client *http.Client
}

func newHTTPClient(kind Kind, base *url.URL, client *http.Client) *httpClient {
	return &httpClient{kind: kind, base: base, client: client}
}

func (c *httpClient) Kind() Kind { return c.kind }

func (c *httpClient) sealed() {}

// Fetch 复用入站方法与头部发起回源。任何状态码（含 4xx/5xx）都视为成功；
// 只有传输层失败返回 *edge.UpstreamError。
func (c *httpClient) Fetch(ctx context.Context, ev edge.Event) (edge.Response, error) {
	target := c.resolveURL(ev)
	req, err := c.buildRequest(ctx, target, ev.Request)
	if err != nil {
		return edge.Response{}, &edge.UpstreamError{Target: target.String(), Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return edge.Response{}, &edge.UpstreamError{Target: target.String(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return edge.Response{}, &edge.UpstreamError{Target: target.String(), Err: err}
	}

	header := http.Header{}
	CopyHeaders(header, resp.Header)
	return edge.Response{
		StatusCode:        resp.StatusCode,
		StatusDescription: statusDescription(resp),
		Headers:           edge.HeadersFromHTTP(header),
		Body:              body,
		BodyEncoding:      edge.BodyEncodingText,
	}, nil
}

// resolveURL 优先使用 origin-request 阶段合成的连接参数，否则使用 Origin 自身的 target。
func (c *httpClient) resolveURL(ev edge.Event) *url.URL {
	scheme := c.base.Scheme
	host := c.base.Host
	prefix := strings.TrimSuffix(c.base.Path, "/")

	if params := ev.Origin; params != nil {
		if params.Protocol != "" {
			scheme = params.Protocol
		}
		if params.Domain != "" {
			host = params.Domain
			if params.Port > 0 && params.Port != defaultPort(scheme) {
				host = net.JoinHostPort(params.Domain, strconv.Itoa(params.Port))
			}
		}
		prefix = strings.TrimSuffix(params.Path, "/")
	}

	p := ev.Request.Path
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return &url.URL{
		Scheme:   scheme,
		Host:     host,
		Path:     prefix + p,
		RawQuery: ev.Request.Query,
	}
}

func (c *httpClient) buildRequest(ctx context.Context, target *url.URL, in edge.Request) (*http.Request, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	method := in.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader = http.NoBody
	if len(in.Body) > 0 {
		body = bytes.NewReader(in.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, err
	}
	CopyHeaders(req.Header, in.Headers.HTTP())
	req.Header.Del("Host")
	// 交给 Transport 协商压缩并透明解压，缓冲的正文即为明文。
	req.Header.Del("Accept-Encoding")
	req.Host = target.Host
	req.Close = true
	return req, nil
}

func statusDescription(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		return http.StatusText(resp.StatusCode)
	}
	return text
}
