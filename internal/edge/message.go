package edge

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// Request 是某一阶段边界上的请求快照。阶段函数若需修改，应返回新的 Request。
type Request struct {
	Method   string  `json:"method"`
	Path     string  `json:"path"`
	Query    string  `json:"query,omitempty"`
	Headers  Headers `json:"headers,omitempty"`
	Body     []byte  `json:"body,omitempty"`
	ClientIP string  `json:"clientIp,omitempty"`
}

// Clone 复制请求，包括头部与正文的底层数组。
func (r Request) Clone() Request {
	out := r
	out.Headers = r.Headers.Clone()
	if r.Body != nil {
		out.Body = append([]byte(nil), r.Body...)
	}
	return out
}

// Host 返回 Host 头，未设置时为空。
func (r Request) Host() string {
	return r.Headers.Get("Host")
}

// URI 拼接 path 与 query。
func (r Request) URI() string {
	if r.Query == "" {
		return r.Path
	}
	return r.Path + "?" + r.Query
}

// WithPath 返回替换 path 后的新请求。
func (r Request) WithPath(path string) Request {
	out := r.Clone()
	out.Path = path
	return out
}

// WithHeader 返回设置单个头部后的新请求。
func (r Request) WithHeader(key, value string) Request {
	out := r.Clone()
	out.Headers = r.Headers.With(key, value)
	return out
}

// BodyEncoding 描述 Response.Body 的编码方式。
type BodyEncoding string

const (
	BodyEncodingText   BodyEncoding = "text"
	BodyEncodingBase64 BodyEncoding = "base64"
)

// Response 是生命周期中逐步形成的响应。
type Response struct {
	StatusCode        int          `json:"status"`
	StatusDescription string       `json:"statusDescription,omitempty"`
	Headers           Headers      `json:"headers,omitempty"`
	Body              []byte       `json:"body,omitempty"`
	BodyEncoding      BodyEncoding `json:"bodyEncoding,omitempty"`
}

// NewResponse 以标准状态描述构造文本响应。
func NewResponse(status int, body []byte) Response {
	return Response{
		StatusCode:        status,
		StatusDescription: http.StatusText(status),
		Body:              body,
		BodyEncoding:      BodyEncodingText,
	}
}

// Clone 复制响应。
func (r Response) Clone() Response {
	out := r
	out.Headers = r.Headers.Clone()
	if r.Body != nil {
		out.Body = append([]byte(nil), r.Body...)
	}
	return out
}

// WithHeader 返回设置单个头部后的新响应。
func (r Response) WithHeader(key, value string) Response {
	out := r.Clone()
	out.Headers = r.Headers.With(key, value)
	return out
}

// DecodedBody 返回写给 viewer 的原始字节；base64 编码的正文在此解码。
func (r Response) DecodedBody() ([]byte, error) {
	switch BodyEncoding(strings.ToLower(string(r.BodyEncoding))) {
	case "", BodyEncodingText:
		return r.Body, nil
	case BodyEncodingBase64:
		decoded, err := base64.StdEncoding.DecodeString(string(r.Body))
		if err != nil {
			return nil, fmt.Errorf("decode base64 body: %w", err)
		}
		return decoded, nil
	default:
		return nil, fmt.Errorf("unsupported body encoding %q", r.BodyEncoding)
	}
}
