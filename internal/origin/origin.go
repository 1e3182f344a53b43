package origin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"

	"github.com/any-hub/edgesim/internal/edge"
)

// Kind 标识源站类型，在 New 中由 target 推导一次，之后不可变。
type Kind string

const (
	KindNone  Kind = "none"
	KindFile  Kind = "file"
	KindHTTP  Kind = "http"
	KindHTTPS Kind = "https"
)

// 未配置超时时合成的默认连接参数。
const (
	DefaultReadTimeout      = 30 * time.Second
	DefaultKeepaliveTimeout = 5 * time.Second
)

// CustomConfig 描述访问自定义源站时的协议/域名/端口覆盖。
type CustomConfig struct {
	Protocol         string
	Domain           string
	Port             int
	Path             string
	ReadTimeout      time.Duration
	KeepaliveTimeout time.Duration
}

// Client 是封闭的回源实现集合，只有本包内的类型可以实现。
type Client interface {
	Kind() Kind
	Fetch(ctx context.Context, ev edge.Event) (edge.Response, error)
	sealed()
}

// Origin 绑定一个 target 与对应的 Client。
type Origin struct {
	target string
	kind   Kind
	custom *CustomConfig
	client Client
}

type options struct {
	httpClient *http.Client
	fs         billy.Filesystem
}

// Option 调整 Origin 的构造方式，主要用于注入共享 http.Client 或测试文件系统。
type Option func(*options)

// WithHTTPClient 指定 http/https 源站使用的客户端。
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithFilesystem 让 file 源站从给定文件系统读取，而不是以 target 为根的本地目录。
func WithFilesystem(fs billy.Filesystem) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// None 返回一个所有请求都得到 NotFound 的源站。
func None() *Origin {
	return &Origin{kind: KindNone, client: noneClient{}}
}

// New 解析 target 并构造 Origin。空 target 得到 none；http/https URL 得到网络源站；
// file:// URL 或文件系统路径得到目录源站。custom 中未设置的 domain/protocol/port
// 会以 target 回填。
func New(target string, custom *CustomConfig, opts ...Option) (*Origin, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	target = strings.TrimSpace(target)
	kind, parsed, err := resolveKind(target)
	if err != nil {
		return nil, err
	}

	origin := &Origin{target: target, kind: kind}
	if custom != nil {
		filled := backfillCustom(*custom, parsed)
		if err := validateCustom(filled); err != nil {
			return nil, err
		}
		origin.custom = &filled
	}

	switch kind {
	case KindNone:
		origin.client = noneClient{}
	case KindFile:
		client, err := newFileClient(filePath(target, parsed), o.fs)
		if err != nil {
			return nil, err
		}
		origin.client = client
	case KindHTTP, KindHTTPS:
		httpClient := o.httpClient
		if httpClient == nil {
			httpClient = NewUpstreamClient(0)
		}
		origin.client = newHTTPClient(kind, parsed, httpClient)
	}
	return origin, nil
}

// Target 返回原始 target 字符串。
func (o *Origin) Target() string {
	return o.target
}

// Kind 返回构造时确定的源站类型。
func (o *Origin) Kind() Kind {
	return o.kind
}

// Custom 返回回填后的自定义源站配置副本；未配置时为 nil。
func (o *Origin) Custom() *CustomConfig {
	if o.custom == nil {
		return nil
	}
	c := *o.custom
	return &c
}

// Fetch 将请求交给 Kind 对应的 Client。
func (o *Origin) Fetch(ctx context.Context, ev edge.Event) (edge.Response, error) {
	return o.client.Fetch(ctx, ev)
}

// ConnectionParams 为即将进行的回源合成连接参数。未配置自定义源站时返回 nil；
// domain 仍为空时退回请求自身的 Host。
func (o *Origin) ConnectionParams(req edge.Request) *edge.OriginParams {
	if o == nil || o.custom == nil {
		return nil
	}
	c := o.custom
	params := edge.OriginParams{
		Protocol:         c.Protocol,
		Domain:           c.Domain,
		Port:             c.Port,
		Path:             c.Path,
		ReadTimeout:      c.ReadTimeout,
		KeepaliveTimeout: c.KeepaliveTimeout,
	}
	if params.Domain == "" {
		params.Domain = hostOnly(req.Host())
	}
	if params.Protocol == "" {
		params.Protocol = string(KindHTTP)
	}
	if params.Port == 0 {
		params.Port = defaultPort(params.Protocol)
	}
	if params.ReadTimeout <= 0 {
		params.ReadTimeout = DefaultReadTimeout
	}
	if params.KeepaliveTimeout <= 0 {
		params.KeepaliveTimeout = DefaultKeepaliveTimeout
	}
	return &params
}

func resolveKind(target string) (Kind, *url.URL, error) {
	if target == "" {
		return KindNone, nil, nil
	}
	if isFilesystemPath(target) {
		return KindFile, nil, nil
	}

	parsed, err := url.Parse(target)
	if err != nil {
		return "", nil, fmt.Errorf("invalid origin target %q: %w", target, err)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http":
		if parsed.Host == "" {
			return "", nil, fmt.Errorf("origin target %q has no host", target)
		}
		return KindHTTP, parsed, nil
	case "https":
		if parsed.Host == "" {
			return "", nil, fmt.Errorf("origin target %q has no host", target)
		}
		return KindHTTPS, parsed, nil
	case "file":
		return KindFile, parsed, nil
	case "":
		return KindFile, nil, nil
	default:
		return "", nil, fmt.Errorf("unsupported origin scheme %q", parsed.Scheme)
	}
}

func isFilesystemPath(target string) bool {
	return strings.HasPrefix(target, "/") ||
		strings.HasPrefix(target, "./") ||
		strings.HasPrefix(target, "../") ||
		target == "." || target == ".." ||
		filepath.IsAbs(target)
}

func filePath(target string, parsed *url.URL) string {
	if parsed == nil {
		return target
	}
	if parsed.Host != "" && parsed.Host != "localhost" {
		// file://relative/dir 形式：host 实为第一段目录名。
		return parsed.Host + parsed.Path
	}
	return parsed.Path
}

func backfillCustom(c CustomConfig, target *url.URL) CustomConfig {
	c.Protocol = strings.ToLower(strings.TrimSpace(c.Protocol))
	c.Domain = strings.TrimSpace(c.Domain)
	if target != nil && (target.Scheme == "http" || target.Scheme == "https") {
		if c.Protocol == "" {
			c.Protocol = target.Scheme
		}
		if c.Domain == "" {
			c.Domain = target.Hostname()
		}
		if c.Port == 0 {
			if p, err := strconv.Atoi(target.Port()); err == nil {
				c.Port = p
			}
		}
		if c.Path == "" {
			c.Path = strings.TrimSuffix(target.Path, "/")
		}
	}
	if c.Port == 0 && c.Protocol != "" {
		c.Port = defaultPort(c.Protocol)
	}
	return c
}

func validateCustom(c CustomConfig) error {
	switch c.Protocol {
	case "", string(KindHTTP), string(KindHTTPS):
	default:
		return fmt.Errorf("custom origin protocol must be http or https, got %q", c.Protocol)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("custom origin port out of range: %d", c.Port)
	}
	if strings.ContainsAny(c.Domain, "/ ") {
		return errors.New("custom origin domain must be a bare host name")
	}
	return nil
}

func defaultPort(protocol string) int {
	if strings.EqualFold(protocol, string(KindHTTPS)) {
		return 443
	}
	return 80
}

func hostOnly(hostport string) string {
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return host
	}
	return hostport
}
