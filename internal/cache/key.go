package cache

import (
	_ "crypto/sha256"
	"net"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/any-hub/edgesim/internal/edge"
)

// KeyHeaders 是参与 key 计算的请求头子集，其余头部不影响缓存命中。
var KeyHeaders = []string{"Accept", "Accept-Encoding", "Accept-Language", "Authorization"}

// Key 由方法、规范化 Host、规范化路径、排序后的查询串与 KeyHeaders 计算稳定的 sha256 key。
// 各段以带引号的形式拼接，不同请求不会拼出相同的原文。
func Key(req edge.Request) string {
	return keyDigest(req).Encoded()
}

func keyDigest(req edge.Request) digest.Digest {
	var b strings.Builder
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = "GET"
	}
	b.WriteString(strconv.Quote(method))
	b.WriteByte('\n')
	b.WriteString(strconv.Quote(normalizeHost(req.Host())))
	b.WriteByte('\n')
	b.WriteString(strconv.Quote(normalizePath(req.Path)))
	b.WriteByte('\n')
	b.WriteString(strconv.Quote(normalizeQuery(req.Query)))
	for _, name := range KeyHeaders {
		b.WriteByte('\n')
		b.WriteString(name)
		b.WriteByte('=')
		for _, value := range req.Headers.Values(name) {
			b.WriteString(strconv.Quote(value))
		}
	}
	return digest.FromString(b.String())
}

// normalizeHost 统一大小写并去掉默认端口，a.test 与 A.test:80 视为同一 Host。
func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, port, err := net.SplitHostPort(host); err == nil && (port == "80" || port == "443" || port == "") {
		host = h
	}
	return strings.TrimSuffix(host, ".")
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	cleaned := path.Clean("/" + p)
	if strings.HasSuffix(p, "/") && cleaned != "/" {
		cleaned += "/"
	}
	return cleaned
}

func normalizeQuery(raw string) string {
	raw = strings.TrimPrefix(raw, "?")
	if raw == "" {
		return ""
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return raw
	}
	// Encode 按 key 排序，值保持原有顺序。
	return values.Encode()
}
