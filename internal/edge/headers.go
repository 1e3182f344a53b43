package edge

import (
	"net/http"
	"net/textproto"
	"sort"
	"strings"
)

// HeaderField 表示一条原始头部，Key 保留调用方给出的大小写。
type HeaderField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Headers 是有序、可重复的头部列表；所有修改方法都返回新切片，原值保持不变。
type Headers []HeaderField

// Get 返回第一个匹配 key（大小写不敏感）的值。
func (h Headers) Get(key string) string {
	for _, field := range h {
		if strings.EqualFold(field.Key, key) {
			return field.Value
		}
	}
	return ""
}

// Values 按出现顺序返回 key 的全部取值。
func (h Headers) Values(key string) []string {
	var out []string
	for _, field := range h {
		if strings.EqualFold(field.Key, key) {
			out = append(out, field.Value)
		}
	}
	return out
}

// Has 判断是否存在指定头部。
func (h Headers) Has(key string) bool {
	for _, field := range h {
		if strings.EqualFold(field.Key, key) {
			return true
		}
	}
	return false
}

// Clone 深拷贝头部列表。
func (h Headers) Clone() Headers {
	if h == nil {
		return nil
	}
	out := make(Headers, len(h))
	copy(out, h)
	return out
}

// With 用单个值替换 key 的全部取值；若 key 已存在则保留其首次出现的位置。
func (h Headers) With(key, value string) Headers {
	out := make(Headers, 0, len(h)+1)
	replaced := false
	for _, field := range h {
		if !strings.EqualFold(field.Key, key) {
			out = append(out, field)
			continue
		}
		if !replaced {
			out = append(out, HeaderField{Key: field.Key, Value: value})
			replaced = true
		}
	}
	if !replaced {
		out = append(out, HeaderField{Key: key, Value: value})
	}
	return out
}

// Adding 在末尾追加一个取值，不影响已有同名头部。
func (h Headers) Adding(key, value string) Headers {
	out := make(Headers, len(h), len(h)+1)
	copy(out, h)
	return append(out, HeaderField{Key: key, Value: value})
}

// Without 删除 key 的全部取值。
func (h Headers) Without(key string) Headers {
	out := make(Headers, 0, len(h))
	for _, field := range h {
		if !strings.EqualFold(field.Key, key) {
			out = append(out, field)
		}
	}
	return out
}

// HTTP 转换为 net/http 头部，键名按 MIME 规范化。
func (h Headers) HTTP() http.Header {
	out := make(http.Header, len(h))
	for _, field := range h {
		out.Add(field.Key, field.Value)
	}
	return out
}

// HeadersFromHTTP 将 http.Header 转为有序列表；map 无序，因此按规范化键名排序以保证确定性。
func HeadersFromHTTP(src http.Header) Headers {
	if len(src) == 0 {
		return nil
	}
	keys := make([]string, 0, len(src))
	for key := range src {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make(Headers, 0, len(src))
	for _, key := range keys {
		canonical := textproto.CanonicalMIMEHeaderKey(key)
		for _, value := range src[key] {
			out = append(out, HeaderField{Key: canonical, Value: value})
		}
	}
	return out
}
