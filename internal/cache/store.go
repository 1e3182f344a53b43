package cache

import (
	"context"
	"errors"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/any-hub/edgesim/internal/edge"
)

// Store 负责管理响应缓存的读写。磁盘布局遵循：
//
//	<StoragePath>/data/<key[:2]>/<key>.json    # 状态、头部、正文与摘要
//
// 同一 key 的并发写入不加锁，后写者覆盖先写者。
type Store interface {
	// Get 返回 req 对应的缓存条目。不存在或条目已损坏时返回 ErrNotFound。
	Get(ctx context.Context, req edge.Request) (*Entry, error)

	// Put 以 req 派生的 key 写入 resp，覆盖已有条目。实现需通过临时文件 + rename
	// 保证写入原子性，并在失败时清理临时文件。
	Put(ctx context.Context, req edge.Request, resp edge.Response) (*Entry, error)

	// Remove 删除单个条目，条目不存在时不报错。
	Remove(ctx context.Context, req edge.Request) error

	// Purge 清空全部条目；与并发的 Get/Put 同时调用不会留下半清理状态。
	Purge(ctx context.Context) error
}

// Entry 是一次缓存命中或写入的结果，足以在不回源的情况下重建 Response。
type Entry struct {
	Key               string            `json:"key"`
	StatusCode        int               `json:"status"`
	StatusDescription string            `json:"statusDescription,omitempty"`
	Headers           edge.Headers      `json:"headers"`
	Body              []byte            `json:"body"`
	BodyEncoding      edge.BodyEncoding `json:"bodyEncoding"`
	Digest            digest.Digest     `json:"digest"`
	StoredAt          time.Time         `json:"storedAt"`
}

// Response 将条目还原为 edge.Response，返回值与条目互不共享底层切片。
func (e Entry) Response() edge.Response {
	return edge.Response{
		StatusCode:        e.StatusCode,
		StatusDescription: e.StatusDescription,
		Headers:           e.Headers,
		Body:              e.Body,
		BodyEncoding:      e.BodyEncoding,
	}.Clone()
}

// ErrNotFound 表示缓存不存在。
var ErrNotFound = errors.New("cache entry not found")
