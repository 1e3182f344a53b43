package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/uuid"
	"github.com/opencontainers/go-digest"

	"github.com/any-hub/edgesim/internal/edge"
)

const (
	dataDir     = "data"
	trashPrefix = ".trash-"
)

// NewStore 以 basePath 为根目录构建磁盘缓存，整站复用一份实例。
func NewStore(basePath string) (Store, error) {
	if basePath == "" {
		return nil, errors.New("storage path required")
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve storage path: %w", err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage path: %w", err)
	}

	return NewStoreFS(osfs.New(abs)), nil
}

// NewStoreFS 在任意 billy 文件系统上构建缓存，测试中通常传入 memfs。
func NewStoreFS(filesystem billy.Filesystem) Store {
	return &fileStore{fs: filesystem, now: time.Now}
}

// fileStore 不持有任何按 key 的锁：rename 覆盖保证读者只看到完整条目。
type fileStore struct {
	fs  billy.Filesystem
	now func() time.Time
}

func (s *fileStore) Get(ctx context.Context, req edge.Request) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := Key(req)
	entryPath := s.entryPath(key)
	data, err := util.ReadFile(s.fs, entryPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil || entry.Key != key || !intact(entry) {
		// 损坏或被篡改的条目按未命中处理并顺手清理。
		_ = s.removePath(entryPath)
		return nil, ErrNotFound
	}
	return &entry, nil
}

func (s *fileStore) Put(ctx context.Context, req edge.Request, resp edge.Response) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := Key(req)
	entry := Entry{
		Key:               key,
		StatusCode:        resp.StatusCode,
		StatusDescription: resp.StatusDescription,
		Headers:           resp.Headers.Clone(),
		Body:              append([]byte(nil), resp.Body...),
		BodyEncoding:      resp.BodyEncoding,
		Digest:            digest.FromBytes(resp.Body),
		StoredAt:          s.now().UTC(),
	}
	if entry.BodyEncoding == "" {
		entry.BodyEncoding = edge.BodyEncodingText
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("encode cache entry: %w", err)
	}

	entryPath := s.entryPath(key)
	dir := path.Dir(entryPath)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	tempFile, err := s.fs.TempFile(dir, ".cache-")
	if err != nil {
		return nil, err
	}
	tempName := tempFile.Name()

	_, err = tempFile.Write(payload)
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = s.fs.Remove(tempName)
		return nil, err
	}

	if err := s.fs.Rename(tempName, entryPath); err != nil {
		_ = s.fs.Remove(tempName)
		return nil, err
	}
	return &entry, nil
}

func (s *fileStore) Remove(ctx context.Context, req edge.Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.removePath(s.entryPath(Key(req)))
}

// Purge 先把 data 目录整体改名为 .trash-<uuid>，再删除回收目录。改名之后的读取
// 一律未命中，不会看到只删了一半的目录。
func (s *fileStore) Purge(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	trash := trashPrefix + uuid.NewString()
	if err := s.fs.Rename(dataDir, trash); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s.sweepTrash()
		}
		return fmt.Errorf("swap cache root: %w", err)
	}
	if err := util.RemoveAll(s.fs, trash); err != nil {
		return fmt.Errorf("remove purged cache: %w", err)
	}
	return s.sweepTrash()
}

// sweepTrash 清理此前 Purge 中途失败留下的回收目录。
func (s *fileStore) sweepTrash() error {
	infos, err := s.fs.ReadDir("/")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, info := range infos {
		if !info.IsDir() || !strings.HasPrefix(info.Name(), trashPrefix) {
			continue
		}
		if err := util.RemoveAll(s.fs, info.Name()); err != nil {
			return fmt.Errorf("remove stale cache trash %s: %w", info.Name(), err)
		}
	}
	return nil
}

func (s *fileStore) removePath(entryPath string) error {
	if err := s.fs.Remove(entryPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *fileStore) entryPath(key string) string {
	return path.Join(dataDir, key[:2], key+".json")
}

func intact(entry Entry) bool {
	if entry.Digest.Validate() != nil {
		return false
	}
	return entry.Digest.Algorithm().FromBytes(entry.Body) == entry.Digest
}
