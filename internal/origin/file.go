package origin

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/any-hub/edgesim/internal/edge"
)

// fileClient 以 base 目录为根读取请求路径；billy 的 chroot 保证路径不会越出根目录。
type fileClient struct {
	base string
	fs   billy.Filesystem
}

func newFileClient(base string, fs billy.Filesystem) (*fileClient, error) {
	if fs != nil {
		return &fileClient{base: base, fs: fs}, nil
	}
	if base == "" {
		return nil, fmt.Errorf("file origin requires a base directory")
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("resolve file origin %s: %w", base, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("file origin %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("file origin %s is not a directory", abs)
	}
	return &fileClient{base: abs, fs: osfs.New(abs)}, nil
}

func (c *fileClient) Kind() Kind { return KindFile }

func (c *fileClient) sealed() {}

// Fetch 读取文件内容；I/O 失败原样返回，由引擎归类为 500。
func (c *fileClient) Fetch(_ context.Context, ev edge.Event) (edge.Response, error) {
	rel := strings.TrimPrefix(path.Clean("/"+ev.Request.Path), "/")
	if rel == "" {
		return edge.Response{}, fmt.Errorf("file origin %s: empty path", c.base)
	}

	info, err := c.fs.Stat(rel)
	if err != nil {
		return edge.Response{}, fmt.Errorf("file origin stat %s: %w", rel, err)
	}
	if info.IsDir() {
		return edge.Response{}, fmt.Errorf("file origin %s: %s is a directory", c.base, rel)
	}

	body, err := util.ReadFile(c.fs, rel)
	if err != nil {
		return edge.Response{}, fmt.Errorf("file origin read %s: %w", rel, err)
	}

	resp := edge.NewResponse(http.StatusOK, body)
	resp.Headers = edge.Headers{
		{Key: "Content-Type", Value: contentType(rel)},
		{Key: "Content-Length", Value: strconv.Itoa(len(body))},
		{Key: "Last-Modified", Value: info.ModTime().UTC().Format(http.TimeFormat)},
	}
	return resp, nil
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
