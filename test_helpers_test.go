package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// cliOutput 收集一次 run() 期间写入 stdOut/stdErr 的内容。
type cliOutput struct {
	out *bytes.Buffer
	err *bytes.Buffer
}

// captureOutput 在测试期间把 stdOut/stdErr 换成内存缓冲区，结束后恢复。
func captureOutput(t *testing.T) *cliOutput {
	t.Helper()

	captured := &cliOutput{out: &bytes.Buffer{}, err: &bytes.Buffer{}}
	prevOut, prevErr := stdOut, stdErr
	stdOut, stdErr = captured.out, captured.err
	t.Cleanup(func() {
		stdOut, stdErr = prevOut, prevErr
	})
	return captured
}

// configFixture 返回 internal/config/testdata 下的配置样例；go test 以包目录为工作目录。
func configFixture(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join("internal", "config", "testdata", name)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("配置样例不存在: %v", err)
	}
	return path
}

// writeConfigFile 把 TOML 写入临时目录，StoragePath 等路径由调用方填好。
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(file, []byte(strings.TrimSpace(content)), 0o600); err != nil {
		t.Fatalf("写入配置失败: %v", err)
	}
	return file
}
