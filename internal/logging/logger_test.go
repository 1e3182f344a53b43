package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/any-hub/edgesim/internal/config"
	"github.com/any-hub/edgesim/internal/version"
)

func TestConfigureDefaultsToStdout(t *testing.T) {
	logger, err := InitLogger(config.GlobalConfig{LogLevel: "info"})
	if err != nil {
		t.Fatalf("配置失败: %v", err)
	}
	if logger.Out != os.Stdout {
		t.Fatalf("未指定文件时应输出到 stdout")
	}
}

func TestInitLoggerRejectsUnknownLevel(t *testing.T) {
	if _, err := InitLogger(config.GlobalConfig{LogLevel: "chatty"}); err == nil {
		t.Fatalf("未知日志级别应返回错误")
	}
}

func TestInitLoggerFallbackWhenDirectoryUnusable(t *testing.T) {
	dir := t.TempDir()
	// 以普通文件占位，使 MkdirAll 必然失败（root 用户同样适用）。
	blocked := filepath.Join(dir, "blocked")
	if err := os.WriteFile(blocked, []byte("x"), 0o644); err != nil {
		t.Fatalf("创建占位文件失败: %v", err)
	}

	cfg := config.GlobalConfig{
		LogLevel:    "info",
		LogFilePath: filepath.Join(blocked, "sub", "edgesim.log"),
	}
	logger, err := InitLogger(cfg)
	if err != nil {
		t.Fatalf("初始化不应失败: %v", err)
	}
	if logger.Out != os.Stdout {
		t.Fatalf("fallback 时应退回 stdout")
	}
}

func TestConfigureCreatesRotatingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "edgesim.log")
	cfg := config.GlobalConfig{LogLevel: "debug", LogFilePath: path}
	logger, err := InitLogger(cfg)
	if err != nil {
		t.Fatalf("配置失败: %v", err)
	}
	logger.Info("test")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("预期创建日志文件: %v", err)
	}
}

func TestRequestFieldsRenderAsJSON(t *testing.T) {
	logger, err := InitLogger(config.GlobalConfig{LogLevel: "info"})
	if err != nil {
		t.Fatalf("配置失败: %v", err)
	}
	var buf bytes.Buffer
	logger.SetOutput(&buf)

	logger.WithFields(RequestFields("/api/*", "GET", "/api/x", "https", true)).Info("edge_complete")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("日志应为 JSON: %v (%s)", err, buf.String())
	}
	if entry["behavior"] != "/api/*" || entry["origin_kind"] != "https" || entry["cache_hit"] != true {
		t.Fatalf("unexpected fields: %v", entry)
	}
	if entry["msg"] != "edge_complete" {
		t.Fatalf("unexpected message: %v", entry["msg"])
	}
}

func TestEntriesCarryServiceDefaults(t *testing.T) {
	logger, err := InitLogger(config.GlobalConfig{LogLevel: "info"})
	if err != nil {
		t.Fatalf("配置失败: %v", err)
	}
	var buf bytes.Buffer
	logger.SetOutput(&buf)

	logger.WithField("action", "startup").Info("ready")
	logger.WithField("service", "custom").Info("override")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %s", len(lines), buf.String())
	}
	var first, second map[string]interface{}
	if err := json.Unmarshal(lines[0], &first); err != nil {
		t.Fatalf("日志应为 JSON: %v", err)
	}
	if err := json.Unmarshal(lines[1], &second); err != nil {
		t.Fatalf("日志应为 JSON: %v", err)
	}
	if first["service"] != ServiceName || first["version"] != version.Version {
		t.Fatalf("缺少默认字段: %v", first)
	}
	if second["service"] != "custom" {
		t.Fatalf("显式字段应优先: %v", second)
	}
}

func TestRotatorAppliesDefaults(t *testing.T) {
	r := newRotator(config.GlobalConfig{LogFilePath: "/tmp/edgesim.log"})
	if r.MaxSize != defaultMaxSizeMB || r.MaxBackups != defaultMaxBackups {
		t.Fatalf("unexpected rotator defaults: %+v", r)
	}
	r = newRotator(config.GlobalConfig{LogFilePath: "/tmp/edgesim.log", LogMaxSize: 5, LogMaxBackups: 2, LogCompress: true})
	if r.MaxSize != 5 || r.MaxBackups != 2 || !r.Compress {
		t.Fatalf("configured values should win: %+v", r)
	}
}
