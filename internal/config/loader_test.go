package config

import (
	"errors"
	"testing"
)

func TestLoadFailsWithMissingFields(t *testing.T) {
	if _, err := Load(testConfigPath(t, "missing.toml")); err == nil {
		t.Fatalf("缺失字段的配置应返回错误")
	}
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	cfg := `
LogLevel = "info"
UpstreamTimeout = "boom"
`
	path := writeTempConfig(t, cfg)
	if _, err := Load(path); err == nil {
		t.Fatalf("无效 Duration 应失败")
	}
}

func TestLoadRejectsConnectionFieldsOutsideCustom(t *testing.T) {
	cfg := `
[[Origin]]
Pattern = "/api/*"
Target = "https://api.example.com"
Port = 8443
`
	path := writeTempConfig(t, cfg)
	_, err := Load(path)
	var fieldErr FieldError
	if !errors.As(err, &fieldErr) {
		t.Fatalf("expected FieldError, got %v", err)
	}
	if fieldErr.Field != "Origin[/api/*].Port" {
		t.Fatalf("unexpected field path: %s", fieldErr.Field)
	}
}

func TestLoadEmptyFileUsesDefaults(t *testing.T) {
	path := writeTempConfig(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("空配置应使用默认值: %v", err)
	}
	if cfg.Global.ListenPort != 3000 || cfg.Global.LogLevel != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg.Global)
	}
	if cfg.Global.UpstreamTimeout.DurationValue() != 0 {
		t.Fatalf("UpstreamTimeout 默认不应设置超时")
	}
	if len(cfg.Bindings()) != 0 || len(cfg.OriginSpecs()) != 0 {
		t.Fatalf("空配置不应产生绑定")
	}
}
