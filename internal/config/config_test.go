package config

import (
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(testConfigPath(t, "valid.toml"))
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if cfg.Global.CacheEvict.DurationValue() != 24*time.Hour {
		t.Fatalf("CacheEvict 应当被解析，得到 %v", cfg.Global.CacheEvict.DurationValue())
	}
	if cfg.Global.CachePath == "" {
		t.Fatalf("CachePath 应该被解析为绝对路径")
	}
	if cfg.Global.UserAgent == "" {
		t.Fatalf("UserAgent 应该自动填充默认值")
	}
	if cfg.Global.MaxRedirects != 8 {
		t.Fatalf("MaxRedirects 默认应为 8，得到 %d", cfg.Global.MaxRedirects)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(testConfigPath(t, "nonexistent.toml"))
	if err != nil {
		t.Fatalf("缺失配置文件应退回默认值，得到 %v", err)
	}
	if cfg.Global.CacheEvict.DurationValue() != 0 {
		t.Fatalf("默认 CacheEvict 应为 0（每次回源验证）")
	}
	if cfg.Global.ConnectTimeout.DurationValue() != 30*time.Second {
		t.Fatalf("默认 ConnectTimeout 应为 30s")
	}
}

func TestValidateEnforcesListenPortRange(t *testing.T) {
	cfg, err := Load(testConfigPath(t, "valid.toml"))
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	cfg.Global.ListenPort = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatalf("ListenPort 超出范围应当报错")
	}
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	if _, err := Load(testConfigPath(t, "invalid.toml")); err == nil {
		t.Fatalf("无法识别的日志级别应返回错误")
	}
}

func TestDownloadConfigSnapshot(t *testing.T) {
	cfg := &Config{Global: GlobalConfig{
		Offline:        true,
		CacheEvict:     Duration(-time.Second),
		UserAgent:      "agent",
		ConnectTimeout: Duration(5 * time.Second),
		MaxRedirects:   8,
	}}

	dc := cfg.DownloadConfig()
	if !dc.Offline {
		t.Fatalf("Offline 应被带入快照")
	}
	if dc.CacheEvict >= 0 {
		t.Fatalf("负的 CacheEvict 应保持负值语义")
	}
	if dc.UserAgent != "agent" || dc.ConnectTimeout != 5*time.Second {
		t.Fatalf("快照字段不完整: %+v", dc)
	}
}
