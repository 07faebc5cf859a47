package config

import (
	"testing"
	"time"
)

func TestLoadRejectsInvalidDuration(t *testing.T) {
	cfg := `
LogLevel = "info"
CachePath = "./cache"
CacheEvict = "boom"
`
	path := writeTempConfig(t, cfg)
	if _, err := Load(path); err == nil {
		t.Fatalf("无效 Duration 应失败")
	}
}

func TestLoadAcceptsIntegerSeconds(t *testing.T) {
	cfg := `
CachePath = "./cache"
CacheEvict = 3600
`
	path := writeTempConfig(t, cfg)
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if loaded.Global.CacheEvict.DurationValue() != time.Hour {
		t.Fatalf("整数秒应被解析为 Duration，得到 %v", loaded.Global.CacheEvict.DurationValue())
	}
}

func TestLoadAcceptsNegativeEvict(t *testing.T) {
	cfg := `
CachePath = "./cache"
CacheEvict = -1
`
	path := writeTempConfig(t, cfg)
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if loaded.Global.CacheEvict.DurationValue() != -time.Second {
		t.Fatalf("-1 应解析为负 Duration（永不过期），得到 %v", loaded.Global.CacheEvict.DurationValue())
	}
}

func TestDurationUnmarshalText(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Duration
	}{
		{"30s", 30 * time.Second},
		{"5m", 5 * time.Minute},
		{"60", time.Minute},
		{"-1", -time.Second},
		{"", 0},
	}
	for _, tc := range cases {
		var d Duration
		if err := d.UnmarshalText([]byte(tc.raw)); err != nil {
			t.Fatalf("解析 %q 失败: %v", tc.raw, err)
		}
		if d.DurationValue() != tc.want {
			t.Fatalf("解析 %q 得到 %v，期望 %v", tc.raw, d.DurationValue(), tc.want)
		}
	}
}
