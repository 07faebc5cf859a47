package config

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/fetch-cache/fetch-cache/internal/version"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
// 负值是合法输入：CacheEvict = -1 表示缓存永不过期。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m"、"-1" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// GlobalConfig 描述全局运行时行为，CLI 与 serve 模式共享同一份参数。
type GlobalConfig struct {
	ListenPort     int      `mapstructure:"ListenPort"`
	LogLevel       string   `mapstructure:"LogLevel"`
	LogFilePath    string   `mapstructure:"LogFilePath"`
	LogMaxSize     int      `mapstructure:"LogMaxSize"`
	LogMaxBackups  int      `mapstructure:"LogMaxBackups"`
	LogCompress    bool     `mapstructure:"LogCompress"`
	CachePath      string   `mapstructure:"CachePath"`
	CacheEvict     Duration `mapstructure:"CacheEvict"`
	UserAgent      string   `mapstructure:"UserAgent"`
	ConnectTimeout Duration `mapstructure:"ConnectTimeout"`
	MaxRedirects   int      `mapstructure:"MaxRedirects"`
	Offline        bool     `mapstructure:"Offline"`
	Refresh        bool     `mapstructure:"Refresh"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global GlobalConfig `mapstructure:",squash"`
}

// DownloadConfig 是单次下载调用的不可变快照，按值传递给各操作。
type DownloadConfig struct {
	// Offline 为 true 时禁止一切网络访问，缓存缺失会直接失败。
	Offline bool
	// Refresh 为 true 时无视缓存年龄，强制回源验证。
	Refresh bool
	// CacheEvict 控制缓存淘汰窗口：0 表示每次都回源验证，
	// 负值表示永不过期，正值表示允许的最大缓存年龄。
	CacheEvict time.Duration
	// UserAgent 附加到每个出站请求。
	UserAgent string
	// ConnectTimeout 作用于底层 HTTP 传输的连接与读取。
	ConnectTimeout time.Duration
	// MaxRedirects 限制重定向跳数，超过即失败。
	MaxRedirects int
}

// DownloadConfig 以全局配置为基础构建单次调用快照。
func (c *Config) DownloadConfig() DownloadConfig {
	return DownloadConfig{
		Offline:        c.Global.Offline,
		Refresh:        c.Global.Refresh,
		CacheEvict:     c.Global.CacheEvict.DurationValue(),
		UserAgent:      c.Global.UserAgent,
		ConnectTimeout: c.Global.ConnectTimeout.DurationValue(),
		MaxRedirects:   c.Global.MaxRedirects,
	}
}

// DefaultUserAgent 在启动时构建一次并显式写入配置，避免隐式全局状态。
func DefaultUserAgent() string {
	return fmt.Sprintf("%s (%s %s)", version.Full(), runtime.GOOS, runtime.GOARCH)
}
