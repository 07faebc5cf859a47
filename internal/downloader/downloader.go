package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-http-utils/headers"
	"github.com/sirupsen/logrus"

	"github.com/fetch-cache/fetch-cache/internal/cache"
	"github.com/fetch-cache/fetch-cache/internal/config"
	"github.com/fetch-cache/fetch-cache/internal/fetch"
	"github.com/fetch-cache/fetch-cache/internal/logging"
)

// Downloader 是缓存下载的编排器。一个实例可被并发复用，
// 但同一 URL 不支持并发写入（见 cache.Stager 的说明）。
type Downloader struct {
	cfg     config.DownloadConfig
	layout  *cache.Layout
	stager  *cache.Stager
	client  *http.Client
	creds   fetch.CredentialProvider
	swizzle func(string) string
	logger  *logrus.Logger
	now     func() time.Time
}

// Option 在构建 Downloader 时注入可替换的依赖。
type Option func(*Downloader)

// WithCredentials 替换默认的环境变量凭证源。
func WithCredentials(creds fetch.CredentialProvider) Option {
	return func(d *Downloader) { d.creds = creds }
}

// WithClock 替换时间源，测试用来控制缓存年龄。
func WithClock(now func() time.Time) Option {
	return func(d *Downloader) { d.now = now }
}

// WithSwizzle 注入重定向目标的 URL 改写钩子。
func WithSwizzle(swizzle func(string) string) Option {
	return func(d *Downloader) { d.swizzle = swizzle }
}

// WithLogger 注入日志器，缺省时不输出日志。
func WithLogger(logger *logrus.Logger) Option {
	return func(d *Downloader) { d.logger = logger }
}

// WithClient 替换底层 HTTP 客户端，自动重定向必须已被禁用。
func WithClient(client *http.Client) Option {
	return func(d *Downloader) { d.client = client }
}

// New 构建下载编排器。cfg 是本实例全部调用共享的不可变快照。
func New(cfg config.DownloadConfig, layout *cache.Layout, opts ...Option) *Downloader {
	d := &Downloader{
		cfg:    cfg,
		layout: layout,
		client: fetch.NewClient(cfg.ConnectTimeout),
		creds:  fetch.NewEnvCredentials(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.stager = cache.NewStager(d.logger)
	return d
}

// DownloadAndCache 返回 rawURL 对应的本地缓存文件路径。
//
// 缓存命中且未过期时不触碰网络；过期时带上条件验证头回源，
// 304 只刷新修改时间，其余成功响应通过写事务替换整代缓存内容。
// 离线模式下缓存缺失会得到 fetch.ErrOffline。
func (d *Downloader) DownloadAndCache(ctx context.Context, rawURL string) (string, error) {
	contentDir := d.layout.DirFor(rawURL)
	metaDir := cache.MetaDirFor(contentDir)
	cached, haveCached := cache.CachedFile(contentDir)

	if haveCached && !cache.IsStale(d.cfg, cached, d.now()) {
		d.logEvent("cache_hit", rawURL, true, logrus.Fields{"file": cached})
		return cached, nil
	}

	opts := []fetch.RequestOption{
		fetch.WithUserAgent(d.cfg.UserAgent),
		fetch.WithAuthorization(d.creds),
	}
	// refresh 模式放弃条件请求，强制取回完整内容
	if haveCached && !d.cfg.Refresh {
		etag := cache.ReadEtag(cached, metaDir)
		var modTime time.Time
		if info, err := os.Stat(cached); err == nil {
			modTime = info.ModTime()
		}
		opts = append(opts, fetch.WithValidators(etag, modTime))
	}

	resp, err := d.pipeline(opts).Do(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if haveCached && resp.StatusCode == http.StatusNotModified {
		if err := cache.Touch(cached, d.now()); err != nil {
			d.logEvent("touch_failed", rawURL, true, logrus.Fields{"file": cached, "error": err.Error()})
		}
		d.logEvent("not_modified", rawURL, true, logrus.Fields{"file": cached})
		return cached, nil
	}

	if err := fetch.ClassifyStatus(resp); err != nil {
		return "", err
	}

	name := fetch.FileName(resp, rawURL)
	final, err := d.stager.Run(contentDir, metaDir, func(tmpContent, tmpMeta string) (string, error) {
		return saveResponse(resp, name, tmpContent, tmpMeta)
	})
	if err != nil {
		return "", err
	}

	d.logEvent("cache_store", rawURL, false, logrus.Fields{"file": final})
	return final, nil
}

// DownloadFile 绕过缓存，把 rawURL 直接下载到 saveDir 并返回文件路径。
// 不带条件验证头、不处理 304、不走写事务；etag side-car 与内容文件同目录。
// timeout 为 0 使用配置的默认超时，负值表示不设整体超时。
func (d *Downloader) DownloadFile(ctx context.Context, rawURL, saveDir string, timeout time.Duration) (string, error) {
	client := d.client
	switch {
	case timeout > 0:
		client = fetch.NewClient(timeout)
	case timeout < 0:
		client = fetch.NewClient(0)
	}

	opts := []fetch.RequestOption{
		fetch.WithUserAgent(d.cfg.UserAgent),
		fetch.WithAuthorization(d.creds),
	}

	p := d.pipeline(opts)
	p.Client = client
	resp, err := p.Do(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := fetch.ClassifyStatus(resp); err != nil {
		return "", err
	}

	name := fetch.FileName(resp, rawURL)
	path, err := saveResponse(resp, name, saveDir, saveDir)
	if err != nil {
		return "", err
	}

	d.logEvent("download", rawURL, false, logrus.Fields{"file": path})
	return path, nil
}

func (d *Downloader) pipeline(opts []fetch.RequestOption) *fetch.Pipeline {
	return &fetch.Pipeline{
		Client:       d.client,
		Options:      opts,
		MaxRedirects: d.cfg.MaxRedirects,
		Swizzle:      d.swizzle,
		Offline:      d.cfg.Offline,
		Logger:       d.logger,
	}
}

func (d *Downloader) logEvent(action, url string, cacheHit bool, extra logrus.Fields) {
	if d.logger == nil {
		return
	}
	fields := logging.FetchFields(action, url, cacheHit)
	for k, v := range extra {
		fields[k] = v
	}
	d.logger.WithFields(fields).Debug(action)
}

// saveResponse 把响应体写入 contentDir 下以 name 命名的文件，
// 响应带 ETag 时在 metaDir 写入 side-car，返回内容文件路径。
func saveResponse(resp *http.Response, name, contentDir, metaDir string) (string, error) {
	if err := os.MkdirAll(contentDir, 0o755); err != nil {
		return "", fmt.Errorf("create content dir: %w", err)
	}
	if err := os.MkdirAll(metaDir, 0o755); err != nil {
		return "", fmt.Errorf("create metadata dir: %w", err)
	}

	path := filepath.Join(contentDir, name)
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}

	if etag := resp.Header.Get(headers.ETag); etag != "" {
		if err := cache.WriteEtag(path, metaDir, etag); err != nil {
			return "", fmt.Errorf("write etag side-car: %w", err)
		}
	}
	return path, nil
}
