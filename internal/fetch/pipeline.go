package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-http-utils/headers"
	"github.com/sirupsen/logrus"
)

// DefaultMaxRedirects 是重定向跳数上限：允许 8 跳，第 9 个重定向响应触发失败。
const DefaultMaxRedirects = 8

// 需要手工追踪的重定向状态码集合。
var redirectStatuses = map[int]struct{}{
	http.StatusMultipleChoices:   {},
	http.StatusMovedPermanently:  {},
	http.StatusFound:             {},
	http.StatusSeeOther:          {},
	http.StatusTemporaryRedirect: {},
	http.StatusPermanentRedirect: {},
}

// Pipeline 描述一次出站连接的全部参数。实例按调用构建、用完即弃，
// 只有底层 http.Client 在调用间复用。
type Pipeline struct {
	// Client 是复用的 HTTP 客户端，自动重定向必须已被禁用。
	Client *http.Client
	// Options 在每个请求（含重定向跳转）发出前依次应用。
	Options []RequestOption
	// MaxRedirects 为 0 时使用 DefaultMaxRedirects。
	MaxRedirects int
	// Swizzle 在解析出的重定向目标上做可插拔的 URL 改写，nil 表示恒等。
	Swizzle func(string) string
	// Offline 为 true 时拒绝打开任何连接。
	Offline bool
	// Logger 输出重定向等调试信息，可为 nil。
	Logger *logrus.Logger
}

// Do 对 rawURL 发起 GET，手工追踪重定向并返回第一个非重定向响应。
// 响应体由调用方负责关闭。错误分类见 ClassifyStatus。
func (p *Pipeline) Do(ctx context.Context, rawURL string) (*http.Response, error) {
	if p.Offline {
		return nil, fmt.Errorf("%s: %w", rawURL, ErrOffline)
	}

	method := http.MethodGet
	current := rawURL
	redirects := 0

	for {
		req, err := http.NewRequestWithContext(ctx, method, current, nil)
		if err != nil {
			return nil, fmt.Errorf("build request for %s: %w", current, err)
		}
		applyOptions(req, p.Options)

		p.debugf("requesting HTTP %s %s", req.Method, req.URL)

		resp, err := p.Client.Do(req)
		if err != nil {
			return nil, err
		}

		if _, ok := redirectStatuses[resp.StatusCode]; !ok {
			return resp, nil
		}

		status := resp.StatusCode
		location := resp.Header.Get(headers.Location)
		_ = resp.Body.Close()

		redirects++
		if redirects > p.maxRedirects() {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrTooManyRedirects)
		}
		if location == "" {
			return nil, fmt.Errorf("%s: %w", current, ErrMissingLocation)
		}

		next, err := resolveLocation(resp.Request.URL, location, p.Swizzle)
		if err != nil {
			return nil, fmt.Errorf("resolve redirect target %q: %w", location, err)
		}
		if status == http.StatusSeeOther {
			// 303 强制把后续请求方法改为 GET
			method = http.MethodGet
		}

		p.debugf("redirected to %s", next)
		current = next
	}
}

func (p *Pipeline) maxRedirects() int {
	if p.MaxRedirects > 0 {
		return p.MaxRedirects
	}
	return DefaultMaxRedirects
}

func (p *Pipeline) debugf(format string, args ...interface{}) {
	if p.Logger != nil {
		p.Logger.Debugf(format, args...)
	}
}

// resolveLocation 相对当前 URL 解析 Location，并应用 swizzle 改写。
func resolveLocation(base *url.URL, location string, swizzle func(string) string) (string, error) {
	ref, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	resolved := base.ResolveReference(ref).String()
	if swizzle != nil {
		resolved = swizzle(resolved)
	}
	return resolved, nil
}
