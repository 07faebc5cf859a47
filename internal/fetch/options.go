package fetch

import (
	"net/http"
	"time"

	"github.com/go-http-utils/headers"
)

// RequestOption 在请求发出前按顺序修饰出站请求。每次重定向跳转都会
// 对新请求重新应用全部 option。
type RequestOption func(*http.Request)

// WithUserAgent 设置 User-Agent 头。
func WithUserAgent(agent string) RequestOption {
	return func(req *http.Request) {
		req.Header.Set(headers.UserAgent, agent)
	}
}

// WithAuthorization 按目标主机附加 Authorization 头，凭证源决定具体方案。
func WithAuthorization(creds CredentialProvider) RequestOption {
	return func(req *http.Request) {
		if creds == nil {
			return
		}
		if auth := creds.Authorization(req.URL.Hostname()); auth != "" {
			req.Header.Set(headers.Authorization, auth)
		}
	}
}

// WithValidators 附加条件请求头：If-None-Match 来自 etag side-car，
// If-Modified-Since 来自缓存文件的修改时间（RFC-1123，GMT）。
func WithValidators(etag string, modTime time.Time) RequestOption {
	return func(req *http.Request) {
		if etag != "" {
			req.Header.Set(headers.IfNoneMatch, etag)
		}
		if !modTime.IsZero() {
			req.Header.Set(headers.IfModifiedSince, modTime.UTC().Format(http.TimeFormat))
		}
	}
}

func applyOptions(req *http.Request, opts []RequestOption) {
	for _, opt := range opts {
		opt(req)
	}
}
