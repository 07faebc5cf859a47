package fetch

import (
	"errors"
	"fmt"
)

// 管道级别的哨兵错误，调用方用 errors.Is 判定。
var (
	// ErrOffline 表示在离线模式下尝试了网络访问，直接失败不重试。
	ErrOffline = errors.New("offline mode, no remote access permitted")
	// ErrTooManyRedirects 表示重定向跳数超出上限。
	ErrTooManyRedirects = errors.New("too many redirects")
	// ErrMissingLocation 表示重定向响应缺少 Location 头。
	ErrMissingLocation = errors.New("no Location header in redirect")
)

// NotFoundError 表示目标 URL 返回 404。
type NotFoundError struct {
	URL string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no file to download at %s, server replied HTTP code 404", e.URL)
}

// ServerError 表示 404 之外的 >=400 响应，Message 来自响应体的尽力解析。
type ServerError struct {
	URL     string
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server returned HTTP response code %d for URL %s with message: %s", e.Status, e.URL, e.Message)
	}
	return fmt.Sprintf("server returned HTTP response code %d for URL %s", e.Status, e.URL)
}
