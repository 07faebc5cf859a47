package server

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fetch-cache/fetch-cache/internal/fetch"
)

// Fetcher 描述缓存下载能力，测试时可注入假实现。
type Fetcher interface {
	DownloadAndCache(ctx context.Context, rawURL string) (string, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, rawURL string) (string, error)

// DownloadAndCache makes FetcherFunc satisfy Fetcher.
func (f FetcherFunc) DownloadAndCache(ctx context.Context, rawURL string) (string, error) {
	return f(ctx, rawURL)
}

// AppOptions controls how the Fiber application should behave.
type AppOptions struct {
	Logger     *logrus.Logger
	Fetcher    Fetcher
	ListenPort int
}

const contextKeyRequestID = "_fetchcache_request_id"

// NewApp builds a Fiber application serving the fetch and health endpoints
// with request-ID and structured access logging middleware.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if opts.ListenPort <= 0 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestIDMiddleware())

	app.Get("/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/fetch", handleFetch(opts))

	return app, nil
}

// requestIDMiddleware 为每个请求生成 ID，写入 Locals 与响应头。
func requestIDMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)
		return c.Next()
	}
}

// RequestID returns the request identifier stored by the middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

// handleFetch 解析 url 参数，通过缓存下载器取回本地文件并直接回送字节。
func handleFetch(opts AppOptions) fiber.Handler {
	return func(c fiber.Ctx) error {
		started := time.Now()
		rawURL := string(c.Request().URI().QueryArgs().Peek("url"))
		if err := validateFetchURL(rawURL); err != nil {
			return writeError(c, fiber.StatusBadRequest, "invalid_url")
		}

		path, err := opts.Fetcher.DownloadAndCache(c.Context(), rawURL)
		logResult(opts.Logger, c, rawURL, started, err)
		if err != nil {
			return writeFetchError(c, err)
		}
		return c.SendFile(path)
	}
}

func validateFetchURL(rawURL string) error {
	if rawURL == "" {
		return errors.New("url parameter required")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported scheme: %s", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("url host required")
	}
	return nil
}

// writeFetchError 把下载错误映射为 HTTP 状态：离线 503，远端 404 原样 404，
// 其余远端/重定向问题 502，未知错误 500。
func writeFetchError(c fiber.Ctx, err error) error {
	var notFound *fetch.NotFoundError
	var serverErr *fetch.ServerError

	switch {
	case errors.Is(err, fetch.ErrOffline):
		return writeError(c, fiber.StatusServiceUnavailable, "offline")
	case errors.As(err, &notFound):
		return writeError(c, fiber.StatusNotFound, "not_found")
	case errors.As(err, &serverErr):
		return writeError(c, fiber.StatusBadGateway, "upstream_failed")
	case errors.Is(err, fetch.ErrTooManyRedirects), errors.Is(err, fetch.ErrMissingLocation):
		return writeError(c, fiber.StatusBadGateway, "redirect_failed")
	default:
		return writeError(c, fiber.StatusInternalServerError, "fetch_failed")
	}
}

func writeError(c fiber.Ctx, status int, code string) error {
	return c.Status(status).JSON(fiber.Map{"error": code})
}

func logResult(logger *logrus.Logger, c fiber.Ctx, rawURL string, started time.Time, err error) {
	fields := logrus.Fields{
		"action":     "fetch",
		"url":        rawURL,
		"elapsed_ms": time.Since(started).Milliseconds(),
	}
	if reqID := RequestID(c); reqID != "" {
		fields["request_id"] = reqID
	}
	if err != nil {
		fields["error"] = err.Error()
		logger.WithFields(fields).Error("fetch_failed")
		return
	}
	logger.WithFields(fields).Info("fetch_complete")
}
