// Package server exposes the cached downloader over HTTP. The Fiber app
// serves GET /fetch?url=... by resolving the URL through the cache and
// streaming back the local file, plus a /healthz liveness endpoint.
package server
