// Package fetch implements the outbound HTTP pipeline: request configuration
// (user agent, authorization, conditional validators), a manual redirect loop
// with a bounded hop count and a pluggable URL swizzle hook, and response
// classification (not-found, server errors with best-effort JSON message
// extraction). The pipeline never retries; callers decide whether a whole
// operation is worth repeating.
package fetch
