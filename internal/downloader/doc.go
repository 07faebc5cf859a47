// Package downloader orchestrates cached downloads end to end: cache
// lookup and freshness check, conditional revalidation against the
// origin, and the staging transaction that lands new content on disk.
// It composes the cache and fetch packages and is the only layer that
// decides when the network is touched.
package downloader
