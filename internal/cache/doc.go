// Package cache implements the disk-backed content cache keyed by URL. Each
// URL maps to a content directory <CachePath>/<sha256(url)> holding exactly
// one downloaded file, plus a sibling <dir>.meta directory holding the
// <filename>.etag side-car. Writes go through a staging transaction
// (.tmp/.old sibling directories promoted by rename) so a crash mid-download
// never leaves a partially written cache entry, and the freshness policy
// decides when a cached file may be served without contacting the origin.
package cache
