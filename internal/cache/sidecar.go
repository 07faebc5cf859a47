package cache

import (
	"os"
	"path/filepath"
	"strings"
)

// EtagPath 返回缓存文件在元数据目录中的 etag side-car 路径。
func EtagPath(cachedFile, metaDir string) string {
	return filepath.Join(metaDir, filepath.Base(cachedFile)+".etag")
}

// ReadEtag 尽力读取 side-car 中保存的 ETag，任何失败都返回空串。
// side-car 缺失只意味着这次条件请求少带一个验证器，不值得让整个下载失败。
func ReadEtag(cachedFile, metaDir string) string {
	data, err := os.ReadFile(EtagPath(cachedFile, metaDir))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// WriteEtag 将响应中的 ETag 写入 side-car 文件。
func WriteEtag(cachedFile, metaDir, etag string) error {
	return os.WriteFile(EtagPath(cachedFile, metaDir), []byte(etag), 0o644)
}
