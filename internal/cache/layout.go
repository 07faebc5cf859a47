package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Layout 以 basePath 为根目录决定每个 URL 的缓存位置，整个进程复用一份实例。
type Layout struct {
	basePath string
}

// NewLayout 解析并创建缓存根目录。
func NewLayout(basePath string) (*Layout, error) {
	if basePath == "" {
		return nil, errors.New("cache path required")
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve cache path: %w", err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create cache path: %w", err)
	}

	return &Layout{basePath: abs}, nil
}

// BasePath 返回缓存根目录的绝对路径。
func (l *Layout) BasePath() string {
	return l.basePath
}

// DirFor 将 URL 映射到内容目录。键使用 URL 字符串的 sha256 十六进制，
// 保证不同 URL 不会落到同一目录，且与平台路径规则无关。
func (l *Layout) DirFor(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return filepath.Join(l.basePath, hex.EncodeToString(sum[:]))
}

// MetaDirFor 返回内容目录对应的元数据目录（etag 等 side-car 文件）。
func MetaDirFor(contentDir string) string {
	return contentDir + ".meta"
}

// CachedFile 返回内容目录中唯一的常规文件。目录缺失、为空或包含多个
// 文件时返回 ok=false；缓存的约定是每个 URL 至多存放一个文件。
func CachedFile(contentDir string) (string, bool) {
	entries, err := os.ReadDir(contentDir)
	if err != nil {
		return "", false
	}

	found := ""
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if found != "" {
			return "", false
		}
		found = filepath.Join(contentDir, entry.Name())
	}
	if found == "" {
		return "", false
	}
	return found, true
}
