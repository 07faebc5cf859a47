package cache

import (
	"os"
	"time"

	"github.com/fetch-cache/fetch-cache/internal/config"
)

// IsStale 判断缓存文件是否需要回源。规则按优先级排列：
//
//   - offline：永不过期（没有网络可用，陈旧的缓存也比失败好；
//     缓存完全缺失的场景由连接层报错，不属于新鲜度问题）
//   - refresh：强制过期
//   - 文件缺失或不可读：过期
//   - 淘汰窗口为 0：每次都过期（默认行为，总是回源验证）
//   - 淘汰窗口为负：永不过期
//   - 其余：年龄 >= 窗口即过期（边界取过期）
//
// 读取修改时间失败一律按过期处理，宁可重新下载也不盲目信任未知内容。
func IsStale(cfg config.DownloadConfig, cachedFile string, now time.Time) bool {
	if cfg.Offline {
		return false
	}
	if cfg.Refresh {
		return true
	}

	info, err := os.Stat(cachedFile)
	if err != nil || !info.Mode().IsRegular() {
		return true
	}

	switch {
	case cfg.CacheEvict == 0:
		return true
	case cfg.CacheEvict < 0:
		return false
	}

	return now.Sub(info.ModTime()) >= cfg.CacheEvict
}

// Touch 将缓存文件的修改时间刷新为 now，用于 304 回应后延长淘汰窗口。
// 个别文件系统不允许修改时间戳；调用方应把失败当作告警而非错误，
// 后果只是该文件下次检查时会再次回源验证。
func Touch(path string, now time.Time) error {
	return os.Chtimes(path, now, now)
}
