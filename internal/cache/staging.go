package cache

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// FillFunc 在两个临时目录内完成真正的字节写入（内容文件 + etag side-car），
// 返回写好的内容文件路径。
type FillFunc func(contentDir, metaDir string) (string, error)

// Stager 负责“临时目录写入 → 原子晋升 → 失败回滚”的缓存写事务。
// 事务完成后（无论成败），最终目录要么是新一代内容要么是原有内容，
// 绝不会停留在混合状态；.tmp/.old 残留只在回滚本身失败时出现并记录日志。
//
// 同一缓存目录不支持多进程/多线程并发写入：并发事务会互相践踏
// 对方的 .tmp/.old 路径，这是已知限制，不在此处加锁解决。
type Stager struct {
	logger *logrus.Logger
}

// NewStager 创建写事务执行器，logger 仅用于降级告警，可为 nil。
func NewStager(logger *logrus.Logger) *Stager {
	return &Stager{logger: logger}
}

// Run 执行一次完整的缓存写事务：
//
//  1. 计算 .tmp/.old 兄弟目录并清除上次崩溃的残留；
//  2. 由 fill 向 .tmp 目录写入新内容；
//  3. 把现有最终目录挪到 .old（新内容确认写好前绝不删除旧内容）；
//  4. rename 将 .tmp 晋升为最终目录（依赖同卷 rename 的原子性）；
//  5. 尽力删除 .old；
//  6. 任何一步失败都回滚到原有内容并重新抛出首个错误。
//
// 返回内容文件在最终目录中的路径。
func (s *Stager) Run(contentDir, metaDir string, fill FillFunc) (string, error) {
	tmpContent := contentDir + ".tmp"
	oldContent := contentDir + ".old"
	tmpMeta := metaDir + ".tmp"
	oldMeta := metaDir + ".old"

	for _, stale := range []string{tmpContent, oldContent, tmpMeta, oldMeta} {
		_ = os.RemoveAll(stale)
	}

	filePath, err := fill(tmpContent, tmpMeta)
	if err != nil {
		s.rollback(contentDir, metaDir, tmpContent, tmpMeta, oldContent, oldMeta)
		return "", err
	}

	if err := promote(contentDir, metaDir, tmpContent, tmpMeta, oldContent, oldMeta); err != nil {
		s.rollback(contentDir, metaDir, tmpContent, tmpMeta, oldContent, oldMeta)
		return "", err
	}

	return filepath.Join(contentDir, filepath.Base(filePath)), nil
}

func promote(contentDir, metaDir, tmpContent, tmpMeta, oldContent, oldMeta string) error {
	if isDir(contentDir) {
		if err := os.Rename(contentDir, oldContent); err != nil {
			return fmt.Errorf("stash previous content: %w", err)
		}
	}
	if isDir(metaDir) {
		if err := os.Rename(metaDir, oldMeta); err != nil {
			return fmt.Errorf("stash previous metadata: %w", err)
		}
	}

	if err := os.Rename(tmpContent, contentDir); err != nil {
		return fmt.Errorf("promote content: %w", err)
	}
	if err := os.Rename(tmpMeta, metaDir); err != nil {
		return fmt.Errorf("promote metadata: %w", err)
	}

	// 被替换的一代只做尽力清理，失败不影响事务结果
	_ = os.RemoveAll(oldContent)
	_ = os.RemoveAll(oldMeta)
	return nil
}

// rollback 清除 .tmp 并把 .old 挪回最终位置。二次失败无计可施，
// 汇总为一条 cache_degraded 告警后继续，原始错误仍由调用方抛出。
func (s *Stager) rollback(contentDir, metaDir, tmpContent, tmpMeta, oldContent, oldMeta string) {
	var degraded *multierror.Error

	for _, tmp := range []string{tmpContent, tmpMeta} {
		if err := os.RemoveAll(tmp); err != nil {
			degraded = multierror.Append(degraded, fmt.Errorf("remove staging dir %s: %w", tmp, err))
		}
	}

	if !isDir(contentDir) && isDir(oldContent) {
		if err := os.Rename(oldContent, contentDir); err != nil {
			degraded = multierror.Append(degraded, fmt.Errorf("restore previous content %s: %w", contentDir, err))
		}
	}
	if !isDir(metaDir) && isDir(oldMeta) {
		if err := os.Rename(oldMeta, metaDir); err != nil {
			degraded = multierror.Append(degraded, fmt.Errorf("restore previous metadata %s: %w", metaDir, err))
		}
	}

	if degraded != nil && s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"action": "cache_degraded",
			"dir":    contentDir,
		}).Warn(degraded.Error())
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
