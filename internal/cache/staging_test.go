package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func stagingDirs(t *testing.T) (string, string) {
	t.Helper()
	base := t.TempDir()
	contentDir := filepath.Join(base, "entry")
	return contentDir, MetaDirFor(contentDir)
}

func writeGeneration(t *testing.T, contentDir, metaDir, name, payload string) {
	t.Helper()
	if err := os.MkdirAll(contentDir, 0o755); err != nil {
		t.Fatalf("创建内容目录失败: %v", err)
	}
	if err := os.MkdirAll(metaDir, 0o755); err != nil {
		t.Fatalf("创建元数据目录失败: %v", err)
	}
	if err := os.WriteFile(filepath.Join(contentDir, name), []byte(payload), 0o644); err != nil {
		t.Fatalf("写入内容失败: %v", err)
	}
}

func assertNoResidue(t *testing.T, contentDir, metaDir string) {
	t.Helper()
	for _, residue := range []string{contentDir + ".tmp", contentDir + ".old", metaDir + ".tmp", metaDir + ".old"} {
		if _, err := os.Stat(residue); err == nil {
			t.Fatalf("事务结束后不应残留 %s", residue)
		}
	}
}

func TestStagerRunFirstGeneration(t *testing.T) {
	contentDir, metaDir := stagingDirs(t)
	stager := NewStager(nil)

	final, err := stager.Run(contentDir, metaDir, func(tmpContent, tmpMeta string) (string, error) {
		writeGeneration(t, tmpContent, tmpMeta, "app.jar", "v1")
		return filepath.Join(tmpContent, "app.jar"), nil
	})
	if err != nil {
		t.Fatalf("事务失败: %v", err)
	}
	if final != filepath.Join(contentDir, "app.jar") {
		t.Fatalf("最终路径错误: %s", final)
	}
	data, err := os.ReadFile(final)
	if err != nil || string(data) != "v1" {
		t.Fatalf("晋升后的内容不完整: %s, %v", data, err)
	}
	if !isDir(metaDir) {
		t.Fatalf("元数据目录应与内容目录同生共死")
	}
	assertNoResidue(t, contentDir, metaDir)
}

func TestStagerRunReplacesPreviousGeneration(t *testing.T) {
	contentDir, metaDir := stagingDirs(t)
	writeGeneration(t, contentDir, metaDir, "app.jar", "v1")
	stager := NewStager(nil)

	final, err := stager.Run(contentDir, metaDir, func(tmpContent, tmpMeta string) (string, error) {
		writeGeneration(t, tmpContent, tmpMeta, "app.jar", "v2")
		return filepath.Join(tmpContent, "app.jar"), nil
	})
	if err != nil {
		t.Fatalf("事务失败: %v", err)
	}
	data, err := os.ReadFile(final)
	if err != nil || string(data) != "v2" {
		t.Fatalf("应替换为新一代内容，得到 %s, %v", data, err)
	}
	assertNoResidue(t, contentDir, metaDir)
}

func TestStagerRunRollsBackOnFillFailure(t *testing.T) {
	contentDir, metaDir := stagingDirs(t)
	writeGeneration(t, contentDir, metaDir, "app.jar", "v1")
	stager := NewStager(nil)

	boom := errors.New("transfer interrupted")
	_, err := stager.Run(contentDir, metaDir, func(tmpContent, tmpMeta string) (string, error) {
		// 写一半再失败，模拟传输中断
		writeGeneration(t, tmpContent, tmpMeta, "app.jar", "v2-part")
		return "", boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("应重新抛出原始错误，得到 %v", err)
	}

	data, readErr := os.ReadFile(filepath.Join(contentDir, "app.jar"))
	if readErr != nil || string(data) != "v1" {
		t.Fatalf("失败后应保留上一代内容，得到 %s, %v", data, readErr)
	}
	assertNoResidue(t, contentDir, metaDir)
}

func TestStagerRunFailureWithoutPreviousGeneration(t *testing.T) {
	contentDir, metaDir := stagingDirs(t)
	stager := NewStager(nil)

	boom := errors.New("transfer interrupted")
	_, err := stager.Run(contentDir, metaDir, func(tmpContent, tmpMeta string) (string, error) {
		writeGeneration(t, tmpContent, tmpMeta, "app.jar", "partial")
		return "", boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("应重新抛出原始错误，得到 %v", err)
	}
	if isDir(contentDir) || isDir(metaDir) {
		t.Fatalf("从未存在过的最终目录在失败后也不应出现")
	}
	assertNoResidue(t, contentDir, metaDir)
}

func TestStagerRunCleansCrashLeftovers(t *testing.T) {
	contentDir, metaDir := stagingDirs(t)
	// 伪造一次崩溃留下的残骸
	writeGeneration(t, contentDir+".tmp", metaDir+".tmp", "app.jar", "crashed")
	writeGeneration(t, contentDir+".old", metaDir+".old", "app.jar", "ancient")
	stager := NewStager(nil)

	final, err := stager.Run(contentDir, metaDir, func(tmpContent, tmpMeta string) (string, error) {
		writeGeneration(t, tmpContent, tmpMeta, "app.jar", "fresh")
		return filepath.Join(tmpContent, "app.jar"), nil
	})
	if err != nil {
		t.Fatalf("事务失败: %v", err)
	}
	data, err := os.ReadFile(final)
	if err != nil || string(data) != "fresh" {
		t.Fatalf("残骸不应影响新事务，得到 %s, %v", data, err)
	}
	assertNoResidue(t, contentDir, metaDir)
}
