package lang

import (
	"fmt"
	"os"
	"path/filepath"

	"lectern/internal/fileutil"
)

// staleExtensionFiles are artifacts of a previous extension pass. The
// extender must always start from the base dictionary, so these never travel
// into the staged copy.
var staleExtensionFiles = map[string]struct{}{
	"lexicon_extended.txt": {},
	"lexiconp.txt":         {},
	"homophones.txt":       {},
}

// StageDict copies the base lexicon directory into the workspace, stripping
// any pre-existing extended-lexicon files. Subdirectories are copied as-is.
func StageDict(srcDir, dstDir string) error {
	return copyTree(srcDir, dstDir, true)
}

func copyTree(srcDir, dstDir string, stripStale bool) error {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return fmt.Errorf("read lexicon source %s: %w", srcDir, err)
	}
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("create staged dir %s: %w", dstDir, err)
	}
	for _, entry := range entries {
		src := filepath.Join(srcDir, entry.Name())
		dst := filepath.Join(dstDir, entry.Name())
		if entry.IsDir() {
			if err := copyTree(src, dst, false); err != nil {
				return err
			}
			continue
		}
		if stripStale {
			if _, stale := staleExtensionFiles[entry.Name()]; stale {
				continue
			}
		}
		if err := fileutil.CopyFile(src, dst); err != nil {
			return fmt.Errorf("stage %s: %w", src, err)
		}
	}
	return nil
}
