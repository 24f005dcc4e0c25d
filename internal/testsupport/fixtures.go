package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteCorpus writes a prompt corpus file, one "<id> <prompt>" line per
// entry, and returns its path.
func WriteCorpus(t testing.TB, dir string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, "text")
	content := strings.Join(lines, "\n")
	if content != "" {
		content += "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write corpus: %v", err)
	}
	return path
}

// NewModelDir creates a model directory holding placeholder tree and
// final.mdl files.
func NewModelDir(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"tree", "final.mdl"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("model data"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

// NewDictDir creates a base pronunciation dictionary directory with a
// minimal lexicon.
func NewDictDir(t testing.TB, words ...string) string {
	t.Helper()
	dir := t.TempDir()
	var b strings.Builder
	for _, word := range words {
		b.WriteString(word + " SIL\n")
	}
	if err := os.WriteFile(filepath.Join(dir, "lexicon.txt"), []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write lexicon: %v", err)
	}
	return dir
}
