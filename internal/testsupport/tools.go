package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// WriteScript materializes an executable POSIX shell script for tests that
// stand in for an external tool. Tests relying on these skip on Windows.
func WriteScript(t testing.TB, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub tool scripts require a POSIX shell")
	}
	path := filepath.Join(dir, name)
	script := "#!/bin/sh\nset -e\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write script %s: %v", name, err)
	}
	return path
}

// StubExtender emulates the lexicon extender: it derives a one-word-per-line
// lexicon from the corpus prompts so the downstream stub builder can cover
// every prompt word.
func StubExtender(t testing.TB, dir string) string {
	t.Helper()
	return WriteScript(t, dir, "extend_lexicon.sh",
		`mkdir -p "$3"
awk '{for (i = 2; i <= NF; i++) print $i}' "$2" | sort -u > "$3/lexicon.txt"`)
}

// StubLangBuilder emulates the language builder: it turns the stub lexicon
// into a complete language directory whose word table covers the lexicon,
// the rubbish label, the skip label, and a word-level disambiguation symbol.
func StubLangBuilder(t testing.TB, dir string) string {
	t.Helper()
	return WriteScript(t, dir, "prepare_lang.sh",
		`mkdir -p "$3" "$4/phones"
{
  echo "<eps>"
  cat "$1/lexicon.txt"
  echo "$2"
  echo "[SKP]"
  echo "#0"
} | awk '!seen[$1]++ {print $1, n++}' > "$4/words.txt"
printf '<eps> 0\nSIL 1\n#0 2\n' > "$4/phones.txt"
printf '#0\n' > "$4/phones/disambig.txt"
printf '2\n' > "$4/phones/disambig.int"
: > "$4/L_disambig.fst"`)
}

// StubGraphCompiler emulates the batch compiler: it reads the keyed grammar
// stream from stdin and writes one archive line plus one index line per
// record into the ark,scp destination named by its final argument.
func StubGraphCompiler(t testing.TB, dir string) string {
	t.Helper()
	return WriteScript(t, dir, "compile_graphs.sh",
		`for last; do :; done
spec="${last#ark,scp:}"
fsts="${spec%,*}"
scp="${spec#*,}"
: > "$fsts"
: > "$scp"
awk -v fsts="$fsts" -v scp="$scp" 'BEGIN { RS = ""; FS = "\n"; off = 0 }
{
  printf "%s compiled\n", $1 >> fsts
  printf "%s %s:%d\n", $1, fsts, off >> scp
  off += length($1) + 10
}'`)
}

// StubModelInfo emulates the model info tool, reporting numPDFs.
func StubModelInfo(t testing.TB, dir string, numPDFs int) string {
	t.Helper()
	return WriteScript(t, dir, "am-info.sh", fmt.Sprintf(
		`echo "number of phones 43"
echo "number of pdfs %d"`, numPDFs))
}

// FailingTool emulates a tool that prints a message to stderr and exits
// non-zero.
func FailingTool(t testing.TB, dir, name, message string) string {
	t.Helper()
	return WriteScript(t, dir, name, fmt.Sprintf(`echo %q >&2
exit 1`, message))
}
