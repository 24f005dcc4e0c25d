package grammar

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Homophones maps a word to the set of words pronounced identically. Each
// line of the source file is one equivalence class; a word appearing on
// several lines accumulates the union of its classes.
type Homophones map[string]map[string]struct{}

// ReadHomophonesFile loads a homophone table. A missing path yields an empty
// table, which is an acceptable argument everywhere.
func ReadHomophonesFile(path string) (Homophones, error) {
	h := make(Homophones)
	if path == "" {
		return h, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open homophones %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		words := strings.Fields(scanner.Text())
		if len(words) < 2 {
			continue
		}
		for _, w := range words {
			set := h[w]
			if set == nil {
				set = make(map[string]struct{})
				h[w] = set
			}
			for _, other := range words {
				set[other] = struct{}{}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read homophones %s: %w", path, err)
	}
	return h, nil
}

// Alternates returns the homophones of a word other than the word itself,
// sorted so grammar output stays byte-stable across runs.
func (h Homophones) Alternates(word string) []string {
	set, ok := h[word]
	if !ok {
		return nil
	}
	alts := make([]string, 0, len(set))
	for alt := range set {
		if alt != word {
			alts = append(alts, alt)
		}
	}
	sort.Strings(alts)
	return alts
}

// Equivalent reports whether two words are homophones of each other. A word
// is always a homophone of itself.
func (h Homophones) Equivalent(a, b string) bool {
	if a == b {
		return true
	}
	if set, ok := h[a]; ok {
		if _, ok := set[b]; ok {
			return true
		}
	}
	return false
}
