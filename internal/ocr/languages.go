package ocr

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const trainedDataExt = ".traineddata"

// ListTrainedData returns the language codes with a .traineddata file in dir,
// sorted. "osd" (orientation data) is not a language and is skipped.
func ListTrainedData(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read tessdata dir: %w", err)
	}
	var langs []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != trainedDataExt {
			continue
		}
		lang := strings.TrimSuffix(e.Name(), trainedDataExt)
		if lang == "osd" {
			continue
		}
		langs = append(langs, lang)
	}
	slices.Sort(langs)
	return langs, nil
}

// ParseLanguages splits a "eng+deu" style language string.
func ParseLanguages(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "+") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// IsLoaded reports whether every language in lang ("eng+deu") is loaded.
func IsLoaded(e Engine, lang string) bool {
	wanted := ParseLanguages(lang)
	if len(wanted) == 0 {
		return false
	}
	loaded := e.LoadedLanguages()
	for _, l := range wanted {
		if !slices.Contains(loaded, l) {
			return false
		}
	}
	return true
}
