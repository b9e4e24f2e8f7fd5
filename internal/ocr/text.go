package ocr

import (
	"cmp"
	"maps"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// TextOptions controls text post-processing. The zero value leaves text as
// the engine returned it.
type TextOptions struct {
	NormalizeForm      string // "NFC", "NFKC", "NFD", "NFKD"; "" disables
	RemoveZeroWidth    bool
	RemoveControlChars bool // keeps \n, \r and \t
	Language           string
	CollapseWhitespace bool
	Trim               bool
}

// CleanTextOptions normalises to form and strips invisible characters but
// keeps the engine's line structure. Zero-width joiners are removed too,
// which changes Persian and Indic text.
func CleanTextOptions(form string) TextOptions {
	return TextOptions{
		NormalizeForm:      form,
		RemoveZeroWidth:    true,
		RemoveControlChars: true,
	}
}

// PostProcessText applies normalization and cleaning to OCR text.
func PostProcessText(s string, opts TextOptions) string {
	if s == "" {
		return s
	}
	s = normalize(s, opts.NormalizeForm)
	if opts.RemoveZeroWidth {
		s = removeZeroWidth(s)
	}
	if opts.RemoveControlChars {
		s = removeControlChars(s)
	}
	if opts.Language != "" {
		s = applyReplaceMap(s, ReplaceMapForLanguage(opts.Language))
	}
	if opts.CollapseWhitespace {
		s = wsRe.ReplaceAllString(s, " ")
	}
	if opts.Trim {
		s = strings.TrimSpace(s)
	}
	return s
}

func normalize(s, form string) string {
	switch strings.ToUpper(form) {
	case "NFC":
		return norm.NFC.String(s)
	case "NFKC":
		return norm.NFKC.String(s)
	case "NFD":
		return norm.NFD.String(s)
	case "NFKD":
		return norm.NFKD.String(s)
	}
	return s
}

// ValidNormalizeForm reports whether form is accepted by PostProcessText.
func ValidNormalizeForm(form string) bool {
	switch strings.ToUpper(form) {
	case "", "NFC", "NFKC", "NFD", "NFKD":
		return true
	}
	return false
}

func applyReplaceMap(s string, m map[string]string) string {
	// longer keys first so overlapping sequences resolve predictably
	keys := slices.SortedFunc(maps.Keys(m), func(a, b string) int {
		return cmp.Or(cmp.Compare(len(b), len(a)), cmp.Compare(a, b))
	})
	for _, k := range keys {
		s = strings.ReplaceAll(s, k, m[k])
	}
	return s
}

// ReplaceMapForLanguage returns typographic replacements for a Tesseract
// language code.
func ReplaceMapForLanguage(lang string) map[string]string {
	m := map[string]string{
		"\u2018": "'",  // left single quote
		"\u2019": "'",  // right single quote
		"\u201C": "\"", // left double quote
		"\u201D": "\"", // right double quote
		"\u2013": "-",  // en dash
		"\u2014": "-",  // em dash
		"\u00A0": " ",  // no-break space
		"\u2009": " ",  // thin space
	}
	switch strings.ToLower(lang) {
	case "deu", "de":
		m["\u201E"] = "\""
	case "fra", "fr":
		m["\u00AB"] = "\""
		m["\u00BB"] = "\""
	}
	return m
}

var wsRe = regexp.MustCompile(`\s+`)

func removeControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

func removeZeroWidth(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\u200B', '\u200C', '\u200D', '\uFEFF':
			return -1
		}
		return r
	}, s)
}
