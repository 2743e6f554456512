// Package slug turns titles into URL path segments.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxLength = 96

// Make folds accents, lowercases, and collapses every run of non
// alphanumerics into a single hyphen. "Café Résumé 2024!" becomes
// "cafe-resume-2024".
func Make(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}

	out := b.String()
	if len(out) > maxLength {
		out = strings.TrimRight(out[:maxLength], "-")
		for !utf8Valid(out) {
			out = out[:len(out)-1]
		}
	}
	return out
}

// Valid reports whether s is already in canonical slug form.
func Valid(s string) bool {
	return s != "" && Make(s) == s
}

func utf8Valid(s string) bool {
	return strings.ToValidUTF8(s, "�") == s
}
