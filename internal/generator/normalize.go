package generator

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks removes combining diacritical marks after NFD decomposition,
// so "Beyoncé" and "Beyonce" simplify to the same key.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Simplify reduces a title or artist name to a comparison key: lowercase,
// diacritics stripped, punctuation removed, whitespace collapsed.
func Simplify(s string) string {
	s = strings.ToLower(s)

	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}

	var b strings.Builder
	b.Grow(len(s))

	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// ArtistVariants returns the simplified artist name plus spelled-out and
// ampersand forms, so "Hall and Oates" matches a library entry tagged
// "Hall & Oates" and vice versa.
func ArtistVariants(name string) []string {
	base := Simplify(name)
	variants := []string{base}

	if strings.Contains(base, " and ") {
		variants = append(variants, strings.ReplaceAll(base, " and ", " "))
	}

	if amp := Simplify(strings.ReplaceAll(name, " & ", " and ")); amp != base {
		variants = append(variants, amp)
	}

	return variants
}
