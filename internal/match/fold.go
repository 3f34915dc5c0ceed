package match

import (
	"strings"
	"unicode"
)

// fold lowercases s and keeps only its letters and digits, so that
// "Person_DTO" and "persondto" compare equal.
func fold(s string) string {
	var b strings.Builder

	b.Grow(len(s))

	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}

	return b.String()
}
