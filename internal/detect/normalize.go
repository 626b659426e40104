// Package detect decides whether a chat message is an "agda" message: one whose
// text, after whitespace removal and folding of the 喔/哦 equivalence class,
// starts with the same non-ASCII character twice.
package detect

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Equivalent characters. The first member is the canonical representative.
var agdaChars = [...]rune{'喔', '哦'}

// Canonical is the representative every member of the equivalence class folds to.
const Canonical = '喔'

// Normalize removes all whitespace and invalid UTF-8 bytes, and folds every
// member of the equivalence class to Canonical. Other characters, including
// a literal U+FFFD, are kept as-is.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if r == utf8.RuneError && size == 1 {
			continue
		}
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(fold(r))
	}
	return b.String()
}

func fold(r rune) rune {
	for _, c := range agdaChars {
		if r == c {
			return agdaChars[0]
		}
	}
	return r
}
