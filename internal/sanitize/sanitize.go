// Package sanitize turns team and player names into filesystem-safe tokens.
package sanitize

import (
	"strings"
	"unicode"
)

const maxNameLength = 64

// Name maps an arbitrary team/player string to a filesystem-safe token.
// Characters outside the allow-list (letters, digits, hyphen, underscore)
// and whitespace runs collapse to a single underscore. The result is
// truncated to a bounded length and never starts or ends with a separator.
// Deterministic and idempotent: Name(Name(s)) == Name(s).
func Name(s string) string {
	var b strings.Builder

	b.Grow(len(s))

	pendingSep := false

	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}

			pendingSep = false

			b.WriteRune(r)
		default:
			// underscores, whitespace and everything else fold into one separator
			pendingSep = true
		}
	}

	out := b.String()

	if runes := []rune(out); len(runes) > maxNameLength {
		out = string(runes[:maxNameLength])
	}

	return strings.Trim(out, "-_")
}
