package bunstore

import (
	"strings"
	"unicode"
)

// toSnake converts a Go property name to the column name bun derives for it,
// using ASCII-aware rules so initialisms like "URL" and digit runs come out
// the way bun's own naming does.
func toSnake(s string) string {
	if s == "" {
		return ""
	}

	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(runes) + len(runes)/2)

	lastUnderscore := false

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		switch {
		case unicode.IsUpper(r):
			if b.Len() > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if (unicode.IsLower(prev) || unicode.IsDigit(prev) || nextLower) && !lastUnderscore {
					b.WriteByte('_')
					lastUnderscore = true
				}
			}
			b.WriteRune(unicode.ToLower(r))
			lastUnderscore = false

		case unicode.IsLower(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastUnderscore = false

		case r == '_':
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}

		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	return strings.Trim(b.String(), "_")
}
