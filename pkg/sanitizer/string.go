package sanitizer

import (
	"strings"
	"unicode"
)

// TrimAndNormalize collapses internal whitespace runs to single spaces and
// trims the ends.
func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

func NormalizeName(name string) string {
	return TrimAndNormalize(name)
}

// NormalizeObservations strips control characters before normalizing
// whitespace; observations come straight from free-text fields.
func NormalizeObservations(obs string) string {
	var cleaned strings.Builder
	for _, r := range obs {
		if !unicode.IsControl(r) || r == '\n' {
			cleaned.WriteRune(r)
		}
	}
	return TrimAndNormalize(cleaned.String())
}
