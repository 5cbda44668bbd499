package validators

import (
	"strings"
	"unicode"
)

// SanitizeString folds runs of whitespace into single spaces, drops other
// control characters and cuts the result to maxLen runes. A maxLen of zero
// or less disables the cut.
func SanitizeString(input string, maxLen int) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.Join(strings.Fields(input), " "))
	if maxLen <= 0 {
		return cleaned
	}
	if runes := []rune(cleaned); len(runes) > maxLen {
		cleaned = strings.TrimSpace(string(runes[:maxLen]))
	}
	return cleaned
}
