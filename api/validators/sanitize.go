package validators

import "strings"

// SanitizeString trims whitespace and truncates user-supplied text fields.
func SanitizeString(input string, maxLen int) string {
	out := strings.TrimSpace(input)
	if maxLen > 0 && len(out) > maxLen {
		return out[:maxLen]
	}
	return out
}
