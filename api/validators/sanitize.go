package validators

import (
	"strings"
	"unicode"
)

// SanitizeString trims input, drops control characters, collapses runs of
// whitespace to one space and cuts the result to maxLen runes. maxLen <= 0
// disables the cut.
func SanitizeString(input string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(input))
	runes, pendingSpace := 0, false
	for _, r := range input {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
			continue
		case unicode.IsControl(r):
			continue
		}
		if pendingSpace {
			if maxLen > 0 && runes+1 >= maxLen {
				break
			}
			b.WriteByte(' ')
			runes++
			pendingSpace = false
		}
		if maxLen > 0 && runes >= maxLen {
			break
		}
		b.WriteRune(r)
		runes++
	}
	return b.String()
}
