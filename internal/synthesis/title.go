package synthesis

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	titleMaxWords = 12
	untitled      = "Untitled requirement"
)

// DeriveTitle takes the first twelve words of text, strips surrounding punctuation from
// each and capitalizes the first letter.
func DeriveTitle(text string) string {
	fields := strings.Fields(text)
	if len(fields) > titleMaxWords {
		fields = fields[:titleMaxWords]
	}
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if w := strings.Trim(f, " ,.;:"); w != "" {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return untitled
	}
	title := strings.Join(words, " ")
	r, size := utf8.DecodeRuneInString(title)
	return string(unicode.ToUpper(r)) + title[size:]
}
