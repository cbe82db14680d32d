package session

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	bracketTags = regexp.MustCompile(`\[[^\]]*\]|【[^】]*】|<[^>]*>`)
	markdown    = regexp.MustCompile("[*#_`~>|]+")
)

// CleanForSpeech strips classification tags, markdown and decorative symbols
// so the synthesizer only reads the question itself.
func CleanForSpeech(text string) string {
	text = bracketTags.ReplaceAllString(text, " ")
	text = markdown.ReplaceAllString(text, " ")

	text = strings.Map(func(r rune) rune {
		switch {
		case unicode.Is(unicode.So, r), unicode.Is(unicode.Sk, r), unicode.Is(unicode.Co, r):
			return -1
		case r == '\u200d' || (r >= '\ufe00' && r <= '\ufe0f'):
			return -1
		case unicode.IsControl(r):
			return ' '
		}
		return r
	}, text)

	return strings.Join(strings.Fields(text), " ")
}
