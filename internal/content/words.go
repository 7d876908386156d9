package content

import (
	"strings"
	"unicode"
)

// wordsPerMinute is the reading speed used for ReadingMinutes.
const wordsPerMinute = 300

// CountWords gives a rough word count for mixed CJK and Latin text. Each
// Han, Hiragana, Katakana or Hangul rune counts as one word, other runs are
// split on whitespace.
func CountWords(text string) int {
	n := 0
	inWord := false
	for _, r := range text {
		switch {
		case unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul):
			n++
			inWord = false
		case unicode.IsSpace(r), unicode.IsPunct(r) && r != '\'' && r != '.':
			inWord = false
		default:
			if !inWord {
				n++
				inWord = true
			}
		}
	}
	return n
}

// ReadingMinutes estimates reading time, rounded up; non-empty text takes at
// least a minute.
func ReadingMinutes(words int) int {
	if words <= 0 {
		return 0
	}
	return (words + wordsPerMinute - 1) / wordsPerMinute
}

func stripMarkup(body string) string {
	var b strings.Builder
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimLeft(strings.TrimSpace(line), "#>-*+ ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
