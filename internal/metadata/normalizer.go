package metadata

import (
	"regexp"
	"strings"
)

// Leading track number such as "01 - ", "3.", "12_" or "7) "
var trackNumberPrefix = regexp.MustCompile(`^\s*\d{1,3}[\s\-._:)\]]+`)

// Trailing audio extension left on file names
var audioExtSuffix = regexp.MustCompile(`(?i)\.(mp3|m4a|wav|aac|flac|ogg)$`)

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]`)

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeTitle turns a track title or file name into a comparable form:
// track number and audio extension stripped, punctuation replaced by spaces,
// words title-cased, whitespace collapsed.
func NormalizeTitle(text string) string {
	text = trackNumberPrefix.ReplaceAllString(text, "")
	text = audioExtSuffix.ReplaceAllString(text, "")
	text = nonAlphanumeric.ReplaceAllString(text, " ")
	text = titleCase(text)
	text = whitespaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// titleCase upper-cases a letter that follows a non-letter and lower-cases
// the rest. Digits break words, so "1st" becomes "1St".
func titleCase(s string) string {
	b := []byte(s)
	prevLetter := false
	for i, c := range b {
		switch {
		case c >= 'a' && c <= 'z':
			if !prevLetter {
				b[i] = c - 'a' + 'A'
			}
			prevLetter = true
		case c >= 'A' && c <= 'Z':
			if prevLetter {
				b[i] = c - 'A' + 'a'
			}
			prevLetter = true
		default:
			prevLetter = false
		}
	}
	return string(b)
}
