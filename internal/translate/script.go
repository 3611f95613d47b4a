package translate

import (
	"strings"
	"unicode"
)

var targetScripts = map[string][]*unicode.RangeTable{
	"zh": {unicode.Han},
	"ja": {unicode.Hiragana, unicode.Katakana, unicode.Han},
	"ko": {unicode.Hangul},
	"ru": {unicode.Cyrillic},
	"uk": {unicode.Cyrillic},
	"bg": {unicode.Cyrillic},
	"el": {unicode.Greek},
	"ar": {unicode.Arabic},
	"he": {unicode.Hebrew},
	"th": {unicode.Thai},
}

// HasLetter reports whether text contains anything worth translating.
func HasLetter(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// ValidScript reports whether text contains at least one rune of the script of the
// target language. Languages written in Latin script are not checked.
func ValidScript(text, target string) bool {
	lang := strings.ToLower(target)
	if i := strings.IndexAny(lang, "-_"); i >= 0 {
		lang = lang[:i]
	}
	tables, ok := targetScripts[lang]
	if !ok {
		return true
	}
	for _, r := range text {
		if unicode.IsOneOf(tables, r) {
			return true
		}
	}
	return false
}
