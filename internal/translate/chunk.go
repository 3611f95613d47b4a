package translate

import (
	"strings"
	"unicode/utf8"
)

// DefaultChunkSize is the largest chunk, in runes, sent to a backend in one call.
const DefaultChunkSize = 5000

const paragraphSep = "\n\n"

// SplitChunks packs whole paragraphs into chunks of at most max runes. A paragraph
// longer than max becomes a chunk of its own. JoinChunks reverses it exactly.
func SplitChunks(text string, max int) []string {
	if max <= 0 {
		max = DefaultChunkSize
	}
	paragraphs := strings.Split(text, paragraphSep)
	sepLen := utf8.RuneCountInString(paragraphSep)

	var (
		chunks  []string
		current []string
		size    int
	)
	for _, p := range paragraphs {
		n := utf8.RuneCountInString(p)
		if len(current) > 0 && size+sepLen+n > max {
			chunks = append(chunks, strings.Join(current, paragraphSep))
			current, size = nil, 0
		}
		if len(current) > 0 {
			size += sepLen
		}
		current = append(current, p)
		size += n
	}
	return append(chunks, strings.Join(current, paragraphSep))
}

// JoinChunks rejoins chunks produced by SplitChunks.
func JoinChunks(chunks []string) string {
	return strings.Join(chunks, paragraphSep)
}
