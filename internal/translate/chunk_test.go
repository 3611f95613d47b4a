package translate

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitChunks_PacksParagraphs(t *testing.T) {
	text := "aaaa\n\nbbbb\n\ncccc"
	chunks := SplitChunks(text, 10)
	assert.Equal(t, []string{"aaaa\n\nbbbb", "cccc"}, chunks)
	assert.Equal(t, text, JoinChunks(chunks))
}

func TestSplitChunks_LongParagraphIsOwnChunk(t *testing.T) {
	long := strings.Repeat("x", 25)
	chunks := SplitChunks("a\n\n"+long+"\n\nb", 10)
	assert.Equal(t, []string{"a", long, "b"}, chunks)
}

func TestSplitChunks_ShortText(t *testing.T) {
	assert.Equal(t, []string{"hello"}, SplitChunks("hello", 0))
	assert.Equal(t, []string{""}, SplitChunks("", 10))
}

func TestSplitChunks_CountsRunes(t *testing.T) {
	// 4 runes each, 12 bytes each
	chunks := SplitChunks("详细内容\n\n详细内容", 10)
	assert.Len(t, chunks, 1)
}

func TestSplitChunks_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	pieces := []string{"word", "版本", " ", "\n", "\n\n", "\n\n\n", "- item", "```go\ncode\n```"}

	for i := 0; i < 200; i++ {
		var b strings.Builder
		for b.Len() < 400+rng.Intn(2000) {
			b.WriteString(pieces[rng.Intn(len(pieces))])
		}
		text := b.String()
		max := 20 + rng.Intn(200)

		chunks := SplitChunks(text, max)
		require.Equal(t, text, JoinChunks(chunks), "max=%d", max)
		for _, c := range chunks {
			if utf8.RuneCountInString(c) > max {
				assert.NotContains(t, c, "\n\n", "oversized chunk must be a single paragraph")
			}
		}
	}
}
