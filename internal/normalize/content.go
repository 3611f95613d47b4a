package normalize

import (
	"html"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

var (
	htmlTagRe     = regexp.MustCompile(`<\s*/?\s*[a-zA-Z][^>]*>`)
	blankLineRe   = regexp.MustCompile(`(?m)^[ \t]+$`)
	manyNewlineRe = regexp.MustCompile(`\n{3,}`)
)

var converter = md.NewConverter("", true, &md.Options{
	HeadingStyle:     "atx",
	BulletListMarker: "-",
	CodeBlockStyle:   "fenced",
	EscapeMode:       "disabled",
})

// CleanContent turns release markup into markdown. Input without HTML tags is
// treated as markdown already and only has its blank lines tidied.
func CleanContent(markup string) string {
	text := strings.ReplaceAll(markup, "\r\n", "\n")
	if htmlTagRe.MatchString(text) {
		converted, err := converter.ConvertString(text)
		if err != nil {
			converted = stripTags(text)
		}
		text = converted
	}
	return tidy(text)
}

func stripTags(markup string) string {
	return html.UnescapeString(htmlTagRe.ReplaceAllString(markup, ""))
}

func tidy(text string) string {
	text = blankLineRe.ReplaceAllString(text, "")
	text = manyNewlineRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
