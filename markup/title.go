package markup

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"
)

// Ellipsis marks truncated navigation labels.
const Ellipsis = "..."

// CleanTitle turns markup fragment into display string: markup is stripped,
// line breaks become spaces, entities are unescaped and whitespace is
// collapsed.
func CleanTitle(raw string) string {
	var sb strings.Builder
	z := html.NewTokenizer(strings.NewReader(raw))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return Collapse(sb.String())
		case html.TextToken:
			sb.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			if name, _ := z.TagName(); atom.Lookup(name) == atom.Br {
				sb.WriteByte(' ')
			}
		}
	}
}

// Collapse replaces every run of whitespace with single space, trims result
// and normalizes it to NFC.
func Collapse(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

// Truncate shortens title to at most limit runes (not counting ellipsis).
// Zero or negative limit means no limit.
func Truncate(title string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(title) <= limit {
		return title
	}
	runes := []rune(title)
	return strings.TrimSpace(string(runes[:limit])) + Ellipsis
}
