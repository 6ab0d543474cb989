package classify

import (
	"bytes"
	"fmt"
	"iter"
	"strings"

	"golang.org/x/net/html"

	"hsplit/common"
	"hsplit/markup"
	"hsplit/rules"
)

// Structural recognizes headers by element name and class signature.
type Structural struct {
	headers []*rules.CompiledHeader
	// only outermost element of a node is examined
	outermost bool
}

func NewStructural(rs *rules.Compiled) *Structural {
	return &Structural{
		headers:   rs.HeaderRules,
		outermost: rs.Blocks.Granularity == common.GranularityNode,
	}
}

// Candidate reports if element could be a header according to any rule.
func (s *Structural) Candidate(name, class string) bool {
	for _, h := range s.headers {
		if h.MatchElement(name, class) {
			return true
		}
	}
	return false
}

func (s *Structural) Classify(b markup.Block, seen Seen) Result {
	for _, h := range s.headers {
		if res, ok := s.match(h, b, seen); ok {
			return res
		}
	}
	return Result{Kind: NotHeader}
}

// element is a start tag found in the block together with its inner markup.
type element struct {
	name  string
	id    string
	class string
	attrs map[string]string
	inner string
}

func (s *Structural) match(h *rules.CompiledHeader, b markup.Block, seen Seen) (Result, bool) {
	for el := range elements(b.Raw, s.outermost) {
		if !h.MatchElement(el.name, el.class) {
			continue
		}
		text := markup.CleanTitle(el.inner)
		if !h.MatchContent(el.inner, text) {
			continue
		}
		title := text
		if h.TitleFrom == common.TitleSourceAttr {
			title = markup.Collapse(el.attrs[h.TitleAttr])
		}
		if title == "" {
			continue
		}
		kind := ChapterHeader
		if h.Kind == common.HeaderKindSection {
			kind = SectionHeader
		}
		anchor := el.id
		if anchor == "" {
			anchor = b.ID
		}
		// consumed identifier never starts another chapter
		if anchor != "" && seen.has(anchor) {
			continue
		}
		return Result{
			Kind:   kind,
			Title:  title,
			Anchor: anchor,
			Rule:   fmt.Sprintf("headers[%d]:%s", h.Index, h.Element),
		}, true
	}
	return Result{}, false
}

// elements iterates over start tags of raw markup in document order. With
// outermost set only the first element is produced.
func elements(raw string, outermost bool) iter.Seq[element] {
	return func(yield func(element) bool) {
		z := html.NewTokenizer(strings.NewReader(raw))
		offset := 0
		for {
			tt := z.Next()
			if tt == html.ErrorToken {
				return
			}
			tokenRaw := z.Raw()
			offset += len(tokenRaw)
			if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
				continue
			}
			name, hasAttr := z.TagName()
			el := element{name: string(name), attrs: make(map[string]string)}
			for hasAttr {
				var k, v []byte
				k, v, hasAttr = z.TagAttr()
				el.attrs[string(k)] = string(v)
			}
			el.id, el.class = el.attrs["id"], el.attrs["class"]
			if tt == html.StartTagToken {
				el.inner = innerMarkup(raw[offset:], el.name)
			}
			if !yield(el) || outermost {
				return
			}
		}
	}
}

// innerMarkup returns markup up to the end tag matching already opened
// element. Unterminated element takes everything that is left.
func innerMarkup(rest, name string) string {
	z := html.NewTokenizer(strings.NewReader(rest))
	depth, offset := 1, 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return rest
		}
		tokenRaw := z.Raw()
		switch tt {
		case html.StartTagToken:
			if n, _ := z.TagName(); bytes.Equal(n, []byte(name)) {
				depth++
			}
		case html.EndTagToken:
			if n, _ := z.TagName(); bytes.Equal(n, []byte(name)) {
				depth--
				if depth == 0 {
					return rest[:offset]
				}
			}
		}
		offset += len(tokenRaw)
	}
}
