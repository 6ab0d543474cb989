package markup

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Anchor is identifier -> title pair taken from contents listing.
type Anchor struct {
	ID    string
	Title string
}

// Anchors keeps entries in encounter order. First entry for identifier wins.
// Zero value is ready to use, nil value is an empty read-only map.
type Anchors struct {
	order []Anchor
	index map[string]int
}

// Add stores entry unless its identifier is already known. It reports if
// entry was added.
func (a *Anchors) Add(id, title string) bool {
	if id == "" {
		return false
	}
	if a.index == nil {
		a.index = make(map[string]int)
	}
	if _, ok := a.index[id]; ok {
		return false
	}
	a.index[id] = len(a.order)
	a.order = append(a.order, Anchor{ID: id, Title: title})
	return true
}

// Lookup returns title for identifier.
func (a *Anchors) Lookup(id string) (string, bool) {
	if a == nil {
		return "", false
	}
	i, ok := a.index[id]
	if !ok {
		return "", false
	}
	return a.order[i].Title, true
}

func (a *Anchors) Len() int {
	if a == nil {
		return 0
	}
	return len(a.order)
}

// All returns entries in encounter order.
func (a *Anchors) All() []Anchor {
	if a == nil {
		return nil
	}
	return a.order
}

// Merge adds entries not yet present, keeping existing ones first.
func (a *Anchors) Merge(entries ...Anchor) int {
	added := 0
	for _, e := range entries {
		if a.Add(e.ID, e.Title) {
			added++
		}
	}
	return added
}

// ExtractAnchors collects same-document links from region. Link text with
// markup stripped becomes the title, links with empty text are ignored.
// When idPattern is not nil only matching identifiers are taken.
func ExtractAnchors(region string, idPattern *regexp.Regexp) *Anchors {
	anchors := &Anchors{}

	var (
		inLink bool
		id     string
		text   strings.Builder
	)
	finish := func() {
		if inLink {
			if title := Collapse(text.String()); title != "" {
				anchors.Add(id, title)
			}
		}
		inLink, id = false, ""
		text.Reset()
	}

	z := html.NewTokenizer(strings.NewReader(region))
	for {
		switch z.Next() {
		case html.ErrorToken:
			finish()
			return anchors
		case html.TextToken:
			if inLink {
				text.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			switch atom.Lookup(name) {
			case atom.Br:
				if inLink {
					text.WriteByte(' ')
				}
			case atom.A:
				// links cannot nest, new one closes previous
				finish()
				for hasAttr {
					var k, v []byte
					k, v, hasAttr = z.TagAttr()
					if string(k) != "href" {
						continue
					}
					target, ok := strings.CutPrefix(strings.TrimSpace(string(v)), "#")
					if ok && target != "" && (idPattern == nil || idPattern.MatchString(target)) {
						inLink, id = true, target
					}
				}
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); atom.Lookup(name) == atom.A {
				finish()
			}
		}
	}
}
