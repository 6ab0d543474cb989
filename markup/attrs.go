package markup

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Attr returns value of the attribute of the first start tag found in raw.
func Attr(raw, key string) string {
	z := html.NewTokenizer(strings.NewReader(raw))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken, html.SelfClosingTagToken:
			for {
				k, v, more := z.TagAttr()
				if string(k) == key {
					return string(v)
				}
				if !more {
					return ""
				}
			}
		}
	}
}

// IDs returns values of all id attributes (and name attributes of anchors)
// in document order. Values are returned as many times as they occur.
func IDs(raw string) []string {
	var ids []string
	z := html.NewTokenizer(strings.NewReader(raw))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return ids
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		name, hasAttr := z.TagName()
		isAnchor := atom.Lookup(name) == atom.A
		for hasAttr {
			var k, v []byte
			k, v, hasAttr = z.TagAttr()
			switch string(k) {
			case "id":
				ids = append(ids, string(v))
			case "name":
				if isAnchor {
					ids = append(ids, string(v))
				}
			}
		}
	}
}
