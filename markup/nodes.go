package markup

import (
	"fmt"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
	nethtml "golang.org/x/net/html"
)

// KeepFunc decides if top-level div must stay whole instead of being
// unwrapped.
type KeepFunc func(name, class string) bool

// SplitNodes produces blocks at element granularity: every top-level element
// and non blank text is a block, top-level divs are unwrapped and their
// children become blocks unless keep says otherwise. Identifier of unwrapped
// div is preserved with an empty anchor so links to it stay valid.
// Unlike SplitBlocks content is re-serialized from parsed tree.
func SplitNodes(region string, keep KeepFunc) ([]Block, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body>" + region + "</body></html>"))
	if err != nil {
		return nil, fmt.Errorf("unable to parse content region: %w", err)
	}

	var (
		blocks []Block
		errs   error
	)
	add := func(s *goquery.Selection) {
		n := s.Get(0)
		var raw string
		switch n.Type {
		case nethtml.TextNode:
			if strings.TrimSpace(n.Data) == "" {
				return
			}
			raw = html.EscapeString(n.Data)
		case nethtml.ElementNode:
			out, err := goquery.OuterHtml(s)
			if err != nil {
				if errs == nil {
					errs = err
				}
				return
			}
			raw = out
		default:
			// comments, doctype
			return
		}
		id, _ := s.Attr("id")
		blocks = append(blocks, Block{Index: len(blocks), ID: id, Raw: raw})
	}

	doc.Find("body").Contents().Each(func(_ int, s *goquery.Selection) {
		if !s.Is("div") {
			add(s)
			return
		}
		class, _ := s.Attr("class")
		if keep != nil && keep("div", class) {
			add(s)
			return
		}
		if id, ok := s.Attr("id"); ok && id != "" {
			blocks = append(blocks, Block{Index: len(blocks), ID: id, Raw: `<a id="` + html.EscapeString(id) + `"></a>`})
		}
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			add(c)
		})
	})
	if errs != nil {
		return nil, fmt.Errorf("unable to render content node: %w", errs)
	}
	return blocks, nil
}
