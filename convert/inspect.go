package convert

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"hsplit/book"
	"hsplit/markup"
	"hsplit/utils/debug"
)

const headingSelector = "h1, h2, h3, h4, h5, h6"

// headings lists every heading element of the block with its cleaned text.
func headings(raw string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, err
	}
	var out []string
	doc.Find(headingSelector).Each(func(_ int, s *goquery.Selection) {
		class, _ := s.Attr("class")
		html, err := s.Html()
		if err != nil {
			html = s.Text()
		}
		out = append(out, fmt.Sprintf("%s class=%q text=%q", goquery.NodeName(s), class, markup.CleanTitle(html)))
	})
	return out, nil
}

// writeInspection prints structure of the processed book: headings found in
// every block, the full engine state and resulting navigation tree.
func writeInspection(w io.Writer, b *book.Book) error {
	tw := debug.NewTreeWriter()
	tw.Line(0, "Headings (%d blocks)", len(b.Blocks))
	for _, blk := range b.Blocks {
		hs, err := headings(blk.Raw)
		if err != nil {
			return fmt.Errorf("block %d: %w", blk.Index, err)
		}
		if len(hs) == 0 {
			continue
		}
		tw.Line(1, "Block[%d] id=%q", blk.Index, blk.ID)
		for _, h := range hs {
			tw.Line(2, "%s", h)
		}
	}

	for _, part := range []string{tw.String(), b.String(), b.Tree.Dump()} {
		if _, err := io.WriteString(w, part+"\n"); err != nil {
			return err
		}
	}
	return nil
}
