package book

import (
	"maps"
	"slices"
	"sort"

	"github.com/maruel/natural"

	"hsplit/utils/debug"
)

const snippetLimit = 120

// String returns a readable dump of the processed book. It exists solely for
// manual inspection during debugging.
func (b *Book) String() string {
	if b == nil {
		return "<nil Book>"
	}

	tw := debug.NewTreeWriter()
	tw.Line(0, "Book id=%s", b.ID)
	tw.TextBlock(1, "source", b.SrcName)
	tw.TextBlock(1, "title", b.Title)
	tw.TextBlock(1, "language", b.Language)
	tw.TextBlock(1, "encoding", b.Encoding)
	tw.TextBlock(1, "rules", b.Rules.Name)
	tw.Line(1, "region found=%t toc found=%t removed=%d", b.Stats.RegionFound, b.Stats.TOCFound, b.Stats.Removed)
	tw.Line(1, "links rewritten=%d local=%d dangling=%d", b.Stats.Links.Rewritten, b.Stats.Links.Local, b.Stats.Links.Dangling)

	tw.Line(0, "Anchors (%d entries)", b.Anchors.Len())
	for _, a := range b.Anchors.All() {
		tw.Line(1, "ID=%q title=%q", a.ID, a.Title)
	}

	tw.Line(0, "Blocks (%d entries)", len(b.Blocks))
	for i, blk := range b.Blocks {
		tw.Line(1, "Block[%d] id=%q", blk.Index, blk.ID)
		if i < len(b.Decisions) {
			res := b.Decisions[i].Result
			if res.IsHeader() {
				tw.Line(2, "%s rule=%s anchor=%q title=%q", res.Kind, res.Rule, res.Anchor, res.Title)
			}
		}
		tw.Snippet(2, "raw", blk.Raw, snippetLimit)
	}

	if len(b.Index) > 0 {
		tw.Line(0, "IDIndex (%d entries)", len(b.Index))
		keys := slices.Collect(maps.Keys(b.Index))
		sort.Sort(natural.StringSlice(keys))
		for _, k := range keys {
			tw.Line(1, "ID=%q file=%q", k, b.Index[k])
		}
	}
	return tw.String() + "\n" + b.Outline()
}

// Outline lists chapters with their files and sizes.
func (b *Book) Outline() string {
	tw := debug.NewTreeWriter()
	tw.Line(0, "Chapters (%d entries)", len(b.Chapters))
	for _, c := range b.Chapters {
		tw.Line(1, "%s level=%s blocks=%d implicit=%t", c.Filename, c.Level, len(c.Blocks), c.Implicit)
		tw.TextBlock(2, "title", c.Title)
		if c.Anchor != "" {
			tw.TextBlock(2, "anchor", c.Anchor)
		}
	}
	return tw.String()
}
