package classify

import (
	"hsplit/common"
	"hsplit/markup"
	"hsplit/rules"
)

// AnchorMap recognizes chapter starts by identifiers referenced from the
// contents listing. Presence of identifier alone is enough.
type AnchorMap struct {
	anchors   *markup.Anchors
	contained bool
	section   func(title string) bool
}

func NewAnchorMap(rs *rules.Compiled, anchors *markup.Anchors) *AnchorMap {
	return &AnchorMap{
		anchors:   anchors,
		contained: rs.Anchors.Match == common.AnchorMatchContained,
		section:   rs.IsSectionTitle,
	}
}

func (a *AnchorMap) Classify(b markup.Block, seen Seen) Result {
	ids := []string{b.ID}
	if a.contained {
		ids = markup.IDs(b.Raw)
	}
	for _, id := range ids {
		if id == "" || seen.has(id) {
			continue
		}
		title, ok := a.anchors.Lookup(id)
		if !ok || title == "" {
			continue
		}
		kind := ChapterHeader
		if a.section != nil && a.section(title) {
			kind = SectionHeader
		}
		return Result{Kind: kind, Title: title, Anchor: id, Rule: "anchors"}
	}
	return Result{Kind: NotHeader}
}
