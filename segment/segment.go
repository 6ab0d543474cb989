// Package segment groups blocks into chapters.
package segment

import (
	"fmt"

	"go.uber.org/zap"

	"hsplit/classify"
	"hsplit/markup"
	"hsplit/rules"
)

// Level of the chapter in the navigation tree.
type Level int

const (
	LevelLeaf Level = iota
	LevelSection
	LevelVolume
)

func (l Level) String() string {
	switch l {
	case LevelLeaf:
		return "leaf"
	case LevelSection:
		return "section"
	case LevelVolume:
		return "volume"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Chapter is a single output page.
type Chapter struct {
	Index    int
	Title    string
	Filename string
	Blocks   []markup.Block
	Level    Level
	// Anchor is identifier which started the chapter, may be empty.
	Anchor string
	// Implicit is set for front matter chapter opened by non header content.
	Implicit bool
}

// Content returns page markup.
func (c *Chapter) Content() string {
	return markup.Join(c.Blocks)
}

// Neighbors returns previous and next chapters of the chapter at index i.
func Neighbors(chapters []*Chapter, i int) (prev, next *Chapter) {
	if i > 0 && i <= len(chapters) {
		prev = chapters[i-1]
	}
	if i >= 0 && i+1 < len(chapters) {
		next = chapters[i+1]
	}
	return prev, next
}

// Decision is classification of a single block, kept for diagnostics.
type Decision struct {
	Block  int
	Result classify.Result
}

// state is explicit segmentation state. Without open chapter it is in
// "no chapter yet" state, otherwise it accumulates blocks.
type state struct {
	open      *Chapter
	consumed  map[string]struct{}
	out       []*Chapter
	names     rules.Filenames
	// keepFront retains empty front matter
	keepFront bool
}

func (s *state) seen(id string) bool {
	_, ok := s.consumed[id]
	return ok
}

// push closes open chapter. Empty implicit front matter is dropped unless it
// is the last thing left at the end of input or rule set keeps it.
func (s *state) push(final bool) {
	if s.open == nil {
		return
	}
	if !final && !s.keepFront && s.open.Implicit && len(s.open.Blocks) == 0 {
		s.open = nil
		return
	}
	s.open.Index = len(s.out)
	s.open.Filename = s.names.Filename(s.open.Index)
	s.out = append(s.out, s.open)
	s.open = nil
}

// Segment runs every block through classifier and groups blocks into
// chapters. Result always has at least one chapter, blocks retain source
// order and every block belongs to exactly one chapter.
func Segment(blocks []markup.Block, cl classify.Classifier, rs *rules.Compiled, log *zap.Logger) ([]*Chapter, []Decision) {
	s := &state{
		consumed:  make(map[string]struct{}),
		names:     rs.Filenames,
		keepFront: rs.KeepFrontMatter,
	}
	if s.keepFront {
		s.open = &Chapter{Title: rs.FrontMatterTitle, Implicit: true}
	}
	decisions := make([]Decision, 0, len(blocks))

	for i, b := range blocks {
		res := classify.Result{Kind: classify.NotHeader}
		if cl != nil {
			res = cl.Classify(b, s.seen)
		}
		if res.IsHeader() && (res.Title == "" || (res.Anchor != "" && s.seen(res.Anchor))) {
			res = classify.Result{Kind: classify.NotHeader}
		}
		decisions = append(decisions, Decision{Block: i, Result: res})

		if !res.IsHeader() {
			if s.open == nil {
				s.open = &Chapter{Title: rs.FrontMatterTitle, Implicit: true}
			}
			s.open.Blocks = append(s.open.Blocks, b)
			continue
		}

		s.push(false)
		level := LevelLeaf
		if res.Kind == classify.SectionHeader {
			level = LevelSection
		}
		s.open = &Chapter{
			Title:  res.Title,
			Blocks: []markup.Block{b},
			Level:  level,
			Anchor: res.Anchor,
		}
		if res.Anchor != "" {
			s.consumed[res.Anchor] = struct{}{}
		}
		log.Debug("Chapter started",
			zap.Int("block", i), zap.String("title", res.Title), zap.Stringer("kind", res.Kind),
			zap.String("anchor", res.Anchor), zap.String("rule", res.Rule))
	}
	if s.open == nil {
		s.open = &Chapter{Title: rs.FrontMatterTitle, Implicit: true}
	}
	s.push(true)
	return s.out, decisions
}
