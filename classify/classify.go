// Package classify decides which blocks start new chapters.
package classify

import (
	"fmt"

	"hsplit/markup"
	"hsplit/rules"
)

type Kind int

const (
	NotHeader Kind = iota
	ChapterHeader
	SectionHeader
)

func (k Kind) String() string {
	switch k {
	case NotHeader:
		return "not-header"
	case ChapterHeader:
		return "chapter"
	case SectionHeader:
		return "section"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Result of classification. Title is cleaned and untruncated, Anchor is
// identifier which becomes consumed when block starts a chapter.
type Result struct {
	Kind   Kind
	Title  string
	Anchor string
	// Rule names the rule which produced the decision.
	Rule string
}

// IsHeader reports if block starts a chapter.
func (r Result) IsHeader() bool {
	return r.Kind != NotHeader
}

// Seen reports identifiers already used to start a chapter.
type Seen func(id string) bool

func (s Seen) has(id string) bool {
	return s != nil && s(id)
}

// Classifier is a single classification strategy.
type Classifier interface {
	Classify(b markup.Block, seen Seen) Result
}

// Chain tries classifiers in priority order, first header decision wins.
type Chain []Classifier

func (c Chain) Classify(b markup.Block, seen Seen) Result {
	for _, cl := range c {
		if res := cl.Classify(b, seen); res.IsHeader() {
			return res
		}
	}
	return Result{Kind: NotHeader}
}

// New builds classifier chain in the order declared by rule set. Anchor
// strategy is skipped when disabled or when there is nothing to look up.
func New(rs *rules.Compiled, anchors *markup.Anchors) Chain {
	var chain Chain
	for _, strategy := range rs.Order {
		switch strategy {
		case rules.StrategyStructural:
			if len(rs.HeaderRules) > 0 {
				chain = append(chain, NewStructural(rs))
			}
		case rules.StrategyAnchors:
			if rs.Anchors.Enabled && anchors.Len() > 0 {
				chain = append(chain, NewAnchorMap(rs, anchors))
			}
		}
	}
	return chain
}
