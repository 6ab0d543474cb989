// Package toc builds navigation tree out of chapter sequence.
package toc

import (
	"hsplit/common"
	"hsplit/rules"
	"hsplit/segment"
)

// Node of the navigation tree. Synthetic nodes (default volume) have no
// chapter.
type Node struct {
	Chapter  *segment.Chapter
	Label    string
	Level    segment.Level
	Children []*Node
}

// File returns page node links to, empty for synthetic nodes.
func (n *Node) File() string {
	if n.Chapter == nil {
		return ""
	}
	return n.Chapter.Filename
}

// Contains reports if node or any of its descendants links to file.
func (n *Node) Contains(file string) bool {
	if n.File() == file {
		return true
	}
	for _, c := range n.Children {
		if c.Contains(file) {
			return true
		}
	}
	return false
}

type Tree struct {
	Shape common.TOCShape
	Roots []*Node
}

// Walk visits nodes depth first in tree order.
func (t *Tree) Walk(fn func(n *Node, depth int)) {
	var walk func(nodes []*Node, depth int)
	walk = func(nodes []*Node, depth int) {
		for _, n := range nodes {
			fn(n, depth)
			walk(n.Children, depth+1)
		}
	}
	walk(t.Roots, 0)
}

// Leaves returns chapters linked from the tree in tree order.
func (t *Tree) Leaves() []*segment.Chapter {
	var out []*segment.Chapter
	t.Walk(func(n *Node, _ int) {
		if n.Chapter != nil && len(n.Children) == 0 {
			out = append(out, n.Chapter)
		}
	})
	return out
}

func leaf(c *segment.Chapter) *Node {
	return &Node{Chapter: c, Label: c.Title, Level: c.Level}
}

// Build classifies chapters into the shape requested by rule set. Chapters
// with hidden titles are skipped, their pages are still reachable by
// prev/next links. Hidden section still closes previous section, chapters
// following it are not attached to unrelated parent.
func Build(chapters []*segment.Chapter, rs *rules.Compiled) *Tree {
	t := &Tree{Shape: rs.TOC.Shape}
	switch rs.TOC.Shape {
	case common.TOCShapeTwoLevel:
		t.Roots = twoLevel(chapters, rs)
	case common.TOCShapeThreeLevel:
		t.Roots = threeLevel(chapters, rs)
	default:
		for _, c := range chapters {
			if !rs.IsHidden(c.Title) {
				t.Roots = append(t.Roots, leaf(c))
			}
		}
	}
	return t
}

// twoLevel makes sections parents of following leaves.
func twoLevel(chapters []*segment.Chapter, rs *rules.Compiled) []*Node {
	var (
		roots   []*Node
		section *Node
	)
	for _, c := range chapters {
		if rs.IsHidden(c.Title) {
			if c.Level == segment.LevelSection {
				section = nil
			}
			continue
		}
		n := leaf(c)
		switch {
		case c.Level == segment.LevelSection:
			section = n
			roots = append(roots, n)
		case section != nil:
			section.Children = append(section.Children, n)
		default:
			roots = append(roots, n)
		}
	}
	return roots
}

// threeLevel groups two-level runs under volumes. Chapter opening a volume
// is also the first entry inside it. Chapters before first volume go to the
// default volume.
func threeLevel(chapters []*segment.Chapter, rs *rules.Compiled) []*Node {
	var (
		roots           []*Node
		volume, section *Node
	)
	for _, c := range chapters {
		if rs.IsHidden(c.Title) {
			if c.Level == segment.LevelSection {
				section = nil
			}
			continue
		}
		if label, ok := rs.VolumeFor(c.Title, c.Filename); ok {
			volume = &Node{Chapter: c, Label: label, Level: segment.LevelVolume}
			section = nil
			roots = append(roots, volume)
		} else if volume == nil {
			volume = &Node{Label: rs.TOC.DefaultVolume, Level: segment.LevelVolume}
			roots = append(roots, volume)
		}

		n := leaf(c)
		switch {
		case c.Level == segment.LevelSection:
			section = n
			volume.Children = append(volume.Children, n)
		case section != nil:
			section.Children = append(section.Children, n)
		default:
			volume.Children = append(volume.Children, n)
		}
	}
	return roots
}
