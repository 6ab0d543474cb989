package toc

import (
	"fmt"

	"github.com/beevik/etree"

	"hsplit/utils/debug"
)

// Dump renders tree as indented text.
func (t *Tree) Dump() string {
	tw := debug.NewTreeWriter()
	tw.Line(0, "toc shape=%s roots=%d", t.Shape, len(t.Roots))
	t.Walk(func(n *Node, depth int) {
		if n.Chapter == nil {
			tw.Line(depth+1, "%s (implicit) children=%d", n.Level, len(n.Children))
		} else {
			tw.Line(depth+1, "%s %s children=%d", n.Level, n.File(), len(n.Children))
		}
		tw.TextBlock(depth+2, "label", n.Label)
	})
	return tw.String()
}

// XML renders tree as NCX-like navigation map.
func (t *Tree) XML(title string) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("navigation")
	root.CreateAttr("shape", t.Shape.String())
	root.CreateElement("docTitle").CreateElement("text").SetText(title)

	navMap := root.CreateElement("navMap")
	playOrder := 0
	var add func(parent *etree.Element, nodes []*Node)
	add = func(parent *etree.Element, nodes []*Node) {
		for _, n := range nodes {
			playOrder++
			navPoint := parent.CreateElement("navPoint")
			navPoint.CreateAttr("id", fmt.Sprintf("navpoint-%d", playOrder))
			navPoint.CreateAttr("playOrder", fmt.Sprintf("%d", playOrder))
			navPoint.CreateAttr("class", n.Level.String())
			navPoint.CreateElement("navLabel").CreateElement("text").SetText(n.Label)
			if file := n.File(); file != "" {
				navPoint.CreateElement("content").CreateAttr("src", file)
			}
			add(navPoint, n.Children)
		}
	}
	add(navMap, t.Roots)

	doc.Indent(2)
	return doc
}
