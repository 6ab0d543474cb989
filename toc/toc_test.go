package toc

import (
	"fmt"
	"slices"
	"strings"
	"testing"

	"hsplit/rules"
	"hsplit/segment"
)

func compile(t *testing.T, data string) *rules.Compiled {
	t.Helper()
	rs, err := rules.Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	c, err := rs.Compile()
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return c
}

// chapters creates chapter sequence, titles starting with "#" are sections.
func chapters(titles ...string) []*segment.Chapter {
	var out []*segment.Chapter
	for i, title := range titles {
		c := &segment.Chapter{Index: i, Title: title}
		if i == 0 {
			c.Filename = "index.html"
		} else {
			c.Filename = fmt.Sprintf("chapter_%02d.html", i)
		}
		if t, ok := strings.CutPrefix(title, "#"); ok {
			c.Title, c.Level = t, segment.LevelSection
		}
		out = append(out, c)
	}
	return out
}

// outline renders tree compactly: children in brackets.
func outline(nodes []*Node) string {
	var parts []string
	for _, n := range nodes {
		s := n.Label
		if len(n.Children) > 0 {
			s += "[" + outline(n.Children) + "]"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}

const headers = "name: t\nheaders:\n  - element: h1\n"

func TestBuild(t *testing.T) {
	tests := []struct {
		name     string
		toc      string
		chapters []string
		want     string
	}{
		{
			name:     "flat",
			toc:      "",
			chapters: []string{"Preface", "Chapter One", "Chapter Two"},
			want:     "Preface Chapter One Chapter Two",
		},
		{
			name:     "flat ignores sections",
			toc:      "toc:\n  shape: flat\n",
			chapters: []string{"A", "#Part", "B"},
			want:     "A Part B",
		},
		{
			name:     "two level",
			toc:      "toc:\n  shape: two-level\n",
			chapters: []string{"Cover", "#Part One", "1", "2", "#Part Two", "3"},
			want:     "Cover Part One[1 2] Part Two[3]",
		},
		{
			name:     "two level empty section",
			toc:      "toc:\n  shape: two-level\n",
			chapters: []string{"#Part One", "#Part Two", "1"},
			want:     "Part One Part Two[1]",
		},
		{
			name:     "three level",
			toc:      "toc:\n  shape: three-level\n  volumes:\n    - match: Book\n",
			chapters: []string{"Cover", "Book I", "#Part A", "1", "Book II", "2", "#Part B", "3"},
			want:     "Volume 1[Cover] Book I[Book I Part A[1]] Book II[Book II 2 Part B[3]]",
		},
		{
			name:     "three level by file with label",
			toc:      "toc:\n  shape: three-level\n  volumes:\n    - {file: index.html, label: First}\n    - {file: chapter_02.html, label: Second}\n",
			chapters: []string{"Intro", "1", "#Section", "2"},
			want:     "First[Intro 1] Second[Section[2]]",
		},
		{
			name:     "hidden",
			toc:      "toc:\n  shape: two-level\n  hide: ['^Contents$']\n",
			chapters: []string{"Contents", "#Part", "1"},
			want:     "Part[1]",
		},
		{
			name:     "hidden section closes previous one",
			toc:      "toc:\n  shape: two-level\n  hide: ['^Notes$']\n",
			chapters: []string{"#Part", "1", "#Notes", "n1", "n2"},
			want:     "Part[1] n1 n2",
		},
		{
			name:     "hidden leaf keeps section open",
			toc:      "toc:\n  shape: two-level\n  hide: ['^Blank$']\n",
			chapters: []string{"#Part", "1", "Blank", "2"},
			want:     "Part[1 2]",
		},
		{
			name:     "three level hidden section",
			toc:      "toc:\n  shape: three-level\n  volumes:\n    - match: Book\n  hide: ['^Notes$']\n",
			chapters: []string{"Book I", "#Part A", "1", "#Notes", "n1"},
			want:     "Book I[Book I Part A[1] n1]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := compile(t, headers+tt.toc)
			tree := Build(chapters(tt.chapters...), rs)
			if got := outline(tree.Roots); got != tt.want {
				t.Errorf("Build() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestThreeLevelNoOrphans(t *testing.T) {
	rs := compile(t, headers+"toc:\n  shape: three-level\n  default_volume: Opening\n  volumes:\n    - match: Volume\n")
	cs := chapters("a", "#b", "c", "Volume 2", "d", "#e", "f")
	tree := Build(cs, rs)

	seen := make(map[string]int)
	tree.Walk(func(n *Node, depth int) {
		if depth == 0 && n.Level != segment.LevelVolume {
			t.Errorf("root %q is not a volume", n.Label)
		}
		if n.Chapter != nil && n.Level != segment.LevelVolume {
			seen[n.Chapter.Filename]++
		}
	})
	for _, c := range cs {
		if seen[c.Filename] != 1 {
			t.Errorf("chapter %q appears %d times as entry", c.Title, seen[c.Filename])
		}
	}
	if tree.Roots[0].Label != "Opening" || tree.Roots[0].Chapter != nil {
		t.Errorf("default volume = %+v", tree.Roots[0])
	}
}

func TestLeavesAndContains(t *testing.T) {
	rs := compile(t, headers+"toc:\n  shape: two-level\n")
	tree := Build(chapters("Cover", "#Part", "1", "2"), rs)

	var got []string
	for _, c := range tree.Leaves() {
		got = append(got, c.Title)
	}
	if !slices.Equal(got, []string{"Cover", "1", "2"}) {
		t.Errorf("Leaves() = %q", got)
	}
	part := tree.Roots[1]
	if !part.Contains("chapter_03.html") || part.Contains("index.html") {
		t.Error("Contains() mismatch")
	}
}

func TestDumpAndXML(t *testing.T) {
	rs := compile(t, headers+"toc:\n  shape: three-level\n  volumes:\n    - match: Book\n")
	tree := Build(chapters("Cover", "Book I", "#Part A", "1"), rs)

	dump := tree.Dump()
	for _, want := range []string{
		"toc shape=three-level roots=2\n",
		"  volume (implicit) children=1\n",
		"    label: \"Volume 1\"\n",
		"  volume chapter_01.html children=2\n",
		"    section chapter_02.html children=1\n",
	} {
		if !strings.Contains(dump, want) {
			t.Errorf("Dump() missing %q in\n%s", want, dump)
		}
	}

	doc := tree.XML("Book")
	points := doc.FindElements("//navPoint")
	if len(points) != 6 {
		t.Fatalf("navPoints = %d, want 6", len(points))
	}
	if src := points[0].FindElement("content"); src != nil {
		t.Error("implicit volume must not link anywhere")
	}
	if got := doc.FindElement("//docTitle/text").Text(); got != "Book" {
		t.Errorf("docTitle = %q", got)
	}
	last := points[len(points)-1]
	if last.SelectAttrValue("playOrder", "") != "6" || last.FindElement("content").SelectAttrValue("src", "") != "chapter_03.html" {
		t.Errorf("last navPoint = %v", last.Attr)
	}
}
