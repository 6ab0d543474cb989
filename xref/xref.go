// Package xref keeps same-document links working after document is split
// into pages.
package xref

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"hsplit/markup"
	"hsplit/segment"
)

// Index maps anchor identifier to the file of the chapter containing it.
type Index map[string]string

// BuildIndex collects every identifier declared in chapter content. When
// identifier is declared in several chapters first one wins.
func BuildIndex(chapters []*segment.Chapter) Index {
	idx := make(Index)
	for _, c := range chapters {
		for _, b := range c.Blocks {
			for _, id := range markup.IDs(b.Raw) {
				if _, ok := idx[id]; !ok && id != "" {
					idx[id] = c.Filename
				}
			}
		}
	}
	return idx
}

// Stats counts links by resolution result.
type Stats struct {
	Rewritten int
	Local     int
	Dangling  int
}

// localLink matches href attribute with same-document target in any form
// markup allows: double, single or no quotes, any case, spaces around "=".
var localLink = regexp.MustCompile(`(?i)\shref\s*=\s*(?:"#([^"]*)"|'#([^']*)'|#([^\s"'>]+))`)

// Rewrite updates same-document links which point to other chapters. Links
// resolving to containing chapter and dangling links are left byte-identical.
func Rewrite(chapters []*segment.Chapter, idx Index, log *zap.Logger) Stats {
	var st Stats
	for _, c := range chapters {
		for i := range c.Blocks {
			c.Blocks[i].Raw = rewriteBlock(c.Blocks[i].Raw, c.Filename, idx, &st, log)
		}
	}
	return st
}

// rewriteBlock inserts target file name in front of "#" keeping everything
// else of the attribute (quoting, spacing, escaping) as is.
func rewriteBlock(raw, file string, idx Index, st *Stats, log *zap.Logger) string {
	var (
		sb   strings.Builder
		last int
	)
	for _, m := range localLink.FindAllStringSubmatchIndex(raw, -1) {
		start, end := -1, -1
		for g := 1; g <= 3; g++ {
			if m[2*g] >= 0 {
				start, end = m[2*g], m[2*g+1]
				break
			}
		}
		if start < 0 || start == end {
			continue
		}
		id := html.UnescapeString(raw[start:end])
		target, ok := idx[id]
		switch {
		case !ok:
			st.Dangling++
			log.Debug("Dangling reference left unchanged", zap.String("file", file), zap.String("id", id))
			continue
		case target == file:
			st.Local++
			continue
		}
		st.Rewritten++
		// start-1 is position of "#"
		sb.WriteString(raw[last : start-1])
		sb.WriteString(target)
		last = start - 1
	}
	if last == 0 {
		return raw
	}
	sb.WriteString(raw[last:])
	return sb.String()
}
