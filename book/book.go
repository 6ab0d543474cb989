// Package book runs the whole engine over a single source document: region
// and contents listing are located, blocks are classified and grouped into
// chapters, links are rewritten and navigation tree is built.
package book

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hsplit/classify"
	"hsplit/common"
	"hsplit/markup"
	"hsplit/misc"
	"hsplit/rules"
	"hsplit/sanitize"
	"hsplit/segment"
	"hsplit/state"
	"hsplit/toc"
	"hsplit/xref"
)

// Book is a fully processed document ready to be rendered.
type Book struct {
	ID       uuid.UUID
	SrcName  string
	Title    string
	Language string
	// Encoding source document was decoded from
	Encoding string
	Rules    *rules.Compiled

	Blocks    []markup.Block
	Anchors   *markup.Anchors
	Decisions []segment.Decision
	Chapters  []*segment.Chapter
	Index     xref.Index
	Tree      *toc.Tree
	Stats     Stats

	WorkDir string
}

type Stats struct {
	RegionFound bool
	TOCFound    bool
	Removed     int
	Links       xref.Stats
}

const untitled = "Untitled"

var titleElement = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title\s*>`)

// Prepare reads document and runs it through all stages in strict order.
func Prepare(ctx context.Context, r io.Reader, srcName string, rs *rules.Compiled, log *zap.Logger) (*Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	env := state.EnvFromContext(ctx)

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("unable to generate run id: %w", err)
	}

	doc, encName, err := markup.Decode(r, env.SourceEncoding)
	if err != nil {
		return nil, fmt.Errorf("unable to read source document: %w", err)
	}
	log.Debug("Source document read", zap.String("encoding", encName), zap.Int("size", len(doc)))

	b := &Book{
		ID:       id,
		SrcName:  srcName,
		Encoding: encName,
		Rules:    rs,
	}
	b.Title, b.Language = metadata(doc, rs, env.Title)

	// Content region, degrade to whole document
	region, found := markup.Region(doc, rs.Region.Start, rs.Region.End)
	b.Stats.RegionFound = found
	if !found {
		log.Warn("Content region not found, using whole document")
	}

	// Contents listing
	b.Anchors = &markup.Anchors{}
	if rs.Anchors.Enabled {
		tocRegion, found := markup.LocateTOC(doc, rs.Anchors.TOC.Start, rs.Anchors.TOC.End, rs.Anchors.TOC.PrefixLimit)
		b.Stats.TOCFound = found
		if !found && rs.Anchors.TOC.Start != "" {
			log.Warn("Contents listing not found, searching document prefix", zap.Int("limit", rs.Anchors.TOC.PrefixLimit))
		}
		b.Anchors = markup.ExtractAnchors(tocRegion, rs.AnchorID)
		static := make([]markup.Anchor, 0, len(rs.Anchors.Entries))
		for _, e := range rs.Anchors.Entries {
			static = append(static, markup.Anchor{ID: e.ID, Title: markup.Collapse(e.Title)})
		}
		added := b.Anchors.Merge(static...)
		log.Debug("Anchors extracted", zap.Int("count", b.Anchors.Len()), zap.Int("static", added))
		for _, a := range b.Anchors.All() {
			log.Debug("Anchor", zap.String("id", a.ID), zap.String("title", a.Title))
		}
	}

	b.Blocks = splitRegion(region, rs, log)
	log.Debug("Blocks extracted", zap.Int("count", len(b.Blocks)), zap.Stringer("granularity", rs.Blocks.Granularity))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.Chapters, b.Decisions = segment.Segment(b.Blocks, classify.New(rs, b.Anchors), rs, log)
	log.Debug("Chapters formed", zap.Int("count", len(b.Chapters)))

	for _, n := range sanitize.New(rs.Remove).Apply(b.Chapters, log) {
		b.Stats.Removed += n
	}

	b.Index = xref.BuildIndex(b.Chapters)
	b.Stats.Links = xref.Rewrite(b.Chapters, b.Index, log)
	log.Debug("Cross references processed",
		zap.Int("rewritten", b.Stats.Links.Rewritten),
		zap.Int("local", b.Stats.Links.Local),
		zap.Int("dangling", b.Stats.Links.Dangling))

	b.Tree = toc.Build(b.Chapters, rs)

	if env.Rpt != nil {
		if err := b.saveDebug(env); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// splitRegion extracts blocks with requested granularity. Node splitting
// failure degrades to block splitting.
func splitRegion(region string, rs *rules.Compiled, log *zap.Logger) []markup.Block {
	if rs.Blocks.Granularity == common.GranularityNode {
		blocks, err := markup.SplitNodes(region, classify.NewStructural(rs).Candidate)
		if err == nil {
			return blocks
		}
		log.Warn("Unable to split region into nodes, using blocks", zap.Error(err))
	}
	return markup.SplitBlocks(region, rs.Boundary)
}

// metadata decides on book title and language. Explicit title wins over rule
// set, rule set over document.
func metadata(doc string, rs *rules.Compiled, title string) (string, string) {
	if title == "" {
		title = rs.Title
	}
	if title == "" {
		if m := titleElement.FindStringSubmatch(doc); m != nil {
			title = markup.CleanTitle(m[1])
		}
	}
	if title == "" {
		title = untitled
	}
	lang := rs.Language
	if lang == "" {
		lang = markup.Attr(doc, "lang")
	}
	return title, lang
}

func (b *Book) saveDebug(env *state.LocalEnv) error {
	tmpDir, err := os.MkdirTemp("", misc.GetAppName()+"-")
	if err != nil {
		return fmt.Errorf("unable to create temporary directory: %w", err)
	}
	env.Rpt.Store(fmt.Sprintf("%s-%s", misc.GetAppName(), b.ID), tmpDir)
	b.WorkDir = tmpDir

	data, err := rules.Dump(b.Rules.RuleSet)
	if err != nil {
		return err
	}
	files := map[string][]byte{
		"rules.yaml":   data,
		"book.txt":     []byte(b.String()),
		"toc.txt":      []byte(b.Tree.Dump()),
		"chapters.txt": []byte(b.Outline()),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(tmpDir, name), content, 0644); err != nil {
			return fmt.Errorf("unable to write %s for debugging: %w", name, err)
		}
	}
	if err := b.Tree.XML(b.Title).WriteToFile(filepath.Join(tmpDir, "toc.xml")); err != nil {
		return fmt.Errorf("unable to write toc.xml for debugging: %w", err)
	}
	return nil
}
