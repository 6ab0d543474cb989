package convert

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"hsplit/book"
	"hsplit/config"
	"hsplit/markup"
	"hsplit/misc"
	"hsplit/segment"
	"hsplit/toc"
)

// Values is a struct that holds variables we make available for template expansion
type Values struct {
	Context    string
	Title      string
	Language   string
	Rules      string
	SourceFile string
	BookID     string
	Chapters   int
}

func expandTemplate(b *book.Book, name config.TemplateFieldName, field string) (string, error) {
	tmpl, err := template.New(string(name)).Funcs(sprig.FuncMap()).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	values := Values{
		Context:    string(name),
		Title:      b.Title,
		Language:   b.Language,
		Rules:      b.Rules.Name,
		SourceFile: strings.TrimSuffix(filepath.Base(b.SrcName), filepath.Ext(b.SrcName)),
		BookID:     b.ID.String(),
		Chapters:   len(b.Chapters),
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type (
	// bookValues are the same for every page.
	bookValues struct {
		Title    string
		Language string
	}

	pageLink struct {
		File  string
		Title string
		Label string
	}

	navItem struct {
		// Level is depth in navigation tree, 0 for roots
		Level    int
		Active   bool
		File     string
		Title    string
		Label    string
		Children []*navItem
	}

	pageContent struct {
		Title   string
		Content string
	}

	// pageValues are available to page template.
	pageValues struct {
		Book        bookValues
		Generator   string
		Theme       string
		Stylesheets []string
		Home        string
		TOC         []*navItem
		Prev        *pageLink
		Next        *pageLink
		Page        pageContent
	}
)

// themeName is file name embedded stylesheet is written to.
const themeName = "theme.css"

// renderer produces pages of a single book.
type renderer struct {
	tmpl        *template.Template
	site        *config.SiteConfig
	book        *book.Book
	stylesheets []string
}

func newRenderer(data []byte, site *config.SiteConfig, b *book.Book, stylesheets []string) (*renderer, error) {
	tmpl, err := template.New("page").Funcs(sprig.FuncMap()).Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("unable to parse page template: %w", err)
	}
	return &renderer{tmpl: tmpl, site: site, book: b, stylesheets: stylesheets}, nil
}

// Render writes page for chapter at index i.
func (r *renderer) Render(w io.Writer, i int) error {
	chapter := r.book.Chapters[i]
	prev, next := segment.Neighbors(r.book.Chapters, i)

	values := pageValues{
		Book:        bookValues{Title: r.book.Title, Language: r.book.Language},
		Generator:   misc.GetAppName() + " " + misc.GetVersion(),
		Theme:       themeName,
		Stylesheets: r.stylesheets,
		Home:        r.book.Chapters[0].Filename,
		TOC:         r.navigation(r.book.Tree.Roots, chapter.Filename, 0),
		Prev:        r.link(prev, r.site.PrevLabel),
		Next:        r.link(next, r.site.NextLabel),
		Page:        pageContent{Title: chapter.Title, Content: chapter.Content()},
	}
	if err := r.tmpl.Execute(w, values); err != nil {
		return fmt.Errorf("unable to render %s: %w", chapter.Filename, err)
	}
	return nil
}

// link prepares pager button. Label is truncated title when allowed, fixed
// text otherwise.
func (r *renderer) link(c *segment.Chapter, fallback string) *pageLink {
	if c == nil {
		return nil
	}
	label := fallback
	if r.site.ButtonLabelMax > 0 && c.Title != "" {
		label = markup.Truncate(c.Title, r.site.ButtonLabelMax)
	}
	return &pageLink{File: c.Filename, Title: c.Title, Label: label}
}

func (r *renderer) navigation(nodes []*toc.Node, active string, level int) []*navItem {
	items := make([]*navItem, 0, len(nodes))
	for _, n := range nodes {
		title := n.Label
		if n.Chapter != nil && n.Chapter.Title != "" {
			title = n.Chapter.Title
		}
		items = append(items, &navItem{
			Level:    level,
			Active:   n.Contains(active),
			File:     n.File(),
			Title:    title,
			Label:    markup.Truncate(n.Label, r.site.NavLabelMax),
			Children: r.navigation(n.Children, active, level+1),
		})
	}
	return items
}
