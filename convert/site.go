package convert

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"hsplit/book"
	"hsplit/css"
	"hsplit/state"
)

// writeSite renders book into out. Everything is produced in a temporary
// sibling directory first, existing output is replaced only when overwrite
// is allowed and only after new site is complete.
func writeSite(ctx context.Context, b *book.Book, src *source, out string, env *state.LocalEnv, log *zap.Logger) (err error) {
	exists := false
	if fi, err := os.Stat(out); err == nil {
		if !env.Overwrite {
			return fmt.Errorf("output directory already exists: %s", out)
		}
		if !fi.IsDir() {
			return fmt.Errorf("output path exists and is not a directory: %s", out)
		}
		exists = true
	} else if !os.IsNotExist(err) {
		return err
	}

	parent := filepath.Dir(out)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	tmp, err := os.MkdirTemp(parent, "."+filepath.Base(out)+"-*")
	if err != nil {
		return fmt.Errorf("unable to create temporary directory: %w", err)
	}
	defer func() {
		if err != nil {
			if er := os.RemoveAll(tmp); er != nil {
				err = multierr.Append(err, fmt.Errorf("unable to remove temporary directory: %w", er))
			}
		}
	}()

	if err := renderSite(ctx, b, src, tmp, env, log); err != nil {
		return err
	}
	if err := os.Chmod(tmp, 0755); err != nil {
		return err
	}

	if exists {
		log.Warn("Overwriting existing site", zap.String("dir", out))
	}
	if err := install(tmp, out, exists); err != nil {
		return err
	}

	if env.Rpt != nil {
		if err := env.Rpt.StoreCopy("site", out); err != nil {
			log.Warn("Unable to put site into debug report", zap.Error(err))
		}
	}
	return nil
}

func renderSite(ctx context.Context, b *book.Book, src *source, dir string, env *state.LocalEnv, log *zap.Logger) error {
	doc := &env.Cfg.Document

	stylesheets := doc.Assets.Stylesheets
	if len(stylesheets) == 0 {
		stylesheets = discoverStylesheets(src.File, log)
	}

	r, err := newRenderer(env.PageTemplate, &doc.Site, b, stylesheets)
	if err != nil {
		return err
	}

	buf := new(bytes.Buffer)
	for i, c := range b.Chapters {
		if err := ctx.Err(); err != nil {
			return err
		}
		buf.Reset()
		if err := r.Render(buf, i); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, c.Filename), buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("unable to write page: %w", err)
		}
	}
	log.Debug("Pages written", zap.Int("count", len(b.Chapters)))

	if err := os.WriteFile(filepath.Join(dir, themeName), env.Stylesheet, 0644); err != nil {
		return fmt.Errorf("unable to write stylesheet: %w", err)
	}
	if doc.Site.TOCXML {
		if err := b.Tree.XML(b.Title).WriteToFile(filepath.Join(dir, "toc.xml")); err != nil {
			return fmt.Errorf("unable to write navigation tree: %w", err)
		}
	}

	if doc.Assets.Copy {
		if errs := copyAssets(ctx, src.Dir, dir, &doc.Assets, stylesheets, log); errs != nil {
			if err := ctx.Err(); err != nil {
				return err
			}
			for _, e := range multierr.Errors(errs) {
				log.Warn("Asset was not copied", zap.Error(e))
			}
		}
	}
	if doc.Assets.Copy && doc.Assets.Images.Dedupe {
		stats, err := dedupeImages(ctx, dir, doc.Assets.Images.Directory, false, log)
		if err != nil {
			if stats == nil {
				return err
			}
			log.Warn("Image deduplication was incomplete", zap.Error(err))
		}
		log.Debug("Images deduplicated", zap.Int("images", stats.Images), zap.Int("removed", stats.Duplicates), zap.Int("documents", stats.Documents))
	}
	return nil
}

// discoverStylesheets returns local stylesheets linked from the source
// document head.
func discoverStylesheets(file string, log *zap.Logger) []string {
	f, err := os.Open(file)
	if err != nil {
		log.Warn("Unable to look for stylesheets", zap.Error(err))
		return nil
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		log.Warn("Unable to look for stylesheets", zap.Error(err))
		return nil
	}
	var out []string
	doc.Find("link[href]").Each(func(_ int, s *goquery.Selection) {
		rel, _ := s.Attr("rel")
		href, _ := s.Attr("href")
		if !strings.EqualFold(strings.TrimSpace(rel), "stylesheet") || !css.IsLocal(href) {
			return
		}
		if p, ok := resolveRelative("", css.Path(href)); ok {
			out = append(out, p)
		}
	})
	log.Debug("Stylesheets found in source", zap.Strings("files", out))
	return out
}

// install moves complete site into place. Old site is renamed away first and
// restored if new one cannot be moved in.
func install(tmp, out string, exists bool) error {
	if !exists {
		if err := os.Rename(tmp, out); err != nil {
			return fmt.Errorf("unable to install site: %w", err)
		}
		return nil
	}

	old := tmp + ".old"
	if err := os.Rename(out, old); err != nil {
		return fmt.Errorf("unable to move existing site away: %w", err)
	}
	if err := os.Rename(tmp, out); err != nil {
		if er := os.Rename(old, out); er != nil {
			return multierr.Combine(fmt.Errorf("unable to install site: %w", err), fmt.Errorf("unable to restore previous site: %w", er))
		}
		return fmt.Errorf("unable to install site: %w", err)
	}
	if err := os.RemoveAll(old); err != nil {
		return fmt.Errorf("unable to remove previous site: %w", err)
	}
	return nil
}
