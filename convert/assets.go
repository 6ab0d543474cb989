package convert

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"hsplit/config"
	"hsplit/css"
	"hsplit/utils/images"
)

// assetCopier moves files pages depend on from the source directory into the
// site. Problems with individual files are accumulated, they never stop the
// build.
type assetCopier struct {
	src, dst string
	images   *config.ImagesConfig
	scanner  *css.Scanner
	log      *zap.Logger

	done map[string]bool
	errs error

	files, resized int
}

func newAssetCopier(src, dst string, cfg *config.ImagesConfig, log *zap.Logger) *assetCopier {
	return &assetCopier{
		src:     src,
		dst:     dst,
		images:  cfg,
		scanner: css.NewScanner(log),
		log:     log,
		done:    make(map[string]bool),
	}
}

// copyAssets copies images directory and stylesheets together with
// everything stylesheets refer to. Returned error combines all individual
// failures.
func copyAssets(ctx context.Context, src, dst string, cfg *config.AssetsConfig, stylesheets []string, log *zap.Logger) error {
	c := newAssetCopier(src, dst, &cfg.Images, log)
	c.copyImages(ctx)
	for _, name := range stylesheets {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.copyStylesheet(name)
	}
	log.Debug("Assets copied", zap.Int("files", c.files), zap.Int("resized", c.resized), zap.Int("problems", len(multierr.Errors(c.errs))))
	return c.errs
}

func (c *assetCopier) fail(err error) {
	c.errs = multierr.Append(c.errs, err)
}

func (c *assetCopier) copyImages(ctx context.Context) {
	root := filepath.Join(c.src, filepath.FromSlash(c.images.Directory))
	if fi, err := os.Stat(root); err != nil || !fi.IsDir() {
		c.log.Debug("No images directory in source", zap.String("dir", root))
		return
	}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			c.fail(err)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(c.src, p)
		if err != nil {
			c.fail(err)
			return nil
		}
		c.copyFile(filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		c.fail(fmt.Errorf("unable to walk images directory: %w", err))
	}
}

// copyStylesheet copies stylesheet and resources it references. Imported
// stylesheets are processed recursively.
func (c *assetCopier) copyStylesheet(rel string) {
	if !c.claim(rel) {
		return
	}
	data, err := os.ReadFile(filepath.Join(c.src, filepath.FromSlash(rel)))
	if err != nil {
		c.fail(fmt.Errorf("stylesheet %s: %w", rel, err))
		return
	}
	if err := c.write(rel, data); err != nil {
		c.fail(err)
		return
	}

	for _, ref := range c.scanner.References(data, rel) {
		if !css.IsLocal(ref.URL) {
			continue
		}
		target, ok := resolveRelative(rel, css.Path(ref.URL))
		if !ok {
			c.log.Warn("Stylesheet reference points outside of the source, skipping", zap.String("stylesheet", rel), zap.String("url", ref.URL))
			continue
		}
		if ref.Import {
			c.copyStylesheet(target)
		} else if c.claim(target) {
			c.copyData(target)
		}
	}
}

func (c *assetCopier) copyFile(rel string) {
	if c.claim(rel) {
		c.copyData(rel)
	}
}

func (c *assetCopier) copyData(rel string) {
	data, err := os.ReadFile(filepath.Join(c.src, filepath.FromSlash(rel)))
	if err != nil {
		c.fail(fmt.Errorf("asset %s: %w", rel, err))
		return
	}
	if c.images.MaxWidth > 0 && images.IsImage(data) {
		out, changed, err := images.Downscale(data, c.images.MaxWidth, c.images.JPEGQuality)
		switch {
		case err != nil:
			c.log.Warn("Unable to downscale image, copying as is", zap.String("file", rel), zap.Error(err))
		case changed:
			data = out
			c.resized++
		}
	}
	if err := c.write(rel, data); err != nil {
		c.fail(err)
	}
}

// claim marks file as processed, reports false if it already was.
func (c *assetCopier) claim(rel string) bool {
	if c.done[rel] {
		return false
	}
	c.done[rel] = true
	return true
}

func (c *assetCopier) write(rel string, data []byte) error {
	target := filepath.Join(c.dst, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("asset %s: %w", rel, err)
	}
	if err := os.WriteFile(target, data, 0644); err != nil {
		return fmt.Errorf("asset %s: %w", rel, err)
	}
	c.files++
	return nil
}

// resolveRelative resolves reference found in file base (both slash
// separated and relative to the source root). References leaving the root
// are rejected.
func resolveRelative(base, ref string) (string, bool) {
	p := path.Clean(path.Join(path.Dir(base), ref))
	if p == "." || p == ".." || strings.HasPrefix(p, "../") || path.IsAbs(p) {
		return "", false
	}
	return p, true
}
