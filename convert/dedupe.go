package convert

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/maruel/natural"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"hsplit/utils/images"
)

// dedupeStats describes what image deduplication did (or would do in dry
// run).
type dedupeStats struct {
	Images     int
	Groups     int
	Duplicates int
	Documents  int
	// Replaced maps duplicate to canonical image, both relative to root and
	// slash separated.
	Replaced map[string]string
}

// dedupeImages finds images with identical content under root/dir, keeps
// one file per group and points references in markup documents and
// stylesheets under root to it. Canonical file of a group has the shortest
// name, ties are broken by natural order.
func dedupeImages(ctx context.Context, root, dir string, dryRun bool, log *zap.Logger) (*dedupeStats, error) {
	stats := &dedupeStats{Replaced: make(map[string]string)}

	groups, err := hashImages(ctx, root, dir, stats)
	if err != nil {
		return nil, err
	}

	for _, names := range groups {
		if len(names) < 2 {
			continue
		}
		slices.SortFunc(names, canonicalOrder)
		stats.Groups++
		for _, dup := range names[1:] {
			stats.Replaced[dup] = names[0]
			stats.Duplicates++
			log.Debug("Duplicate image", zap.String("file", dup), zap.String("same as", names[0]))
		}
	}
	if len(stats.Replaced) == 0 {
		return stats, nil
	}

	docs, err := referencingDocuments(root)
	if err != nil {
		return nil, err
	}
	var errs error
	for _, doc := range docs {
		changed, err := rewriteReferences(doc, stats.Replaced, dryRun)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if changed {
			stats.Documents++
		}
	}
	if dryRun {
		return stats, errs
	}
	for dup := range stats.Replaced {
		if err := os.Remove(filepath.Join(root, filepath.FromSlash(dup))); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("unable to remove duplicate image: %w", err))
		}
	}
	return stats, errs
}

func canonicalOrder(a, b string) int {
	if la, lb := len([]rune(a)), len([]rune(b)); la != lb {
		return la - lb
	}
	switch {
	case natural.Less(a, b):
		return -1
	case natural.Less(b, a):
		return 1
	}
	return 0
}

// hashImages groups image files by content digest, files not recognized as
// images are left alone.
func hashImages(ctx context.Context, root, dir string, stats *dedupeStats) (map[string][]string, error) {
	groups := make(map[string][]string)
	base := filepath.Join(root, filepath.FromSlash(dir))
	if fi, err := os.Stat(base); err != nil || !fi.IsDir() {
		return groups, nil
	}
	err := filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		if !images.IsImage(data) {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		stats.Images++
		sum := sha256.Sum256(data)
		key := hex.EncodeToString(sum[:])
		groups[key] = append(groups[key], filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to scan images: %w", err)
	}
	return groups, nil
}

// referencingDocuments lists markup files and stylesheets under root.
func referencingDocuments(root string) ([]string, error) {
	var docs []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && (isHTMLName(p) || strings.EqualFold(filepath.Ext(p), ".css")) {
			docs = append(docs, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to list documents: %w", err)
	}
	return docs, nil
}

// rewriteReferences replaces duplicate names in a single document, both as
// is and with spaces percent-encoded.
func rewriteReferences(doc string, replaced map[string]string, dryRun bool) (bool, error) {
	data, err := os.ReadFile(doc)
	if err != nil {
		return false, err
	}
	content := string(data)
	for dup, canon := range replaced {
		content = replaceReference(content, dup, canon)
		if enc := strings.ReplaceAll(dup, " ", "%20"); enc != dup {
			content = replaceReference(content, enc, strings.ReplaceAll(canon, " ", "%20"))
		}
	}
	if content == string(data) {
		return false, nil
	}
	if dryRun {
		return true, nil
	}
	if err := os.WriteFile(doc, []byte(content), 0644); err != nil {
		return false, fmt.Errorf("unable to update %s: %w", doc, err)
	}
	return true, nil
}

const (
	refOpeners = " \t\r\n\f\"'(=/"
	refClosers = " \t\r\n\f\"')?#"
)

// replaceReference replaces ref only where it is a complete path, not a tail
// of another file name. Delimiters around references are never consumed, so
// adjacent references separated by one character are all replaced.
func replaceReference(content, ref, with string) string {
	if ref == "" || !strings.Contains(content, ref) {
		return content
	}
	var sb strings.Builder
	last := 0
	for pos := 0; pos <= len(content)-len(ref); {
		i := strings.Index(content[pos:], ref)
		if i < 0 {
			break
		}
		i += pos
		end := i + len(ref)
		before := i == 0 || strings.IndexByte(refOpeners, content[i-1]) >= 0
		after := end == len(content) || strings.IndexByte(refClosers, content[end]) >= 0
		if !before || !after {
			pos = i + 1
			continue
		}
		sb.WriteString(content[last:i])
		sb.WriteString(with)
		last, pos = end, end
	}
	if last == 0 {
		return content
	}
	sb.WriteString(content[last:])
	return sb.String()
}
