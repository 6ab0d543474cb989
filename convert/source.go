package convert

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/maruel/natural"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"hsplit/archive"
	"hsplit/misc"
)

// source is a located markup document together with directory its assets
// are resolved against.
type source struct {
	// File is the document on disk
	File string
	// Dir is where relative references of the document point to
	Dir string
	// Name identifies source for logging and naming output
	Name string
	// work is temporary directory with unpacked archive
	work string
}

func (s *source) Close() error {
	if s == nil || s.work == "" {
		return nil
	}
	return os.RemoveAll(s.work)
}

// resolveSource finds document to process. Source could be a markup file, a
// directory containing inputName, or an archive optionally followed by path
// inside it: "book.zip/OEBPS" or "book.zip/OEBPS/index.html".
func resolveSource(ctx context.Context, src, inputName string, cp encoding.Encoding, log *zap.Logger) (*source, error) {
	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exists - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				// directory cannot have tail - it would be simple file
				return nil, fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			file := filepath.Join(head, inputName)
			if ok, err := isHTMLFile(file); err != nil || !ok {
				return nil, fmt.Errorf("directory (%s) does not contain markup document %q", head, inputName)
			}
			return &source{File: file, Dir: head, Name: filepath.Base(head)}, nil
		}

		if !fi.Mode().IsRegular() {
			return nil, fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		isArchive, err := isArchiveFile(head)
		if err != nil {
			return nil, fmt.Errorf("unable to check archive type: %w", err)
		}
		if isArchive {
			inner := strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator))
			return unpackSource(ctx, head, filepath.ToSlash(inner), inputName, cp, log)
		}

		isHTML, err := isHTMLFile(head)
		if err != nil {
			return nil, fmt.Errorf("unable to check file type: %w", err)
		}
		if isHTML && len(tail) == 0 {
			return &source{File: head, Dir: filepath.Dir(head), Name: filepath.Base(head)}, nil
		}
		return nil, fmt.Errorf("input was not recognized as markup document (%s)", head)
	}
	return nil, fmt.Errorf("input source was not found (%s)", src)
}

// unpackSource extracts directory of the selected document from archive into
// temporary location.
func unpackSource(ctx context.Context, arc, inner, inputName string, cp encoding.Encoding, log *zap.Logger) (*source, error) {
	names, err := archive.Names(arc, cp)
	if err != nil {
		return nil, fmt.Errorf("unable to read archive (%s): %w", arc, err)
	}

	doc, err := selectDocument(names, inner, inputName)
	if err != nil {
		return nil, fmt.Errorf("archive (%s): %w", arc, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	work, err := os.MkdirTemp("", misc.GetAppName()+"-src-")
	if err != nil {
		return nil, fmt.Errorf("unable to create temporary directory: %w", err)
	}
	s := &source{
		File: filepath.Join(work, filepath.FromSlash(path.Base(doc))),
		Dir:  work,
		Name: filepath.Base(arc),
		work: work,
	}

	prefix := path.Dir(doc) + "/"
	if prefix == "./" {
		prefix = ""
	}
	n, err := archive.Extract(arc, prefix, work, cp)
	if err != nil {
		return nil, multierr.Combine(fmt.Errorf("unable to unpack archive (%s): %w", arc, err), s.Close())
	}
	log.Debug("Archive unpacked", zap.String("archive", arc), zap.String("document", doc), zap.Int("files", n), zap.String("to", work))
	return s, nil
}

// selectDocument picks markup document in the archive. Inner path naming
// markup file is used as is, otherwise the least nested inputName under it
// is selected.
func selectDocument(names []string, inner, inputName string) (string, error) {
	inner = strings.Trim(inner, "/")
	if inner != "" && isHTMLName(inner) {
		if slices.Contains(names, inner) {
			return inner, nil
		}
		return "", fmt.Errorf("document %q not found", inner)
	}

	prefix := ""
	if inner != "" {
		prefix = inner + "/"
	}
	var candidates []string
	for _, name := range names {
		if strings.HasPrefix(name, prefix) && path.Base(name) == inputName {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no %q found under %q", inputName, "/"+inner)
	}
	slices.SortFunc(candidates, func(a, b string) int {
		if da, db := strings.Count(a, "/"), strings.Count(b, "/"); da != db {
			return da - db
		}
		if natural.Less(a, b) {
			return -1
		}
		if natural.Less(b, a) {
			return 1
		}
		return 0
	})
	return candidates[0], nil
}
