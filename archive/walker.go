// Package archive reads book sources packed into zip containers (plain zip
// or htmlz exported by Calibre).
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
)

// WalkFunc is called for every regular file in the archive visited by Walk.
// Name is the entry path with legacy code page already decoded. If an error
// is returned, processing stops.
type WalkFunc func(archive string, file *zip.File, name string) error

// Walk visits all regular files whose decoded name starts with prefix.
// Entries with absolute paths or ".." components make the whole archive
// unusable (Zip Slip). Names not marked as UTF-8 are decoded with cp when it
// is not nil.
func Walk(archive, prefix string, cp encoding.Encoding, walkFn WalkFunc) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		name, err := decodeName(f, cp)
		if err != nil {
			return fmt.Errorf("zip entry %q: %w", f.Name, err)
		}
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if f.FileInfo().IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		if err := walkFn(archive, f, name); err != nil {
			return err
		}
	}
	return nil
}

// Names lists regular files of the archive in stored order.
func Names(archive string, cp encoding.Encoding) ([]string, error) {
	var names []string
	err := Walk(archive, "", cp, func(_ string, _ *zip.File, name string) error {
		names = append(names, name)
		return nil
	})
	return names, err
}

// Extract unpacks files under prefix into dir, prefix itself is removed from
// resulting paths. It returns number of files written.
func Extract(archive, prefix, dir string, cp encoding.Encoding) (int, error) {
	count := 0
	err := Walk(archive, prefix, cp, func(_ string, f *zip.File, name string) error {
		rel := strings.TrimPrefix(name, prefix)
		if rel == "" {
			return nil
		}
		target := filepath.Join(dir, filepath.FromSlash(rel))
		if err := extractFile(f, target); err != nil {
			return fmt.Errorf("unable to extract %q: %w", name, err)
		}
		count++
		return nil
	})
	return count, err
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func decodeName(f *zip.File, cp encoding.Encoding) (string, error) {
	name := f.Name
	if cp == nil || (!f.NonUTF8 && utf8.ValidString(name)) {
		return name, nil
	}
	return cp.NewDecoder().String(name)
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, `\`) || filepath.VolumeName(name) != "" {
		return false
	}
	for part := range strings.FieldsFuncSeq(name, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return false
		}
	}
	return true
}
