package convert

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
)

// headerSize is enough for every matcher filetype has.
const headerSize = 262

func readHeader(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, headerSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}

// isArchiveFile checks extension first and then verifies zip signature.
func isArchiveFile(path string) (bool, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip", ".htmlz":
	default:
		return false, nil
	}
	header, err := readHeader(path)
	if err != nil {
		return false, err
	}
	return filetype.IsType(header, matchers.TypeZip), nil
}

// isHTMLFile accepts markup extensions as long as content is not recognized
// as some binary format.
func isHTMLFile(path string) (bool, error) {
	if !isHTMLName(path) {
		return false, nil
	}
	header, err := readHeader(path)
	if err != nil {
		return false, err
	}
	kind, _ := filetype.Match(header)
	return kind == filetype.Unknown, nil
}

func isHTMLName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm", ".xhtml":
		return true
	}
	return false
}
