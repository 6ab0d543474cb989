package convert

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"hsplit/book"
	"hsplit/config"
	"hsplit/state"
)

// buildOutputPath returns directory site will be written to. Explicit
// destination is used as is, otherwise directory is created under dst
// (working directory when empty) and named either by output name template
// or after the source. Name segments are cleaned and, if requested,
// transliterated.
func buildOutputPath(b *book.Book, src *source, dst string, explicit bool, env *state.LocalEnv) string {
	if explicit {
		return dst
	}

	name := ""
	if env.Cfg.Document.OutputNameTemplate != "" {
		name = expandOutputNameTemplate(b, env)
	}

	var out string
	if name == "" {
		out = filepath.Join(dst, buildDefaultDirName(src.Name, env))
	} else {
		out = assemblePathWithSubdirs(dst, name, env)
	}

	// never write over the source itself
	if rel, err := filepath.Rel(out, src.File); err == nil && !strings.HasPrefix(rel, "..") {
		out += "-site"
	}
	return out
}

func buildDefaultDirName(src string, env *state.LocalEnv) string {
	baseName := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	return cleanPathSegment(baseName, env)
}

func expandOutputNameTemplate(b *book.Book, env *state.LocalEnv) string {
	expandedName, err := expandTemplate(b, config.OutputNameTemplateFieldName, env.Cfg.Document.OutputNameTemplate)
	if err != nil {
		env.Log.Warn("Unable to prepare output directory name", zap.Error(err))
		return ""
	}
	return filepath.FromSlash(strings.TrimSpace(expandedName))
}

// assemblePathWithSubdirs takes an expanded template name (which may contain
// path separators for subdirectories) and assembles it into a full output path,
// cleaning and transliterating segments as needed
func assemblePathWithSubdirs(outDir, expandedName string, env *state.LocalEnv) string {
	pathSegments := splitPath(expandedName)
	if len(pathSegments) == 0 {
		return outDir
	}

	dirParts := make([]string, 0, len(pathSegments)+1)
	dirParts = append(dirParts, outDir)
	for _, segment := range pathSegments {
		dirParts = append(dirParts, cleanPathSegment(segment, env))
	}
	return filepath.Join(dirParts...)
}

func splitPath(path string) []string {
	path = strings.TrimSuffix(path, string(os.PathSeparator))
	segments := make([]string, 0, 8)

	for head, tail := filepath.Split(path); tail != ""; head, tail = filepath.Split(head) {
		if tail != "." && tail != ".." {
			segments = slices.Insert(segments, 0, tail)
		}
		head = strings.TrimSuffix(head, string(os.PathSeparator))
		if head == "" {
			break
		}
	}
	return segments
}

func cleanPathSegment(segment string, env *state.LocalEnv) string {
	if env.Cfg.Document.FileNameTransliterate {
		segment = slug.Make(segment)
	}
	return config.CleanFileName(segment)
}
