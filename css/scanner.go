// Package css finds and rewrites external references in stylesheets.
package css

import (
	"bytes"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Reference is a single external resource used by a stylesheet.
type Reference struct {
	URL string
	// Import is set for @import targets, they are stylesheets themselves.
	Import bool
}

// Scanner walks stylesheet tokens looking for url() values and @import
// targets.
type Scanner struct {
	log *zap.Logger
}

func NewScanner(log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{log: log.Named("css")}
}

// References returns references in order of appearance, duplicates
// included. Source is used for logging only.
func (s *Scanner) References(data []byte, source string) []Reference {
	var refs []Reference
	s.walk(data, func(ref Reference, _ []byte) []byte {
		refs = append(refs, ref)
		return nil
	})
	s.log.Debug("Scanned stylesheet", zap.String("source", source), zap.Int("bytes", len(data)), zap.Int("references", len(refs)))
	return refs
}

// Rewrite replaces every reference with result of fn. Tokens fn leaves
// unchanged are copied as is, so stylesheet without changes is returned
// byte-identical.
func (s *Scanner) Rewrite(data []byte, fn func(Reference) string) []byte {
	return s.walk(data, func(ref Reference, raw []byte) []byte {
		url := fn(ref)
		if url == ref.URL {
			return raw
		}
		return requote(raw, url)
	})
}

// walk feeds every token to output calling fn for references. When fn
// returns nil original token is kept.
func (s *Scanner) walk(data []byte, fn func(Reference, []byte) []byte) []byte {
	out := make([]byte, 0, len(data))
	l := css.NewLexer(parse.NewInputBytes(data))

	inImport := false
	for {
		tt, text := l.Next()
		switch tt {
		case css.ErrorToken:
			if err := l.Err(); err != nil && err.Error() != "EOF" {
				s.log.Debug("Stylesheet lexer stopped", zap.Error(err))
			}
			return out
		case css.AtKeywordToken:
			inImport = strings.EqualFold(string(text), "@import")
		case css.URLToken:
			if url := urlValue(text); url != "" {
				text = keep(text, fn(Reference{URL: url, Import: inImport}, text))
			}
			inImport = false
		case css.StringToken:
			if inImport {
				if url := unquote(string(text)); url != "" {
					text = keep(text, fn(Reference{URL: url, Import: true}, text))
				}
				inImport = false
			}
		case css.SemicolonToken, css.LeftBraceToken:
			inImport = false
		}
		out = append(out, text...)
	}
}

func keep(raw, replacement []byte) []byte {
	if replacement == nil {
		return raw
	}
	return replacement
}

// urlValue extracts target from url(...) token text.
func urlValue(text []byte) string {
	open := bytes.IndexByte(text, '(')
	if open < 0 || !bytes.HasSuffix(text, []byte(")")) {
		return ""
	}
	return unquote(string(text[open+1 : len(text)-1]))
}

// requote builds replacement for url() or string token keeping its quoting.
func requote(raw []byte, url string) []byte {
	s := string(raw)
	prefix, suffix := "", ""
	if open := strings.IndexByte(s, '('); open >= 0 && strings.HasSuffix(s, ")") {
		prefix, suffix = s[:open+1], ")"
		s = strings.TrimSpace(s[open+1 : len(s)-1])
	}
	var b strings.Builder
	b.WriteString(prefix)
	switch {
	case strings.HasPrefix(s, "'"):
		b.WriteString("'" + strings.ReplaceAll(url, "'", `\'`) + "'")
	case strings.HasPrefix(s, `"`) || prefix == "":
		b.WriteString(`"` + escapeDoubleQuoted(url) + `"`)
	default:
		b.WriteString(strings.NewReplacer("(", `\(`, ")", `\)`, " ", `\ `).Replace(url))
	}
	b.WriteString(suffix)
	return []byte(b.String())
}

// escapeDoubleQuoted escapes a string for use inside CSS double quotes.
func escapeDoubleQuoted(s string) string {
	if !strings.ContainsAny(s, `"\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// unquote removes surrounding quotes from a string.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') ||
		(s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}

// IsLocal reports if reference points to a file next to the stylesheet.
func IsLocal(url string) bool {
	switch {
	case url == "", strings.HasPrefix(url, "#"), strings.HasPrefix(url, "/"):
		return false
	case strings.HasPrefix(strings.ToLower(url), "data:"):
		return false
	case strings.Contains(url, "://"), strings.HasPrefix(url, "//"):
		return false
	}
	return true
}

// Path strips query and fragment from local reference.
func Path(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	return url
}
