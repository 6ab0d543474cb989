// Package debug produces human readable dumps of intermediate structures.
package debug

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// TreeWriter accumulates indented text. Each level of depth is indented by
// two spaces.
type TreeWriter struct {
	w *strings.Builder
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{
		w: &strings.Builder{},
	}
}

func (tw TreeWriter) String() string {
	return tw.w.String()
}

func (tw TreeWriter) indent(depth int) {
	for range depth {
		tw.w.WriteString("  ")
	}
}

func (tw TreeWriter) Line(depth int, format string, args ...any) {
	tw.indent(depth)
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// TextBlock writes label with quoted value.
func (tw TreeWriter) TextBlock(depth int, label, value string) {
	tw.indent(depth)
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(encodeText(value))
	tw.w.WriteByte('\n')
}

// Snippet is TextBlock for raw markup, value longer than limit runes is cut
// and total length is reported.
func (tw TreeWriter) Snippet(depth int, label, value string, limit int) {
	n := utf8.RuneCountInString(value)
	if limit <= 0 || n <= limit {
		tw.TextBlock(depth, label, value)
		return
	}
	tw.indent(depth)
	fmt.Fprintf(tw.w, "%s: %s... (%d runes)\n", label, encodeText(string([]rune(value)[:limit])), n)
}

func encodeText(raw string) string {
	if raw == "" {
		return raw
	}
	return strconv.Quote(raw)
}
