// Package markup works with raw markup of a single-file book export: it finds
// content region, splits it into top-level blocks, extracts contents listing
// anchors and cleans titles. Raw text is never re-serialized, blocks keep
// source bytes exactly as they were.
package markup
