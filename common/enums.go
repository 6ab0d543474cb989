// Package common keeps enumerations shared between rule sets, the engine and
// configuration. Values are textual in YAML and parsed case insensitively.
package common

import (
	"fmt"
	"strings"
)

// Granularity of the block extraction.
// ENUM(block, node)
type Granularity int

const (
	GranularityBlock Granularity = iota
	GranularityNode
)

var granularityNames = []string{"block", "node"}

// AnchorMatch selects which identifiers of a block are looked up in the
// anchor map.
// ENUM(declared, contained)
type AnchorMatch int

const (
	AnchorMatchDeclared AnchorMatch = iota
	AnchorMatchContained
)

var anchorMatchNames = []string{"declared", "contained"}

// TitleSource tells where header title comes from.
// ENUM(text, attr)
type TitleSource int

const (
	TitleSourceText TitleSource = iota
	TitleSourceAttr
)

var titleSourceNames = []string{"text", "attr"}

// HeaderKind is a kind of header produced by a header rule.
// ENUM(chapter, section)
type HeaderKind int

const (
	HeaderKindChapter HeaderKind = iota
	HeaderKindSection
)

var headerKindNames = []string{"chapter", "section"}

// TOCShape is the shape of the navigation tree.
// ENUM(flat, two-level, three-level)
type TOCShape int

const (
	TOCShapeFlat TOCShape = iota
	TOCShapeTwoLevel
	TOCShapeThreeLevel
)

var tocShapeNames = []string{"flat", "two-level", "three-level"}

func name(names []string, kind string, v int) string {
	if v >= 0 && v < len(names) {
		return names[v]
	}
	return fmt.Sprintf("%s(%d)", kind, v)
}

func parse(names []string, kind, s string) (int, error) {
	for i, n := range names {
		if strings.EqualFold(n, strings.TrimSpace(s)) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%s is not a valid %s, try [%s]", s, kind, strings.Join(names, ", "))
}

func (x Granularity) String() string { return name(granularityNames, "Granularity", int(x)) }

func ParseGranularity(s string) (Granularity, error) {
	v, err := parse(granularityNames, "Granularity", s)
	return Granularity(v), err
}

func (x Granularity) MarshalText() ([]byte, error) { return []byte(x.String()), nil }

func (x *Granularity) UnmarshalText(text []byte) error {
	v, err := ParseGranularity(string(text))
	if err != nil {
		return err
	}
	*x = v
	return nil
}

func (x AnchorMatch) String() string { return name(anchorMatchNames, "AnchorMatch", int(x)) }

func ParseAnchorMatch(s string) (AnchorMatch, error) {
	v, err := parse(anchorMatchNames, "AnchorMatch", s)
	return AnchorMatch(v), err
}

func (x AnchorMatch) MarshalText() ([]byte, error) { return []byte(x.String()), nil }

func (x *AnchorMatch) UnmarshalText(text []byte) error {
	v, err := ParseAnchorMatch(string(text))
	if err != nil {
		return err
	}
	*x = v
	return nil
}

func (x TitleSource) String() string { return name(titleSourceNames, "TitleSource", int(x)) }

func ParseTitleSource(s string) (TitleSource, error) {
	v, err := parse(titleSourceNames, "TitleSource", s)
	return TitleSource(v), err
}

func (x TitleSource) MarshalText() ([]byte, error) { return []byte(x.String()), nil }

func (x *TitleSource) UnmarshalText(text []byte) error {
	v, err := ParseTitleSource(string(text))
	if err != nil {
		return err
	}
	*x = v
	return nil
}

func (x HeaderKind) String() string { return name(headerKindNames, "HeaderKind", int(x)) }

func ParseHeaderKind(s string) (HeaderKind, error) {
	v, err := parse(headerKindNames, "HeaderKind", s)
	return HeaderKind(v), err
}

func (x HeaderKind) MarshalText() ([]byte, error) { return []byte(x.String()), nil }

func (x *HeaderKind) UnmarshalText(text []byte) error {
	v, err := ParseHeaderKind(string(text))
	if err != nil {
		return err
	}
	*x = v
	return nil
}

func (x TOCShape) String() string { return name(tocShapeNames, "TOCShape", int(x)) }

func ParseTOCShape(s string) (TOCShape, error) {
	v, err := parse(tocShapeNames, "TOCShape", s)
	return TOCShape(v), err
}

// TOCShapeNames returns list of possible shapes.
func TOCShapeNames() []string {
	return append([]string(nil), tocShapeNames...)
}

func (x TOCShape) MarshalText() ([]byte, error) { return []byte(x.String()), nil }

func (x *TOCShape) UnmarshalText(text []byte) error {
	v, err := ParseTOCShape(string(text))
	if err != nil {
		return err
	}
	*x = v
	return nil
}
