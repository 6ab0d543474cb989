// Package rules describes how a particular source document is split into
// chapters. A rule set is plain data (YAML), it is compiled once before
// processing and passed to every stage of the engine.
package rules

import (
	"bytes"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"hsplit/common"
)

type (
	// Region limits part of the document to work with. Empty start means
	// inside of the body element.
	Region struct {
		Start string `yaml:"start,omitempty"`
		End   string `yaml:"end,omitempty"`
	}

	Blocks struct {
		// Boundary is a regular expression matching opening tag of the
		// top-level container.
		Boundary    string             `yaml:"boundary"`
		Granularity common.Granularity `yaml:"granularity"`
	}

	TOCRegion struct {
		Start string `yaml:"start,omitempty"`
		End   string `yaml:"end,omitempty"`
		// PrefixLimit bounds the search when start marker cannot be found,
		// 0 means whole document.
		PrefixLimit int `yaml:"prefix_limit,omitempty" validate:"gte=0"`
	}

	Entry struct {
		ID    string `yaml:"id" validate:"required"`
		Title string `yaml:"title" validate:"required"`
	}

	Anchors struct {
		Enabled       bool               `yaml:"enabled"`
		Match         common.AnchorMatch `yaml:"match"`
		IDPattern     string             `yaml:"id_pattern,omitempty"`
		TOC           TOCRegion          `yaml:"toc,omitempty"`
		Entries       []Entry            `yaml:"entries,omitempty" validate:"dive"`
		SectionTitles []string           `yaml:"section_titles,omitempty"`
	}

	// Header is a single structural header rule. All non-empty conditions
	// must hold for an element to be a header.
	Header struct {
		Element   string             `yaml:"element" validate:"required"`
		Class     string             `yaml:"class,omitempty"`
		TitleFrom common.TitleSource `yaml:"title_from,omitempty"`
		TitleAttr string             `yaml:"title_attr,omitempty"`
		Text      string             `yaml:"text,omitempty"`
		Inner     string             `yaml:"inner,omitempty"`
		InnerNot  string             `yaml:"inner_not,omitempty"`
		Kind      common.HeaderKind  `yaml:"kind"`
	}

	Volume struct {
		Match string `yaml:"match,omitempty" validate:"required_without=File"`
		File  string `yaml:"file,omitempty" validate:"required_without=Match"`
		Label string `yaml:"label,omitempty"`
	}

	TOC struct {
		Shape         common.TOCShape `yaml:"shape"`
		DefaultVolume string          `yaml:"default_volume,omitempty"`
		Volumes       []Volume        `yaml:"volumes,omitempty" validate:"dive"`
		Hide          []string        `yaml:"hide,omitempty"`
	}

	Filenames struct {
		Home   string `yaml:"home" validate:"required,excludesall=/\\"`
		Prefix string `yaml:"prefix" validate:"required,excludesall=/\\"`
		Digits int    `yaml:"digits" validate:"min=1,max=6"`
		Ext    string `yaml:"ext" validate:"required,alphanum"`
	}

	Sanitize struct {
		Remove []string `yaml:"remove,omitempty"`
	}

	RuleSet struct {
		Name             string    `yaml:"name" validate:"required"`
		Description      string    `yaml:"description,omitempty"`
		Title            string    `yaml:"title,omitempty"`
		Language         string    `yaml:"language,omitempty"`
		FrontMatterTitle string    `yaml:"front_matter_title" validate:"required"`
		// KeepFrontMatter makes home page front matter even when nothing
		// precedes the first header, so chapter numbering does not depend
		// on document start.
		KeepFrontMatter  bool      `yaml:"keep_front_matter,omitempty"`
		Region           Region    `yaml:"region,omitempty"`
		Blocks           Blocks    `yaml:"blocks"`
		Anchors          Anchors   `yaml:"anchors,omitempty"`
		Headers          []Header  `yaml:"headers,omitempty" validate:"dive"`
		Order            []string  `yaml:"order" validate:"min=1,unique,dive,oneof=structural anchors"`
		Sanitize         Sanitize  `yaml:"sanitize,omitempty"`
		TOC              TOC       `yaml:"toc"`
		Filenames        Filenames `yaml:"filenames"`
	}
)

const (
	StrategyStructural = "structural"
	StrategyAnchors    = "anchors"
)

const (
	DefaultBoundary         = `<div class="calibre"[^>]*>`
	DefaultFrontMatterTitle = "Front Matter"
	DefaultVolumeTitle      = "Volume 1"
)

// Parse decodes rule set from YAML, unknown fields are errors. Defaults are
// applied to missing values.
func Parse(data []byte) (*RuleSet, error) {
	rs := &RuleSet{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(rs); err != nil {
		return nil, fmt.Errorf("failed to decode rule set: %w", err)
	}
	rs.applyDefaults()
	return rs, nil
}

// Load reads rule set from file.
func Load(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read rule set: %w", err)
	}
	rs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("rule set %s: %w", path, err)
	}
	return rs, nil
}

// Dump returns YAML representation of the rule set.
func Dump(rs *RuleSet) ([]byte, error) {
	data, err := yaml.Marshal(rs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rule set to yaml: %w", err)
	}
	return data, nil
}

func (rs *RuleSet) applyDefaults() {
	if rs.FrontMatterTitle == "" {
		rs.FrontMatterTitle = DefaultFrontMatterTitle
	}
	if rs.Blocks.Boundary == "" {
		rs.Blocks.Boundary = DefaultBoundary
	}
	if len(rs.Order) == 0 {
		rs.Order = []string{StrategyStructural, StrategyAnchors}
	}
	for i := range rs.Headers {
		if rs.Headers[i].TitleFrom == common.TitleSourceAttr && rs.Headers[i].TitleAttr == "" {
			rs.Headers[i].TitleAttr = "title"
		}
	}
	if rs.TOC.Shape == common.TOCShapeThreeLevel && rs.TOC.DefaultVolume == "" {
		rs.TOC.DefaultVolume = DefaultVolumeTitle
	}
	if rs.Filenames.Home == "" {
		rs.Filenames.Home = "index"
	}
	if rs.Filenames.Prefix == "" {
		rs.Filenames.Prefix = "chapter_"
	}
	if rs.Filenames.Digits == 0 {
		rs.Filenames.Digits = 2
	}
	if rs.Filenames.Ext == "" {
		rs.Filenames.Ext = "html"
	}
}

// Filename returns positional name of the chapter: first chapter is home,
// every other one is named by its index.
func (f Filenames) Filename(index int) string {
	if index == 0 {
		return f.Home + "." + f.Ext
	}
	return fmt.Sprintf("%s%0*d.%s", f.Prefix, f.Digits, index, f.Ext)
}
