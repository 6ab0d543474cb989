package rules

import (
	"fmt"
	"regexp"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/rupor-github/gencfg"
	"go.uber.org/multierr"

	"hsplit/common"
)

// CompiledHeader is a header rule with all patterns compiled.
type CompiledHeader struct {
	Header
	Index    int
	element  *regexp.Regexp
	class    *regexp.Regexp
	text     *regexp.Regexp
	inner    *regexp.Regexp
	innerNot *regexp.Regexp
}

// MatchElement checks element name and class tokens of the opening tag.
func (h *CompiledHeader) MatchElement(name, class string) bool {
	if !h.element.MatchString(name) {
		return false
	}
	if h.class == nil {
		return true
	}
	for token := range strings.FieldsSeq(class) {
		if h.class.MatchString(token) {
			return true
		}
	}
	return false
}

// MatchContent checks inner markup and cleaned text of the element.
func (h *CompiledHeader) MatchContent(inner, text string) bool {
	if h.inner != nil && !h.inner.MatchString(inner) {
		return false
	}
	if h.innerNot != nil && h.innerNot.MatchString(inner) {
		return false
	}
	if h.text != nil && !h.text.MatchString(text) {
		return false
	}
	return true
}

// Compiled is validated rule set ready for use.
type Compiled struct {
	*RuleSet

	Boundary      *regexp.Regexp
	AnchorID      *regexp.Regexp
	SectionTitles []*regexp.Regexp
	HeaderRules   []*CompiledHeader
	Remove        []*regexp.Regexp
	Hide          []*regexp.Regexp
}

// Compile validates rule set and compiles all patterns. All problems found
// are reported together.
func (rs *RuleSet) Compile() (*Compiled, error) {
	if err := gencfg.Validate(*rs, gencfg.WithAdditionalChecks(ruleSetChecks)); err != nil {
		return nil, fmt.Errorf("invalid rule set %q: %w", rs.Name, err)
	}

	c := &Compiled{RuleSet: rs}

	var errs error
	compile := func(what, flags, expr string) *regexp.Regexp {
		if expr == "" {
			return nil
		}
		re, err := regexp.Compile(flags + expr)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", what, err))
			return nil
		}
		return re
	}

	c.Boundary = compile("blocks.boundary", "(?is)", rs.Blocks.Boundary)
	if rs.Anchors.IDPattern != "" {
		c.AnchorID = compile("anchors.id_pattern", "", "^(?:"+rs.Anchors.IDPattern+")$")
	}
	for i, expr := range rs.Anchors.SectionTitles {
		if re := compile(fmt.Sprintf("anchors.section_titles[%d]", i), "", expr); re != nil {
			c.SectionTitles = append(c.SectionTitles, re)
		}
	}
	for i, h := range rs.Headers {
		ch := &CompiledHeader{Header: h, Index: i}
		ch.element = compile(fmt.Sprintf("headers[%d].element", i), "(?i)", "^(?:"+h.Element+")$")
		if h.Class != "" {
			ch.class = compile(fmt.Sprintf("headers[%d].class", i), "", "^(?:"+h.Class+")$")
		}
		ch.text = compile(fmt.Sprintf("headers[%d].text", i), "(?s)", h.Text)
		ch.inner = compile(fmt.Sprintf("headers[%d].inner", i), "(?is)", h.Inner)
		ch.innerNot = compile(fmt.Sprintf("headers[%d].inner_not", i), "(?is)", h.InnerNot)
		c.HeaderRules = append(c.HeaderRules, ch)
	}
	for i, expr := range rs.Sanitize.Remove {
		if re := compile(fmt.Sprintf("sanitize.remove[%d]", i), "(?is)", expr); re != nil {
			c.Remove = append(c.Remove, re)
		}
	}
	for i, expr := range rs.TOC.Hide {
		if re := compile(fmt.Sprintf("toc.hide[%d]", i), "", expr); re != nil {
			c.Hide = append(c.Hide, re)
		}
	}
	if errs != nil {
		return nil, fmt.Errorf("invalid rule set %q: %w", rs.Name, errs)
	}
	return c, nil
}

// ruleSetChecks verifies relations between fields validator tags cannot
// express.
func ruleSetChecks(sl validator.StructLevel) {
	rs, ok := sl.Current().Interface().(RuleSet)
	if !ok {
		return
	}
	if rs.TOC.Shape == common.TOCShapeThreeLevel && len(rs.TOC.Volumes) == 0 && rs.TOC.DefaultVolume == "" {
		sl.ReportError(rs.TOC.Volumes, "Volumes", "volumes", "three_level_volumes", "")
	}
	usable := false
	for _, s := range rs.Order {
		switch s {
		case StrategyStructural:
			usable = usable || len(rs.Headers) > 0
		case StrategyAnchors:
			usable = usable || rs.Anchors.Enabled
		}
	}
	if !usable {
		sl.ReportError(rs.Order, "Order", "order", "usable_strategy", "")
	}
	// home name must not be reachable by ordinal names
	if strings.HasPrefix(rs.Filenames.Home, rs.Filenames.Prefix) {
		rest := strings.TrimPrefix(rs.Filenames.Home, rs.Filenames.Prefix)
		if rest != "" && strings.Trim(rest, "0123456789") == "" {
			sl.ReportError(rs.Filenames.Home, "Home", "home", "home_collision", "")
		}
	}
}

// IsSectionTitle reports if anchor title should produce section header.
func (c *Compiled) IsSectionTitle(title string) bool {
	for _, re := range c.SectionTitles {
		if re.MatchString(title) {
			return true
		}
	}
	return false
}

// IsHidden reports if chapter with this title must not be shown in the
// navigation tree.
func (c *Compiled) IsHidden(title string) bool {
	for _, re := range c.Hide {
		if re.MatchString(title) {
			return true
		}
	}
	return false
}

// VolumeFor checks volume rules in order. It returns label of the volume the
// chapter opens, label falls back to chapter title.
func (c *Compiled) VolumeFor(title, file string) (string, bool) {
	for _, v := range c.TOC.Volumes {
		if (v.File != "" && v.File == file) || (v.Match != "" && strings.Contains(title, v.Match)) {
			if v.Label != "" {
				return v.Label, true
			}
			return title, true
		}
	}
	return "", false
}
