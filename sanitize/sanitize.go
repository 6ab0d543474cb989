// Package sanitize removes unwanted boilerplate from finished chapters.
package sanitize

import (
	"regexp"

	"go.uber.org/zap"

	"hsplit/segment"
)

// Filter removes every match of its patterns from chapter content.
type Filter struct {
	patterns []*regexp.Regexp
}

func New(patterns []*regexp.Regexp) *Filter {
	return &Filter{patterns: patterns}
}

// Empty reports if filter would not change anything.
func (f *Filter) Empty() bool {
	return f == nil || len(f.patterns) == 0
}

// Apply cleans every block of every chapter and returns number of removed
// fragments per pattern.
func (f *Filter) Apply(chapters []*segment.Chapter, log *zap.Logger) []int {
	if f.Empty() {
		return nil
	}
	counts := make([]int, len(f.patterns))
	for _, c := range chapters {
		for i := range c.Blocks {
			raw := c.Blocks[i].Raw
			for k, re := range f.patterns {
				n := len(re.FindAllStringIndex(raw, -1))
				if n == 0 {
					continue
				}
				counts[k] += n
				raw = re.ReplaceAllString(raw, "")
				log.Debug("Boilerplate removed", zap.String("file", c.Filename), zap.Int("pattern", k), zap.Int("count", n))
			}
			c.Blocks[i].Raw = raw
		}
	}
	return counts
}
