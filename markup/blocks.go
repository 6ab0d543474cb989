package markup

import (
	"regexp"
	"strings"
)

// Block is a contiguous fragment of markup for one top-level container.
type Block struct {
	Index int
	// ID is identifier declared by the opening tag of the block, if any.
	ID  string
	Raw string
}

// SplitBlocks splits region along boundary matches. Every match starts a new
// block and stays attached to it. Non blank text before the first match
// becomes a block of its own. When boundary does not match, whole region is a
// single block (or nothing when region is blank).
func SplitBlocks(region string, boundary *regexp.Regexp) []Block {
	var locs [][]int
	if boundary != nil {
		locs = boundary.FindAllStringIndex(region, -1)
	}
	// empty matches cannot introduce anything
	locs = slicesDeleteEmpty(locs)

	if len(locs) == 0 {
		if strings.TrimSpace(region) == "" {
			return nil
		}
		return []Block{{Index: 0, ID: Attr(region, "id"), Raw: region}}
	}

	blocks := make([]Block, 0, len(locs)+1)
	if prefix := region[:locs[0][0]]; strings.TrimSpace(prefix) != "" {
		blocks = append(blocks, Block{Raw: prefix})
	}
	for i, loc := range locs {
		end := len(region)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		blocks = append(blocks, Block{
			Index: len(blocks),
			ID:    Attr(region[loc[0]:loc[1]], "id"),
			Raw:   region[loc[0]:end],
		})
	}
	return blocks
}

func slicesDeleteEmpty(locs [][]int) [][]int {
	out := locs[:0]
	for _, loc := range locs {
		if loc[1] > loc[0] {
			out = append(out, loc)
		}
	}
	return out
}

// Join concatenates raw markup of blocks, one per line.
func Join(blocks []Block) string {
	var sb strings.Builder
	for i, b := range blocks {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(b.Raw)
	}
	return sb.String()
}
