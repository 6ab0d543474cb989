package markup

import (
	"regexp"
	"strings"
)

var (
	bodyOpen  = regexp.MustCompile(`(?i)<body(?:\s[^>]*)?>`)
	bodyClose = regexp.MustCompile(`(?i)</body\s*>`)
)

// Body returns inside of the body element. When there is no body element
// the whole document is returned and found is false.
func Body(doc string) (region string, found bool) {
	loc := bodyOpen.FindStringIndex(doc)
	if loc == nil {
		return doc, false
	}
	region = doc[loc[1]:]
	if end := bodyClose.FindStringIndex(region); end != nil {
		region = region[:end[0]]
	}
	return region, true
}

// Between returns part of the document starting at the first occurrence of
// start marker (included) up to the first occurrence of end marker after it
// (excluded) or to the end of document. Empty end means end of document.
func Between(doc, start, end string) (region string, found bool) {
	if start == "" {
		return doc, false
	}
	from := strings.Index(doc, start)
	if from < 0 {
		return doc, false
	}
	region = doc[from:]
	if end != "" {
		if to := strings.Index(region[len(start):], end); to >= 0 {
			region = region[:len(start)+to]
		}
	}
	return region, true
}

// Region selects content region: explicit markers when given, body element
// otherwise. It always returns something to work with.
func Region(doc, start, end string) (string, bool) {
	if start != "" {
		if region, ok := Between(doc, start, end); ok {
			return region, true
		}
	}
	return Body(doc)
}

// LocateTOC finds contents listing. Without start marker, or when it cannot
// be found, bounded prefix of the document is used (whole document when limit
// is 0) and found is false.
func LocateTOC(doc, start, end string, prefixLimit int) (region string, found bool) {
	if region, ok := Between(doc, start, end); ok {
		return region, true
	}
	if prefixLimit > 0 && prefixLimit < len(doc) {
		// do not cut in the middle of UTF-8 sequence
		for prefixLimit > 0 && !utf8Start(doc[prefixLimit]) {
			prefixLimit--
		}
		return doc[:prefixLimit], false
	}
	return doc, false
}

func utf8Start(b byte) bool {
	return b&0xC0 != 0x80
}
