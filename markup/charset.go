package markup

import (
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
)

// Decode reads the whole document converting it to UTF-8 and returns name of
// the source encoding. Encoding is detected from BOM and meta declarations
// unless forced is given. Documents without declaration which are valid
// UTF-8 are taken as is.
func Decode(r io.Reader, forced encoding.Encoding) (string, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", "", fmt.Errorf("unable to read document: %w", err)
	}

	enc, name := forced, "forced"
	if enc == nil {
		var certain bool
		enc, name, certain = charset.DetermineEncoding(data, "text/html")
		if !certain && name == "windows-1252" && utf8.Valid(data) {
			return string(data), "utf-8", nil
		}
	}
	if enc == encoding.Nop {
		return string(data), name, nil
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", name, fmt.Errorf("unable to decode document from %s: %w", name, err)
	}
	return string(out), name, nil
}
