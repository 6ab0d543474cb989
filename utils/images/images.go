// Package images prepares raster images copied to the site.
package images

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// IsImage reports if data is recognizable image.
func IsImage(data []byte) bool {
	return filetype.IsImage(data)
}

// Kind returns canonical extension of image data, empty when data is not an
// image.
func Kind(data []byte) string {
	kind, err := filetype.Image(data)
	if err != nil || kind == filetype.Unknown {
		return ""
	}
	return kind.Extension
}

// Downscale shrinks image wider than maxWidth keeping aspect ratio. Only
// JPEG and PNG images are re-encoded, everything else is returned as is.
// Reports if data was changed.
func Downscale(data []byte, maxWidth, quality int) ([]byte, bool, error) {
	if maxWidth <= 0 {
		return data, false, nil
	}
	kind := Kind(data)
	if kind != "jpg" && kind != "png" {
		return data, false, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("unable to decode %s image: %w", kind, err)
	}
	if img.Bounds().Dx() <= maxWidth {
		return data, false, nil
	}
	resized := imaging.Resize(img, maxWidth, 0, imaging.Lanczos)

	buf := new(bytes.Buffer)
	switch kind {
	case "png":
		if err := imaging.Encode(buf, resized, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression)); err != nil {
			return nil, false, fmt.Errorf("unable to encode resized PNG: %w", err)
		}
		return buf.Bytes(), true, nil
	default:
		var src image.Image = resized
		if IsGrayscale(resized) {
			src = imaging.Grayscale(resized)
		}
		// never encode with higher quality than the original has
		if q, err := JPEGQuality(data); err == nil && q < quality {
			quality = q
		}
		out, err := encodeJPEG(src, quality)
		if err != nil {
			return nil, false, fmt.Errorf("unable to encode resized JPEG: %w", err)
		}
		return out, true, nil
	}
}
