package images

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/jpeg"
)

// jfifHeader is JFIF 1.01 APP0 segment with square pixels and no thumbnail,
// same as libjpeg writes by default. Browsers ignore density and use pixel
// dimensions, only the aspect ratio matters.
var jfifHeader = func() []byte {
	buf := new(bytes.Buffer)
	buf.Write([]byte{0xff, 0xe0})
	_ = binary.Write(buf, binary.BigEndian, uint16(16))
	buf.WriteString("JFIF\x00")
	buf.Write([]byte{1, 1}) // version
	buf.WriteByte(0)        // density units: aspect ratio only
	_ = binary.Write(buf, binary.BigEndian, [2]uint16{1, 1})
	buf.Write([]byte{0, 0}) // thumbnail size
	return buf.Bytes()
}()

// withJFIF makes sure encoded image starts with JFIF (or other APP0)
// segment. image/jpeg writes none, some older viewers refuse such files.
func withJFIF(data []byte) ([]byte, bool, error) {
	if len(data) < 4 || data[0] != 0xff || data[1] != markerSOI {
		return nil, false, errors.New("not a jpeg")
	}
	if data[2] == 0xff && data[3] == 0xe0 {
		return data, false, nil
	}
	out := make([]byte, 0, len(data)+len(jfifHeader))
	out = append(out, data[:2]...)
	out = append(out, jfifHeader...)
	out = append(out, data[2:]...)
	return out, true, nil
}

// encodeJPEG encodes image for the site.
func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	out, _, err := withJFIF(buf.Bytes())
	return out, err
}
