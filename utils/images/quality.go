package images

import (
	"encoding/binary"
	"errors"
)

var (
	ErrInvalidJPEG  = errors.New("invalid JPEG header")
	ErrShortSegment = errors.New("short segment length")
	ErrNoDQT        = errors.New("no quantization table for luminance")
)

const (
	markerSOI = 0xd8
	markerEOI = 0xd9
	markerSOS = 0xda
	markerDQT = 0xdb
)

// standard luminance quantization table (ITU T.81, K.1)
var stdLuminance = [64]int{
	16, 11, 10, 16, 24, 40, 51, 61,
	12, 12, 14, 19, 26, 58, 60, 55,
	14, 13, 16, 24, 40, 57, 69, 56,
	14, 17, 22, 29, 51, 87, 80, 62,
	18, 22, 37, 56, 68, 109, 103, 77,
	24, 35, 55, 64, 81, 104, 113, 92,
	49, 64, 78, 87, 103, 121, 120, 101,
	72, 92, 95, 98, 112, 100, 103, 99,
}

// JPEGQuality estimates quality level (1-100) the image was encoded with by
// comparing its luminance quantization table with scaled standard one.
func JPEGQuality(data []byte) (int, error) {
	if len(data) < 2 || data[0] != 0xff || data[1] != markerSOI {
		return 0, ErrInvalidJPEG
	}
	table, err := luminanceTable(data[2:])
	if err != nil {
		return 0, err
	}
	sum := 0
	for _, v := range table {
		sum += v
	}

	best, bestDiff := 0, -1
	for q := 1; q <= 100; q++ {
		diff := sum - scaledSum(q)
		if diff < 0 {
			diff = -diff
		}
		if bestDiff < 0 || diff < bestDiff {
			best, bestDiff = q, diff
		}
	}
	return best, nil
}

// scaledSum is the sum of the standard table scaled for quality q the way
// libjpeg (and image/jpeg) does it.
func scaledSum(q int) int {
	scale := 200 - 2*q
	if q < 50 {
		scale = 5000 / q
	}
	sum := 0
	for _, v := range stdLuminance {
		sum += min(max((v*scale+50)/100, 1), 255)
	}
	return sum
}

func luminanceTable(data []byte) ([]int, error) {
	for len(data) > 0 {
		if data[0] != 0xff {
			return nil, ErrInvalidJPEG
		}
		// fill bytes
		for len(data) > 1 && data[1] == 0xff {
			data = data[1:]
		}
		if len(data) < 2 {
			return nil, ErrShortSegment
		}
		marker := data[1]
		data = data[2:]
		switch {
		case marker == markerEOI || marker == markerSOS:
			return nil, ErrNoDQT
		case marker == 0x01 || (marker >= 0xd0 && marker <= 0xd7):
			continue
		}
		if len(data) < 2 {
			return nil, ErrShortSegment
		}
		length := int(binary.BigEndian.Uint16(data))
		if length < 2 || length > len(data) {
			return nil, ErrShortSegment
		}
		segment := data[2:length]
		data = data[length:]
		if marker != markerDQT {
			continue
		}
		for len(segment) > 0 {
			precision, id := segment[0]>>4, segment[0]&0x0f
			size := 64 * (int(precision) + 1)
			if len(segment) < 1+size {
				return nil, ErrShortSegment
			}
			if id == 0 {
				table := make([]int, 64)
				for i := range table {
					if precision == 0 {
						table[i] = int(segment[1+i])
					} else {
						table[i] = int(binary.BigEndian.Uint16(segment[1+2*i:]))
					}
				}
				return table, nil
			}
			segment = segment[1+size:]
		}
	}
	return nil, ErrNoDQT
}
