package cliscan

import (
	"fmt"
	"math"
	"strconv"
)

// FloatEncoder renders a decimal float literal into its little-endian
// IEEE-754 byte representation at 4 or 8 bytes; other widths (10/16-byte
// extended/packed forms) are out of this demonstration package's scope.
type FloatEncoder struct{}

func (FloatEncoder) Encode(literal string, width int) ([]byte, error) {
	v, err := strconv.ParseFloat(literal, 64)
	if err != nil {
		return nil, fmt.Errorf("cliscan: %q is not a valid float literal: %w", literal, err)
	}
	switch width {
	case 4:
		bits := math.Float32bits(float32(v))
		return []byte{byte(bits), byte(bits >> 8), byte(bits >> 16), byte(bits >> 24)}, nil
	case 8:
		bits := math.Float64bits(v)
		out := make([]byte, 8)
		for i := 0; i < 8; i++ {
			out[i] = byte(bits >> (8 * i))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cliscan: unsupported float width %d", width)
	}
}

// StringTransform implements the handful of string-transform functions a
// demonstration CLI needs; __utf16__ is the only one wired.
type StringTransform struct{}

func (StringTransform) Transform(name, arg string) ([]byte, error) {
	switch name {
	case "__utf16__":
		out := make([]byte, 0, len(arg)*2)
		for _, r := range arg {
			out = append(out, byte(r), byte(r>>8))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cliscan: unrecognised string-transform function %q", name)
	}
}
