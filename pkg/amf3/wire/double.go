package wire

import (
	"encoding/binary"
	"math"
)

// DoubleSize is the wire size of an AMF3 double
const DoubleSize = 8

// DecodeDouble reads an IEEE-754 binary64 stored big-endian at the start of buf.
// The bit pattern is passed through unchanged, NaN payloads included.
func DecodeDouble(buf []byte) (float64, error) {
	if len(buf) < DoubleSize {
		return 0, truncated("double", DoubleSize, len(buf))
	}
	return math.Float64frombits(binary.BigEndian.Uint64(buf)), nil
}

// EncodeDouble returns the big-endian wire form of v regardless of host byte order.
func EncodeDouble(v float64) [DoubleSize]byte {
	var out [DoubleSize]byte
	binary.BigEndian.PutUint64(out[:], math.Float64bits(v))
	return out
}

// AppendDouble appends the wire form of v to dst.
func AppendDouble(dst []byte, v float64) []byte {
	return binary.BigEndian.AppendUint64(dst, math.Float64bits(v))
}
