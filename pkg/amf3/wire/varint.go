// Package wire implements the primitive wire encodings that every AMF3 value is
// built from: the U29 variable-length integer, big-endian doubles, UTF-8 string
// headers and the reference-or-inline header shared by objects and arrays.
//
// All functions are pure transforms over a bounded byte slice. They return the
// decoded value together with the number of bytes consumed and never read past
// the end of the slice they were given. Reference tables are not kept here; the
// caller resolves the indexes these functions return.
package wire

import "errors"

// U29 limits
const (
	// MinInt29 is the smallest value representable as a signed U29
	MinInt29 = -1 << 28
	// MaxInt29 is the largest value representable as a signed U29
	MaxInt29 = 1<<28 - 1
	// MaxUint29 is the largest raw U29 value
	MaxUint29 = 1<<29 - 1
	// MaxHeaderValue is the largest index, length or count a U29 header can carry
	// next to its flag bit
	MaxHeaderValue = 1<<28 - 1

	u29Mask = 0x1FFFFFFF
	u29Sign = 0x10000000
)

// ErrOutOfRange is returned by the header encoders when an index or length does
// not fit the 28 bits left next to the flag bit.
var ErrOutOfRange = errors.New("amf3: value out of U29 range")

// DecodeVarint decodes a U29 token from the start of buf.
// Bytes one to three contribute 7 bits each and continue while 0x80 is set; a
// fourth byte contributes all 8 bits. It returns the 29-bit value and the number
// of bytes consumed (1 to 4).
func DecodeVarint(buf []byte) (uint32, int, error) {
	if len(buf) == 0 {
		return 0, 0, truncated("varint", 1, 0)
	}

	var value uint32
	n := 1
	b := buf[0]
	for b&0x80 != 0 && n < 4 {
		value = value<<7 | uint32(b&0x7F)
		if n >= len(buf) {
			return 0, 0, truncated("varint", n+1, len(buf))
		}
		b = buf[n]
		n++
	}

	if n < 4 {
		value = value<<7 | uint32(b&0x7F)
	} else {
		// the fourth byte has no continuation flag
		value = value<<8 | uint32(b)
	}

	return value, n, nil
}

// DecodeSignedVarint decodes a U29 token and reinterprets it as a 29-bit two's
// complement integer.
func DecodeSignedVarint(buf []byte) (int32, int, error) {
	value, n, err := DecodeVarint(buf)
	if err != nil {
		return 0, 0, err
	}
	return signed29(value), n, nil
}

// signed29 moves the sign from bit 28 to bit 31
func signed29(value uint32) int32 {
	v := int32(value)
	if value&u29Sign != 0 {
		v -= 0x20000000
	}
	return v
}

// EncodeVarint masks v to 29 bits and encodes it as a U29 token.
// The token is returned packed into the low n bytes of encoded in wire order,
// most significant byte first. Use AppendVarint to get the raw bytes.
func EncodeVarint(v int32) (encoded uint32, n int) {
	u := uint32(v) & u29Mask

	switch {
	case u <= 0x7F:
		return u, 1
	case u <= 0x3FFF:
		encoded = u & 0x7F
		encoded |= (u & 0x3F80) << 1
		encoded |= 1 << 15
		return encoded, 2
	case u <= 0x1FFFFF:
		encoded = u & 0x7F
		encoded |= (u & 0x3F80) << 1
		encoded |= (u & 0x1FC000) << 2
		encoded |= 1<<15 | 1<<23
		return encoded, 3
	default:
		// last byte carries 8 bits, so the low 15 bits stay in place
		encoded = u & 0x7FFF
		encoded |= (u & 0x3F8000) << 1
		encoded |= (u & 0x1FC00000) << 2
		encoded |= 1<<15 | 1<<23 | 1<<31
		return encoded, 4
	}
}

// AppendVarint appends the U29 encoding of v to dst.
func AppendVarint(dst []byte, v int32) []byte {
	encoded, n := EncodeVarint(v)
	for i := n - 1; i >= 0; i-- {
		dst = append(dst, byte(encoded>>(8*uint(i))))
	}
	return dst
}

// VarintLen returns the number of bytes EncodeVarint uses for v.
func VarintLen(v int32) int {
	_, n := EncodeVarint(v)
	return n
}
