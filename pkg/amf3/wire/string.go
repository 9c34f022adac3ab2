package wire

import "fmt"

// referenceBias is folded into every decoded reference index.
// Decoders report Index = (header >> 1) ^ referenceBias; TableIndex undoes it.
const referenceBias = 0x10000000

// emptyStringHeader is the literal header with a zero length
const emptyStringHeader = 0x01

// StringKind tells what a string header announces
type StringKind uint8

const (
	// StringLiteral is followed by Length bytes of UTF-8
	StringLiteral StringKind = iota
	// StringReference points into the caller's string table
	StringReference
	// StringEmpty is the empty string sentinel, it has no body
	StringEmpty
)

// String returns the string representation of the string kind
func (k StringKind) String() string {
	switch k {
	case StringLiteral:
		return "literal"
	case StringReference:
		return "reference"
	case StringEmpty:
		return "empty"
	default:
		return fmt.Sprintf("StringKind(%d)", uint8(k))
	}
}

// StringHeader is a decoded string header
type StringHeader struct {
	Kind   StringKind
	Index  uint32 // biased reference index, set for StringReference only
	N      int    // header bytes consumed

	// Length is the body length in bytes for StringLiteral. It stays zero for
	// references; the raw header>>1 of a reference is TableIndex.
	Length uint32
}

// TableIndex returns the unbiased position in the string table for a reference.
func (h StringHeader) TableIndex() uint32 {
	if h.Kind != StringReference {
		return 0
	}
	return h.Index ^ referenceBias
}

// StringResult is a decoded string: empty, a literal body or a reference.
type StringResult struct {
	Kind  StringKind
	Bytes []byte // literal body; a fresh copy owned by the caller
	Index uint32 // biased reference index, see StringHeader.TableIndex
	N     int    // bytes consumed, header plus body
}

// TableIndex returns the unbiased position in the string table for a reference.
func (r StringResult) TableIndex() uint32 {
	if r.Kind != StringReference {
		return 0
	}
	return r.Index ^ referenceBias
}

// DecodeStringHeader decodes the U29 header that precedes every AMF3 string.
// Header value 1 is the empty string; otherwise bit 0 set means a literal whose
// length is the remaining bits and bit 0 clear means a table reference.
func DecodeStringHeader(buf []byte) (StringHeader, error) {
	header, n, err := DecodeVarint(buf)
	if err != nil {
		return StringHeader{}, err
	}

	if header == emptyStringHeader {
		return StringHeader{Kind: StringEmpty, N: n}, nil
	}

	if header&0x01 == 0 {
		return StringHeader{
			Kind:  StringReference,
			Index: (header >> 1) ^ referenceBias,
			N:     n,
		}, nil
	}

	return StringHeader{
		Kind:   StringLiteral,
		Length: header >> 1,
		N:      n,
	}, nil
}

// DecodeString decodes a string header and, for literals, copies the body.
// The returned bytes are not validated as UTF-8.
func DecodeString(buf []byte) (StringResult, error) {
	return decodeString(buf, 0)
}

// decodeString is DecodeString with an optional cap on the body allocation
func decodeString(buf []byte, maxLength int) (StringResult, error) {
	header, err := DecodeStringHeader(buf)
	if err != nil {
		return StringResult{}, err
	}

	switch header.Kind {
	case StringEmpty:
		return StringResult{Kind: StringEmpty, N: header.N}, nil
	case StringReference:
		return StringResult{Kind: StringReference, Index: header.Index, N: header.N}, nil
	}

	length := int(header.Length)
	if maxLength > 0 && length > maxLength {
		return StringResult{}, fmt.Errorf("%w: length %d exceeds limit %d", ErrAllocationFailure, length, maxLength)
	}

	end := header.N + length
	if len(buf) < end {
		return StringResult{}, truncated("string body", end, len(buf))
	}

	body := make([]byte, length)
	copy(body, buf[header.N:end])

	return StringResult{Kind: StringLiteral, Bytes: body, N: end}, nil
}

// AppendStringLiteral appends the header and body of s to dst.
// The empty string is written as the sentinel header.
func AppendStringLiteral(dst []byte, s string) ([]byte, error) {
	if s == "" {
		return append(dst, emptyStringHeader), nil
	}
	if len(s) > MaxHeaderValue {
		return dst, fmt.Errorf("%w: string length %d", ErrOutOfRange, len(s))
	}
	dst = AppendVarint(dst, int32(len(s)<<1|1))
	return append(dst, s...), nil
}

// AppendStringReference appends a reference to position index of the string table.
func AppendStringReference(dst []byte, index uint32) ([]byte, error) {
	if index > MaxHeaderValue {
		return dst, fmt.Errorf("%w: string reference %d", ErrOutOfRange, index)
	}
	return AppendVarint(dst, int32(index<<1)), nil
}
