package wire

import "fmt"

// ReferenceHeader is the decoded header shared by objects, arrays, dates,
// byte arrays, vectors and dictionaries.
type ReferenceHeader struct {
	Header      uint32 // raw U29 value
	IsReference bool   // bit 0 clear: the value was seen before
	Index       uint32 // (Header >> 1) ^ 0x10000000, computed for both outcomes
	N           int    // bytes consumed
}

// TableIndex returns the unbiased object table position of a reference.
func (h ReferenceHeader) TableIndex() uint32 {
	return h.Header >> 1
}

// Inline returns the metadata bits of an inline definition: a count, a length or
// trait flags depending on the value type.
func (h ReferenceHeader) Inline() uint32 {
	return h.Header >> 1
}

// DecodeReferenceHeader decodes a reference-or-inline header. Unlike string
// headers there is no empty sentinel.
func DecodeReferenceHeader(buf []byte) (ReferenceHeader, error) {
	header, n, err := DecodeVarint(buf)
	if err != nil {
		return ReferenceHeader{}, err
	}

	return ReferenceHeader{
		Header:      header,
		IsReference: header&0x01 == 0,
		Index:       (header >> 1) ^ referenceBias,
		N:           n,
	}, nil
}

// AppendReferenceHeader appends a header pointing at position index of the object table.
func AppendReferenceHeader(dst []byte, index uint32) ([]byte, error) {
	if index > MaxHeaderValue {
		return dst, fmt.Errorf("%w: object reference %d", ErrOutOfRange, index)
	}
	return AppendVarint(dst, int32(index<<1)), nil
}

// AppendInlineHeader appends a header announcing an inline definition carrying meta.
func AppendInlineHeader(dst []byte, meta uint32) ([]byte, error) {
	if meta > MaxHeaderValue {
		return dst, fmt.Errorf("%w: inline header %d", ErrOutOfRange, meta)
	}
	return AppendVarint(dst, int32(meta<<1|1)), nil
}
