package wire

import "fmt"

// Reader is a bounded cursor over an AMF3 buffer. Every read advances the
// cursor by exactly the bytes the primitive consumed and fails with
// ErrTruncatedInput instead of reading past the end. A failed read leaves the
// cursor where it was.
//
// A Reader is owned by a single goroutine.
type Reader struct {
	buf []byte
	off int

	// MaxStringLength caps literal string bodies; zero means bounded by the buffer only
	MaxStringLength int
}

// NewReader creates a new reader positioned at the start of buf
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Offset returns the number of bytes consumed so far
func (r *Reader) Offset() int {
	return r.off
}

// Len returns the number of unread bytes
func (r *Reader) Len() int {
	return len(r.buf) - r.off
}

// Seek moves the cursor to an absolute offset within the buffer
func (r *Reader) Seek(off int) error {
	if off < 0 || off > len(r.buf) {
		return fmt.Errorf("%w: seek to %d in %d byte buffer", ErrTruncatedInput, off, len(r.buf))
	}
	r.off = off
	return nil
}

// Remaining returns the unread part of the buffer without copying it
func (r *Reader) Remaining() []byte {
	return r.buf[r.off:]
}

// ReadByte reads a single byte
func (r *Reader) ReadByte() (byte, error) {
	if r.Len() < 1 {
		return 0, r.wrap(truncated("byte", 1, 0))
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

// ReadBytes reads n bytes into a fresh slice owned by the caller
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || r.Len() < n {
		return nil, r.wrap(truncated("bytes", n, r.Len()))
	}
	out := make([]byte, n)
	copy(out, r.buf[r.off:r.off+n])
	r.off += n
	return out, nil
}

// Skip advances the cursor by n bytes
func (r *Reader) Skip(n int) error {
	if n < 0 || r.Len() < n {
		return r.wrap(truncated("skip", n, r.Len()))
	}
	r.off += n
	return nil
}

// ReadVarint reads an unsigned U29
func (r *Reader) ReadVarint() (uint32, error) {
	value, n, err := DecodeVarint(r.Remaining())
	if err != nil {
		return 0, r.wrap(err)
	}
	r.off += n
	return value, nil
}

// ReadSignedVarint reads a signed U29
func (r *Reader) ReadSignedVarint() (int32, error) {
	value, n, err := DecodeSignedVarint(r.Remaining())
	if err != nil {
		return 0, r.wrap(err)
	}
	r.off += n
	return value, nil
}

// ReadDouble reads a big-endian double
func (r *Reader) ReadDouble() (float64, error) {
	value, err := DecodeDouble(r.Remaining())
	if err != nil {
		return 0, r.wrap(err)
	}
	r.off += DoubleSize
	return value, nil
}

// ReadStringHeader reads a string header without its body
func (r *Reader) ReadStringHeader() (StringHeader, error) {
	header, err := DecodeStringHeader(r.Remaining())
	if err != nil {
		return StringHeader{}, r.wrap(err)
	}
	r.off += header.N
	return header, nil
}

// ReadString reads a string header and, for literals, its body
func (r *Reader) ReadString() (StringResult, error) {
	result, err := decodeString(r.Remaining(), r.MaxStringLength)
	if err != nil {
		return StringResult{}, r.wrap(err)
	}
	r.off += result.N
	return result, nil
}

// ReadReferenceHeader reads a reference-or-inline header
func (r *Reader) ReadReferenceHeader() (ReferenceHeader, error) {
	header, err := DecodeReferenceHeader(r.Remaining())
	if err != nil {
		return ReferenceHeader{}, r.wrap(err)
	}
	r.off += header.N
	return header, nil
}

// wrap adds the cursor offset to an error
func (r *Reader) wrap(err error) error {
	return fmt.Errorf("at offset %d: %w", r.off, err)
}
