package wire

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncatedInput is returned when the buffer ends before the token being
	// decoded does: mid-varint, mid-string body or mid-double.
	ErrTruncatedInput = errors.New("amf3: truncated input")

	// ErrAllocationFailure is returned when a literal string body cannot be
	// allocated within the limit configured on a Reader.
	ErrAllocationFailure = errors.New("amf3: string allocation failure")
)

// truncated wraps ErrTruncatedInput with what was being read and how short the buffer was
func truncated(what string, need, have int) error {
	return fmt.Errorf("%w: %s needs %d bytes, %d available", ErrTruncatedInput, what, need, have)
}
