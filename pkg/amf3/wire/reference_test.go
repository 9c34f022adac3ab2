package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeReferenceHeader(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		wire        []byte
		isReference bool
		index       uint32
		inline      uint32
	}{
		// index keeps the 0x10000000 bias for both outcomes
		{"reference zero", []byte{0x00}, true, 0x10000000, 0},
		{"reference one", []byte{0x02}, true, 0x10000001, 1},
		{"inline without sentinel", []byte{0x01}, false, 0x10000000, 0},
		{"inline count four", []byte{0x09}, false, 0x10000004, 4},
		{"inline wide", []byte{0xc0, 0x80, 0x80, 0x01}, false, 0x18000000, 0x08000000},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			header, err := DecodeReferenceHeader(tc.wire)
			require.NoError(t, err)
			assert.Equal(t, tc.isReference, header.IsReference)
			assert.Equal(t, tc.index, header.Index)
			assert.Equal(t, tc.inline, header.Inline())
			assert.Equal(t, tc.inline, header.TableIndex())
			assert.Equal(t, len(tc.wire), header.N)
		})
	}
}

func TestDecodeReferenceHeaderTruncated(t *testing.T) {
	t.Parallel()

	for _, in := range [][]byte{nil, {0x80}, {0x80, 0x80, 0x80}} {
		header, err := DecodeReferenceHeader(in)
		require.ErrorIs(t, err, ErrTruncatedInput)
		assert.Equal(t, ReferenceHeader{}, header)
	}
}

func TestAppendReferenceHeaders(t *testing.T) {
	t.Parallel()

	wire, err := AppendReferenceHeader(nil, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x06}, wire)

	header, err := DecodeReferenceHeader(wire)
	require.NoError(t, err)
	assert.True(t, header.IsReference)
	assert.Equal(t, uint32(3), header.TableIndex())

	wire, err = AppendInlineHeader(nil, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x09}, wire)

	header, err = DecodeReferenceHeader(wire)
	require.NoError(t, err)
	assert.False(t, header.IsReference)
	assert.Equal(t, uint32(4), header.Inline())

	_, err = AppendReferenceHeader(nil, MaxHeaderValue+1)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = AppendInlineHeader(nil, MaxHeaderValue+1)
	require.ErrorIs(t, err, ErrOutOfRange)
}
