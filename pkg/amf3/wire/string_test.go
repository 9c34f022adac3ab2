package wire

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeStringEmptySentinel(t *testing.T) {
	t.Parallel()

	header, err := DecodeStringHeader([]byte{0x01})
	require.NoError(t, err)
	assert.Equal(t, StringHeader{Kind: StringEmpty, N: 1}, header)

	// the byte after the sentinel belongs to the next value
	result, err := DecodeString([]byte{0x01, 'x'})
	require.NoError(t, err)
	assert.Equal(t, StringEmpty, result.Kind)
	assert.Equal(t, 1, result.N)
	assert.Nil(t, result.Bytes)
}

func TestDecodeStringLiteral(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		wire []byte
		want string
		n    int
	}{
		{"ascii", []byte("\x0bhello"), "hello", 6},
		{"header 5 announces two bytes", []byte("\x05hello"), "he", 3},
		{"runes", []byte("\x13\xe1\x9a\xa0\xe1\x9b\x87\xe1\x9a\xbb"), "ᚠᛇᚻ", 10},
		{"not validated", []byte{0x05, 0xff, 0xfe}, "\xff\xfe", 3},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			result, err := DecodeString(tc.wire)
			require.NoError(t, err)
			assert.Equal(t, StringLiteral, result.Kind)
			assert.Equal(t, tc.want, string(result.Bytes))
			assert.Equal(t, tc.n, result.N)
		})
	}
}

func TestDecodeStringLiteralRoundTrip(t *testing.T) {
	t.Parallel()

	// lengths chosen so the header crosses every varint width
	for _, length := range []int{1, 63, 64, 8191, 8192, 1 << 20} {
		body := strings.Repeat("a", length)
		wire, err := AppendStringLiteral(nil, body)
		require.NoError(t, err)

		headerLen := VarintLen(int32(length<<1 | 1))
		result, err := DecodeString(wire)
		require.NoError(t, err)
		assert.Equal(t, StringLiteral, result.Kind)
		assert.Equal(t, headerLen+length, result.N, "length %d", length)
		assert.Equal(t, body, string(result.Bytes))

		header, err := DecodeStringHeader(wire)
		require.NoError(t, err)
		assert.Equal(t, uint32(length), header.Length)
		assert.Equal(t, headerLen, header.N)
	}
}

func TestDecodeStringOwnsBody(t *testing.T) {
	t.Parallel()

	wire := []byte("\x0bhello")
	result, err := DecodeString(wire)
	require.NoError(t, err)

	wire[1] = 'j'
	assert.Equal(t, "hello", string(result.Bytes))
	assert.Len(t, result.Bytes, 5)
}

func TestDecodeStringReference(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		wire  []byte
		index uint32
		table uint32
	}{
		{[]byte{0x00}, 0x10000000, 0},
		{[]byte{0x02}, 0x10000001, 1},
		{[]byte{0x0e}, 0x10000007, 7},
		{[]byte{0x81, 0x00}, 0x10000040, 64},
	}

	for _, tc := range testCases {
		tc := tc
		header, err := DecodeStringHeader(tc.wire)
		require.NoError(t, err)
		assert.Equal(t, StringReference, header.Kind)
		assert.Equal(t, tc.index, header.Index, "wire % x", tc.wire)
		assert.Equal(t, tc.table, header.TableIndex())
		assert.Zero(t, header.Length)

		result, err := DecodeString(tc.wire)
		require.NoError(t, err)
		assert.Equal(t, StringReference, result.Kind)
		assert.Equal(t, tc.index, result.Index)
		assert.Equal(t, tc.table, result.TableIndex())
		assert.Equal(t, len(tc.wire), result.N)
		assert.Nil(t, result.Bytes)
	}
}

func TestDecodeStringTruncated(t *testing.T) {
	t.Parallel()

	inputs := [][]byte{
		{},
		{0x81},
		[]byte("\x0bhe"),
		{0x0b},
		{0x81, 0x01, 'a'},
	}

	for _, in := range inputs {
		result, err := DecodeString(in)
		require.ErrorIs(t, err, ErrTruncatedInput, "input % x", in)
		assert.Equal(t, StringResult{}, result)
	}

	_, err := DecodeStringHeader(nil)
	require.ErrorIs(t, err, ErrTruncatedInput)
}

func TestAppendStringReference(t *testing.T) {
	t.Parallel()

	wire, err := AppendStringReference(nil, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02}, wire)

	wire, err = AppendStringReference(nil, MaxHeaderValue)
	require.NoError(t, err)
	header, err := DecodeStringHeader(wire)
	require.NoError(t, err)
	assert.Equal(t, uint32(MaxHeaderValue), header.TableIndex())

	_, err = AppendStringReference(nil, MaxHeaderValue+1)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestAppendStringLiteralEmpty(t *testing.T) {
	t.Parallel()

	wire, err := AppendStringLiteral([]byte{0x06}, "")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x06, 0x01}, wire)
}

func TestStringKindString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "literal", StringLiteral.String())
	assert.Equal(t, "reference", StringReference.String())
	assert.Equal(t, "empty", StringEmpty.String())
	assert.Equal(t, "StringKind(9)", StringKind(9).String())
}
