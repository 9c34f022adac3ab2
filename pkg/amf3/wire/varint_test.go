package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wire vectors produced by the reference encoder
var varintVectors = []struct {
	value int32
	wire  []byte
}{
	{0, []byte{0x00}},
	{0x35, []byte{0x35}},
	{0x7f, []byte{0x7f}},
	{0x80, []byte{0x81, 0x00}},
	{0xd4, []byte{0x81, 0x54}},
	{0x3fff, []byte{0xff, 0x7f}},
	{0x4000, []byte{0x81, 0x80, 0x00}},
	{0x1a53f, []byte{0x86, 0xca, 0x3f}},
	{0x1fffff, []byte{0xff, 0xff, 0x7f}},
	{0x200000, []byte{0x80, 0xc0, 0x80, 0x00}},
	{-0x01, []byte{0xff, 0xff, 0xff, 0xff}},
	{-0x2a, []byte{0xff, 0xff, 0xff, 0xd6}},
	{0xfffffff, []byte{0xbf, 0xff, 0xff, 0xff}},
	{-0x10000000, []byte{0xc0, 0x80, 0x80, 0x00}},
}

func TestDecodeSignedVarintVectors(t *testing.T) {
	t.Parallel()

	for _, tc := range varintVectors {
		value, n, err := DecodeSignedVarint(tc.wire)
		require.NoError(t, err, "wire % x", tc.wire)
		assert.Equal(t, tc.value, value, "wire % x", tc.wire)
		assert.Equal(t, len(tc.wire), n, "wire % x", tc.wire)
	}
}

func TestAppendVarintVectors(t *testing.T) {
	t.Parallel()

	for _, tc := range varintVectors {
		assert.Equal(t, tc.wire, AppendVarint(nil, tc.value), "value %#x", tc.value)
		assert.Equal(t, len(tc.wire), VarintLen(tc.value), "value %#x", tc.value)
	}
}

func TestDecodeVarint(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		wire  []byte
		value uint32
		n     int
	}{
		{"single byte", []byte{0x01}, 1, 1},
		{"two bytes", []byte{0x81, 0x00}, 128, 2},
		{"trailing data ignored", []byte{0x05, 0xff, 0xff}, 5, 1},
		{"fourth byte uses all bits", []byte{0x80, 0x80, 0x80, 0xff}, 0xff, 4},
		{"never reads a fifth byte", []byte{0xff, 0xff, 0xff, 0xff, 0xff}, 0x1fffffff, 4},
		{"negative stays unsigned", []byte{0xff, 0xff, 0xff, 0xd6}, 0x1fffffd6, 4},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			value, n, err := DecodeVarint(tc.wire)
			require.NoError(t, err)
			assert.Equal(t, tc.value, value)
			assert.Equal(t, tc.n, n)
		})
	}
}

func TestDecodeVarintBands(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		wire []byte
		max  uint32
	}{
		{[]byte{0x7f}, 0x7f},
		{[]byte{0xff, 0x7f}, 0x3fff},
		{[]byte{0xff, 0xff, 0x7f}, 0x1fffff},
		{[]byte{0xff, 0xff, 0xff, 0xff}, 0x1fffffff},
	}

	for _, tc := range testCases {
		tc := tc
		value, n, err := DecodeVarint(tc.wire)
		require.NoError(t, err)
		assert.Equal(t, len(tc.wire), n)
		assert.Equal(t, tc.max, value, "largest %d byte token", n)

		// smallest payload of the same width
		low := make([]byte, len(tc.wire))
		for i := range low {
			low[i] = 0x80
		}
		low[len(low)-1] = 0x00
		value, n, err = DecodeVarint(low)
		require.NoError(t, err)
		assert.Equal(t, len(tc.wire), n)
		assert.LessOrEqual(t, value, tc.max)
	}
}

func TestDecodeVarintTruncated(t *testing.T) {
	t.Parallel()

	inputs := [][]byte{
		nil,
		{},
		{0x81},
		{0xff, 0xff},
		{0xff, 0xff, 0xff},
	}

	for _, in := range inputs {
		value, n, err := DecodeVarint(in)
		require.ErrorIs(t, err, ErrTruncatedInput, "input % x", in)
		assert.Zero(t, value)
		assert.Zero(t, n)

		signed, n, err := DecodeSignedVarint(in)
		require.ErrorIs(t, err, ErrTruncatedInput, "input % x", in)
		assert.Zero(t, signed)
		assert.Zero(t, n)
	}
}

func TestEncodeVarintPacked(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		value   int32
		encoded uint32
		n       int
	}{
		{0x7f, 0x7f, 1},
		{0x80, 0x8100, 2},
		{0x3fff, 0xff7f, 2},
		{0x4000, 0x818000, 3},
		{0x200000, 0x80c08000, 4},
		{-1, 0xffffffff, 4},
	}

	for _, tc := range testCases {
		tc := tc
		encoded, n := EncodeVarint(tc.value)
		assert.Equal(t, tc.encoded, encoded, "value %#x", tc.value)
		assert.Equal(t, tc.n, n, "value %#x", tc.value)
	}
}

func TestVarintRoundTrip(t *testing.T) {
	t.Parallel()

	check := func(v int32) {
		wire := AppendVarint(nil, v)
		got, n, err := DecodeSignedVarint(wire)
		require.NoError(t, err, "value %d", v)
		require.Equal(t, v, got, "value %d wire % x", v, wire)
		require.Equal(t, len(wire), n, "value %d", v)
		_, width := EncodeVarint(v)
		require.Equal(t, width, n, "value %d", v)
	}

	boundaries := []int32{
		MinInt29, MinInt29 + 1, -0x200001, -0x200000, -0x4001, -0x4000, -0x81, -0x80, -1,
		0, 1, 0x7f, 0x80, 0x3fff, 0x4000, 0x1fffff, 0x200000, MaxInt29 - 1, MaxInt29,
	}
	for _, v := range boundaries {
		check(v)
	}

	for v := int64(MinInt29); v <= MaxInt29; v += 9973 {
		check(int32(v))
	}
}

func TestEncodeVarintMasksTo29Bits(t *testing.T) {
	t.Parallel()

	assert.Equal(t, AppendVarint(nil, 5), AppendVarint(nil, 1<<29|5))

	// one past the top of the range wraps to the bottom
	got, n, err := DecodeSignedVarint(AppendVarint(nil, MaxInt29+1))
	require.NoError(t, err)
	assert.Equal(t, int32(MinInt29), got)
	assert.Equal(t, 4, n)
}

func TestEncodeVarintNegativeWidth(t *testing.T) {
	t.Parallel()

	// after masking every negative value has bit 28 set, so width is always 4
	for _, v := range []int32{-1, -0x7f, -0x3fff, -0x1fffff, MinInt29} {
		assert.Equal(t, 4, VarintLen(v), "value %d", v)
	}
}
