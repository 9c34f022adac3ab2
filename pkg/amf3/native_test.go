package amf3

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToNative(t *testing.T) {
	t.Parallel()

	when := time.UnixMilli(42).UTC()
	shared := &Array{Dense: []Value{Integer(1)}}

	testCases := []struct {
		name  string
		value Value
		want  any
	}{
		{"undefined", Undefined{}, nil},
		{"null", Null{}, nil},
		{"boolean", Boolean(true), true},
		{"integer", Integer(-3), int32(-3)},
		{"double", Double(1.5), 1.5},
		{"string", String("s"), "s"},
		{"date", &Date{Time: when}, when},
		{"xml", &XMLDocument{Data: "<a/>"}, "<a/>"},
		{"byte array", &ByteArray{Data: []byte{1}}, []byte{1}},
		{"vector", &VectorDouble{Items: []float64{1}}, []float64{1}},
		{"dense array", &Array{Dense: []Value{Integer(1), String("a")}}, []any{int32(1), "a"}},
		{
			"mixed array",
			&Array{Dense: []Value{Integer(1)}, Associative: map[string]Value{"k": Null{}}},
			map[string]any{"0": int32(1), "k": nil},
		},
		{
			"object",
			&Object{Properties: map[string]Value{"a": Boolean(false)}},
			map[string]any{"a": false},
		},
		{
			"externalizable",
			&Object{Traits: &Traits{Externalizable: true}, External: String("inner")},
			"inner",
		},
		{
			"dictionary",
			&Dictionary{Entries: []DictionaryEntry{{Key: Integer(7), Value: String("seven")}}},
			map[string]any{"7": "seven"},
		},
		{
			"shared reference is duplicated",
			&VectorObject{Items: []Value{shared, shared}},
			[]any{[]any{int32(1)}, []any{int32(1)}},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, ToNative(tc.value))
		})
	}
}

func TestToNativeCutsCycles(t *testing.T) {
	t.Parallel()

	loop := &Array{}
	loop.Dense = []Value{Integer(1), loop}

	assert.Equal(t, []any{int32(1), nil}, ToNative(loop))
}
