package wire

import (
	"testing"
)

func FuzzDecodeVarint(f *testing.F) {
	for _, tc := range varintVectors {
		f.Add(tc.wire)
	}
	f.Add([]byte{})
	f.Add([]byte{0x81})
	f.Add([]byte{0xff, 0xff, 0xff, 0xff, 0xff})

	f.Fuzz(func(t *testing.T, data []byte) {
		value, n, err := DecodeVarint(data)
		if err != nil {
			if value != 0 || n != 0 {
				t.Fatalf("partial result on error: %d, %d", value, n)
			}
			return
		}
		if n < 1 || n > 4 || n > len(data) {
			t.Fatalf("consumed %d of %d bytes", n, len(data))
		}
		if value > MaxUint29 {
			t.Fatalf("value %#x exceeds 29 bits", value)
		}

		signed, sn, err := DecodeSignedVarint(data)
		if err != nil || sn != n {
			t.Fatalf("signed decode disagrees: %v, %d != %d", err, sn, n)
		}
		if signed < MinInt29 || signed > MaxInt29 {
			t.Fatalf("signed value %d out of range", signed)
		}

		// re-encoding yields the canonical form of the same value
		again, _, err := DecodeSignedVarint(AppendVarint(nil, signed))
		if err != nil || again != signed {
			t.Fatalf("round trip of %d gave %d (%v)", signed, again, err)
		}
	})
}

func FuzzDecodeString(f *testing.F) {
	f.Add([]byte{0x01})
	f.Add([]byte("\x0bhello"))
	f.Add([]byte{0x02})
	f.Add([]byte{0x81, 0x01})

	f.Fuzz(func(t *testing.T, data []byte) {
		result, err := DecodeString(data)
		if err != nil {
			if result.N != 0 || result.Bytes != nil {
				t.Fatalf("partial result on error: %+v", result)
			}
			return
		}
		if result.N < 1 || result.N > len(data) {
			t.Fatalf("consumed %d of %d bytes", result.N, len(data))
		}

		header, err := DecodeStringHeader(data)
		if err != nil {
			t.Fatalf("header decode failed after string decode: %v", err)
		}
		if header.Kind != result.Kind {
			t.Fatalf("kind mismatch: %s != %s", header.Kind, result.Kind)
		}
		if result.Kind == StringLiteral && result.N != header.N+len(result.Bytes) {
			t.Fatalf("literal consumed %d, header %d body %d", result.N, header.N, len(result.Bytes))
		}
	})
}

func FuzzDecodeReferenceHeader(f *testing.F) {
	f.Add([]byte{0x02})
	f.Add([]byte{0x09})

	f.Fuzz(func(t *testing.T, data []byte) {
		header, err := DecodeReferenceHeader(data)
		if err != nil {
			return
		}
		if header.N > len(data) {
			t.Fatalf("consumed %d of %d bytes", header.N, len(data))
		}
		if header.Index^referenceBias != header.TableIndex() {
			t.Fatalf("index %#x does not unbias to %#x", header.Index, header.TableIndex())
		}
	})
}
