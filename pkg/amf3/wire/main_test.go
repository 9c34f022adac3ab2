package wire

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestConcurrentDecodeSharedBuffer(t *testing.T) {
	t.Parallel()

	var buf []byte
	for i := int32(0); i < 256; i++ {
		buf = AppendVarint(buf, i*1021-50000)
		buf = AppendDouble(buf, float64(i)/3)
		buf, _ = AppendStringLiteral(buf, "value")
	}
	snapshot := bytes.Clone(buf)

	var g errgroup.Group
	for w := 0; w < 16; w++ {
		g.Go(func() error {
			r := NewReader(buf)
			for i := int32(0); i < 256; i++ {
				v, err := r.ReadSignedVarint()
				if err != nil {
					return err
				}
				if v != i*1021-50000 {
					return fmt.Errorf("value %d: got %d", i, v)
				}
				if _, err := r.ReadDouble(); err != nil {
					return err
				}
				if _, err := r.ReadString(); err != nil {
					return err
				}
			}
			return nil
		})
	}

	require.NoError(t, g.Wait())
	require.Equal(t, snapshot, buf, "decoders must not write to their input")
}
