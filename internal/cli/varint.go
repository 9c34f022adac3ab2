package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/DMA-Software/dma-goamf/pkg/amf3/wire"
)

type cmdVarint struct {
	gs     *GlobalState
	encode int64
}

func getVarintCmd(gs *GlobalState) *cobra.Command {
	c := &cmdVarint{gs: gs}
	cmd := &cobra.Command{
		Use:   "varint [hex]",
		Short: "Decode or encode a single U29 integer",
		Example: `  amf3dump varint 81ff7f
  amf3dump varint --encode -1`,
		Args: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("encode") {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: c.run,
	}
	cmd.Flags().Int64VarP(&c.encode, "encode", "e", 0, "encode this integer instead of decoding")
	return cmd
}

func (c *cmdVarint) run(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("encode") {
		return c.runEncode()
	}

	data, err := decodeHex(args[0])
	if err != nil {
		return err
	}
	value, n, err := wire.DecodeVarint(data)
	if err != nil {
		return err
	}
	signed, _, _ := wire.DecodeSignedVarint(data)

	_, err = fmt.Fprintf(c.gs.Stdout, "unsigned: %d\nsigned:   %d\nwidth:    %d\nbytes:    % x\n",
		value, signed, n, data[:n])
	if err == nil && n < len(data) {
		c.gs.Logger.WithField("trailing", len(data)-n).Warn("Input has bytes after the integer")
	}
	return err
}

func (c *cmdVarint) runEncode() error {
	if c.encode < wire.MinInt29 || c.encode > wire.MaxUint29 {
		return fmt.Errorf("%w: %d does not fit in 29 bits", wire.ErrOutOfRange, c.encode)
	}
	if c.encode > wire.MaxInt29 {
		c.gs.Logger.WithFields(logrus.Fields{
			"value":   c.encode,
			"decodes": c.encode - (wire.MaxUint29 + 1),
		}).Warn("Value reads back negative when decoded as a signed integer")
	}

	out := wire.AppendVarint(nil, int32(c.encode))
	_, err := fmt.Fprintf(c.gs.Stdout, "% x\n", out)
	return err
}
