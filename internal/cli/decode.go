package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/DMA-Software/dma-goamf/pkg/amf3"
)

type cmdDecode struct {
	gs     *GlobalState
	offset int
}

func getDecodeCmd(gs *GlobalState) *cobra.Command {
	c := &cmdDecode{gs: gs}
	cmd := &cobra.Command{
		Use:   "decode [file|-]",
		Short: "Decode every AMF3 value in the input",
		Long: `Decode every AMF3 value in the input and print it.

The input is read from the named file, or from stdin when the argument is
omitted or "-". All values share one set of reference tables.`,
		Example: `  amf3dump decode message.amf
  echo 0a0b01036103 | amf3dump decode --input-encoding hex --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: c.run,
	}
	cmd.Flags().AddFlagSet(c.flagSet())
	return cmd
}

func (c *cmdDecode) flagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.StringP("format", "f", DefaultConfig().Format, "output format: text, json, yaml or cbor")
	flags.IntVar(&c.offset, "offset", 0, "byte offset of the first value")
	return flags
}

// decodedValue is a value together with the offset it started at
type decodedValue struct {
	Offset int
	Value  amf3.Value
}

func (c *cmdDecode) run(_ *cobra.Command, args []string) error {
	conf := c.gs.Config
	data, err := readInput(c.gs, firstArg(args), conf)
	if err != nil {
		return err
	}

	values, decodeErr := decodeValues(c.gs, data, c.offset, nil)
	if err := writeValues(c.gs.Stdout, conf.Format, values); err != nil {
		return err
	}
	return decodeErr
}

// decodeValues decodes from offset to the end of data. Values decoded before
// a failure are returned alongside the error.
func decodeValues(gs *GlobalState, data []byte, offset int, trace amf3.TraceFunc) ([]decodedValue, error) {
	opts := []amf3.DecoderOption{
		amf3.WithLogger(gs.Logger),
		amf3.WithMaxStringLength(gs.Config.MaxStringLength),
	}
	if trace != nil {
		opts = append(opts, amf3.WithTrace(trace))
	}
	d := amf3.NewDecoder(data, opts...)
	if err := d.Seek(offset); err != nil {
		return nil, fmt.Errorf("invalid offset %d: %w", offset, err)
	}

	var values []decodedValue
	for d.More() {
		start := d.Offset()
		v, err := d.Decode()
		if err != nil {
			return values, fmt.Errorf("decoding value %d: %w", len(values), err)
		}
		values = append(values, decodedValue{Offset: start, Value: v})
	}
	gs.Logger.WithField("values", len(values)).Debug("Input decoded")
	return values, nil
}

func writeValues(w io.Writer, format string, values []decodedValue) error {
	natives := make([]any, len(values))
	for i, v := range values {
		natives[i] = amf3.ToNative(v.Value)
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(finiteJSON(natives)); err != nil {
			return fmt.Errorf("writing json: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(natives); err != nil {
			return fmt.Errorf("writing yaml: %w", err)
		}
		return enc.Close()
	case FormatCBOR:
		mode, err := cbor.CoreDetEncOptions().EncMode()
		if err != nil {
			return err
		}
		if err := mode.NewEncoder(w).Encode(natives); err != nil {
			return fmt.Errorf("writing cbor: %w", err)
		}
	default:
		for i, v := range values {
			_, err := fmt.Fprintf(w, "%d\t@%d\t%s\t%v\n", i, v.Offset, amf3.TypeName(v.Value.Type()), natives[i])
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// finiteJSON replaces NaN and infinite floats, which JSON cannot carry, with
// their strconv spelling ("NaN", "+Inf", "-Inf").
func finiteJSON(v any) any {
	switch value := v.(type) {
	case float64:
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return strconv.FormatFloat(value, 'g', -1, 64)
		}
		return value
	case []float64:
		out := make([]any, len(value))
		for i, f := range value {
			out[i] = finiteJSON(f)
		}
		return out
	case []any:
		out := make([]any, len(value))
		for i, item := range value {
			out[i] = finiteJSON(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(value))
		for k, item := range value {
			out[k] = finiteJSON(item)
		}
		return out
	default:
		return v
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
