package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/DMA-Software/dma-goamf/pkg/amf3"
)

type cmdTrace struct {
	gs     *GlobalState
	offset int
}

func getTraceCmd(gs *GlobalState) *cobra.Command {
	c := &cmdTrace{gs: gs}
	cmd := &cobra.Command{
		Use:   "trace [file|-]",
		Short: "Print every primitive the decoder reads",
		Long: `Walk the input and print one line per primitive: its offset, the raw
bytes and what they mean. Nested values are indented by depth.`,
		Args: cobra.MaximumNArgs(1),
		RunE: c.run,
	}
	cmd.Flags().IntVar(&c.offset, "offset", 0, "byte offset of the first value")
	return cmd
}

func (c *cmdTrace) run(_ *cobra.Command, args []string) error {
	data, err := readInput(c.gs, firstArg(args), c.gs.Config)
	if err != nil {
		return err
	}

	noColor := c.gs.Config.NoColor || !c.gs.Stdout.IsTTY
	offsetColor := getColor(noColor, color.Faint)
	rawColor := getColor(noColor, color.FgYellow)
	kindColors := map[string]*color.Color{
		"marker":     getColor(noColor, color.FgCyan, color.Bold),
		"string":     getColor(noColor, color.FgGreen),
		"string-ref": getColor(noColor, color.FgMagenta),
		"header":     getColor(noColor, color.FgBlue),
	}
	plain := getColor(noColor)

	var writeErr error
	trace := func(ev amf3.TraceEvent) {
		if writeErr != nil {
			return
		}
		kindColor, ok := kindColors[ev.Kind]
		if !ok {
			kindColor = plain
		}
		_, writeErr = fmt.Fprintf(c.gs.Stdout, "%s %s%s %s %s\n",
			offsetColor.Sprintf("%08x", ev.Offset),
			strings.Repeat("  ", ev.Depth),
			rawColor.Sprintf("%-12s", fmt.Sprintf("% x", ev.Raw)),
			kindColor.Sprintf("%-10s", ev.Kind),
			ev.Detail,
		)
	}

	_, decodeErr := decodeValues(c.gs, data, c.offset, trace)
	if writeErr != nil {
		return writeErr
	}
	return decodeErr
}

// getColor returns a color that is a no-op when colors are disabled
func getColor(noColor bool, attributes ...color.Attribute) *color.Color {
	if noColor {
		c := color.New()
		c.DisableColor()
		return c
	}

	c := color.New(attributes...)
	c.EnableColor()
	return c
}
