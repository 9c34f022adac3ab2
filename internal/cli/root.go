package cli

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type rootCommand struct {
	gs  *GlobalState
	cmd *cobra.Command
}

func newRootCommand(gs *GlobalState) *rootCommand {
	c := &rootCommand{gs: gs}
	c.cmd = &cobra.Command{
		Use:   "amf3dump",
		Short: "Inspect AMF3 encoded data",
		Long: `amf3dump decodes Action Message Format 3 payloads and shows
the values, the primitives they are built from, or single U29 integers.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.persistentPreRunE,
	}
	c.cmd.PersistentFlags().AddFlagSet(rootCmdPersistentFlagSet())
	c.cmd.SetOut(gs.Stdout)
	c.cmd.SetErr(gs.Stderr)
	c.cmd.SetIn(gs.Stdin)

	c.cmd.AddCommand(
		getDecodeCmd(gs),
		getTraceCmd(gs),
		getVarintCmd(gs),
	)
	return c
}

func rootCmdPersistentFlagSet() *pflag.FlagSet {
	defaults := DefaultConfig()
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.String("input-encoding", defaults.InputEncoding, "input text encoding: raw or hex")
	flags.String("compression", defaults.Compression, "input compression: none, gzip or zstd")
	flags.Int("max-string-length", 0, "reject strings and byte arrays longer than this, 0 for no limit")
	flags.BoolP("verbose", "v", false, "enable debug logging")
	flags.String("log-format", defaults.LogFormat, "log output format: text or json")
	flags.Bool("no-color", false, "disable colored output")
	return flags
}

func (c *rootCommand) persistentPreRunE(cmd *cobra.Command, _ []string) error {
	conf, err := consolidate(c.gs.LookupEnv, cmd.Flags())
	if err != nil {
		return err
	}
	c.gs.Config = conf

	if conf.NoColor {
		c.gs.disableColors()
	}
	c.setupLogger()
	c.gs.Logger.WithFields(logrus.Fields{
		"command":  cmd.Name(),
		"format":   conf.Format,
		"encoding": conf.InputEncoding,
	}).Debug("Configuration consolidated")
	return nil
}

func (c *rootCommand) setupLogger() {
	logger, conf := c.gs.Logger, c.gs.Config
	logger.SetOutput(c.gs.Stderr)
	if conf.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	switch conf.LogFormat {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{
			ForceColors:   c.gs.Stderr.IsTTY && !conf.NoColor,
			DisableColors: !c.gs.Stderr.IsTTY || conf.NoColor,
		})
	}
}

// Execute runs amf3dump against the real process environment. It is called by main.main().
func Execute() {
	gs := NewGlobalState()
	c := newRootCommand(gs)
	c.cmd.SetArgs(os.Args[1:])
	if err := c.cmd.Execute(); err != nil {
		gs.Logger.Error(err)
		os.Exit(1)
	}
}
