package cli

import (
	"fmt"

	"github.com/mstoykov/envconfig"
	"github.com/spf13/pflag"
)

// Output formats understood by the decode command
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatCBOR = "cbor"
)

// Input encodings
const (
	EncodingRaw = "raw"
	EncodingHex = "hex"
)

// Compression schemes
const (
	CompressionNone = "none"
	CompressionGzip = "gzip"
	CompressionZstd = "zstd"
)

// Config is the consolidated configuration of a single invocation.
// Defaults are overridden by AMF3DUMP_* environment variables, which are
// overridden by flags set on the command line.
type Config struct {
	Format          string `envconfig:"AMF3DUMP_FORMAT"`
	InputEncoding   string `envconfig:"AMF3DUMP_INPUT_ENCODING"`
	Compression     string `envconfig:"AMF3DUMP_COMPRESSION"`
	MaxStringLength int    `envconfig:"AMF3DUMP_MAX_STRING_LENGTH"`
	NoColor         bool   `envconfig:"AMF3DUMP_NO_COLOR"`
	LogFormat       string `envconfig:"AMF3DUMP_LOG_FORMAT"`
	Verbose         bool   `envconfig:"AMF3DUMP_VERBOSE"`
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() Config {
	return Config{
		Format:        FormatText,
		InputEncoding: EncodingRaw,
		Compression:   CompressionNone,
		LogFormat:     "text",
	}
}

// applyEnv overrides conf with any AMF3DUMP_* variable lookup reports as set
func applyEnv(conf Config, lookup func(string) (string, bool)) (Config, error) {
	if err := envconfig.Process("", &conf, lookup); err != nil {
		return conf, fmt.Errorf("reading environment: %w", err)
	}
	return conf, nil
}

// applyFlags overrides conf with the flags the user explicitly changed
func applyFlags(conf Config, flags *pflag.FlagSet) (Config, error) {
	var err error
	get := func(name string, fn func() error) {
		if err != nil || !flags.Changed(name) {
			return
		}
		err = fn()
	}

	get("format", func() (e error) { conf.Format, e = flags.GetString("format"); return })
	get("input-encoding", func() (e error) { conf.InputEncoding, e = flags.GetString("input-encoding"); return })
	get("compression", func() (e error) { conf.Compression, e = flags.GetString("compression"); return })
	get("max-string-length", func() (e error) { conf.MaxStringLength, e = flags.GetInt("max-string-length"); return })
	get("no-color", func() (e error) { conf.NoColor, e = flags.GetBool("no-color"); return })
	get("log-format", func() (e error) { conf.LogFormat, e = flags.GetString("log-format"); return })
	get("verbose", func() (e error) { conf.Verbose, e = flags.GetBool("verbose"); return })

	return conf, err
}

// Validate rejects values no command can act on
func (c Config) Validate() error {
	switch c.Format {
	case FormatText, FormatJSON, FormatYAML, FormatCBOR:
	default:
		return fmt.Errorf("unknown output format %q", c.Format)
	}
	switch c.InputEncoding {
	case EncodingRaw, EncodingHex:
	default:
		return fmt.Errorf("unknown input encoding %q", c.InputEncoding)
	}
	switch c.Compression {
	case CompressionNone, CompressionGzip, CompressionZstd:
	default:
		return fmt.Errorf("unknown compression %q", c.Compression)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if c.MaxStringLength < 0 {
		return fmt.Errorf("max string length must not be negative, got %d", c.MaxStringLength)
	}
	return nil
}

// consolidate builds the effective configuration for a command
func consolidate(lookup func(string) (string, bool), flags *pflag.FlagSet) (Config, error) {
	conf, err := applyEnv(DefaultConfig(), lookup)
	if err != nil {
		return conf, err
	}
	if conf, err = applyFlags(conf, flags); err != nil {
		return conf, err
	}
	return conf, conf.Validate()
}
