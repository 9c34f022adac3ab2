package cli

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
)

// readInput loads the bytes named by path ("-" or empty for stdin),
// then applies the configured text encoding and decompression.
func readInput(gs *GlobalState, path string, conf Config) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(gs.Stdin)
	} else {
		data, err = afero.ReadFile(gs.FS, path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	if conf.InputEncoding == EncodingHex {
		if data, err = decodeHex(string(data)); err != nil {
			return nil, err
		}
	}

	data, err = decompress(data, conf.Compression)
	if err != nil {
		return nil, err
	}
	gs.Logger.WithField("bytes", len(data)).Debug("Input loaded")
	return data, nil
}

// decodeHex parses hex text, ignoring whitespace and an optional 0x prefix
func decodeHex(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding hex input: %w", err)
	}
	return data, nil
}

func decompress(data []byte, compression string) ([]byte, error) {
	switch compression {
	case CompressionGzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream: %w", err)
		}
		defer func() { _ = r.Close() }()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading gzip stream: %w", err)
		}
		return out, nil
	case CompressionZstd:
		r, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		defer r.Close()
		out, err := r.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("reading zstd stream: %w", err)
		}
		return out, nil
	default:
		return data, nil
	}
}
