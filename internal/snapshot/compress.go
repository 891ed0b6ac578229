package snapshot

import (
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zlib"
)

// Compression selects how a snapshot data file's bytes are stored on
// disk, independent of the per-record CRC framing.
type Compression int

const (
	CompressionOff Compression = iota
	CompressionZlib
	CompressionSnappy
)

func (c Compression) String() string {
	switch c {
	case CompressionOff:
		return "off"
	case CompressionZlib:
		return "zlib"
	case CompressionSnappy:
		return "snappy"
	default:
		return "unknown"
	}
}

// ParseCompression parses the snapshot_compression config value.
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "", "off":
		return CompressionOff, nil
	case "zlib":
		return CompressionZlib, nil
	case "snappy":
		return CompressionSnappy, nil
	default:
		return 0, fmt.Errorf("snapshot: unknown compression %q", s)
	}
}

// wrapWriter wraps w so writes are compressed per c. The returned
// closer must be closed (not just the underlying file) to flush any
// buffered compressor state.
func wrapWriter(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case CompressionOff:
		return nopWriteCloser{w}, nil
	case CompressionZlib:
		return zlib.NewWriter(w), nil
	case CompressionSnappy:
		return snappy.NewBufferedWriter(w), nil
	default:
		return nil, fmt.Errorf("snapshot: unknown compression %d", c)
	}
}

// wrapReader wraps r so reads are decompressed per c.
func wrapReader(r io.Reader, c Compression) (io.Reader, error) {
	switch c {
	case CompressionOff:
		return r, nil
	case CompressionZlib:
		return zlib.NewReader(r)
	case CompressionSnappy:
		return snappy.NewReader(r), nil
	default:
		return nil, fmt.Errorf("snapshot: unknown compression %d", c)
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
