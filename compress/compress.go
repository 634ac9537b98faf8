// Package compress wraps byte streams in an optional compression frame.
// The serialized trie is written through a compressor and read back through
// the matching decompressor; the framing of each algorithm is that of its
// library's streaming format.
package compress

import (
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm names a compression frame format.
type Algorithm string

const (
	None   Algorithm = "none"
	Snappy Algorithm = "snappy"
	LZ4    Algorithm = "lz4"
	Zstd   Algorithm = "zstd"
	Gzip   Algorithm = "gzip"
)

// Algorithms lists every supported algorithm.
func Algorithms() []Algorithm {
	return []Algorithm{None, Snappy, LZ4, Zstd, Gzip}
}

// Parse returns the algorithm named s. The empty string means None.
func Parse(s string) (Algorithm, error) {
	if s == "" {
		return None, nil
	}
	for _, a := range Algorithms() {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown compression %q", s)
}

// NewWriter returns a writer that compresses into w. Close must be called to
// flush the final frame; it does not close w.
func (a Algorithm) NewWriter(w io.Writer) (io.WriteCloser, error) {
	switch a {
	case None, "":
		return nopWriteCloser{w}, nil
	case Snappy:
		return snappy.NewBufferedWriter(w), nil
	case LZ4:
		return lz4.NewWriter(w), nil
	case Zstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("zstd writer: %w", err)
		}
		return enc, nil
	case Gzip:
		return gzip.NewWriter(w), nil
	}
	return nil, fmt.Errorf("unknown compression %q", string(a))
}

// NewReader returns a reader that decompresses from r. Close releases
// decoder resources; it does not close r.
func (a Algorithm) NewReader(r io.Reader) (io.ReadCloser, error) {
	switch a {
	case None, "":
		return io.NopCloser(r), nil
	case Snappy:
		return io.NopCloser(snappy.NewReader(r)), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case Zstd:
		dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		return zstdReadCloser{dec}, nil
	case Gzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		// One member per frame; bytes after it belong to the caller.
		zr.Multistream(false)
		return zr, nil
	}
	return nil, fmt.Errorf("unknown compression %q", string(a))
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

type zstdReadCloser struct {
	*zstd.Decoder
}

func (z zstdReadCloser) Close() error {
	z.Decoder.Close()
	return nil
}
