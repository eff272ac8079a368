package cache

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
)

// Compression algorithm identifiers recorded alongside each entry so
// reads always know how to decode, regardless of the current intent.
const (
	algoNone = "none"
	algoS2   = "s2"
	algoZstd = "zstd"
	algoGzip = "gzip"
)

// compressThreshold is the payload size below which compression is
// skipped; small artifacts rarely win back the header overhead.
const compressThreshold = 1024

// compressor maps a configured intent to a concrete algorithm:
// "speed" favors throughput, "size" favors ratio, "balanced" sits in
// between.
type compressor struct {
	algo string
	zenc *zstd.Encoder
	zdec *zstd.Decoder
}

func newCompressor(intent string) (*compressor, error) {
	c := &compressor{}
	switch intent {
	case "speed":
		c.algo = algoS2
	case "size":
		c.algo = algoZstd
	case "balanced", "":
		c.algo = algoGzip
	default:
		return nil, fmt.Errorf("cache: unknown compression intent %q", intent)
	}

	// zstd codecs are reusable and goroutine-safe; the decoder is always
	// built because stored entries may predate an intent change.
	var err error
	c.zenc, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	c.zdec, err = zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// compress encodes data when it crosses the threshold, returning the
// stored form and the algorithm identifier to persist with it.
func (c *compressor) compress(data []byte) ([]byte, string) {
	if len(data) < compressThreshold {
		return data, algoNone
	}

	switch c.algo {
	case algoS2:
		return s2.Encode(nil, data), algoS2
	case algoZstd:
		return c.zenc.EncodeAll(data, nil), algoZstd
	default:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return data, algoNone
		}
		if err := w.Close(); err != nil {
			return data, algoNone
		}
		return buf.Bytes(), algoGzip
	}
}

// decompress decodes by the recorded algorithm, not the current intent.
func (c *compressor) decompress(data []byte, algo string) ([]byte, error) {
	switch algo {
	case algoNone, "":
		return data, nil
	case algoS2:
		return s2.Decode(nil, data)
	case algoZstd:
		return c.zdec.DecodeAll(data, nil)
	case algoGzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	default:
		return nil, fmt.Errorf("cache: unknown compression algorithm %q", algo)
	}
}
