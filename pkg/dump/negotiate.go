// Package dump serves a full decode of the current database as NDJSON
// over HTTP — an export surface, not a query engine — grounded on the
// teacher's pkg/compression/http_compressor.go for transfer-level
// compression negotiation and gorilla/mux for routing.
package dump

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"strings"

	"github.com/golang/snappy"
	"github.com/pierrec/lz4/v4"
)

// Algorithm names a transfer-level compression scheme applied to the
// NDJSON response body. This is independent of the mandatory Zstd column
// codec used inside the container file itself.
type Algorithm string

const (
	AlgorithmNone   Algorithm = "identity"
	AlgorithmLZ4    Algorithm = "lz4"
	AlgorithmSnappy Algorithm = "snappy"
	AlgorithmGzip   Algorithm = "gzip"
	AlgorithmZlib   Algorithm = "deflate"
)

// NegotiateAlgorithm picks the best algorithm the client advertised in
// acceptEncoding, preferring lz4 (best ratio/speed trade-off on NDJSON)
// over snappy and the stdlib codecs, falling back to no compression.
func NegotiateAlgorithm(acceptEncoding string) Algorithm {
	lower := strings.ToLower(acceptEncoding)
	switch {
	case strings.Contains(lower, "lz4"):
		return AlgorithmLZ4
	case strings.Contains(lower, "snappy"):
		return AlgorithmSnappy
	case strings.Contains(lower, "gzip"):
		return AlgorithmGzip
	case strings.Contains(lower, "deflate"):
		return AlgorithmZlib
	default:
		return AlgorithmNone
	}
}

// Compress applies algorithm to data, grounded on the teacher's
// compressLZ4/compressSnappy/compressGzip.
func Compress(data []byte, algorithm Algorithm) ([]byte, error) {
	switch algorithm {
	case AlgorithmLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case AlgorithmSnappy:
		return snappy.Encode(nil, data), nil
	case AlgorithmGzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case AlgorithmZlib:
		var buf bytes.Buffer
		w := zlib.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case AlgorithmNone, "":
		return data, nil
	default:
		return nil, fmt.Errorf("dump: unsupported compression algorithm %q", algorithm)
	}
}
