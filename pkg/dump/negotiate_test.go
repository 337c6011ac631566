package dump

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"io"
	"testing"

	"github.com/golang/snappy"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/require"
)

func TestNegotiateAlgorithm(t *testing.T) {
	cases := []struct {
		accept string
		want   Algorithm
	}{
		{"gzip, deflate, lz4", AlgorithmLZ4},
		{"snappy", AlgorithmSnappy},
		{"gzip", AlgorithmGzip},
		{"deflate", AlgorithmZlib},
		{"", AlgorithmNone},
		{"br", AlgorithmNone},
	}
	for _, c := range cases {
		require.Equal(t, c.want, NegotiateAlgorithm(c.accept))
	}
}

func TestCompressRoundTrip(t *testing.T) {
	payload := []byte(`{"message":"connection refused"}` + "\n")

	for _, alg := range []Algorithm{AlgorithmLZ4, AlgorithmSnappy, AlgorithmGzip, AlgorithmZlib, AlgorithmNone} {
		compressed, err := Compress(payload, alg)
		require.NoError(t, err)

		var decoded []byte
		switch alg {
		case AlgorithmLZ4:
			r := lz4.NewReader(bytes.NewReader(compressed))
			decoded, err = io.ReadAll(r)
		case AlgorithmSnappy:
			decoded, err = snappy.Decode(nil, compressed)
		case AlgorithmGzip:
			var r *gzip.Reader
			r, err = gzip.NewReader(bytes.NewReader(compressed))
			require.NoError(t, err)
			decoded, err = io.ReadAll(r)
		case AlgorithmZlib:
			var r io.ReadCloser
			r, err = zlib.NewReader(bytes.NewReader(compressed))
			require.NoError(t, err)
			decoded, err = io.ReadAll(r)
		case AlgorithmNone:
			decoded = compressed
		}
		require.NoError(t, err)
		require.Equal(t, payload, decoded)
	}
}

func TestCompressUnsupportedAlgorithm(t *testing.T) {
	_, err := Compress([]byte("x"), Algorithm("brotli"))
	require.Error(t, err)
}
