package linewrap

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapUnwrap_RoundTrip(t *testing.T) {
	cases := []struct {
		data    string
		lineLen int
	}{
		{"hello world", 5},
		{"exactly-ten", 11},
		{"", 5},
		{"one byte per line", 1},
		{"short", 80},
		{"embedded\ncr\r\nlf\rvalues", 4},
	}
	for _, c := range cases {
		opts := Options{LineLen: c.lineLen}
		wrapped, err := Wrap([]byte(c.data), opts)
		require.NoError(t, err)
		unwrapped, err := Unwrap(wrapped, opts)
		require.NoError(t, err)
		assert.Equal(t, c.data, string(unwrapped))
	}
}

func TestWrap_LengthIncrease(t *testing.T) {
	data := []byte("0123456789abcdef")
	opts := Options{LineLen: 5}
	wrapped, err := Wrap(data, opts)
	require.NoError(t, err)
	expected := len(data) + int(math.Ceil(float64(len(data))/float64(opts.LineLen)))
	assert.Len(t, wrapped, expected)
}

func TestWrap_LineLenZeroIsPassthrough(t *testing.T) {
	data := []byte("no wrapping applied here")
	wrapped, err := Wrap(data, Options{})
	require.NoError(t, err)
	assert.Equal(t, data, wrapped)

	unwrapped, err := Unwrap(data, Options{})
	require.NoError(t, err)
	assert.Equal(t, data, unwrapped)
}

func TestUnwrap_InvalidNewlineFails(t *testing.T) {
	// A record wrapped at width 5 whose separator was corrupted.
	corrupted := []byte("hello world")
	_, err := Unwrap(corrupted, Options{LineLen: 5})
	require.Error(t, err)
}

func TestReader_ExactSizedReadsMatchIsostreamUsage(t *testing.T) {
	data := []byte("leader-bytes-here-and-more-field-data")
	opts := Options{LineLen: 8}
	wrapped, err := Wrap(data, opts)
	require.NoError(t, err)

	r := NewReader(bytes.NewReader(wrapped), opts)
	first := make([]byte, 10)
	n, err := readFull(r, first)
	require.NoError(t, err)
	require.Equal(t, 10, n)
	assert.Equal(t, data[:10], first)

	rest := make([]byte, len(data)-10)
	n, err = readFull(r, rest)
	require.NoError(t, err)
	require.Equal(t, len(rest), n)
	assert.Equal(t, data[10:], rest)
}

func readFull(r *Reader, p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := r.Read(p[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
