// Package encoding is the byte-encoding adapter (component A): it
// transcodes the raw bytes used inside ISO 2709 records and MST field
// data to and from Go's native UTF-8 strings, using a named character
// set the way the CLI's --ienc/--jenc flags do.
package encoding

import (
	"strings"

	xencoding "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/bireme/ioisis-go/pkg/ioerr"
)

// DefaultISOEncoding is the default byte encoding for ISO 2709 records.
const DefaultISOEncoding = "cp1252"

// DefaultMSTEncoding is the default byte encoding for MST field data.
const DefaultMSTEncoding = "cp1252"

// DefaultJSONLEncoding is the default text encoding used at the JSONL
// boundary.
const DefaultJSONLEncoding = "utf-8"

var named = map[string]xencoding.Encoding{
	"cp1252":      charmap.Windows1252,
	"windows-1252": charmap.Windows1252,
	"latin1":      charmap.ISO8859_1,
	"iso-8859-1":  charmap.ISO8859_1,
	"utf-8":       unicode.UTF8,
	"utf8":        unicode.UTF8,
}

// Lookup resolves an encoding name (case-insensitive) to its codec.
// Unknown names fail with EncodingError.
func Lookup(name string) (xencoding.Encoding, error) {
	enc, ok := named[strings.ToLower(name)]
	if !ok {
		return nil, ioerr.NewEncodingError(name, "unknown encoding")
	}
	return enc, nil
}

// Decode converts bytes to text under the named encoding.
func Decode(b []byte, name string) (string, error) {
	enc, err := Lookup(name)
	if err != nil {
		return "", err
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", ioerr.NewEncodingError(name, "%v", err)
	}
	return string(out), nil
}

// Encode converts text to bytes under the named encoding.
func Encode(s string, name string) ([]byte, error) {
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	out, err := enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, ioerr.NewEncodingError(name, "%v", err)
	}
	return out, nil
}
