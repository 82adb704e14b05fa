// Package linewrap implements the line-wrap restreaming layer
// (component D): a stream adapter that frames an underlying byte
// stream into fixed-width lines terminated by a newline sentinel, in a
// way that is invisible to the codec's length and offset accounting.
package linewrap

import (
	"bufio"
	"bytes"
	"io"

	"github.com/bireme/ioisis-go/pkg/ioerr"
)

// DefaultLineLen is the conventional line width, 80 bytes. Options does
// not fall back to it: a zero LineLen disables wrapping.
const DefaultLineLen = 80

// DefaultNewline is the wrap sentinel used when none is configured.
var DefaultNewline = []byte{'\n'}

// Options configures line-wrap framing. Unlike Geometry, LineLen's
// zero value means "wrapping disabled", not "use the default": a
// caller that wants the default 80-byte wrap must set LineLen
// explicitly (the CLI layer does this).
type Options struct {
	LineLen int
	Newline []byte
}

func (o Options) newline() []byte {
	if len(o.Newline) == 0 {
		return DefaultNewline
	}
	return o.Newline
}

// Reader unwraps a line-wrapped byte stream, presenting the
// caller with the original, newline-free bytes.
type Reader struct {
	r        *bufio.Reader
	lineLen  int
	newline  []byte
	offset   int64
	pending  []byte
	finished bool
}

// NewReader wraps r. When opts.LineLen is 0, Read is a direct
// pass-through. The internal buffer is sized to hold one full line
// plus its newline sentinel in one Peek, however wide LineLen is.
func NewReader(r io.Reader, opts Options) *Reader {
	newline := opts.newline()
	bufSize := 4096
	if need := opts.LineLen + len(newline) + 64; need > bufSize {
		bufSize = need
	}
	return &Reader{
		r:       bufio.NewReaderSize(r, bufSize),
		lineLen: opts.LineLen,
		newline: newline,
	}
}

// Read implements io.Reader, unwrapping newlines transparently. Each
// call resolves at most one wrapped line: it peeks a full line_len
// chunk plus its trailing sentinel without consuming it, so a short
// final line (fewer than line_len content bytes, immediately followed
// by the sentinel) is recognized by the underlying stream running dry
// before the sentinel is reached, rather than by first reading past it
// as content.
func (rd *Reader) Read(p []byte) (int, error) {
	if rd.lineLen <= 0 {
		return rd.r.Read(p)
	}
	if len(p) == 0 {
		return 0, nil
	}
	if len(rd.pending) == 0 {
		if rd.finished {
			return 0, io.EOF
		}
		if err := rd.fillPending(); err != nil {
			return 0, err
		}
		if len(rd.pending) == 0 {
			return 0, io.EOF
		}
	}
	n := copy(p, rd.pending)
	rd.pending = rd.pending[n:]
	return n, nil
}

// fillPending resolves the next wrapped line into rd.pending. A line
// is either a full line_len chunk followed by the sentinel, or (only
// possible for the very last line) a shorter chunk immediately
// followed by the sentinel with nothing after it.
func (rd *Reader) fillPending() error {
	natural := rd.lineLen
	nlLen := len(rd.newline)

	peeked, err := rd.r.Peek(natural + nlLen)
	if err == nil {
		content := append([]byte(nil), peeked[:natural]...)
		nl := peeked[natural : natural+nlLen]
		if !bytes.Equal(nl, rd.newline) {
			return ioerr.NewFormatError(rd.offset+int64(natural), "invalid line-wrap newline sequence %q", nl)
		}
		if _, derr := rd.r.Discard(natural + nlLen); derr != nil {
			return ioerr.NewIOError("linewrap discard", derr)
		}
		rd.offset += int64(natural + nlLen)
		rd.pending = content
		return nil
	}

	avail := len(peeked)
	if avail == 0 {
		rd.finished = true
		return nil
	}
	if avail < nlLen {
		return ioerr.NewTruncatedError(rd.offset+int64(avail), "stream ended mid-line while unwrapping: %v", err)
	}
	contentLen := avail - nlLen
	nl := peeked[contentLen:]
	if !bytes.Equal(nl, rd.newline) {
		return ioerr.NewFormatError(rd.offset+int64(contentLen), "invalid line-wrap newline sequence %q", nl)
	}
	content := append([]byte(nil), peeked[:contentLen]...)
	if _, derr := rd.r.Discard(avail); derr != nil {
		return ioerr.NewIOError("linewrap discard", derr)
	}
	rd.offset += int64(avail)
	rd.finished = true
	rd.pending = content
	return nil
}

// Writer wraps an underlying byte stream into fixed-width lines.
type Writer struct {
	w        io.Writer
	lineLen  int
	newline  []byte
	wnextEOL int
}

// NewWriter wraps w. When opts.LineLen is 0, Write is a direct
// pass-through and Close is a no-op.
func NewWriter(w io.Writer, opts Options) *Writer {
	return &Writer{
		w:        w,
		lineLen:  opts.LineLen,
		newline:  opts.newline(),
		wnextEOL: opts.LineLen,
	}
}

// Write implements io.Writer, inserting a newline after every
// line_len bytes written.
func (wr *Writer) Write(data []byte) (int, error) {
	if wr.lineLen <= 0 {
		return wr.w.Write(data)
	}

	total := 0
	for len(data) > 0 {
		buffLen := wr.wnextEOL
		if buffLen > len(data) {
			buffLen = len(data)
		}
		n, err := wr.w.Write(data[:buffLen])
		total += n
		if err != nil {
			return total, ioerr.NewIOError("linewrap write", err)
		}
		data = data[buffLen:]
		wr.wnextEOL -= buffLen
		if wr.wnextEOL == 0 {
			if _, err := wr.w.Write(wr.newline); err != nil {
				return total, ioerr.NewIOError("linewrap write newline", err)
			}
			wr.wnextEOL = wr.lineLen
		}
	}
	return total, nil
}

// Close flushes the trailing newline for a partial final line, so the
// wrapped stream's total length is always original length plus
// ceil(len/line_len) bytes, matching a fully-wrapped stream.
func (wr *Writer) Close() error {
	if wr.lineLen <= 0 {
		return nil
	}
	if wr.wnextEOL != wr.lineLen {
		if _, err := wr.w.Write(wr.newline); err != nil {
			return ioerr.NewIOError("linewrap close", err)
		}
		wr.wnextEOL = wr.lineLen
	}
	return nil
}

// Wrap frames data into fixed-width lines under opts, returning the
// wrapped bytes.
func Wrap(data []byte, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	w := NewWriter(&buf, opts)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unwrap strips line-wrap framing from data under opts, returning the
// original bytes.
func Unwrap(data []byte, opts Options) ([]byte, error) {
	r := NewReader(bytes.NewReader(data), opts)
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return out, nil
}
