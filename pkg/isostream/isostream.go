// Package isostream implements the ISO stream iterator (component E):
// a lazy sequence of records read from a byte stream by invoking the
// record codec repeatedly until EOF, with no inter-record delimiter
// beyond each record's own declared length.
package isostream

import (
	"io"

	"github.com/bireme/ioisis-go/pkg/codec"
	"github.com/bireme/ioisis-go/pkg/ioerr"
)

// Scanner reads consecutive ISO 2709 records from an unwrapped byte
// stream (typically a linewrap.Reader), in the style of bufio.Scanner:
// call Scan in a loop, consume Record after each true result, check
// Err once Scan returns false.
type Scanner struct {
	r      io.Reader
	geom   codec.Geometry
	offset int64
	rec    codec.Record
	err    error
}

// NewScanner returns a Scanner reading records under geom from r. r
// must already be free of line-wrap framing.
func NewScanner(r io.Reader, geom codec.Geometry) *Scanner {
	return &Scanner{r: r, geom: geom}
}

// Scan advances to the next record, returning false at clean EOF or
// on error.
func (s *Scanner) Scan() bool {
	if s.err != nil {
		return false
	}
	rec, err := s.next()
	if err != nil {
		s.err = err
		return false
	}
	s.rec = rec
	return true
}

// Record returns the record produced by the most recent call to Scan.
func (s *Scanner) Record() codec.Record {
	return s.rec
}

// Err returns the first non-EOF error encountered by Scan.
func (s *Scanner) Err() error {
	if s.err == io.EOF {
		return nil
	}
	return s.err
}

// Offset returns the byte offset, in the unwrapped stream, just past
// the record most recently returned by Record: the offset at which the
// next record starts.
func (s *Scanner) Offset() int64 {
	return s.offset
}

func (s *Scanner) next() (codec.Record, error) {
	start := s.offset
	leader := make([]byte, codec.LeaderLen)
	n, err := io.ReadFull(s.r, leader)
	if err != nil {
		if err == io.EOF && n == 0 {
			return codec.Record{}, io.EOF
		}
		return codec.Record{}, ioerr.NewTruncatedError(start, "stream ended while reading the leader: %v", err)
	}

	totalLen, err := codec.LeaderTotalLen(leader, start)
	if err != nil {
		return codec.Record{}, err
	}
	if totalLen < codec.LeaderLen {
		return codec.Record{}, ioerr.NewFormatError(start, "total_len %d shorter than the leader", totalLen)
	}

	full := make([]byte, totalLen)
	copy(full, leader)
	if _, err := io.ReadFull(s.r, full[codec.LeaderLen:]); err != nil {
		return codec.Record{}, ioerr.NewTruncatedError(start, "stream ended mid-record (declared total_len %d): %v", totalLen, err)
	}

	rec, err := codec.Decode(full, s.geom, start)
	if err != nil {
		return codec.Record{}, err
	}
	s.offset = start + int64(totalLen)
	return rec, nil
}

// Writer serializes records to an unwrapped byte stream (typically a
// linewrap.Writer), one after another with no inter-record delimiter.
type Writer struct {
	w    io.Writer
	geom codec.Geometry
}

// NewWriter returns a Writer that encodes records under geom to w.
func NewWriter(w io.Writer, geom codec.Geometry) *Writer {
	return &Writer{w: w, geom: geom}
}

// WriteRecord encodes rec and writes it to the underlying stream.
func (wr *Writer) WriteRecord(rec codec.Record) error {
	b, err := codec.Encode(rec, wr.geom)
	if err != nil {
		return err
	}
	if _, err := wr.w.Write(b); err != nil {
		return ioerr.NewIOError("isostream write", err)
	}
	return nil
}
