// Package ioerr defines the error kinds shared by the ISO 2709, MST/XRF
// and subfield codecs.
package ioerr

import "fmt"

// FormatError reports that a parsed byte stream violates one of the
// record-shape invariants (bad total_len, non-digit numeric field,
// missing terminator, ...).
type FormatError struct {
	Offset int64
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("ioisis: format error at offset %d: %s", e.Offset, e.Reason)
}

// NewFormatError builds a FormatError with the given detected offset.
func NewFormatError(offset int64, reason string, args ...interface{}) *FormatError {
	return &FormatError{Offset: offset, Reason: fmt.Sprintf(reason, args...)}
}

// TruncatedError reports that EOF was reached mid-record.
type TruncatedError struct {
	Offset int64
	Reason string
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("ioisis: truncated record at offset %d: %s", e.Offset, e.Reason)
}

// NewTruncatedError builds a TruncatedError.
func NewTruncatedError(offset int64, reason string, args ...interface{}) *TruncatedError {
	return &TruncatedError{Offset: offset, Reason: fmt.Sprintf(reason, args...)}
}

// OverflowError reports a build-time input that does not fit the
// configured geometry (numeric field too wide, field-terminator byte
// inside a field value, ...).
type OverflowError struct {
	Field  string
	Reason string
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("ioisis: overflow in field %s: %s", e.Field, e.Reason)
}

// NewOverflowError builds an OverflowError naming the offending field.
func NewOverflowError(field, reason string, args ...interface{}) *OverflowError {
	return &OverflowError{Field: field, Reason: fmt.Sprintf(reason, args...)}
}

// EncodingError reports that transcoding failed under a configured
// character set.
type EncodingError struct {
	Encoding string
	Reason   string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("ioisis: encoding error (%s): %s", e.Encoding, e.Reason)
}

// NewEncodingError builds an EncodingError.
func NewEncodingError(encoding, reason string, args ...interface{}) *EncodingError {
	return &EncodingError{Encoding: encoding, Reason: fmt.Sprintf(reason, args...)}
}

// XrfError reports an inconsistent or out-of-range XRF pointer.
type XrfError struct {
	MFN    int
	Reason string
}

func (e *XrfError) Error() string {
	return fmt.Sprintf("ioisis: xrf error for mfn %d: %s", e.MFN, e.Reason)
}

// NewXrfError builds an XrfError for the given MFN.
func NewXrfError(mfn int, reason string, args ...interface{}) *XrfError {
	return &XrfError{MFN: mfn, Reason: fmt.Sprintf(reason, args...)}
}

// IOError wraps an underlying stream failure.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("ioisis: io error during %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError wraps err with the operation that was being attempted.
func NewIOError(op string, err error) *IOError {
	return &IOError{Op: op, Err: err}
}
