// Package mst implements the MST reader (component F): random access
// to CDS/ISIS Master File records by MFN, guided by their XRF
// cross-reference index. Read-only: there is no MST/XRF write path.
package mst

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bireme/ioisis-go/pkg/codec"
	"github.com/bireme/ioisis-go/pkg/ioerr"
)

// BlockSize is the fixed MST block width in bytes.
const BlockSize = 512

// ControlRecordLen is the fixed size of the MST header (control
// record) at the start of the .mst file.
const ControlRecordLen = 32

// Variant selects the MST record-width family. The heuristic for
// auto-detecting it from a file's bytes is not standardized across
// the ecosystem, so callers must say which one they mean.
type Variant int

const (
	// VariantISIS is the default: a 16-bit mfrl/base_addr leader and a
	// 6-byte (16-bit tag/pos/len) directory entry.
	VariantISIS Variant = iota
	// VariantFFI widens mfrl/base_addr and the directory's pos/len to
	// 32 bits for larger records; the directory tag stays 16-bit.
	VariantFFI
)

// IBPMode controls how a sequential, XRF-less scan over the raw MST
// stream responds to invalid block padding — bytes between the
// declared end of a record and the next 512-byte block boundary that
// don't parse as a valid record leader. Reader always locates records
// through the XRF, so it never walks over padding and IBP has no
// effect on ReadRecord or Iterator; it is kept on Options so a future
// sequential scanner (rebuilding a missing or corrupt XRF) can share
// the same configuration surface.
type IBPMode int

const (
	// IBPCheck fails with a FormatError on invalid padding.
	IBPCheck IBPMode = iota
	// IBPIgnore skips over invalid padding silently.
	IBPIgnore
	// IBPStore is like IBPIgnore but records the raw padding bytes for
	// inspection.
	IBPStore
)

// Options configures a Reader.
type Options struct {
	Variant Variant
	// Shift scales XRF offsets: a stored offset is shifted left by
	// this many bits to recover the real in-block byte offset, in
	// exchange for a wider block-number range.
	Shift uint
	// IBP is accepted for configuration compatibility with the
	// original tool's block scanner; see IBPMode.
	IBP IBPMode
}

// DefaultOptions returns Variant=ISIS, Shift=0, IBP=Check.
func DefaultOptions() Options {
	return Options{Variant: VariantISIS, Shift: 0, IBP: IBPCheck}
}

// leaderLen and dirEntryLen assume the packed (no DWORD-alignment
// slack) layout for both variants: 18/6 bytes for ISIS, 22/10 bytes
// for FFI, matching create_record_struct with packed=True. The
// unpacked layout, which inserts 2-byte filler words for 4-byte
// alignment, is not modeled: nothing in this reader's scope produces
// or consumes it.
func (o Options) leaderLen() int {
	if o.Variant == VariantFFI {
		return 22
	}
	return 18
}

func (o Options) dirEntryLen() int {
	if o.Variant == VariantFFI {
		return 10
	}
	return 6
}

// ControlRecord is the MST file header.
type ControlRecord struct {
	NextMFN    int32
	NextBlock  int32
	NextOffset uint16
	MFType     byte
	Shift      byte
}

// XRFEntry is one decoded XRF pointer.
type XRFEntry struct {
	// Block is the 1-based MST block number. 0 means the MFN was
	// never written.
	Block int32
	// Deleted marks the record as logically deleted.
	Deleted bool
	// Active mirrors the XRF's own active flag.
	Active bool
	// Offset is the byte offset within Block where the record leader
	// begins.
	Offset int
}

// ErrNeverWritten is returned by ReadRecord for an MFN whose XRF
// pointer was never assigned a block.
var ErrNeverWritten = fmt.Errorf("mst: mfn was never written")

// Record is one decoded MST record.
type Record struct {
	MFN    int
	Active bool
	Fields []codec.Field
}

// Reader gives random access to an MST+XRF pair by MFN. It holds
// exclusive read handles to both files, released on Close.
type Reader struct {
	mstPath, xrfPath string
	mst              *os.File
	xrf              *os.File
	opts             Options
	control          ControlRecord
	xrfEntries       []XRFEntry
}

// Open opens name.mst and its companion name.xrf (same directory,
// matching case) and reads the control record and the full XRF index.
func Open(mstPath string, opts Options) (*Reader, error) {
	xrfPath := xrfPathFor(mstPath)

	mstFile, err := os.Open(mstPath)
	if err != nil {
		return nil, ioerr.NewIOError("open mst", err)
	}
	xrfFile, err := os.Open(xrfPath)
	if err != nil {
		mstFile.Close()
		return nil, ioerr.NewIOError("open xrf", err)
	}

	r := &Reader{mstPath: mstPath, xrfPath: xrfPath, mst: mstFile, xrf: xrfFile, opts: opts}
	if err := r.readControlRecord(); err != nil {
		r.Close()
		return nil, err
	}
	if err := r.loadXRF(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func xrfPathFor(mstPath string) string {
	ext := filepath.Ext(mstPath)
	xrfExt := ".xrf"
	if ext != "" && ext != strings.ToLower(ext) && ext == strings.ToUpper(ext) {
		xrfExt = ".XRF"
	}
	return strings.TrimSuffix(mstPath, ext) + xrfExt
}

// Close releases both file handles.
func (r *Reader) Close() error {
	var firstErr error
	if r.mst != nil {
		if err := r.mst.Close(); err != nil {
			firstErr = err
		}
	}
	if r.xrf != nil {
		if err := r.xrf.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NextMFN returns the control record's next_mfn sentinel: the
// smallest MFN never yet assigned.
func (r *Reader) NextMFN() int {
	return int(r.control.NextMFN)
}

func (r *Reader) readControlRecord() error {
	buf := make([]byte, ControlRecordLen)
	if _, err := io.ReadFull(io.NewSectionReader(r.mst, 0, ControlRecordLen), buf); err != nil {
		return ioerr.NewTruncatedError(0, "mst control record: %v", err)
	}
	mfn := int32(binary.LittleEndian.Uint32(buf[0:4]))
	if mfn != 0 {
		return ioerr.NewFormatError(0, "mst control record has non-zero mfn %d", mfn)
	}
	r.control = ControlRecord{
		NextMFN:    int32(binary.LittleEndian.Uint32(buf[4:8])),
		NextBlock:  int32(binary.LittleEndian.Uint32(buf[8:12])),
		NextOffset: binary.LittleEndian.Uint16(buf[12:14]),
		MFType:     buf[14],
		Shift:      buf[15],
	}
	return nil
}

func (r *Reader) loadXRF() error {
	info, err := r.xrf.Stat()
	if err != nil {
		return ioerr.NewIOError("stat xrf", err)
	}
	count := int(info.Size() / 4)
	entries := make([]XRFEntry, count)
	buf := make([]byte, 4)
	for i := 0; i < count; i++ {
		if _, err := io.ReadFull(io.NewSectionReader(r.xrf, int64(i)*4, 4), buf); err != nil {
			return ioerr.NewTruncatedError(int64(i)*4, "xrf entry %d: %v", i, err)
		}
		entries[i] = decodeXRFEntry(buf, r.opts.Shift)
	}
	r.xrfEntries = entries
	return nil
}

func decodeXRFEntry(buf []byte, shift uint) XRFEntry {
	raw := binary.LittleEndian.Uint32(buf)
	offsetBits := 9 - int(shift)
	blockBits := 21 + int(shift)

	offsetRaw := raw & mask32(offsetBits)
	raw >>= uint(offsetBits)
	active := raw&1 != 0
	raw >>= 1
	deleted := raw&1 != 0
	raw >>= 1
	blockRaw := raw & mask32(blockBits)

	return XRFEntry{
		Block:   signExtend32(blockRaw, blockBits),
		Deleted: deleted,
		Active:  active,
		Offset:  int(offsetRaw) << shift,
	}
}

func mask32(bits int) uint32 {
	if bits <= 0 {
		return 0
	}
	return uint32(1)<<uint(bits) - 1
}

func signExtend32(v uint32, bits int) int32 {
	sign := uint32(1) << uint(bits-1)
	if v&sign != 0 {
		return int32(v) - (int32(1) << uint(bits))
	}
	return int32(v)
}

// XRFEntry returns the raw XRF pointer for mfn, or an error if mfn is
// outside the XRF's range.
func (r *Reader) XRFEntry(mfn int) (XRFEntry, error) {
	if mfn <= 0 || mfn >= len(r.xrfEntries) {
		return XRFEntry{}, ioerr.NewXrfError(mfn, "mfn out of xrf range [1, %d)", len(r.xrfEntries))
	}
	return r.xrfEntries[mfn], nil
}

// ReadRecord reads and decodes the record for mfn. It returns
// ErrNeverWritten if the XRF pointer has never been assigned a block;
// Active on the returned Record reflects the XRF's logical-deletion
// state.
func (r *Reader) ReadRecord(mfn int) (*Record, error) {
	entry, err := r.XRFEntry(mfn)
	if err != nil {
		return nil, err
	}
	if entry.Block == 0 {
		return nil, ErrNeverWritten
	}
	if entry.Block < 0 {
		return nil, ioerr.NewXrfError(mfn, "block number %d out of range", entry.Block)
	}

	byteOffset := int64(entry.Block-1)*BlockSize + int64(entry.Offset)
	info, err := r.mst.Stat()
	if err != nil {
		return nil, ioerr.NewIOError("stat mst", err)
	}
	if byteOffset < 0 || byteOffset > info.Size() {
		return nil, ioerr.NewXrfError(mfn, "block %d offset %d beyond end of mst file", entry.Block, entry.Offset)
	}
	sr := io.NewSectionReader(r.mst, byteOffset, info.Size()-byteOffset)

	leaderLen := r.opts.leaderLen()
	leaderBuf := make([]byte, leaderLen)
	if _, err := io.ReadFull(sr, leaderBuf); err != nil {
		return nil, ioerr.NewTruncatedError(byteOffset, "mst record leader for mfn %d: %v", mfn, err)
	}

	leader, err := decodeRecordLeader(leaderBuf, r.opts)
	if err != nil {
		return nil, err
	}
	if leader.MFN != mfn {
		return nil, ioerr.NewFormatError(byteOffset, "xrf points mfn %d at a leader for mfn %d", mfn, leader.MFN)
	}

	dirLen := leader.NumFields * r.opts.dirEntryLen()
	dirBuf := make([]byte, dirLen)
	if _, err := io.ReadFull(sr, dirBuf); err != nil {
		return nil, ioerr.NewTruncatedError(byteOffset, "mst directory for mfn %d: %v", mfn, err)
	}
	dir := decodeDirectory(dirBuf, leader.NumFields, r.opts)

	fieldDataLen := leader.TotalLen - leader.BaseAddr
	if fieldDataLen < 0 {
		return nil, ioerr.NewFormatError(byteOffset, "mfn %d: total_len %d shorter than base_addr %d", mfn, leader.TotalLen, leader.BaseAddr)
	}
	fieldData := make([]byte, fieldDataLen)
	if _, err := io.ReadFull(sr, fieldData); err != nil {
		return nil, ioerr.NewTruncatedError(byteOffset, "mst field data for mfn %d: %v", mfn, err)
	}

	fields := make([]codec.Field, leader.NumFields)
	for i, d := range dir {
		start, end := d.Pos, d.Pos+d.Len
		if start < 0 || end > len(fieldData) {
			return nil, ioerr.NewFormatError(byteOffset, "mfn %d field %d out of bounds", mfn, i)
		}
		fields[i] = codec.Field{
			Tag:   []byte(strconv.Itoa(d.Tag)),
			Value: append([]byte(nil), fieldData[start:end]...),
		}
	}

	return &Record{MFN: mfn, Active: entry.Active && !entry.Deleted, Fields: fields}, nil
}

type dirEntry struct {
	Tag, Pos, Len int
}

type recordLeader struct {
	MFN       int
	TotalLen  int
	OldBlock  int32
	OldOffset int
	BaseAddr  int
	NumFields int
	Status    int
}

func decodeRecordLeader(buf []byte, opts Options) (recordLeader, error) {
	mfn := int32(binary.LittleEndian.Uint32(buf[0:4]))
	if mfn == 0 {
		return recordLeader{}, ioerr.NewFormatError(0, "mst record leader has mfn 0 (control record sentinel)")
	}

	if opts.Variant == VariantFFI {
		return recordLeader{
			MFN:       int(mfn),
			TotalLen:  int(binary.LittleEndian.Uint32(buf[4:8])),
			OldBlock:  int32(binary.LittleEndian.Uint32(buf[8:12])),
			OldOffset: int(binary.LittleEndian.Uint16(buf[12:14])),
			BaseAddr:  int(binary.LittleEndian.Uint32(buf[14:18])),
			NumFields: int(binary.LittleEndian.Uint16(buf[18:20])),
			Status:    int(binary.LittleEndian.Uint16(buf[20:22])),
		}, nil
	}
	return recordLeader{
		MFN:       int(mfn),
		TotalLen:  int(binary.LittleEndian.Uint16(buf[4:6])),
		OldBlock:  int32(binary.LittleEndian.Uint32(buf[6:10])),
		OldOffset: int(binary.LittleEndian.Uint16(buf[10:12])),
		BaseAddr:  int(binary.LittleEndian.Uint16(buf[12:14])),
		NumFields: int(binary.LittleEndian.Uint16(buf[14:16])),
		Status:    int(binary.LittleEndian.Uint16(buf[16:18])),
	}, nil
}

func decodeDirectory(buf []byte, numFields int, opts Options) []dirEntry {
	entries := make([]dirEntry, numFields)
	width := opts.dirEntryLen()
	for i := 0; i < numFields; i++ {
		e := buf[i*width : (i+1)*width]
		if opts.Variant == VariantFFI {
			// The tag stays a 2-byte field even in FFI; only pos/len
			// widen, per create_record_struct's directory struct.
			entries[i] = dirEntry{
				Tag: int(binary.LittleEndian.Uint16(e[0:2])),
				Pos: int(binary.LittleEndian.Uint32(e[2:6])),
				Len: int(binary.LittleEndian.Uint32(e[6:10])),
			}
		} else {
			entries[i] = dirEntry{
				Tag: int(binary.LittleEndian.Uint16(e[0:2])),
				Pos: int(binary.LittleEndian.Uint16(e[2:4])),
				Len: int(binary.LittleEndian.Uint16(e[4:6])),
			}
		}
	}
	return entries
}

// Iterator walks MFNs from 1 to NextMFN-1, optionally skipping
// logically deleted records.
type Iterator struct {
	r          *Reader
	mfn        int
	onlyActive bool
}

// Iterate returns an Iterator over r's records. Never-written MFNs
// (holes) are always skipped since there's no record to yield.
func (r *Reader) Iterate(onlyActive bool) *Iterator {
	return &Iterator{r: r, mfn: 1, onlyActive: onlyActive}
}

// Next returns the next record in ascending MFN order, or io.EOF once
// the iteration passes NextMFN-1.
func (it *Iterator) Next() (*Record, error) {
	for {
		if it.mfn >= it.r.NextMFN() {
			return nil, io.EOF
		}
		mfn := it.mfn
		it.mfn++

		rec, err := it.r.ReadRecord(mfn)
		if err == ErrNeverWritten {
			continue
		}
		if err != nil {
			return nil, err
		}
		if it.onlyActive && !rec.Active {
			continue
		}
		return rec, nil
	}
}
