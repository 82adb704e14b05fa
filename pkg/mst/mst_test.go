package mst

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildControlRecord returns the 32-byte MST header for nextMFN records,
// occupying block 1 onward, shift 0.
func buildControlRecord(nextMFN, nextBlock int32, nextOffset uint16) []byte {
	buf := make([]byte, ControlRecordLen)
	putU32 := func(off int, v int32) {
		buf[off] = byte(v)
		buf[off+1] = byte(v >> 8)
		buf[off+2] = byte(v >> 16)
		buf[off+3] = byte(v >> 24)
	}
	putU16 := func(off int, v uint16) {
		buf[off] = byte(v)
		buf[off+1] = byte(v >> 8)
	}
	putU32(0, 0) // control record mfn sentinel
	putU32(4, nextMFN)
	putU32(8, nextBlock)
	putU16(12, nextOffset)
	buf[14] = 0 // mftype
	buf[15] = 0 // shift
	return buf
}

// buildRecordBytes returns the leader+directory+field-data bytes for one
// ISIS-variant record with the given mfn and (tag, value) fields.
func buildRecordBytes(mfn int32, fields [][2]string) []byte {
	putU16 := func(v uint16) []byte { return []byte{byte(v), byte(v >> 8)} }
	putU32 := func(v int32) []byte {
		return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	}

	var fieldData []byte
	type pos struct{ pos, len int }
	positions := make([]pos, len(fields))
	for i, f := range fields {
		positions[i] = pos{pos: len(fieldData), len: len(f[1])}
		fieldData = append(fieldData, f[1]...)
	}

	dirLen := len(fields) * 6
	baseAddr := 18 + dirLen
	totalLen := baseAddr + len(fieldData)

	var out []byte
	out = append(out, putU32(mfn)...)
	out = append(out, putU16(uint16(totalLen))...)
	out = append(out, putU32(0)...) // old_block
	out = append(out, putU16(0)...) // old_offset
	out = append(out, putU16(uint16(baseAddr))...)
	out = append(out, putU16(uint16(len(fields)))...)
	out = append(out, putU16(0)...) // status

	for i, f := range fields {
		tag := mustAtoi(f[0])
		out = append(out, putU16(uint16(tag))...)
		out = append(out, putU16(uint16(positions[i].pos))...)
		out = append(out, putU16(uint16(positions[i].len))...)
	}
	out = append(out, fieldData...)
	return out
}

func mustAtoi(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}

// buildRecordBytesFFI returns the leader+directory+field-data bytes for one
// FFI-variant record: 22-byte leader (32-bit total_len/base_addr, 16-bit
// old_offset/num_fields/status) and 10-byte directory entries (16-bit tag,
// 32-bit pos/len), per the packed FFI layout.
func buildRecordBytesFFI(mfn int32, fields [][2]string) []byte {
	putU16 := func(v uint16) []byte { return []byte{byte(v), byte(v >> 8)} }
	putU32 := func(v int32) []byte {
		return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	}

	var fieldData []byte
	type pos struct{ pos, len int }
	positions := make([]pos, len(fields))
	for i, f := range fields {
		positions[i] = pos{pos: len(fieldData), len: len(f[1])}
		fieldData = append(fieldData, f[1]...)
	}

	dirLen := len(fields) * 10
	baseAddr := 22 + dirLen
	totalLen := baseAddr + len(fieldData)

	var out []byte
	out = append(out, putU32(mfn)...)
	out = append(out, putU32(int32(totalLen))...)
	out = append(out, putU32(0)...) // old_block
	out = append(out, putU16(0)...) // old_offset
	out = append(out, putU32(int32(baseAddr))...)
	out = append(out, putU16(uint16(len(fields)))...)
	out = append(out, putU16(0)...) // status

	for i, f := range fields {
		tag := mustAtoi(f[0])
		out = append(out, putU16(uint16(tag))...)
		out = append(out, putU32(int32(positions[i].pos))...)
		out = append(out, putU32(int32(positions[i].len))...)
	}
	out = append(out, fieldData...)
	return out
}

// packXRFEntry mirrors decodeXRFEntry's bit layout in reverse, for shift 0.
func packXRFEntry(block int32, deleted, active bool, offset int) []byte {
	var raw uint32
	raw |= (uint32(block) & mask32(21)) << 11
	if deleted {
		raw |= 1 << 10
	}
	if active {
		raw |= 1 << 9
	}
	raw |= uint32(offset) & mask32(9)
	return []byte{byte(raw), byte(raw >> 8), byte(raw >> 16), byte(raw >> 24)}
}

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	rec1 := buildRecordBytes(1, [][2]string{{"245", "hello"}, {"100", "world"}})
	rec3 := buildRecordBytes(3, [][2]string{{"001", "deleted record"}})

	var mstBytes []byte
	mstBytes = append(mstBytes, buildControlRecord(4, 1, 32)...)
	rec1Offset := len(mstBytes)
	mstBytes = append(mstBytes, rec1...)
	rec3Offset := len(mstBytes)
	mstBytes = append(mstBytes, rec3...)

	xrfBytes := make([]byte, 0, 16)
	xrfBytes = append(xrfBytes, packXRFEntry(0, false, false, 0)...)                 // index 0, unused
	xrfBytes = append(xrfBytes, packXRFEntry(1, false, true, rec1Offset)...)         // mfn 1
	xrfBytes = append(xrfBytes, packXRFEntry(0, false, false, 0)...)                 // mfn 2, never written
	xrfBytes = append(xrfBytes, packXRFEntry(1, true, false, rec3Offset)...)         // mfn 3, deleted

	mstPath := filepath.Join(dir, "sample.mst")
	xrfPath := filepath.Join(dir, "sample.xrf")
	require.NoError(t, os.WriteFile(mstPath, mstBytes, 0o644))
	require.NoError(t, os.WriteFile(xrfPath, xrfBytes, 0o644))
	return mstPath
}

func TestOpen_ReadsControlRecordAndXRF(t *testing.T) {
	mstPath := writeFixture(t)
	r, err := Open(mstPath, DefaultOptions())
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 4, r.NextMFN())
}

func TestReadRecord_DecodesFields(t *testing.T) {
	mstPath := writeFixture(t)
	r, err := Open(mstPath, DefaultOptions())
	require.NoError(t, err)
	defer r.Close()

	rec, err := r.ReadRecord(1)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.MFN)
	assert.True(t, rec.Active)
	require.Len(t, rec.Fields, 2)
	assert.Equal(t, "245", string(rec.Fields[0].Tag))
	assert.Equal(t, "hello", string(rec.Fields[0].Value))
	assert.Equal(t, "100", string(rec.Fields[1].Tag))
	assert.Equal(t, "world", string(rec.Fields[1].Value))
}

func TestReadRecord_NeverWritten(t *testing.T) {
	mstPath := writeFixture(t)
	r, err := Open(mstPath, DefaultOptions())
	require.NoError(t, err)
	defer r.Close()

	_, err = r.ReadRecord(2)
	assert.ErrorIs(t, err, ErrNeverWritten)
}

func TestReadRecord_DeletedIsInactive(t *testing.T) {
	mstPath := writeFixture(t)
	r, err := Open(mstPath, DefaultOptions())
	require.NoError(t, err)
	defer r.Close()

	rec, err := r.ReadRecord(3)
	require.NoError(t, err)
	assert.False(t, rec.Active)
	assert.Equal(t, "deleted record", string(rec.Fields[0].Value))
}

func TestIterate_OnlyActiveSkipsDeletedAndHoles(t *testing.T) {
	mstPath := writeFixture(t)
	r, err := Open(mstPath, DefaultOptions())
	require.NoError(t, err)
	defer r.Close()

	it := r.Iterate(true)
	var mfns []int
	for {
		rec, err := it.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		mfns = append(mfns, rec.MFN)
	}
	assert.Equal(t, []int{1}, mfns)
}

func TestIterate_AllIncludesDeletedButNotHoles(t *testing.T) {
	mstPath := writeFixture(t)
	r, err := Open(mstPath, DefaultOptions())
	require.NoError(t, err)
	defer r.Close()

	it := r.Iterate(false)
	var mfns []int
	for {
		rec, err := it.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		mfns = append(mfns, rec.MFN)
	}
	assert.Equal(t, []int{1, 3}, mfns)
}

func writeFixtureFFI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	rec1 := buildRecordBytesFFI(1, [][2]string{{"245", "hello ffi"}})

	var mstBytes []byte
	mstBytes = append(mstBytes, buildControlRecord(2, 1, 32)...)
	rec1Offset := len(mstBytes)
	mstBytes = append(mstBytes, rec1...)

	xrfBytes := make([]byte, 0, 8)
	xrfBytes = append(xrfBytes, packXRFEntry(0, false, false, 0)...)         // index 0, unused
	xrfBytes = append(xrfBytes, packXRFEntry(1, false, true, rec1Offset)...) // mfn 1

	mstPath := filepath.Join(dir, "sample.mst")
	xrfPath := filepath.Join(dir, "sample.xrf")
	require.NoError(t, os.WriteFile(mstPath, mstBytes, 0o644))
	require.NoError(t, os.WriteFile(xrfPath, xrfBytes, 0o644))
	return mstPath
}

func TestReadRecord_FFIVariantDecodesWidenedLeaderAndDirectory(t *testing.T) {
	mstPath := writeFixtureFFI(t)
	opts := DefaultOptions()
	opts.Variant = VariantFFI
	r, err := Open(mstPath, opts)
	require.NoError(t, err)
	defer r.Close()

	rec, err := r.ReadRecord(1)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.MFN)
	assert.True(t, rec.Active)
	require.Len(t, rec.Fields, 1)
	assert.Equal(t, "245", string(rec.Fields[0].Tag))
	assert.Equal(t, "hello ffi", string(rec.Fields[0].Value))
}

func TestXRFEntry_OutOfRange(t *testing.T) {
	mstPath := writeFixture(t)
	r, err := Open(mstPath, DefaultOptions())
	require.NoError(t, err)
	defer r.Close()

	_, err = r.XRFEntry(99)
	assert.Error(t, err)
}
