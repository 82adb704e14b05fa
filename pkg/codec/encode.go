package codec

import (
	"bytes"
	"fmt"

	"github.com/bireme/ioisis-go/pkg/ioerr"
)

// Encode builds the exact byte string of rec under geom: leader,
// directory, field data and record terminator, with no line-wrap. See
// spec §4.C for the build algorithm and §3 for the invariants it
// establishes.
func Encode(rec Record, geom Geometry) ([]byte, error) {
	tagLen := geom.tagLen()
	lenLen := geom.lenLen()
	posLen := geom.posLen()
	customLen := geom.CustomLen
	ft := geom.fieldTerminator()
	rt := geom.recordTerminator()

	n := len(rec.Fields)
	lens := make([]int, n)
	poss := make([]int, n)
	pos := 0
	for i, f := range rec.Fields {
		if bytes.IndexByte(f.Value, ft) >= 0 {
			return nil, ioerr.NewOverflowError(fmt.Sprintf("fields[%d]", i), "value contains the field terminator byte")
		}
		l := len(f.Value) + 1
		lens[i] = l
		poss[i] = pos
		pos += l
	}
	fieldDataLen := pos

	entrySize := geom.entrySize(lenLen, posLen, customLen)
	dirLen := n * entrySize
	baseAddr := LeaderLen + dirLen + 1
	totalLen := baseAddr + fieldDataLen + 1

	baseAddrStr, err := formatDigits(baseAddr, 5)
	if err != nil {
		return nil, ioerr.NewOverflowError("base_addr", "%v", err)
	}
	totalLenStr, err := formatDigits(totalLen, 5)
	if err != nil {
		return nil, ioerr.NewOverflowError("total_len", "%v", err)
	}

	var buf bytes.Buffer
	buf.Grow(totalLen)

	// Leader.
	leader := rec.Leader
	buf.WriteString(totalLenStr)
	buf.WriteByte(orDefault(leader.Status, '0'))
	buf.WriteByte(orDefault(leader.Type, '0'))
	if err := writeFixed(&buf, leader.Custom2, 2, []byte("00"), "custom_2"); err != nil {
		return nil, err
	}
	buf.WriteByte(orDefault(leader.Coding, '0'))
	indicatorStr, err := formatDigits(leader.IndicatorCount, 1)
	if err != nil {
		return nil, ioerr.NewOverflowError("indicator_count", "%v", err)
	}
	buf.WriteString(indicatorStr)
	identifierStr, err := formatDigits(leader.IdentifierLen, 1)
	if err != nil {
		return nil, ioerr.NewOverflowError("identifier_len", "%v", err)
	}
	buf.WriteString(identifierStr)
	buf.WriteString(baseAddrStr)
	if err := writeFixed(&buf, leader.Custom3, 3, []byte("000"), "custom_3"); err != nil {
		return nil, err
	}
	lenLenStr, err := formatDigits(lenLen, 1)
	if err != nil {
		return nil, ioerr.NewOverflowError("len_len", "%v", err)
	}
	buf.WriteString(lenLenStr)
	posLenStr, err := formatDigits(posLen, 1)
	if err != nil {
		return nil, ioerr.NewOverflowError("pos_len", "%v", err)
	}
	buf.WriteString(posLenStr)
	customLenStr, err := formatDigits(customLen, 1)
	if err != nil {
		return nil, ioerr.NewOverflowError("custom_len", "%v", err)
	}
	buf.WriteString(customLenStr)
	buf.WriteByte(orDefault(leader.Reserved, '0'))

	// Directory.
	for i, f := range rec.Fields {
		if len(f.Tag) != tagLen {
			return nil, ioerr.NewOverflowError(fmt.Sprintf("fields[%d].tag", i), "tag must be %d bytes, got %d", tagLen, len(f.Tag))
		}
		buf.Write(f.Tag)
		lStr, err := formatDigits(lens[i], lenLen)
		if err != nil {
			return nil, ioerr.NewOverflowError(fmt.Sprintf("fields[%d].len", i), "%v", err)
		}
		buf.WriteString(lStr)
		pStr, err := formatDigits(poss[i], posLen)
		if err != nil {
			return nil, ioerr.NewOverflowError(fmt.Sprintf("fields[%d].pos", i), "%v", err)
		}
		buf.WriteString(pStr)
		custom := f.Custom
		if custom == nil {
			custom = bytes.Repeat([]byte("0"), customLen)
		}
		if len(custom) != customLen {
			return nil, ioerr.NewOverflowError(fmt.Sprintf("fields[%d].custom", i), "custom must be %d bytes, got %d", customLen, len(custom))
		}
		buf.Write(custom)
	}
	buf.WriteByte(ft)

	// Field data.
	for _, f := range rec.Fields {
		buf.Write(f.Value)
		buf.WriteByte(ft)
	}

	buf.WriteByte(rt)

	return buf.Bytes(), nil
}

func orDefault(b, def byte) byte {
	if b == 0 {
		return def
	}
	return b
}

func writeFixed(buf *bytes.Buffer, value []byte, width int, def []byte, name string) error {
	if value == nil {
		value = def
	}
	if len(value) != width {
		return ioerr.NewOverflowError(name, "must be %d bytes, got %d", width, len(value))
	}
	buf.Write(value)
	return nil
}

// formatDigits renders value as zero-padded ASCII decimal digits of the
// given width, failing with an error if it doesn't fit.
func formatDigits(value, width int) (string, error) {
	if value < 0 {
		return "", errNegative
	}
	s := itoa(value)
	if len(s) > width {
		return "", errTooWide(value, width)
	}
	if len(s) == width {
		return s, nil
	}
	pad := make([]byte, width-len(s))
	for i := range pad {
		pad[i] = '0'
	}
	return string(pad) + s, nil
}
