package codec

import (
	"github.com/bireme/ioisis-go/pkg/ioerr"
)

// Decode parses a single record's exact byte string (leader, directory,
// field data, no line-wrap) against geom, which supplies the tag width
// and the two terminator bytes; everything else is read from the
// leader itself. offset is the record's byte offset in its containing
// stream, used only to annotate errors.
func Decode(data []byte, geom Geometry, offset int64) (Record, error) {
	if len(data) < LeaderLen {
		return Record{}, ioerr.NewTruncatedError(offset, "record shorter than the %d-byte leader", LeaderLen)
	}

	tagLen := geom.tagLen()
	ft := geom.fieldTerminator()
	rt := geom.recordTerminator()

	leader := Leader{}
	totalLen, err := parseDigits(data, 0, 5, offset)
	if err != nil {
		return Record{}, err
	}
	leader.TotalLen = totalLen
	leader.Status = data[5]
	leader.Type = data[6]
	leader.Custom2 = append([]byte(nil), data[7:9]...)
	leader.Coding = data[9]
	indicatorCount, err := parseDigits(data, 10, 1, offset)
	if err != nil {
		return Record{}, err
	}
	leader.IndicatorCount = indicatorCount
	identifierLen, err := parseDigits(data, 11, 1, offset)
	if err != nil {
		return Record{}, err
	}
	leader.IdentifierLen = identifierLen
	baseAddr, err := parseDigits(data, 12, 5, offset)
	if err != nil {
		return Record{}, err
	}
	leader.BaseAddr = baseAddr
	leader.Custom3 = append([]byte(nil), data[17:20]...)
	lenLen, err := parseDigits(data, 20, 1, offset)
	if err != nil {
		return Record{}, err
	}
	leader.LenLen = lenLen
	posLen, err := parseDigits(data, 21, 1, offset)
	if err != nil {
		return Record{}, err
	}
	leader.PosLen = posLen
	customLen, err := parseDigits(data, 22, 1, offset)
	if err != nil {
		return Record{}, err
	}
	leader.CustomLen = customLen
	leader.Reserved = data[23]

	if totalLen < baseAddr || baseAddr < LeaderLen+1 {
		return Record{}, ioerr.NewFormatError(offset, "base_addr %d inconsistent with total_len %d", baseAddr, totalLen)
	}
	if len(data) < totalLen {
		return Record{}, ioerr.NewTruncatedError(offset, "record declares total_len %d but only %d bytes available", totalLen, len(data))
	}

	entrySize := geom.entrySize(lenLen, posLen, customLen)
	dirLen := baseAddr - LeaderLen - 1
	if entrySize == 0 {
		if dirLen != 0 {
			return Record{}, ioerr.NewFormatError(offset, "zero-width directory entry but directory length %d", dirLen)
		}
	} else if dirLen%entrySize != 0 {
		return Record{}, ioerr.NewFormatError(offset, "directory length %d not a multiple of entry size %d", dirLen, entrySize)
	}
	n := 0
	if entrySize != 0 {
		n = dirLen / entrySize
	}

	fields := make([]Field, n)
	cursor := LeaderLen
	for i := 0; i < n; i++ {
		tag := append([]byte(nil), data[cursor:cursor+tagLen]...)
		cursor += tagLen
		l, err := parseDigits(data, cursor, lenLen, offset)
		if err != nil {
			return Record{}, err
		}
		cursor += lenLen
		p, err := parseDigits(data, cursor, posLen, offset)
		if err != nil {
			return Record{}, err
		}
		cursor += posLen
		var custom []byte
		if customLen > 0 {
			custom = append([]byte(nil), data[cursor:cursor+customLen]...)
			cursor += customLen
		}
		fields[i] = Field{Tag: tag, Custom: custom, Len: l, Pos: p}
	}

	if data[cursor] != ft {
		return Record{}, ioerr.NewFormatError(offset, "expected field terminator ending the directory at offset %d", cursor)
	}
	cursor++
	if cursor != baseAddr {
		return Record{}, ioerr.NewFormatError(offset, "directory end %d does not match base_addr %d", cursor, baseAddr)
	}

	if data[totalLen-1] != rt {
		return Record{}, ioerr.NewFormatError(offset, "expected record terminator at offset %d", totalLen-1)
	}

	wantPos := 0
	for i := range fields {
		if fields[i].Pos != wantPos {
			return Record{}, ioerr.NewFormatError(offset, "fields[%d] pos %d does not tile contiguously (expected %d)", i, fields[i].Pos, wantPos)
		}
		start := baseAddr + fields[i].Pos
		end := start + fields[i].Len
		if fields[i].Len < 1 || start < baseAddr || end > totalLen-1 {
			return Record{}, ioerr.NewFormatError(offset, "fields[%d] pos/len out of bounds", i)
		}
		if data[end-1] != ft {
			return Record{}, ioerr.NewFormatError(offset, "fields[%d] not terminated by the field terminator", i)
		}
		fields[i].Value = append([]byte(nil), data[start:end-1]...)
		wantPos += fields[i].Len
	}

	return Record{Leader: leader, Fields: fields}, nil
}

// parseDigits reads width ASCII decimal digits from data starting at
// off, returning a FormatError if any byte isn't a digit or the slice
// is short.
func parseDigits(data []byte, off, width int, recordOffset int64) (int, error) {
	if off+width > len(data) {
		return 0, ioerr.NewTruncatedError(recordOffset, "expected %d digits at offset %d", width, off)
	}
	value := 0
	for i := 0; i < width; i++ {
		c := data[off+i]
		if c < '0' || c > '9' {
			return 0, ioerr.NewFormatError(recordOffset, "non-digit byte %q at offset %d", c, off+i)
		}
		value = value*10 + int(c-'0')
	}
	return value, nil
}
