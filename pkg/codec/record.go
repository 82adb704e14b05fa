package codec

// Field is one directory entry plus its field data, in directory order.
type Field struct {
	// Tag is the raw, fixed-width tag bytes. On Encode, it must be
	// exactly Geometry.TagLen bytes.
	Tag []byte
	// Custom is the per-entry custom byte string. On Encode, nil means
	// "zero-fill with ASCII '0'", matching the source's default. When
	// non-nil it must be exactly Geometry.CustomLen bytes.
	Custom []byte
	// Value is the field's data bytes. Must not contain the field
	// terminator byte.
	Value []byte

	// Len and Pos are populated by Decode (the directory entry as read)
	// and ignored on Encode, where they're always recomputed.
	Len int
	Pos int
}

// Leader carries the ISO 2709 leader's opaque metadata bytes, everything
// not computed from the directory/field data.
type Leader struct {
	Status         byte
	Type           byte
	Coding         byte
	IndicatorCount int // 0-9
	IdentifierLen  int // 0-9
	Custom2        []byte
	Custom3        []byte
	Reserved       byte

	// TotalLen and BaseAddr are populated by Decode and ignored on
	// Encode, where they're always recomputed.
	TotalLen int
	BaseAddr int

	// LenLen, PosLen, CustomLen are the entry-map widths as read from
	// the leader by Decode. Encode always sources these widths from the
	// Geometry instead, ignoring these fields.
	LenLen    int
	PosLen    int
	CustomLen int
}

// DefaultLeader returns the leader defaults: status/type/coding '0',
// indicator_count/identifier_len 0, custom_2 "00", custom_3 "000",
// reserved '0'.
func DefaultLeader() Leader {
	return Leader{
		Status:   '0',
		Type:     '0',
		Coding:   '0',
		Custom2:  []byte("00"),
		Custom3:  []byte("000"),
		Reserved: '0',
	}
}

// Record is a single ISO 2709 record in structured form: a leader plus
// an ordered sequence of directory/field pairs.
type Record struct {
	Leader Leader
	Fields []Field
}

// NewRecord builds a Record with default leader metadata from an
// ordered sequence of (tag, value) pairs. Tags are used as given and are
// not padded, so each must already be exactly the geometry's tag width
// for Encode to accept it.
func NewRecord(pairs [][2][]byte) Record {
	fields := make([]Field, len(pairs))
	for i, p := range pairs {
		fields[i] = Field{Tag: p[0], Value: p[1]}
	}
	return Record{Leader: DefaultLeader(), Fields: fields}
}
