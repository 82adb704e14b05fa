// Package codec implements the ISO 2709 record codec (component C): it
// parses and builds a single record's leader, directory and field data
// against a configurable Geometry, without line-wrap or stream framing.
package codec

// LeaderLen is the fixed size in bytes of the ISO 2709 leader.
const LeaderLen = 24

// Geometry configures the parts of an ISO 2709 record that aren't
// themselves self-describing in the leader: the tag width and the two
// terminator bytes. The directory entry-map widths (len_len, pos_len,
// custom_len) are read from the leader itself on parse, and taken from
// this Geometry on build.
type Geometry struct {
	// TagLen is the fixed byte width of a directory tag. Default 3.
	TagLen int
	// LenLen is the digit width of a directory entry's length field.
	// Default 4.
	LenLen int
	// PosLen is the digit width of a directory entry's position field.
	// Default 5.
	PosLen int
	// CustomLen is the byte width of a directory entry's custom field.
	// Default 0.
	CustomLen int
	// FieldTerminator ends every field value and the directory. Default
	// '#'.
	FieldTerminator byte
	// RecordTerminator ends the record. Default '#'.
	RecordTerminator byte
}

// DefaultGeometry returns the ISO 2709 defaults from spec §6:
// len_len=4, pos_len=5, custom_len=0, tag_len=3, both terminators '#'.
func DefaultGeometry() Geometry {
	return Geometry{
		TagLen:           3,
		LenLen:           4,
		PosLen:           5,
		CustomLen:        0,
		FieldTerminator:  '#',
		RecordTerminator: '#',
	}
}

// TagLenOrDefault returns g.TagLen, or the default 3 when unset, for
// callers outside the package that need to pad tags before Encode.
func (g Geometry) TagLenOrDefault() int {
	return g.tagLen()
}

func (g Geometry) tagLen() int {
	if g.TagLen == 0 {
		return 3
	}
	return g.TagLen
}

func (g Geometry) lenLen() int {
	if g.LenLen == 0 {
		return 4
	}
	return g.LenLen
}

func (g Geometry) posLen() int {
	if g.PosLen == 0 {
		return 5
	}
	return g.PosLen
}

func (g Geometry) fieldTerminator() byte {
	if g.FieldTerminator == 0 {
		return '#'
	}
	return g.FieldTerminator
}

func (g Geometry) recordTerminator() byte {
	if g.RecordTerminator == 0 {
		return '#'
	}
	return g.RecordTerminator
}

// entrySize is the byte width of one directory entry under this
// geometry, using the widths given (which on parse come from the
// leader, not from g).
func (g Geometry) entrySize(lenLen, posLen, customLen int) int {
	return g.tagLen() + lenLen + posLen + customLen
}
