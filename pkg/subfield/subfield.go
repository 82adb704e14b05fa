// Package subfield implements the subfield mini-language (component B):
// translating a raw ISO/MST field value into the {pairs, nest, field}
// structured forms consumed by the JSONL front end, and back.
package subfield

import (
	"strconv"
	"strings"
)

// Mode selects how a field value is structured.
type Mode string

const (
	// ModeField is the identity mode: the raw string, untouched.
	ModeField Mode = "field"
	// ModePairs parses the value into an ordered sequence of [key, value]
	// pairs.
	ModePairs Mode = "pairs"
	// ModeNest parses the value into a {key: value} map. Lossy: a
	// repeated key keeps only its last value.
	ModeNest Mode = "nest"
)

// DefaultPrefix is the subfield delimiter byte, "^".
const DefaultPrefix = '^'

// PrefixKey is the implicit key given to text preceding the first
// delimiter.
const PrefixKey = "_"

// NumberKey is the synthetic key used by Options.WithNumber to carry the
// field's 1-based occurrence index among same-tag fields.
const NumberKey = "#"

// Pair is a single (key, value) subfield, encoded as a JSON two-element
// array.
type Pair [2]string

// Key returns the subfield key.
func (p Pair) Key() string { return p[0] }

// Value returns the subfield value.
func (p Pair) Value() string { return p[1] }

// Options configures the subfield codec.
type Options struct {
	// Prefix is the delimiter byte introducing a subfield key. Defaults
	// to '^' when zero.
	Prefix byte
	// KeyLen is the number of bytes making up a subfield key after the
	// prefix. Defaults to 1 when zero.
	KeyLen int
	// WithNumber prepends a "#" pair carrying the field's 1-based
	// occurrence index among same-tag fields. Defaults to true; the
	// zero value of Options therefore behaves as WithNumber=false, so
	// callers should start from DefaultOptions().
	WithNumber bool
}

// DefaultOptions returns the codec defaults: '^' prefix, 1-byte keys,
// numbering enabled.
func DefaultOptions() Options {
	return Options{Prefix: DefaultPrefix, KeyLen: 1, WithNumber: true}
}

func (o Options) prefix() byte {
	if o.Prefix == 0 {
		return DefaultPrefix
	}
	return o.Prefix
}

func (o Options) keyLen() int {
	if o.KeyLen == 0 {
		return 1
	}
	return o.KeyLen
}

// SplitPairs parses raw into an ordered sequence of subfield pairs. Text
// before the first delimiter, if any, becomes a leading pair keyed
// PrefixKey ("_"); an empty leading segment (the value starts with the
// delimiter) produces no leading pair at all.
func SplitPairs(raw string, opts Options) []Pair {
	prefix := opts.prefix()
	keyLen := opts.keyLen()

	var pairs []Pair
	first := strings.IndexByte(raw, prefix)
	if first != 0 && raw != "" {
		end := first
		if end < 0 {
			end = len(raw)
		}
		pairs = append(pairs, Pair{PrefixKey, raw[:end]})
	}
	if first < 0 {
		return pairs
	}

	i := first
	for i < len(raw) {
		keyStart := i + 1
		keyEnd := keyStart + keyLen
		if keyEnd > len(raw) {
			keyEnd = len(raw)
		}
		key := raw[keyStart:keyEnd]
		rest := raw[keyEnd:]
		next := strings.IndexByte(rest, prefix)
		var value string
		if next < 0 {
			value = rest
			i = len(raw)
		} else {
			value = rest[:next]
			i = keyEnd + next
		}
		pairs = append(pairs, Pair{key, value})
	}
	return pairs
}

// Nest parses raw into a {key: value} map. When a key repeats, the last
// occurrence wins; this is the documented lossy hazard inherited from
// the source tool.
func Nest(raw string, opts Options) map[string]string {
	pairs := SplitPairs(raw, opts)
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		out[p.Key()] = p.Value()
	}
	return out
}

// JoinPairs rebuilds the raw field value from an ordered sequence of
// pairs, the inverse of SplitPairs. A synthetic NumberKey ("#") pair,
// wherever it appears, is dropped: it never corresponds to raw bytes.
func JoinPairs(pairs []Pair, opts Options) string {
	prefix := opts.prefix()
	var sb strings.Builder
	leading := true
	for _, p := range pairs {
		if p.Key() == NumberKey {
			continue
		}
		if leading && p.Key() == PrefixKey {
			sb.WriteString(p.Value())
			leading = false
			continue
		}
		leading = false
		sb.WriteByte(prefix)
		sb.WriteString(p.Key())
		sb.WriteString(p.Value())
	}
	return sb.String()
}

// JoinNest rebuilds a raw field value from a {key: value} map. Key
// iteration order is undefined for Go maps, so this is only meaningful
// for single-key or externally-ordered callers; nest mode's round-trip
// is documented as undefined when keys repeat or ordering matters.
func JoinNest(nest map[string]string, opts Options) string {
	pairs := make([]Pair, 0, len(nest))
	for k, v := range nest {
		if k == NumberKey {
			continue
		}
		pairs = append(pairs, Pair{k, v})
	}
	return JoinPairs(pairs, opts)
}

// Split converts raw into the structured form named by mode, prepending
// the numbering pair when opts.WithNumber is set and mode isn't
// ModeField. occurrence is the field's 1-based index among fields
// sharing its tag.
func Split(raw string, mode Mode, occurrence int, opts Options) interface{} {
	switch mode {
	case ModeField, "":
		return raw
	case ModePairs:
		pairs := SplitPairs(raw, opts)
		if opts.WithNumber {
			pairs = append([]Pair{{NumberKey, strconv.Itoa(occurrence)}}, pairs...)
		}
		return pairs
	case ModeNest:
		nest := Nest(raw, opts)
		if opts.WithNumber {
			nest[NumberKey] = strconv.Itoa(occurrence)
		}
		return nest
	default:
		return raw
	}
}
