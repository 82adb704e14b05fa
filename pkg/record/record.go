// Package record implements the dictionary view (component G): the
// common in-memory shape `{tag: [value, ...]}`, with first-appearance
// tag ordering, that mediates between the binary codecs and JSONL.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/bireme/ioisis-go/pkg/codec"
	"github.com/bireme/ioisis-go/pkg/encoding"
	"github.com/bireme/ioisis-go/pkg/ioerr"
	"github.com/bireme/ioisis-go/pkg/subfield"
)

// Dict is an ordered {tag: [value, ...]} mapping. Iteration order is
// first-appearance order on read, declared order on write; a sorted
// container is not an acceptable substitute, since key order is
// semantically significant in JSONL output.
type Dict struct {
	order  []string
	values map[string][]interface{}
}

// NewDict returns an empty Dict.
func NewDict() *Dict {
	return &Dict{values: make(map[string][]interface{})}
}

// Append adds value to tag's sequence, registering tag in iteration
// order the first time it's seen.
func (d *Dict) Append(tag string, value interface{}) {
	if _, ok := d.values[tag]; !ok {
		d.order = append(d.order, tag)
	}
	d.values[tag] = append(d.values[tag], value)
}

// Tags returns the tags in first-appearance order.
func (d *Dict) Tags() []string {
	return d.order
}

// Values returns tag's value sequence, or nil if tag was never
// appended.
func (d *Dict) Values(tag string) []interface{} {
	return d.values[tag]
}

// Len returns the number of distinct tags.
func (d *Dict) Len() int {
	return len(d.order)
}

// MarshalJSON writes the dict as a JSON object with keys in
// first-appearance order, which encoding/json cannot do for a plain
// Go map.
func (d *Dict) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, tag := range d.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(tag)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(d.values[tag])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object preserving key order, using a
// token-based decode since unmarshaling into a map loses it.
func (d *Dict) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("record: expected a JSON object")
	}

	d.order = nil
	d.values = make(map[string][]interface{})
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("record: expected a string object key")
		}
		var values []interface{}
		if err := dec.Decode(&values); err != nil {
			return fmt.Errorf("record: tag %q: %w", key, err)
		}
		if _, seen := d.values[key]; !seen {
			d.order = append(d.order, key)
		}
		d.values[key] = values
	}
	return nil
}

// ReservedMFNKey and ReservedActiveKey are the JSONL keys used to
// surface MST-only metadata alongside the tag map; the mst2jsonl
// subcommand writes both on every record.
const (
	ReservedMFNKey    = "mfn"
	ReservedActiveKey = "active"
)

// FromFields builds a Dict from a decoded record's fields, applying
// the byte encoding and, when mode isn't ModeField, the subfield
// codec. occurrence counting for the with-number flag is per-tag,
// resetting for each distinct tag.
func FromFields(fields []codec.Field, encName string, mode subfield.Mode, opts subfield.Options) (*Dict, error) {
	dict := NewDict()
	occurrence := make(map[string]int)
	for _, f := range fields {
		rawTag, err := encoding.Decode(f.Tag, encName)
		if err != nil {
			return nil, err
		}
		tag := stripLeadingZeros(rawTag)
		value, err := encoding.Decode(f.Value, encName)
		if err != nil {
			return nil, err
		}
		occurrence[tag]++
		dict.Append(tag, subfield.Split(value, mode, occurrence[tag], opts))
	}
	return dict, nil
}

// ToFields is the inverse of FromFields: it flattens a Dict's
// structured values back into raw byte fields in declared order,
// re-joining subfield structure and encoding tag and value bytes.
func ToFields(dict *Dict, encName string, mode subfield.Mode, opts subfield.Options) ([]codec.Field, error) {
	var fields []codec.Field
	for _, tag := range dict.Tags() {
		tagBytes, err := encoding.Encode(tag, encName)
		if err != nil {
			return nil, err
		}
		for _, v := range dict.Values(tag) {
			raw, err := joinValue(v, mode, opts)
			if err != nil {
				return nil, err
			}
			valueBytes, err := encoding.Encode(raw, encName)
			if err != nil {
				return nil, err
			}
			fields = append(fields, codec.Field{Tag: append([]byte(nil), tagBytes...), Value: valueBytes})
		}
	}
	return fields, nil
}

// stripLeadingZeros drops a zero-padded ISO tag's leading zeros, so
// "001" and the MST reader's bare "1" surface as the same JSONL key;
// an all-zero tag collapses to "0" rather than the empty string.
func stripLeadingZeros(tag string) string {
	trimmed := strings.TrimLeft(tag, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}

func joinValue(v interface{}, mode subfield.Mode, opts subfield.Options) (string, error) {
	switch mode {
	case subfield.ModeField, "":
		s, ok := v.(string)
		if !ok {
			return "", ioerr.NewFormatError(0, "field mode expects a string value, got %T", v)
		}
		return s, nil
	case subfield.ModePairs:
		pairs, err := toPairs(v)
		if err != nil {
			return "", err
		}
		return subfield.JoinPairs(pairs, opts), nil
	case subfield.ModeNest:
		nest, err := toNest(v)
		if err != nil {
			return "", err
		}
		return subfield.JoinNest(nest, opts), nil
	default:
		return "", ioerr.NewFormatError(0, "unknown subfield mode %q", mode)
	}
}

// toPairs accepts either []subfield.Pair (produced in-process by
// FromFields) or the []interface{} shape produced by decoding JSON
// (each element a two-element []interface{} of strings).
func toPairs(v interface{}) ([]subfield.Pair, error) {
	switch pairs := v.(type) {
	case []subfield.Pair:
		return pairs, nil
	case []interface{}:
		out := make([]subfield.Pair, 0, len(pairs))
		for _, item := range pairs {
			pair, err := decodeJSONPair(item)
			if err != nil {
				return nil, err
			}
			out = append(out, pair)
		}
		return out, nil
	default:
		return nil, ioerr.NewFormatError(0, "pairs mode expects an array value, got %T", v)
	}
}

func decodeJSONPair(item interface{}) (subfield.Pair, error) {
	arr, ok := item.([]interface{})
	if !ok || len(arr) != 2 {
		return subfield.Pair{}, ioerr.NewFormatError(0, "pairs mode expects two-element arrays, got %v", item)
	}
	key, ok1 := arr[0].(string)
	val, ok2 := arr[1].(string)
	if !ok1 || !ok2 {
		return subfield.Pair{}, ioerr.NewFormatError(0, "pairs mode expects string keys and values, got %v", arr)
	}
	return subfield.Pair{key, val}, nil
}

// toNest accepts either map[string]string (produced in-process) or
// map[string]interface{} (produced by decoding JSON).
func toNest(v interface{}) (map[string]string, error) {
	switch nest := v.(type) {
	case map[string]string:
		return nest, nil
	case map[string]interface{}:
		out := make(map[string]string, len(nest))
		for k, raw := range nest {
			s, ok := raw.(string)
			if !ok {
				return nil, ioerr.NewFormatError(0, "nest mode expects string values, got %T for key %q", raw, k)
			}
			out[k] = s
		}
		return out, nil
	default:
		return nil, ioerr.NewFormatError(0, "nest mode expects an object value, got %T", v)
	}
}

// WithMFN copies dict, prepending the reserved mfn/active keys so
// they appear before the tag map in JSONL output, matching an
// MST-sourced record's declared field order.
func WithMFN(dict *Dict, mfn int, active bool) *Dict {
	out := NewDict()
	out.Append(ReservedMFNKey, mfn)
	out.Append(ReservedActiveKey, active)
	for _, tag := range dict.Tags() {
		for _, v := range dict.Values(tag) {
			out.Append(tag, v)
		}
	}
	return out
}

// SplitMFN extracts the reserved mfn/active keys from dict, if
// present, returning the remaining tag map unmodified. Used when
// converting an MST-sourced JSONL record back toward ISO, where those
// keys have no field representation.
func SplitMFN(dict *Dict) (mfn int, active bool, hasMFN bool, rest *Dict) {
	rest = NewDict()
	for _, tag := range dict.Tags() {
		values := dict.Values(tag)
		switch tag {
		case ReservedMFNKey:
			hasMFN = true
			if len(values) > 0 {
				mfn = toInt(values[0])
			}
		case ReservedActiveKey:
			if len(values) > 0 {
				if b, ok := values[0].(bool); ok {
					active = b
				}
			}
		default:
			for _, v := range values {
				rest.Append(tag, v)
			}
		}
	}
	return mfn, active, hasMFN, rest
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	default:
		return 0
	}
}
