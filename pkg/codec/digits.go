package codec

import (
	"fmt"
	"strconv"
)

var errNegative = fmt.Errorf("value must not be negative")

func errTooWide(value, width int) error {
	return fmt.Errorf("value %d does not fit in %d digits", value, width)
}

func itoa(value int) string {
	return strconv.Itoa(value)
}

// LeaderTotalLen reads total_len from the first 5 bytes of a leader
// without validating the rest of it, for streaming readers that must
// learn a record's length before reading the whole thing.
func LeaderTotalLen(leader []byte, offset int64) (int, error) {
	return parseDigits(leader, 0, 5, offset)
}
