package heartbeat

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// unknownBlocks is the wire form of an unknown value.
const unknownBlocks = -1

// Blocks is a block height or block count that may be unknown.
// The zero value is unknown. On the wire unknown is written as -1.
type Blocks struct {
	n     int64
	known bool
}

// Unknown is the Blocks value for a height that could not be determined.
var Unknown = Blocks{}

// Known wraps n. Negative values are not valid heights and yield Unknown.
func Known(n int64) Blocks {
	if n < 0 {
		return Unknown
	}
	return Blocks{n: n, known: true}
}

// Value returns the height and whether it is known.
func (b Blocks) Value() (int64, bool) {
	return b.n, b.known
}

// IsKnown reports whether b holds a height.
func (b Blocks) IsKnown() bool {
	return b.known
}

// Exceeds reports whether b is known and strictly greater than limit.
func (b Blocks) Exceeds(limit int64) bool {
	return b.known && b.n > limit
}

// Int64 returns the value or -1 when unknown. Only for serialisation and display.
func (b Blocks) Int64() int64 {
	if !b.known {
		return unknownBlocks
	}
	return b.n
}

func (b Blocks) String() string {
	if !b.known {
		return "unknown"
	}
	return strconv.FormatInt(b.n, 10)
}

func (b Blocks) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(b.Int64(), 10)), nil
}

func (b *Blocks) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*b = Unknown
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*b = Known(n)
	return nil
}
