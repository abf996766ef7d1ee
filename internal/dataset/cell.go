package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind tags the variant held by a Cell.
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	default:
		return "null"
	}
}

// Cell is a single table value: a number, a piece of text, or null.
// The zero value is Null.
type Cell struct {
	kind Kind
	num  float64
	text string
}

// Null returns the missing-value marker.
func Null() Cell { return Cell{} }

// Number wraps a float64.
func Number(f float64) Cell { return Cell{kind: KindNumber, num: f} }

// Text wraps a string. Text("") counts as missing.
func Text(s string) Cell { return Cell{kind: KindText, text: s} }

// Kind reports which variant the cell holds.
func (c Cell) Kind() Kind { return c.kind }

// IsMissing reports whether the cell is null or empty text.
func (c Cell) IsMissing() bool {
	return c.kind == KindNull || (c.kind == KindText && c.text == "")
}

// Float attempts a numeric reading of the cell. Number cells always succeed;
// text cells succeed when the trimmed text parses as a finite number.
func (c Cell) Float() (float64, bool) {
	switch c.kind {
	case KindNumber:
		return c.num, true
	case KindText:
		return ParseNumber(c.text)
	default:
		return 0, false
	}
}

// String renders the cell the way it is displayed and exported.
func (c Cell) String() string {
	switch c.kind {
	case KindNumber:
		return strconv.FormatFloat(c.num, 'f', -1, 64)
	case KindText:
		return c.text
	default:
		return ""
	}
}

// GoString makes test failure output readable.
func (c Cell) GoString() string {
	switch c.kind {
	case KindNumber:
		return fmt.Sprintf("Number(%v)", c.num)
	case KindText:
		return fmt.Sprintf("Text(%q)", c.text)
	default:
		return "Null()"
	}
}

// MarshalJSON encodes numbers as JSON numbers, text as strings and null as null.
func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case KindNumber:
		return json.Marshal(c.num)
	case KindText:
		return json.Marshal(c.text)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (c *Cell) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*c = Null()
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("decode text cell: %w", err)
		}
		*c = Text(s)
	default:
		var f float64
		if err := json.Unmarshal(b, &f); err != nil {
			return fmt.Errorf("decode number cell: %w", err)
		}
		*c = Number(f)
	}
	return nil
}
