// Package cleaning applies one transform at a time to a table. Every
// operation returns a new table and one change record per mutation; the input
// table is never modified.
package cleaning

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
)

// Operation names a cleaning transform.
type Operation string

const (
	RemoveEmpty       Operation = "remove-empty"
	FillMean          Operation = "fill-mean"
	FillMedian        Operation = "fill-median"
	FillMode          Operation = "fill-mode"
	EncodeCategorical Operation = "encode-categorical"
)

// Operations lists every supported operation in display order.
var Operations = []Operation{RemoveEmpty, FillMean, FillMedian, FillMode, EncodeCategorical}

// Categorical encoding applies to string columns with strictly more than
// MinCategories and strictly fewer than MaxCategories distinct values.
const (
	MinCategories = 1
	MaxCategories = 20
)

// ErrUnknownOperation is returned for names outside Operations.
var ErrUnknownOperation = errors.New("unknown cleaning operation")

// ParseOperation validates a user-supplied operation name.
func ParseOperation(name string) (Operation, error) {
	op := Operation(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Operations {
		if op == known {
			return op, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOperation, name)
}

// Description is a short human label for the operation.
func (o Operation) Description() string {
	switch o {
	case RemoveEmpty:
		return "Remove rows with missing values"
	case FillMean:
		return "Fill missing numbers with the column mean"
	case FillMedian:
		return "Fill missing numbers with the column median"
	case FillMode:
		return "Fill missing values with the most frequent value"
	case EncodeCategorical:
		return "Label-encode low-cardinality text columns"
	}
	return string(o)
}

// ChangeRecord describes one mutation. Row is the index in the input table.
// Dropped rows use Column "all".
type ChangeRecord struct {
	Row       int          `json:"row"`
	Column    string       `json:"column"`
	OldValue  dataset.Cell `json:"oldValue"`
	NewValue  dataset.Cell `json:"newValue"`
	Operation Operation    `json:"operation"`
}

// Result is the output of Apply.
type Result struct {
	Table   *dataset.Table
	Changes []ChangeRecord
}

// Apply runs op against t. It either returns a complete new table or fails
// with ErrUnknownOperation without producing anything.
func Apply(t *dataset.Table, op Operation) (*Result, error) {
	if t == nil {
		return nil, errors.New("cleaning: nil table")
	}
	switch op {
	case RemoveEmpty:
		return removeEmpty(t), nil
	case FillMean, FillMedian, FillMode:
		return fillMissing(t, op), nil
	case EncodeCategorical:
		return encodeCategorical(t), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, op)
}

func rowHasMissing(columns []string, r dataset.Row) bool {
	for _, c := range columns {
		if v, ok := r[c]; !ok || v.IsMissing() {
			return true
		}
	}
	return false
}
