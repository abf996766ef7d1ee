package cleaning

import (
	"math"

	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
	"github.com/montanaflynn/stats"
)

func fillMissing(t *dataset.Table, op Operation) *Result {
	out := t.Clone()
	var changes []ChangeRecord
	for _, col := range out.Columns {
		var fill dataset.Cell
		switch out.ColumnType(col) {
		case dataset.TypeNumber:
			v, ok := numericFill(numericValues(out.Rows, col), op)
			if !ok {
				continue
			}
			fill = dataset.Number(v)
		case dataset.TypeString:
			if op != FillMode {
				continue
			}
			vals := textValues(out.Rows, col)
			if len(vals) == 0 {
				continue
			}
			fill = dataset.Text(mode(vals))
		default:
			continue
		}
		for i, r := range out.Rows {
			if !r[col].IsMissing() {
				continue
			}
			changes = append(changes, ChangeRecord{
				Row:       i,
				Column:    col,
				OldValue:  r[col],
				NewValue:  fill,
				Operation: op,
			})
			r[col] = fill
		}
	}
	out.Statistics.MissingValues = dataset.CountMissing(out.Columns, out.Rows)
	return &Result{Table: out, Changes: changes}
}

// numericFill computes the statistic for op. It reports false when there is
// nothing to compute from or the result is not a finite number.
func numericFill(vals []float64, op Operation) (float64, bool) {
	if len(vals) == 0 {
		return 0, false
	}
	var (
		v   float64
		err error
	)
	switch op {
	case FillMean:
		v = runningMean(vals)
	case FillMedian:
		v, err = stats.Median(vals)
		if err == nil && math.IsInf(v, 0) {
			// The middle pair overflowed when summed; halving is exact.
			v, err = stats.Median(halve(vals))
			v *= 2
		}
	default:
		v = mode(vals)
	}
	return v, err == nil && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// runningMean is the incremental mean, which stays finite for large inputs
// where summing first would overflow.
func runningMean(vals []float64) float64 {
	var mean float64
	for i, x := range vals {
		mean += (x - mean) / float64(i+1)
	}
	return mean
}

func halve(vals []float64) []float64 {
	out := make([]float64, len(vals))
	for i, x := range vals {
		out[i] = x / 2
	}
	return out
}

func numericValues(rows []dataset.Row, col string) []float64 {
	vals := make([]float64, 0, len(rows))
	for _, r := range rows {
		c := r[col]
		if c.IsMissing() {
			continue
		}
		if f, ok := c.Float(); ok {
			vals = append(vals, f)
		}
	}
	return vals
}

func textValues(rows []dataset.Row, col string) []string {
	vals := make([]string, 0, len(rows))
	for _, r := range rows {
		if c := r[col]; !c.IsMissing() {
			vals = append(vals, c.String())
		}
	}
	return vals
}

// mode returns the most frequent value; on ties the value seen first wins.
func mode[T comparable](vals []T) T {
	counts := make(map[T]int, len(vals))
	order := make([]T, 0, len(vals))
	for _, v := range vals {
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}
	var best T
	bestN := 0
	for _, v := range order {
		if counts[v] > bestN {
			best, bestN = v, counts[v]
		}
	}
	return best
}
