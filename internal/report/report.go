// Package report renders a Markdown summary of a table: schema, per-column
// statistics, correlations and a few sample rows.
package report

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Options controls what the report includes.
type Options struct {
	// SampleRows is how many leading rows to show; 0 means 5.
	SampleRows int
	// TopValues is how many frequent values to list for text columns; 0 means 5.
	TopValues int
	// OutlierThreshold flags numbers whose robust z-score (via MAD) exceeds
	// it. 0 disables outlier detection.
	OutlierThreshold float64
	// Correlations adds pairwise Pearson r between number columns.
	Correlations bool
}

// DefaultOptions returns reasonable defaults.
func DefaultOptions() Options {
	return Options{SampleRows: 5, TopValues: 5, OutlierThreshold: 3.5, Correlations: true}
}

// Report is a markdown-friendly analysis of a table.
type Report struct {
	Name    string
	Rows    int
	Missing int
	Cols    []ColumnSummary
	Samples []dataset.Row
	Corr    []PairCorr
}

// ColumnSummary captures the inferred type and statistics of one column.
type ColumnSummary struct {
	Name    string
	Type    dataset.ColumnType
	NonNull int
	Missing int
	Unique  int
	// Number columns
	Min, Max, Mean, Std, Median float64
	OutliersCount               int
	OutliersMaxAbsZ             float64
	OutlierThreshold            float64
	// Text columns
	TopValues []CategoryCount
}

type CategoryCount struct {
	Value string
	Count int
}

// PairCorr is a correlation between two number columns.
type PairCorr struct {
	A, B string
	R    float64
	N    int
}

// Build summarises t.
func Build(t *dataset.Table, opt Options) *Report {
	if opt.SampleRows <= 0 {
		opt.SampleRows = 5
	}
	if opt.TopValues <= 0 {
		opt.TopValues = 5
	}
	rep := &Report{
		Name:    t.Filename,
		Rows:    t.Statistics.TotalRows,
		Missing: t.Statistics.MissingValues,
	}
	for _, c := range t.Columns {
		rep.Cols = append(rep.Cols, summarise(t, c, opt))
	}
	for i := 0; i < len(t.Rows) && i < opt.SampleRows; i++ {
		rep.Samples = append(rep.Samples, t.Rows[i].Clone())
	}
	if opt.Correlations {
		rep.Corr = correlations(t)
	}
	return rep
}

func summarise(t *dataset.Table, col string, opt Options) ColumnSummary {
	cs := ColumnSummary{Name: col, Type: t.ColumnType(col)}
	counts := map[string]int{}
	var order []string
	var nums []float64
	for _, r := range t.Rows {
		v := r[col]
		if v.IsMissing() {
			cs.Missing++
			continue
		}
		cs.NonNull++
		key := v.String()
		if counts[key] == 0 {
			order = append(order, key)
		}
		counts[key]++
		if cs.Type == dataset.TypeNumber {
			if f, ok := v.Float(); ok {
				nums = append(nums, f)
			}
		}
	}
	cs.Unique = len(counts)

	switch cs.Type {
	case dataset.TypeNumber:
		if len(nums) == 0 {
			break
		}
		cs.Mean, cs.Std = stat.MeanStdDev(nums, nil)
		if math.IsNaN(cs.Std) {
			cs.Std = 0
		}
		cs.Min, _ = stats.Min(nums)
		cs.Max, _ = stats.Max(nums)
		cs.Median, _ = stats.Median(nums)
		if opt.OutlierThreshold > 0 {
			cs.OutlierThreshold = opt.OutlierThreshold
			cs.OutliersCount, cs.OutliersMaxAbsZ = outliers(nums, cs.Median, opt.OutlierThreshold)
		}
	case dataset.TypeString, dataset.TypeDate:
		sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
		for i := 0; i < len(order) && i < opt.TopValues; i++ {
			cs.TopValues = append(cs.TopValues, CategoryCount{Value: order[i], Count: counts[order[i]]})
		}
	}
	return cs
}

// outliers counts values whose robust z-score 0.6745*(x-median)/MAD exceeds
// threshold. A zero MAD yields no outliers.
func outliers(nums []float64, median, threshold float64) (int, float64) {
	mad, err := stats.MedianAbsoluteDeviation(nums)
	if err != nil || mad == 0 {
		return 0, 0
	}
	n, maxZ := 0, 0.0
	for _, x := range nums {
		z := math.Abs(0.6745 * (x - median) / mad)
		if z > threshold {
			n++
		}
		maxZ = math.Max(maxZ, z)
	}
	return n, maxZ
}

// correlations computes Pearson r for each pair of number columns over rows
// where both have a value, strongest first.
func correlations(t *dataset.Table) []PairCorr {
	var cols []string
	for _, c := range t.Columns {
		if t.ColumnType(c) == dataset.TypeNumber {
			cols = append(cols, c)
		}
	}
	var out []PairCorr
	for i := 0; i < len(cols); i++ {
		for j := i + 1; j < len(cols); j++ {
			var xs, ys []float64
			for _, r := range t.Rows {
				x, okx := r[cols[i]].Float()
				y, oky := r[cols[j]].Float()
				if okx && oky {
					xs = append(xs, x)
					ys = append(ys, y)
				}
			}
			if len(xs) < 3 {
				continue
			}
			rv := stat.Correlation(xs, ys, nil)
			if math.IsNaN(rv) {
				continue
			}
			out = append(out, PairCorr{A: cols[i], B: cols[j], R: rv, N: len(xs)})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return math.Abs(out[i].R) > math.Abs(out[j].R) })
	return out
}

// Markdown renders the report.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n", len(r.Cols)))
	cells := r.Rows * len(r.Cols)
	missPct := 0.0
	if cells > 0 {
		missPct = float64(r.Missing) * 100 / float64(cells)
	}
	b.WriteString(fmt.Sprintf("Missing values: %d (%.1f%%)\n\n", r.Missing, missPct))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		total := c.NonNull + c.Missing
		pct := 0.0
		if total > 0 {
			pct = float64(c.Missing) * 100 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", safeName(c.Name), c.Type, c.NonNull, pct))
		switch c.Type {
		case dataset.TypeNumber:
			if c.NonNull == 0 {
				break
			}
			b.WriteString(fmt.Sprintf("; min %.4g, max %.4g, mean %.4g, std %.4g, median %.4g", c.Min, c.Max, c.Mean, c.Std, c.Median))
			if c.OutlierThreshold > 0 {
				b.WriteString(fmt.Sprintf("; outliers: %d above |z|>%.1f", c.OutliersCount, c.OutlierThreshold))
				if c.OutliersMaxAbsZ > 0 {
					b.WriteString(fmt.Sprintf(" (max |z|≈%.2f)", c.OutliersMaxAbsZ))
				}
			}
		case dataset.TypeString, dataset.TypeDate:
			if len(c.TopValues) > 0 {
				b.WriteString("; top: ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
				if c.Unique > len(c.TopValues) {
					b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
				}
			}
		}
		b.WriteString("\n")
	}

	if len(r.Corr) > 0 {
		b.WriteString("\n[CORRELATIONS]\n")
		for i, p := range r.Corr {
			if i == 10 {
				break
			}
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f (n=%d)\n", p.A, p.B, p.R, p.N))
		}
	}

	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
		b.WriteString("| ")
		for i, c := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c.Name))
		}
		b.WriteString(" |\n| ")
		for i := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for _, row := range r.Samples {
			b.WriteString("| ")
			for i, c := range r.Cols {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := row[c.Name].String()
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
