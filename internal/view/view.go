// Package view filters, searches, sorts and paginates a table for display.
// It never modifies the table it is given.
package view

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
	"golang.org/x/text/cases"
)

// DefaultPageSize applies when a query does not set one.
const DefaultPageSize = 20

// SortOrder is asc or desc.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// ParseSortOrder accepts asc, desc or empty (asc).
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case "", Asc:
		return Asc, nil
	case Desc:
		return Desc, nil
	}
	return "", fmt.Errorf("invalid sort order %q (use asc or desc)", s)
}

// Query describes what the caller wants to see. Zero values disable each
// step: no type filter, no search, no sort, first page of DefaultPageSize.
type Query struct {
	Search     string
	Column     string
	DataType   dataset.ColumnType
	SortColumn string
	SortOrder  SortOrder
	Page       int
	PageSize   int
}

// Page is one page of matched rows. Indexes holds each row's position in the
// source table.
type Page struct {
	Rows         []dataset.Row `json:"rows"`
	Indexes      []int         `json:"indexes"`
	TotalMatched int           `json:"totalMatched"`
	Page         int           `json:"page"`
	PageSize     int           `json:"pageSize"`
	TotalPages   int           `json:"totalPages"`
}

// Apply runs the type filter, then the search, then the sort, then slices
// out the requested page. Returned rows are copies.
func Apply(t *dataset.Table, q Query) Page {
	size := q.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	if t == nil {
		return Page{Page: 1, PageSize: size, TotalPages: 1}
	}

	idx := make([]int, 0, len(t.Rows))
	for i := range t.Rows {
		idx = append(idx, i)
	}
	idx = filterType(t, idx, q.DataType)

	fold := cases.Fold()
	idx = search(t, idx, q.Search, q.Column, fold)

	if q.SortColumn != "" && t.HasColumn(q.SortColumn) {
		desc := q.SortOrder == Desc
		slices.SortStableFunc(idx, func(a, b int) int {
			c := compareCells(t.Rows[a][q.SortColumn], t.Rows[b][q.SortColumn], fold)
			if desc {
				return -c
			}
			return c
		})
	}

	total := len(idx)
	pages := max(1, (total+size-1)/size)
	page := min(max(q.Page, 1), pages)

	lo := min((page-1)*size, total)
	hi := min(lo+size, total)
	out := Page{
		Rows:         make([]dataset.Row, 0, hi-lo),
		Indexes:      append([]int(nil), idx[lo:hi]...),
		TotalMatched: total,
		Page:         page,
		PageSize:     size,
		TotalPages:   pages,
	}
	for _, i := range idx[lo:hi] {
		out.Rows = append(out.Rows, t.Rows[i].Clone())
	}
	return out
}

// filterType keeps rows with a non-missing value in at least one column of
// the wanted type. Empty or "all" keeps everything.
func filterType(t *dataset.Table, idx []int, want dataset.ColumnType) []int {
	if want == "" || want == "all" {
		return idx
	}
	var cols []string
	for _, c := range t.Columns {
		if t.ColumnType(c) == want {
			cols = append(cols, c)
		}
	}
	out := idx[:0:0]
	for _, i := range idx {
		for _, c := range cols {
			if !t.Rows[i][c].IsMissing() {
				out = append(out, i)
				break
			}
		}
	}
	return out
}

// search keeps rows whose rendered value contains term under Unicode case
// folding. An unknown column falls back to searching every column.
func search(t *dataset.Table, idx []int, term, column string, fold cases.Caser) []int {
	if term == "" {
		return idx
	}
	needle := fold.String(term)
	cols := t.Columns
	if column != "" && t.HasColumn(column) {
		cols = []string{column}
	}
	out := idx[:0:0]
	for _, i := range idx {
		for _, c := range cols {
			if strings.Contains(fold.String(t.Rows[i][c].String()), needle) {
				out = append(out, i)
				break
			}
		}
	}
	return out
}

// compareCells orders missing values after everything else, numbers
// numerically when both sides parse, and text by folded comparison.
func compareCells(a, b dataset.Cell, fold cases.Caser) int {
	am, bm := a.IsMissing(), b.IsMissing()
	switch {
	case am && bm:
		return 0
	case am:
		return 1
	case bm:
		return -1
	}
	if x, ok := a.Float(); ok {
		if y, ok := b.Float(); ok {
			return cmp.Compare(x, y)
		}
	}
	return strings.Compare(fold.String(a.String()), fold.String(b.String()))
}
