package dataset

// ColumnType is the semantic type inferred for a column.
type ColumnType string

const (
	TypeNumber  ColumnType = "number"
	TypeDate    ColumnType = "date"
	TypeString  ColumnType = "string"
	TypeUnknown ColumnType = "unknown"
)

// Valid reports whether t is one of the known column types.
func (t ColumnType) Valid() bool {
	switch t {
	case TypeNumber, TypeDate, TypeString, TypeUnknown:
		return true
	}
	return false
}

// Row maps column name to cell.
type Row map[string]Cell

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table is an in-memory dataset: ordered columns, rows keyed by column name,
// and statistics derived from both.
type Table struct {
	Filename   string     `json:"filename"`
	Size       int64      `json:"size"`
	MimeType   string     `json:"mimeType"`
	Columns    []string   `json:"columns"`
	Rows       []Row      `json:"rows"`
	Statistics Statistics `json:"statistics"`
}

// New builds a table from columns and rows. Every row is normalised to carry
// exactly the given columns (absent keys become Null, unknown keys are
// dropped) and statistics are computed.
func New(columns []string, rows []Row) *Table {
	cols := append([]string(nil), columns...)
	norm := make([]Row, len(rows))
	for i, r := range rows {
		nr := make(Row, len(cols))
		for _, c := range cols {
			nr[c] = r[c]
		}
		norm[i] = nr
	}
	return &Table{
		Columns:    cols,
		Rows:       norm,
		Statistics: ComputeStatistics(cols, norm),
	}
}

// Clone deep-copies the table so that the copy can be modified freely.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{
		Filename:   t.Filename,
		Size:       t.Size,
		MimeType:   t.MimeType,
		Columns:    append([]string(nil), t.Columns...),
		Rows:       make([]Row, len(t.Rows)),
		Statistics: t.Statistics.Clone(),
	}
	for i, r := range t.Rows {
		out.Rows[i] = r.Clone()
	}
	return out
}

// HasColumn reports whether name is one of the table's columns.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// ColumnType returns the recorded type for a column, or TypeUnknown.
func (t *Table) ColumnType(name string) ColumnType {
	if ct, ok := t.Statistics.DataTypes[name]; ok {
		return ct
	}
	return TypeUnknown
}
