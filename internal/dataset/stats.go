package dataset

// Statistics is derived from a table's rows and columns and is never
// authoritative; it can always be recomputed.
type Statistics struct {
	TotalRows     int                   `json:"totalRows"`
	TotalColumns  int                   `json:"totalColumns"`
	MissingValues int                   `json:"missingValues"`
	DataTypes     map[string]ColumnType `json:"dataTypes"`
}

// Clone copies the statistics including the type map.
func (s Statistics) Clone() Statistics {
	out := s
	if s.DataTypes != nil {
		out.DataTypes = make(map[string]ColumnType, len(s.DataTypes))
		for k, v := range s.DataTypes {
			out.DataTypes[k] = v
		}
	}
	return out
}

// ComputeStatistics counts rows, columns and missing cells and infers a type
// for every column.
func ComputeStatistics(columns []string, rows []Row) Statistics {
	return Statistics{
		TotalRows:     len(rows),
		TotalColumns:  len(columns),
		MissingValues: CountMissing(columns, rows),
		DataTypes:     InferTypes(columns, rows),
	}
}

// CountMissing counts (row, column) pairs whose cell is absent, null or empty.
func CountMissing(columns []string, rows []Row) int {
	n := 0
	for _, r := range rows {
		for _, c := range columns {
			v, ok := r[c]
			if !ok || v.IsMissing() {
				n++
			}
		}
	}
	return n
}
