package cleaning

import "github.com/KaramelBytes/tabloom-cli/internal/dataset"

// encodeCategorical label-encodes string columns in first-seen order. Codes
// start at 0. Missing cells are left missing.
func encodeCategorical(t *dataset.Table) *Result {
	out := t.Clone()
	if out.Statistics.DataTypes == nil {
		out.Statistics.DataTypes = make(map[string]dataset.ColumnType)
	}
	var changes []ChangeRecord
	for _, col := range out.Columns {
		if out.ColumnType(col) != dataset.TypeString {
			continue
		}
		codes := make(map[string]int)
		for _, r := range out.Rows {
			c := r[col]
			if c.IsMissing() {
				continue
			}
			if _, ok := codes[c.String()]; !ok {
				codes[c.String()] = len(codes)
			}
		}
		if len(codes) <= MinCategories || len(codes) >= MaxCategories {
			continue
		}
		for i, r := range out.Rows {
			c := r[col]
			if c.IsMissing() {
				continue
			}
			nv := dataset.Number(float64(codes[c.String()]))
			changes = append(changes, ChangeRecord{
				Row:       i,
				Column:    col,
				OldValue:  c,
				NewValue:  nv,
				Operation: EncodeCategorical,
			})
			r[col] = nv
		}
		out.Statistics.DataTypes[col] = dataset.TypeNumber
	}
	return &Result{Table: out, Changes: changes}
}
