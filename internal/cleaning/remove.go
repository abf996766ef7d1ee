package cleaning

import "github.com/KaramelBytes/tabloom-cli/internal/dataset"

func removeEmpty(t *dataset.Table) *Result {
	out := &dataset.Table{
		Filename:   t.Filename,
		Size:       t.Size,
		MimeType:   t.MimeType,
		Columns:    append([]string(nil), t.Columns...),
		Rows:       make([]dataset.Row, 0, len(t.Rows)),
		Statistics: t.Statistics.Clone(),
	}
	var changes []ChangeRecord
	for i, r := range t.Rows {
		if rowHasMissing(t.Columns, r) {
			changes = append(changes, ChangeRecord{
				Row:       i,
				Column:    "all",
				OldValue:  dataset.Text("row with empty values"),
				NewValue:  dataset.Text("removed"),
				Operation: RemoveEmpty,
			})
			continue
		}
		out.Rows = append(out.Rows, r.Clone())
	}
	// Survivors are complete by construction.
	out.Statistics.TotalRows = len(out.Rows)
	out.Statistics.MissingValues = 0
	return &Result{Table: out, Changes: changes}
}
