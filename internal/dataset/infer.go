package dataset

// SampleSize is how many non-missing values per column feed type inference.
const SampleSize = 10

// InferTypes assigns a ColumnType to every column from the first SampleSize
// non-missing values in row order. Numbers win over dates, dates over strings.
func InferTypes(columns []string, rows []Row) map[string]ColumnType {
	out := make(map[string]ColumnType, len(columns))
	for _, c := range columns {
		out[c] = inferColumn(c, rows)
	}
	return out
}

func inferColumn(col string, rows []Row) ColumnType {
	sample := make([]Cell, 0, SampleSize)
	for _, r := range rows {
		v, ok := r[col]
		if !ok || v.IsMissing() {
			continue
		}
		sample = append(sample, v)
		if len(sample) == SampleSize {
			break
		}
	}
	if len(sample) == 0 {
		return TypeUnknown
	}
	numeric := true
	for _, v := range sample {
		if _, ok := v.Float(); !ok {
			numeric = false
			break
		}
	}
	if numeric {
		return TypeNumber
	}
	for _, v := range sample {
		if v.Kind() != KindText {
			return TypeString
		}
		if _, ok := ParseDate(v.String()); !ok {
			return TypeString
		}
	}
	return TypeDate
}
