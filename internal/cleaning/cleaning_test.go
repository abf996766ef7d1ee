package cleaning

import (
	"fmt"
	"testing"

	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numbersTable(vals ...any) *dataset.Table {
	rows := make([]dataset.Row, len(vals))
	for i, v := range vals {
		switch x := v.(type) {
		case nil:
			rows[i] = dataset.Row{"v": dataset.Null()}
		case string:
			rows[i] = dataset.Row{"v": dataset.Text(x)}
		case int:
			rows[i] = dataset.Row{"v": dataset.Text(fmt.Sprint(x))}
		}
	}
	return dataset.New([]string{"v"}, rows)
}

func TestApply_UnknownOperation(t *testing.T) {
	tbl := numbersTable(1, 2)
	res, err := Apply(tbl, Operation("drop-everything"))
	require.ErrorIs(t, err, ErrUnknownOperation)
	assert.Nil(t, res)

	_, err = ParseOperation("nope")
	assert.ErrorIs(t, err, ErrUnknownOperation)
	op, err := ParseOperation(" Fill-Mean ")
	require.NoError(t, err)
	assert.Equal(t, FillMean, op)
}

func TestRemoveEmpty(t *testing.T) {
	tbl := dataset.New([]string{"a", "b"}, []dataset.Row{
		{"a": dataset.Text("1"), "b": dataset.Text("x")},
		{"a": dataset.Text(""), "b": dataset.Text("y")},
		{"a": dataset.Text("3"), "b": dataset.Null()},
		{"a": dataset.Text("4"), "b": dataset.Text("z")},
	})
	res, err := Apply(tbl, RemoveEmpty)
	require.NoError(t, err)

	out := res.Table
	assert.Equal(t, 2, out.Statistics.TotalRows)
	assert.Equal(t, 0, out.Statistics.MissingValues)
	assert.Equal(t, 0, dataset.CountMissing(out.Columns, out.Rows))
	assert.Equal(t, dataset.Text("4"), out.Rows[1]["a"])

	require.Len(t, res.Changes, 2)
	assert.Equal(t, 1, res.Changes[0].Row)
	assert.Equal(t, 2, res.Changes[1].Row)
	assert.Equal(t, "all", res.Changes[0].Column)
	assert.Equal(t, RemoveEmpty, res.Changes[0].Operation)

	// input untouched
	assert.Len(t, tbl.Rows, 4)
	assert.Equal(t, 2, tbl.Statistics.MissingValues)
}

func TestFillMeanAndMedian(t *testing.T) {
	tbl := numbersTable(1, 2, nil, 4)

	res, err := Apply(tbl, FillMean)
	require.NoError(t, err)
	got, ok := res.Table.Rows[2]["v"].Float()
	require.True(t, ok)
	assert.InDelta(t, 7.0/3.0, got, 1e-12)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, ChangeRecord{Row: 2, Column: "v", OldValue: dataset.Null(), NewValue: res.Table.Rows[2]["v"], Operation: FillMean}, res.Changes[0])
	assert.Equal(t, 0, res.Table.Statistics.MissingValues)

	res, err = Apply(tbl, FillMedian)
	require.NoError(t, err)
	assert.Equal(t, dataset.Number(2), res.Table.Rows[2]["v"])

	assert.Equal(t, dataset.Null(), tbl.Rows[2]["v"], "input must not change")
}

func TestFillMedian_EvenCount(t *testing.T) {
	res, err := Apply(numbersTable(4, 1, nil, 3, 2), FillMedian)
	require.NoError(t, err)
	assert.Equal(t, dataset.Number(2.5), res.Table.Rows[2]["v"])
}

func TestFillMode_TieKeepsFirstSeen(t *testing.T) {
	res, err := Apply(numbersTable(5, 7, 7, 5, nil), FillMode)
	require.NoError(t, err)
	assert.Equal(t, dataset.Number(5), res.Table.Rows[4]["v"])

	tbl := dataset.New([]string{"city"}, []dataset.Row{
		{"city": dataset.Text("Oslo")},
		{"city": dataset.Text("Rome")},
		{"city": dataset.Text("")},
		{"city": dataset.Text("Rome")},
	})
	res, err = Apply(tbl, FillMode)
	require.NoError(t, err)
	assert.Equal(t, dataset.Text("Rome"), res.Table.Rows[2]["city"])
}

func TestFill_StringColumnsOnlyForMode(t *testing.T) {
	tbl := dataset.New([]string{"city"}, []dataset.Row{
		{"city": dataset.Text("Oslo")},
		{"city": dataset.Text("")},
	})
	for _, op := range []Operation{FillMean, FillMedian} {
		res, err := Apply(tbl, op)
		require.NoError(t, err)
		assert.Empty(t, res.Changes, op)
		assert.Equal(t, 1, res.Table.Statistics.MissingValues)
	}
}

func TestFill_SkipsColumnWithoutValues(t *testing.T) {
	tbl := dataset.New([]string{"n", "empty"}, []dataset.Row{
		{"n": dataset.Text("1"), "empty": dataset.Null()},
		{"n": dataset.Text(""), "empty": dataset.Null()},
	})
	// Force a numeric declaration on a column with no values.
	tbl.Statistics.DataTypes["empty"] = dataset.TypeNumber
	res, err := Apply(tbl, FillMean)
	require.NoError(t, err)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, "n", res.Changes[0].Column)
	assert.Equal(t, 2, res.Table.Statistics.MissingValues)
}

func TestFill_CompletesNumberColumns(t *testing.T) {
	tbl := dataset.New([]string{"a", "b"}, []dataset.Row{
		{"a": dataset.Text("1"), "b": dataset.Text("")},
		{"a": dataset.Null(), "b": dataset.Text("10")},
		{"a": dataset.Text("3"), "b": dataset.Null()},
	})
	for _, op := range []Operation{FillMean, FillMedian, FillMode} {
		res, err := Apply(tbl, op)
		require.NoError(t, err)
		for _, r := range res.Table.Rows {
			assert.False(t, r["a"].IsMissing(), op)
			assert.False(t, r["b"].IsMissing(), op)
		}
		assert.Equal(t, 0, res.Table.Statistics.MissingValues)
	}
}

func stringColumn(n int) *dataset.Table {
	rows := make([]dataset.Row, 0, n+1)
	for i := 0; i < n; i++ {
		rows = append(rows, dataset.Row{"c": dataset.Text(fmt.Sprintf("cat-%c", 'a'+i))})
	}
	rows = append(rows, dataset.Row{"c": dataset.Text("")})
	return dataset.New([]string{"c"}, rows)
}

func TestEncodeCategorical_Boundaries(t *testing.T) {
	cases := []struct {
		distinct int
		encoded  bool
	}{
		{1, false},
		{2, true},
		{19, true},
		{20, false},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d distinct", tc.distinct), func(t *testing.T) {
			tbl := stringColumn(tc.distinct)
			require.Equal(t, dataset.TypeString, tbl.Statistics.DataTypes["c"])
			res, err := Apply(tbl, EncodeCategorical)
			require.NoError(t, err)
			if !tc.encoded {
				assert.Empty(t, res.Changes)
				assert.Equal(t, dataset.TypeString, res.Table.Statistics.DataTypes["c"])
				return
			}
			assert.Len(t, res.Changes, tc.distinct)
			assert.Equal(t, dataset.TypeNumber, res.Table.Statistics.DataTypes["c"])
			assert.Equal(t, dataset.Number(0), res.Table.Rows[0]["c"])
			assert.Equal(t, dataset.Number(1), res.Table.Rows[1]["c"])
			assert.True(t, res.Table.Rows[tc.distinct]["c"].IsMissing())
		})
	}
}

func TestEncodeCategorical_FirstSeenCodesAndTypesOnly(t *testing.T) {
	tbl := dataset.New([]string{"size", "n"}, []dataset.Row{
		{"size": dataset.Text("M"), "n": dataset.Text("1")},
		{"size": dataset.Text("S"), "n": dataset.Text("2")},
		{"size": dataset.Text("M"), "n": dataset.Text("3")},
	})
	res, err := Apply(tbl, EncodeCategorical)
	require.NoError(t, err)
	assert.Equal(t, []dataset.Cell{dataset.Number(0), dataset.Number(1), dataset.Number(0)},
		[]dataset.Cell{res.Table.Rows[0]["size"], res.Table.Rows[1]["size"], res.Table.Rows[2]["size"]})
	assert.Equal(t, dataset.Text("2"), res.Table.Rows[1]["n"], "number columns are untouched")
	assert.Equal(t, dataset.Text("M"), tbl.Rows[0]["size"], "input must not change")
	assert.Equal(t, dataset.TypeString, tbl.Statistics.DataTypes["size"])
}

func TestApply_Deterministic(t *testing.T) {
	tbl := dataset.New([]string{"a", "b"}, []dataset.Row{
		{"a": dataset.Text("x"), "b": dataset.Text("1")},
		{"a": dataset.Text("y"), "b": dataset.Text("")},
		{"a": dataset.Text(""), "b": dataset.Text("2")},
	})
	for _, op := range Operations {
		r1, err := Apply(tbl, op)
		require.NoError(t, err)
		r2, err := Apply(tbl, op)
		require.NoError(t, err)
		assert.Equal(t, r1, r2, op)
	}
}

func TestFill_LargeValuesStayFinite(t *testing.T) {
	tbl := numbersTable("1.7e308", "1.7e308", nil)
	for _, op := range []Operation{FillMean, FillMedian} {
		res, err := Apply(tbl, op)
		require.NoError(t, err)
		require.Len(t, res.Changes, 1, op)
		got, ok := res.Table.Rows[2]["v"].Float()
		require.True(t, ok, op)
		assert.Equal(t, 1.7e308, got, op)
	}

	// Opposite extremes overflow even incrementally; the column is skipped.
	res, err := Apply(numbersTable("1.7e308", "-1.7e308", "1.7e308", nil), FillMean)
	require.NoError(t, err)
	assert.Empty(t, res.Changes)
	assert.Equal(t, 1, res.Table.Statistics.MissingValues)
}
