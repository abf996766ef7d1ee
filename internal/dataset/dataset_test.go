package dataset

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func textRows(col string, vals ...string) []Row {
	rows := make([]Row, len(vals))
	for i, v := range vals {
		rows[i] = Row{col: Text(v)}
	}
	return rows
}

func TestInferTypes(t *testing.T) {
	cases := []struct {
		name string
		vals []string
		want ColumnType
	}{
		{"all numeric", []string{"1", "2.5", "-3e2"}, TypeNumber},
		{"mixed falls back to string", []string{"1", "2", "x"}, TypeString},
		{"dates", []string{"2024-08-10", "2024-08-12"}, TypeDate},
		{"years are numbers first", []string{"2024", "2025"}, TypeNumber},
		{"empty sample", []string{"", "", ""}, TypeUnknown},
		{"missing skipped", []string{"", "7", ""}, TypeNumber},
		{"date and text", []string{"2024-01-01", "soon"}, TypeString},
		{"nan is not a number", []string{"NaN", "1"}, TypeString},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := InferTypes([]string{"a"}, textRows("a", tc.vals...))
			assert.Equal(t, tc.want, got["a"])
		})
	}
}

func TestInferTypes_SampleOnlyFirstTen(t *testing.T) {
	var vals []string
	for i := 0; i < SampleSize; i++ {
		vals = append(vals, strconv.Itoa(i))
	}
	vals = append(vals, "not-a-number")
	got := InferTypes([]string{"a"}, textRows("a", vals...))
	assert.Equal(t, TypeNumber, got["a"])
}

func TestInferTypes_NumberCells(t *testing.T) {
	rows := []Row{{"a": Number(1)}, {"a": Number(2)}}
	assert.Equal(t, TypeNumber, InferTypes([]string{"a"}, rows)["a"])
}

func TestComputeStatistics(t *testing.T) {
	cols := []string{"Name", "Age"}
	rows := []Row{
		{"Name": Text("Ann"), "Age": Text("30")},
		{"Name": Text("Bob"), "Age": Text("")},
		{"Name": Null()},
	}
	st := ComputeStatistics(cols, rows)
	assert.Equal(t, 3, st.TotalRows)
	assert.Equal(t, 2, st.TotalColumns)
	assert.Equal(t, 3, st.MissingValues)
	assert.Equal(t, map[string]ColumnType{"Name": TypeString, "Age": TypeNumber}, st.DataTypes)
}

func TestNew_NormalisesRows(t *testing.T) {
	tbl := New([]string{"a", "b"}, []Row{{"a": Text("1"), "zzz": Text("dropped")}})
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, Row{"a": Text("1"), "b": Null()}, tbl.Rows[0])
	assert.Equal(t, 1, tbl.Statistics.MissingValues)
	assert.Equal(t, tbl.Statistics.TotalRows, len(tbl.Rows))
	assert.Equal(t, tbl.Statistics.TotalColumns, len(tbl.Columns))
}

func TestClone_IsIndependent(t *testing.T) {
	orig := New([]string{"a"}, []Row{{"a": Text("x")}})
	cp := orig.Clone()
	cp.Rows[0]["a"] = Number(9)
	cp.Columns[0] = "renamed"
	cp.Statistics.DataTypes["a"] = TypeNumber

	assert.Equal(t, Text("x"), orig.Rows[0]["a"])
	assert.Equal(t, "a", orig.Columns[0])
	assert.Equal(t, TypeString, orig.Statistics.DataTypes["a"])
}

func TestCellJSON(t *testing.T) {
	row := Row{"n": Number(2.5), "s": Text("hi"), "z": Null()}
	b, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":2.5,"s":"hi","z":null}`, string(b))

	var back Row
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, row, back)
}

func TestCellMissingAndFloat(t *testing.T) {
	assert.True(t, Null().IsMissing())
	assert.True(t, Text("").IsMissing())
	assert.False(t, Text(" ").IsMissing())
	assert.False(t, Number(0).IsMissing())

	f, ok := Text(" 42 ").Float()
	assert.True(t, ok)
	assert.Equal(t, 42.0, f)
	_, ok = Text("4x").Float()
	assert.False(t, ok)
	assert.Equal(t, "2.3333333333333335", Number(7.0/3).String())
}

func TestWriteCSV(t *testing.T) {
	tbl := New([]string{"Name", "Age"}, []Row{
		{"Name": Text("Ann"), "Age": Number(30)},
		{"Name": Text("Bob, Jr."), "Age": Null()},
	})
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl))
	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Name", "Age"}, {"Ann", "30"}, {"Bob, Jr.", ""}}, recs)
}

func TestWriteXLSX(t *testing.T) {
	tbl := New([]string{"Name", "Age"}, []Row{
		{"Name": Text("Ann"), "Age": Number(30)},
	})
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, tbl))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Name", "Age"}, {"Ann", "30"}}, rows)
}
