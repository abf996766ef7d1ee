package parser_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
	"github.com/KaramelBytes/tabloom-cli/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func parseString(t *testing.T, content, filename, mime string) (*dataset.Table, error) {
	t.Helper()
	return parser.Parse(context.Background(), strings.NewReader(content), filename, mime)
}

func TestParseCSV_NameAge(t *testing.T) {
	tbl, err := parseString(t, "Name,Age\nAnn,30\nBob,\n", "people.csv", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "Age"}, tbl.Columns)
	assert.Equal(t, 2, tbl.Statistics.TotalRows)
	assert.Equal(t, 2, tbl.Statistics.TotalColumns)
	assert.Equal(t, 1, tbl.Statistics.MissingValues)
	assert.Equal(t, map[string]dataset.ColumnType{"Name": dataset.TypeString, "Age": dataset.TypeNumber}, tbl.Statistics.DataTypes)
	assert.Equal(t, "people.csv", tbl.Filename)
	assert.Equal(t, int64(len("Name,Age\nAnn,30\nBob,\n")), tbl.Size)
	assert.Equal(t, "text/csv", tbl.MimeType)
}

func TestParseCSV_BlankLinesAndRaggedRows(t *testing.T) {
	content := "a,b,c\n\n1,2,3\n4\n\n5,6,7,8\n"
	tbl, err := parseString(t, content, "r.csv", "")
	require.NoError(t, err)

	require.Len(t, tbl.Rows, 3)
	assert.Equal(t, dataset.Row{"a": dataset.Text("4"), "b": dataset.Text(""), "c": dataset.Text("")}, tbl.Rows[1])
	assert.Equal(t, dataset.Text("7"), tbl.Rows[2]["c"])
	assert.Equal(t, 2, tbl.Statistics.MissingValues)
}

func TestParseCSV_DuplicateAndBlankHeaders(t *testing.T) {
	tbl, err := parseString(t, "id,,id\n1,2,3\n", "d.csv", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "column_2", "id_2"}, tbl.Columns)
	assert.Equal(t, dataset.Text("3"), tbl.Rows[0]["id_2"])
}

func TestParseTSVAndText(t *testing.T) {
	cases := []struct {
		name, file, content string
	}{
		{"tsv", "x.tsv", "a\tb\n1\t2\n"},
		{"txt tab", "x.txt", "a\tb\n1\t2\n"},
		{"txt semicolon", "x.txt", "a;b\n1;2\n"},
		{"txt pipe", "x.txt", "a|b\n1|2\n"},
		{"txt comma default", "x.txt", "a,b\n1,2\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tbl, err := parseString(t, tc.content, tc.file, "")
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "b"}, tbl.Columns)
			assert.Equal(t, dataset.Text("2"), tbl.Rows[0]["b"])
		})
	}
}

func TestParseText_SniffsFirstLineOnly(t *testing.T) {
	// The header has no semicolon, so the later semicolons are data.
	tbl, err := parseString(t, "a,b\n1;2,3\n", "x.txt", "")
	require.NoError(t, err)
	assert.Equal(t, dataset.Text("1;2"), tbl.Rows[0]["a"])
}

func TestParse_MimeFallback(t *testing.T) {
	tbl, err := parseString(t, "a\n1\n", "upload", "text/csv; charset=utf-8")
	require.NoError(t, err)
	assert.Equal(t, "text/csv; charset=utf-8", tbl.MimeType)
	assert.Equal(t, dataset.TypeNumber, tbl.Statistics.DataTypes["a"])
}

func TestParse_UnsupportedFormat(t *testing.T) {
	_, err := parseString(t, "%PDF", "report.pdf", "application/pdf")
	require.ErrorIs(t, err, parser.ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), ".pdf")
}

func TestParse_MalformedInput(t *testing.T) {
	_, err := parseString(t, "", "empty.csv", "")
	assert.ErrorIs(t, err, parser.ErrMalformedInput)

	_, err = parseString(t, "\n\n", "blank.txt", "")
	assert.ErrorIs(t, err, parser.ErrMalformedInput)

	_, err = parseString(t, "not a zip", "book.xlsx", "")
	assert.ErrorIs(t, err, parser.ErrMalformedInput)
}

func TestParse_HeaderOnlyCSVIsEmptyTable(t *testing.T) {
	tbl, err := parseString(t, "a,b\n", "h.csv", "")
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Statistics.TotalRows)
	assert.Equal(t, dataset.TypeUnknown, tbl.Statistics.DataTypes["a"])
}

func workbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, r := range rows {
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := r
		require.NoError(t, f.SetSheetRow(sheet, axis, &row))
	}
	// A second sheet must be ignored.
	_, err := f.NewSheet("Other")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Other", "A1", "ignored"))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestParseXLSX_FirstSheetPadded(t *testing.T) {
	content := workbook(t, [][]any{
		{"Name", "Age", "City"},
		{"Ann", 30, "Oslo"},
		{"Bob", 41},
	})
	tbl, err := parser.Parse(context.Background(), bytes.NewReader(content), "people.xlsx", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "Age", "City"}, tbl.Columns)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, dataset.Text(""), tbl.Rows[1]["City"])
	assert.Equal(t, 1, tbl.Statistics.MissingValues)
	assert.Equal(t, dataset.TypeNumber, tbl.Statistics.DataTypes["Age"])
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", tbl.MimeType)
}

func TestParseXLSX_NumberFormatsStayNumeric(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Region", "Revenue"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"North", 1234.5}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"South", 98765}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]any{"East", 4321}))
	style, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle(sheet, "B2", "B4", style))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	tbl, err := parser.Parse(context.Background(), bytes.NewReader(buf.Bytes()), "sales.xlsx", "")
	require.NoError(t, err)
	assert.Equal(t, dataset.TypeNumber, tbl.Statistics.DataTypes["Revenue"])
	assert.Equal(t, dataset.Text("1234.5"), tbl.Rows[0]["Revenue"])
	got, ok := tbl.Rows[1]["Revenue"].Float()
	require.True(t, ok)
	assert.Equal(t, 98765.0, got)
}

func TestParseXLSX_EmptySheetIsMalformed(t *testing.T) {
	content := workbook(t, nil)
	_, err := parser.Parse(context.Background(), bytes.NewReader(content), "empty.xlsx", "")
	assert.ErrorIs(t, err, parser.ErrMalformedInput)
}

func TestParse_HonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()
	_, err := parser.Parse(ctx, strings.NewReader("a\n1\n"), "a.csv", "")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
