package parser

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

type xlsxFormat struct{}

func (xlsxFormat) Name() string { return "xlsx" }

func (xlsxFormat) MimeType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (xlsxFormat) CanParse(ext, mediaType string) bool {
	switch ext {
	case ".xlsx", ".xlsm", ".xls":
		return true
	}
	switch mediaType {
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.ms-excel.sheet.macroenabled.12",
		"application/vnd.ms-excel":
		return true
	}
	return false
}

// Decode reads the first sheet only, using stored cell values so number
// formats do not turn numeric columns into text. Legacy binary .xls files
// are not OOXML and fail to open, which surfaces as malformed input.
func (xlsxFormat) Decode(ctx context.Context, content []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %v", ErrMalformedInput, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrMalformedInput)
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrMalformedInput, sheets[0], err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %q is empty", ErrMalformedInput, sheets[0])
	}
	return rows, nil
}
