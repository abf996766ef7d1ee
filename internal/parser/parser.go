package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
)

// Format decodes one kind of upload into raw records. The first record is
// the header.
type Format interface {
	// Name is a short identifier used in logs and errors.
	Name() string
	// MimeType is the canonical mime reported when the caller gave no hint.
	MimeType() string
	// CanParse reports whether the lowercase extension (with dot) or media
	// type belongs to this format.
	CanParse(ext, mediaType string) bool
	Decode(ctx context.Context, content []byte) ([][]string, error)
}

var registry []Format

// Register adds a format to the registry. Earlier registrations win.
func Register(f Format) {
	registry = append(registry, f)
}

func init() {
	Register(csvFormat{name: "csv", comma: ',', exts: []string{".csv"}, mimes: []string{"text/csv", "application/csv"}})
	Register(csvFormat{name: "tsv", comma: '\t', exts: []string{".tsv", ".tab"}, mimes: []string{"text/tab-separated-values"}})
	Register(txtFormat{})
	Register(xlsxFormat{})
}

var (
	// ErrUnsupportedFormat indicates the extension and mime are not recognised.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrMalformedInput indicates a recognised format whose content could not
	// be decoded into a header and rows.
	ErrMalformedInput = errors.New("malformed input")
)

// Detect picks the format for a filename and optional mime hint. The
// extension is consulted before the mime type.
func Detect(filename, mimeType string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	mediaType := ""
	if mimeType != "" {
		if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
			mediaType = strings.ToLower(mt)
		}
	}
	if ext != "" {
		for _, f := range registry {
			if f.CanParse(ext, "") {
				return f, nil
			}
		}
	}
	if mediaType != "" {
		for _, f := range registry {
			if f.CanParse("", mediaType) {
				return f, nil
			}
		}
	}
	switch {
	case ext != "":
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	case mimeType != "":
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimeType)
	default:
		return nil, fmt.Errorf("%w: %q has no extension", ErrUnsupportedFormat, filename)
	}
}

// Parse reads an upload and returns a Table with statistics computed. The
// reader is consumed fully; ctx bounds the decode step.
func Parse(ctx context.Context, r io.Reader, filename, mimeType string) (*dataset.Table, error) {
	f, err := Detect(filename, mimeType)
	if err != nil {
		return nil, err
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records, err := f.Decode(ctx, content)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if errors.Is(err, ErrMalformedInput) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedInput, f.Name(), err)
	}
	t, err := buildTable(records)
	if err != nil {
		return nil, err
	}
	t.Filename = filepath.Base(filename)
	t.Size = int64(len(content))
	t.MimeType = mimeType
	if t.MimeType == "" {
		t.MimeType = f.MimeType()
	}
	return t, nil
}

// buildTable maps records onto the header by position. Blank records are
// skipped, short ones padded with empty cells, extra fields dropped.
func buildTable(records [][]string) (*dataset.Table, error) {
	start := -1
	for i, rec := range records {
		if !isBlank(rec) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, fmt.Errorf("%w: no header row", ErrMalformedInput)
	}
	columns := uniqueHeaders(records[start])
	rows := make([]dataset.Row, 0, len(records)-start-1)
	for _, rec := range records[start+1:] {
		if isBlank(rec) {
			continue
		}
		row := make(dataset.Row, len(columns))
		for j, c := range columns {
			if j < len(rec) {
				row[c] = dataset.Text(strings.TrimSpace(rec[j]))
			} else {
				row[c] = dataset.Text("")
			}
		}
		rows = append(rows, row)
	}
	return dataset.New(columns, rows), nil
}

func isBlank(rec []string) bool {
	switch len(rec) {
	case 0:
		return true
	case 1:
		return strings.TrimSpace(rec[0]) == ""
	}
	return false
}

// uniqueHeaders trims names, names blank headers column_N and suffixes
// duplicates so every column name is unique.
func uniqueHeaders(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		cand := name
		for n := 2; seen[cand]; n++ {
			cand = name + "_" + strconv.Itoa(n)
		}
		seen[cand] = true
		out[i] = cand
	}
	return out
}
