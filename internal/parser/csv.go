package parser

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
)

// csvFormat handles delimited text where the delimiter is implied by the
// extension or mime type.
type csvFormat struct {
	name  string
	comma rune
	exts  []string
	mimes []string
}

func (f csvFormat) Name() string { return f.name }

func (f csvFormat) MimeType() string { return f.mimes[0] }

func (f csvFormat) CanParse(ext, mediaType string) bool {
	if ext != "" && slices.Contains(f.exts, ext) {
		return true
	}
	return mediaType != "" && slices.Contains(f.mimes, mediaType)
}

func (f csvFormat) Decode(ctx context.Context, content []byte) ([][]string, error) {
	return readDelimited(ctx, content, f.comma)
}

// readDelimited reads every record. Ragged records are allowed; the table
// builder pads or truncates them against the header.
func readDelimited(ctx context.Context, content []byte, comma rune) ([][]string, error) {
	content = bytes.TrimPrefix(content, []byte("\ufeff"))
	r := csv.NewReader(bytes.NewReader(content))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = comma != '\t'
	r.LazyQuotes = true

	var out [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: read row %d: %v", ErrMalformedInput, len(out)+1, err)
		}
		out = append(out, rec)
		if len(out)%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no lines", ErrMalformedInput)
	}
	return out, nil
}
