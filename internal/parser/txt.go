package parser

import (
	"bytes"
	"context"
)

// txtFormat is delimited text whose delimiter is sniffed from the first line.
type txtFormat struct{}

func (txtFormat) Name() string { return "txt" }

func (txtFormat) MimeType() string { return "text/plain" }

func (txtFormat) CanParse(ext, mediaType string) bool {
	return ext == ".txt" || mediaType == "text/plain"
}

func (txtFormat) Decode(ctx context.Context, content []byte) ([][]string, error) {
	return readDelimited(ctx, content, sniffDelimiter(content))
}

// sniffDelimiter inspects the first line only: tab, then semicolon, then
// pipe, otherwise comma.
func sniffDelimiter(content []byte) rune {
	first := content
	if i := bytes.IndexAny(content, "\r\n"); i >= 0 {
		first = content[:i]
	}
	for _, d := range []byte{'\t', ';', '|'} {
		if bytes.IndexByte(first, d) >= 0 {
			return rune(d)
		}
	}
	return ','
}
