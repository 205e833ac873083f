package core

// streaming.go prepares uploaded bytes for the parser: a UTF-8 byte order
// mark written by spreadsheet exports is dropped and invalid UTF-8 is
// replaced so a stray Latin-1 byte cannot split a cell.

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// NewBOMSkippingReader returns a reader over r without a leading UTF-8 BOM.
func NewBOMSkippingReader(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// ReadText reads all of r as text ready for ParseCSV. An input with nothing
// but whitespace yields ErrNoRows.
func ReadText(r io.Reader) (string, error) {
	data, err := io.ReadAll(NewBOMSkippingReader(r))
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	text := strings.ToValidUTF8(string(data), "\uFFFD")
	if strings.TrimSpace(text) == "" {
		return "", ErrNoRows
	}
	return text, nil
}
