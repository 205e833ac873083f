package core

// validation.go maps a header row onto the recognized directory columns.
//
// The mapping is built once per batch and never mutated afterwards. Header
// names are matched case-insensitively after trimming. Missing required
// columns and repeated recognized columns reject the whole batch before any
// row is touched.

import (
	"fmt"
	"slices"
	"strings"
)

// Recognized column names.
const (
	ColName           = "name"
	ColWebsite        = "website"
	ColLocation       = "location"
	ColPrimaryService = "primary_service"
	ColServices       = "services"
	ColIndustries     = "industries"
	ColSource         = "source"
	ColCountry        = "country"
	ColCity           = "city"
	ColSourceURL      = "sourceurl"
	ColBlurb          = "blurb"
	ColKeywords       = "keywords"
)

// RecognizedColumns lists every column the normalizer reads.
var RecognizedColumns = []string{
	ColName, ColWebsite, ColLocation, ColPrimaryService, ColServices, ColIndustries,
	ColSource, ColCountry, ColCity, ColSourceURL, ColBlurb, ColKeywords,
}

// RequiredColumns is the required set for both the HTTP import and the seed
// command.
var RequiredColumns = []string{ColName, ColWebsite}

// MissingColumnsError reports required columns absent from the header.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Columns, ", "))
}

// DuplicateColumnError reports a recognized column declared more than once,
// which would make the lookup ambiguous.
type DuplicateColumnError struct {
	Column    string
	Positions []int
}

func (e *DuplicateColumnError) Error() string {
	return fmt.Sprintf("duplicate column %q at positions %v", e.Column, e.Positions)
}

// HeaderIndex is an immutable column name to cell position mapping.
type HeaderIndex struct {
	pos map[string]int
}

// NewHeaderIndex builds the mapping for header and checks that every column
// in required is present. Unrecognized columns are ignored, duplicates
// included.
func NewHeaderIndex(header []string, required []string) (HeaderIndex, error) {
	recognized := make(map[string]bool, len(RecognizedColumns))
	for _, c := range RecognizedColumns {
		recognized[c] = true
	}
	for _, c := range required {
		recognized[strings.ToLower(c)] = true
	}

	pos := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if key == "" || !recognized[key] {
			continue
		}
		if first, dup := pos[key]; dup {
			return HeaderIndex{}, &DuplicateColumnError{Column: key, Positions: []int{first + 1, i + 1}}
		}
		pos[key] = i
	}

	var missing []string
	for _, c := range required {
		if _, ok := pos[strings.ToLower(c)]; !ok {
			missing = append(missing, strings.ToLower(c))
		}
	}
	if len(missing) > 0 {
		return HeaderIndex{}, &MissingColumnsError{Columns: missing}
	}

	return HeaderIndex{pos: pos}, nil
}

// Has reports whether the header declared col.
func (h HeaderIndex) Has(col string) bool {
	_, ok := h.pos[col]
	return ok
}

// Cell returns the trimmed value of col in row, or "" when the column is
// absent from the header or the row is short.
func (h HeaderIndex) Cell(row []string, col string) string {
	i, ok := h.pos[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Columns returns the mapped column names in header order.
func (h HeaderIndex) Columns() []string {
	out := make([]string, len(h.pos))
	byPos := make(map[int]string, len(h.pos))
	positions := make([]int, 0, len(h.pos))
	for name, i := range h.pos {
		byPos[i] = name
		positions = append(positions, i)
	}
	slices.Sort(positions)
	for k, i := range positions {
		out[k] = byPos[i]
	}
	return out
}

// normalizeHeader lowercases and trims a header cell. A byte order mark
// left on the first cell by spreadsheet exports is dropped.
func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
}
