package core

// csvparse.go implements the delimited-text parser used by the import
// endpoint and the seed command.
//
// The parser is a two-state automaton (unquoted, quoted) driven by a pure
// transition function, so each transition can be tested without any I/O.
// Unlike encoding/csv it never rejects input: stray quotes open or close
// quoted mode, ragged rows are returned as-is, and empty input yields a
// single row holding one empty cell.

import "strings"

// parseState is the automaton state between characters.
type parseState uint8

const (
	stateUnquoted parseState = iota
	stateQuoted
)

func (s parseState) String() string {
	if s == stateQuoted {
		return "quoted"
	}
	return "unquoted"
}

// transition is the outcome of feeding one character to the automaton.
type transition struct {
	next    parseState
	char    bool // append the current character to the cell
	endCell bool
	endRow  bool
	skip    int // lookahead characters consumed
}

// step is the transition function. peek is the following character, or 0
// when ch is the last one; it is only consulted to recognise the "" escape.
func step(state parseState, ch, peek, delim rune) transition {
	switch state {
	case stateQuoted:
		if ch == '"' {
			if peek == '"' {
				return transition{next: stateQuoted, char: true, skip: 1}
			}
			return transition{next: stateUnquoted}
		}
		return transition{next: stateQuoted, char: true}

	default:
		switch ch {
		case delim:
			return transition{next: stateUnquoted, endCell: true}
		case '\n':
			return transition{next: stateUnquoted, endCell: true, endRow: true}
		case '\r':
			return transition{next: stateUnquoted}
		case '"':
			return transition{next: stateQuoted}
		}
		return transition{next: stateUnquoted, char: true}
	}
}

// ParseCSV splits text into rows of trimmed cells using delim as the cell
// separator. A zero delim means comma. The final cell and row are emitted
// even without a trailing newline, so the result always has at least one row.
func ParseCSV(text string, delim rune) [][]string {
	if delim == 0 {
		delim = ','
	}

	var (
		rows  [][]string
		row   []string
		cell  strings.Builder
		state = stateUnquoted
	)

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		var peek rune
		if i+1 < len(runes) {
			peek = runes[i+1]
		}

		t := step(state, runes[i], peek, delim)
		if t.char {
			cell.WriteRune(runes[i])
		}
		if t.endCell {
			row = append(row, cell.String())
			cell.Reset()
		}
		if t.endRow {
			rows = append(rows, row)
			row = nil
		}
		state = t.next
		i += t.skip
	}

	row = append(row, cell.String())
	rows = append(rows, row)

	for _, r := range rows {
		for j := range r {
			r[j] = strings.TrimSpace(r[j])
		}
	}
	return rows
}

// IsBlankRow reports whether every cell of row is empty.
func IsBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
