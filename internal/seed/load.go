package seed

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/agencydir/internal/core"
)

// LoadRows reads the input file. Workbooks (.xlsx) are read from their
// first sheet; anything else is parsed as delimited text with delim.
func LoadRows(path string, delim rune) ([][]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return loadWorkbook(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	text, err := core.ReadText(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return core.ParseCSV(text, delim), nil
}

func loadWorkbook(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, core.ErrNoRows
	}
	return rows, nil
}

// ParseDelimiter accepts a single character or the escapes \t and "tab".
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case `\t`, "tab", "\t":
		return '\t', nil
	case "":
		return ',', nil
	}
	r := []rune(s)
	if len(r) != 1 || r[0] == '"' || r[0] == '\n' || r[0] == '\r' {
		return 0, fmt.Errorf("invalid delimiter %q", s)
	}
	return r[0], nil
}

// Report is the YAML summary written next to a generated script.
type Report struct {
	Input       string    `yaml:"input"`
	Output      string    `yaml:"output"`
	Dialect     Dialect   `yaml:"dialect"`
	GeneratedAt time.Time `yaml:"generated_at"`
	Result      `yaml:",inline"`
}

// WriteReport marshals r to path.
func WriteReport(path string, r Report) error {
	blob, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return os.WriteFile(path, blob, 0o644)
}
