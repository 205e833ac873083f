// Package seed turns a spreadsheet export into an idempotent SQL script
// that bulk-upserts directory listings.
//
// Seeded rows use readable slug ids ("acme-united-states") rather than the
// hash ids of the HTTP import, so the two never address the same row.
package seed

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/JonMunkholm/agencydir/internal/core"
)

// ErrNoDataRows is returned when the input has a header but nothing else.
var ErrNoDataRows = errors.New("need a header and at least one data row")

// Dialect selects the SQL flavour of the generated script.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// ParseDialect accepts "sqlite" or "postgres" (also "postgresql").
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sqlite":
		return DialectSQLite, nil
	case "postgres", "postgresql":
		return DialectPostgres, nil
	}
	return "", fmt.Errorf("unknown dialect %q (want sqlite or postgres)", s)
}

func (d Dialect) now() string {
	if d == DialectPostgres {
		return "now()"
	}
	return "datetime('now')"
}

// Options configures Generate.
type Options struct {
	Dialect Dialect
}

// Skip is a data row left out of the script.
type Skip struct {
	Row    int    `yaml:"row"`
	Name   string `yaml:"name,omitempty"`
	Reason string `yaml:"reason"`
}

// Result describes a generated script.
type Result struct {
	Columns []string `yaml:"columns"`
	Rows    int      `yaml:"rows"`
	IDs     []string `yaml:"ids"`
	Skipped []Skip   `yaml:"skipped"`
}

// Generate writes a transaction of upserts for rows to w. rows[0] is the
// header, which must name at least name and website. Blank rows are
// ignored; rows without a name, a usable website or a sluggable name are
// reported in Result.Skipped.
func Generate(w io.Writer, rows [][]string, opts Options) (*Result, error) {
	if opts.Dialect == "" {
		opts.Dialect = DialectSQLite
	}
	if len(rows) == 0 || (len(rows) == 1 && core.IsBlankRow(rows[0])) {
		return nil, core.ErrNoRows
	}

	header, err := core.NewHeaderIndex(rows[0], core.RequiredColumns)
	if err != nil {
		return nil, err
	}

	var (
		b     strings.Builder
		res   = &Result{Columns: header.Columns(), IDs: []string{}, Skipped: []Skip{}}
		ids   = core.NewSlugAllocator()
		data  int
		nowFn = opts.Dialect.now()
	)
	b.WriteString("BEGIN;\n")

	for i, row := range rows[1:] {
		if core.IsBlankRow(row) {
			continue
		}
		data++
		rowNum := i + 2

		rec, err := core.NormalizeRow(header, row)
		if err != nil {
			res.Skipped = append(res.Skipped, Skip{Row: rowNum, Name: header.Cell(row, core.ColName), Reason: err.Error()})
			continue
		}
		id := ids.Allocate(rec.Name, rec.Country)
		if id == "" {
			res.Skipped = append(res.Skipped, Skip{Row: rowNum, Name: rec.Name, Reason: "name has no letters or digits"})
			continue
		}

		writeUpsert(&b, rec.Agency(id, time.Time{}), nowFn)
		res.IDs = append(res.IDs, id)
		res.Rows++
	}

	if data == 0 {
		return nil, ErrNoDataRows
	}

	b.WriteString("COMMIT;\n")
	if _, err := io.WriteString(w, b.String()); err != nil {
		return nil, fmt.Errorf("write script: %w", err)
	}
	return res, nil
}

func writeUpsert(b *strings.Builder, a *core.Agency, now string) {
	fmt.Fprintf(b, `INSERT INTO agencies (
  id, name, website, location, primary_service,
  services_json, industries_json, highlights_json,
  source, country, city, source_url, blurb, keywords,
  score, confidence, verification, created_at, updated_at
) VALUES (
  %s, %s, %s, %s, %s,
  %s, %s, %s,
  %s, %s, %s, %s, %s, %s,
  %d, %s, %s, %s, %s
)
ON CONFLICT(id) DO UPDATE SET
  name=excluded.name,
  website=excluded.website,
  location=excluded.location,
  primary_service=excluded.primary_service,
  services_json=excluded.services_json,
  industries_json=excluded.industries_json,
  highlights_json=excluded.highlights_json,
  source=excluded.source,
  country=excluded.country,
  city=excluded.city,
  source_url=excluded.source_url,
  blurb=excluded.blurb,
  keywords=excluded.keywords,
  score=excluded.score,
  confidence=excluded.confidence,
  verification=excluded.verification,
  updated_at=%s;
`,
		sqlQuote(a.ID), sqlQuote(a.Name), sqlQuote(a.Website), sqlText(a.Location), sqlQuote(a.PrimaryService),
		sqlJSON(a.Services), sqlJSON(a.Industries), sqlJSON(a.Highlights),
		sqlQuote(a.Source), sqlQuote(a.Country), sqlQuote(a.City), sqlQuote(a.SourceURL), sqlQuote(a.Blurb), sqlQuote(a.Keywords),
		a.Score, sqlQuote(string(a.Confidence)), sqlQuote(string(a.Verification)), now, now,
		now,
	)
}

// sqlQuote renders s as a single-quoted literal with quotes doubled, or
// NULL when s is empty after trimming.
func sqlQuote(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "NULL"
	}
	return sqlText(s)
}

// sqlText is sqlQuote for NOT NULL columns: empty renders as ''.
func sqlText(s string) string {
	return "'" + strings.ReplaceAll(strings.TrimSpace(s), "'", "''") + "'"
}

func sqlJSON(list []string) string {
	if list == nil {
		list = []string{}
	}
	blob, _ := json.Marshal(list)
	return sqlText(string(blob))
}
