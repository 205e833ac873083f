package core

// importer.go drives parsed rows through normalization and the store.
//
// Rows are processed strictly in input order, one awaited upsert at a time,
// so when two rows derive the same id the later one wins. Skips (empty name,
// unusable website) are counted silently; only store failures become row
// errors, and they never stop the batch. Rows written before a failure stay
// written.

import (
	"context"
	"time"

	"github.com/JonMunkholm/agencydir/internal/logging"
)

// AgencyUpserter is the slice of the store the importer needs.
type AgencyUpserter interface {
	UpsertAgency(ctx context.Context, a *Agency) error
}

// Importer upserts parsed CSV rows as unverified listings.
type Importer struct {
	store AgencyUpserter
	now   func() time.Time
}

// NewImporter returns an importer writing to store.
func NewImporter(store AgencyUpserter) *Importer {
	return &Importer{store: store, now: time.Now}
}

// Import processes rows, the first of which is the header. A missing or
// ambiguous header fails the whole batch before any write.
func (im *Importer) Import(ctx context.Context, rows [][]string) (*ImportOutcome, error) {
	if len(rows) == 0 || (len(rows) == 1 && IsBlankRow(rows[0])) {
		return nil, ErrNoRows
	}

	header, err := NewHeaderIndex(rows[0], RequiredColumns)
	if err != nil {
		return nil, err
	}

	log := logging.FromContext(ctx)
	outcome := &ImportOutcome{Errors: []RowError{}}

	for i, row := range rows[1:] {
		if IsBlankRow(row) {
			continue
		}
		rowNum := i + 2

		rec, err := NormalizeRow(header, row)
		if err != nil {
			outcome.Skipped++
			log.Debug("import row skipped", "row", rowNum, "reason", err)
			continue
		}

		agency := rec.Agency(StableID(rec.Website, rec.Name), im.now().UTC())
		if err := im.store.UpsertAgency(ctx, agency); err != nil {
			outcome.Errors = append(outcome.Errors, RowError{Row: rowNum, Message: err.Error()})
			log.Warn("import row failed", "row", rowNum, "agency_id", agency.ID, "error", err)
			continue
		}
		outcome.Imported++
	}

	log.Info("import finished",
		"imported", outcome.Imported,
		"skipped", outcome.Skipped,
		"errors", len(outcome.Errors),
	)
	return outcome, nil
}
