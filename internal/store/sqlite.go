package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/JonMunkholm/agencydir/internal/core"
)

// sqliteTime matches datetime('now') with millisecond precision appended,
// so text ordering agrees with time ordering.
const sqliteTime = "2006-01-02 15:04:05.000"

var sqliteTimeLayouts = []string{sqliteTime, "2006-01-02 15:04:05", time.RFC3339Nano}

// SQLite is a core.Store backed by a SQLite database file. It is the local
// development store and the store used by tests (path ":memory:").
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: writes are serialized anyway and ":memory:" databases
	// are per-connection.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// DB exposes the handle for callers that need raw SQL, such as applying a
// generated seed script.
func (s *SQLite) DB() *sql.DB { return s.db }

func (s *SQLite) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLite) Close() { _ = s.db.Close() }

func sqliteTS(t time.Time) any { return t.UTC().Format(sqliteTime) }

func parseSQLiteTime(s string) (time.Time, error) {
	for _, layout := range sqliteTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// =============================================================================
// Agencies
// =============================================================================

func (s *SQLite) UpsertAgency(ctx context.Context, a *core.Agency) error {
	if _, err := s.db.ExecContext(ctx, upsertAgencySQL, agencyArgs(a, sqliteTS)...); err != nil {
		return fmt.Errorf("upsert agency %s: %w", a.ID, err)
	}
	return nil
}

func (s *SQLite) GetAgency(ctx context.Context, id string) (*core.Agency, error) {
	a, err := scanSQLiteAgency(s.db.QueryRowContext(ctx, getAgencySQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get agency %s: %w", id, err)
	}
	return a, nil
}

func (s *SQLite) ListAgencies(ctx context.Context, q core.ListQuery) ([]core.Agency, error) {
	var args []any
	if q.Search != "" {
		p := likePattern(q.Search)
		args = append(args, p, p, p)
	}
	args = append(args, q.Limit)

	rows, err := s.db.QueryContext(ctx, listAgenciesSQL("LIKE", q.Search != ""), args...)
	if err != nil {
		return nil, fmt.Errorf("list agencies: %w", err)
	}
	defer rows.Close()

	out := []core.Agency{}
	for rows.Next() {
		a, err := scanSQLiteAgency(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agency: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *SQLite) ListMovers(ctx context.Context, limit int) ([]core.Mover, error) {
	rows, err := s.db.QueryContext(ctx, listMoversSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list movers: %w", err)
	}
	defer rows.Close()

	out := []core.Mover{}
	for rows.Next() {
		var (
			m       core.Mover
			updated sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.Name, &m.Score, &m.ScorePrev, &m.Delta, &updated); err != nil {
			return nil, fmt.Errorf("scan mover: %w", err)
		}
		if updated.Valid {
			t, err := parseSQLiteTime(updated.String)
			if err != nil {
				return nil, err
			}
			m.ScoreUpdatedAt = &t
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLite) CountAgencies(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, countAgenciesSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("count agencies: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteAgency(row rowScanner) (*core.Agency, error) {
	var (
		a                          core.Agency
		services, industries, high string
		scorePrev                  sql.NullInt64
		scoreUpdated               sql.NullString
		created, updated           string
		confidence, verification   string
	)
	err := row.Scan(
		&a.ID, &a.Name, &a.Website, &a.Location, &a.PrimaryService,
		&services, &industries, &high,
		&a.Source, &a.Country, &a.City, &a.SourceURL, &a.Blurb, &a.Keywords,
		&a.Score, &scorePrev, &scoreUpdated, &confidence, &verification, &created, &updated,
	)
	if err != nil {
		return nil, err
	}

	a.Services = decodeList(services)
	a.Industries = decodeList(industries)
	a.Highlights = decodeList(high)
	a.Confidence = core.Confidence(confidence)
	a.Verification = core.Verification(verification)
	if scorePrev.Valid {
		p := int(scorePrev.Int64)
		a.ScorePrev = &p
	}
	if scoreUpdated.Valid {
		t, err := parseSQLiteTime(scoreUpdated.String)
		if err != nil {
			return nil, err
		}
		a.ScoreUpdatedAt = &t
	}
	if a.CreatedAt, err = parseSQLiteTime(created); err != nil {
		return nil, err
	}
	if a.UpdatedAt, err = parseSQLiteTime(updated); err != nil {
		return nil, err
	}
	return &a, nil
}

// =============================================================================
// Submissions
// =============================================================================

func (s *SQLite) InsertSubmission(ctx context.Context, sub *core.Submission) error {
	if _, err := s.db.ExecContext(ctx, insertSubmissionSQL, submissionArgs(sub, sqliteTS)...); err != nil {
		return fmt.Errorf("insert submission %s: %w", sub.ID, err)
	}
	return nil
}

func (s *SQLite) GetSubmission(ctx context.Context, id string) (*core.Submission, error) {
	sub, err := scanSQLiteSubmission(s.db.QueryRowContext(ctx, getSubmissionSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get submission %s: %w", id, err)
	}
	return sub, nil
}

func (s *SQLite) ListPending(ctx context.Context, limit int) ([]core.Submission, error) {
	rows, err := s.db.QueryContext(ctx, listPendingSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer rows.Close()

	out := []core.Submission{}
	for rows.Next() {
		sub, err := scanSQLiteSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out = append(out, *sub)
	}
	return out, rows.Err()
}

func (s *SQLite) MarkApproved(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, markApprovedSQL, id)
	if err != nil {
		return fmt.Errorf("mark approved %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func scanSQLiteSubmission(row rowScanner) (*core.Submission, error) {
	var (
		sub              core.Submission
		received, status string
	)
	f := &sub.SubmissionFields
	err := row.Scan(
		&sub.ID, &received, &status,
		&f.AgencyName, &f.AgencyWebsite, &f.AgencyLocation, &f.PrimaryService,
		&f.IndustryTheme, &f.Channel, &f.Timeframe, &f.BudgetBand, &f.Region,
		&f.Baseline, &f.Outcome, &f.Notes, &f.ContactEmail, &f.VerificationIntent,
		&sub.EvidenceKey, &sub.EvidenceContentType, &f.SubmittedFrom,
	)
	if err != nil {
		return nil, err
	}
	sub.Status = core.SubmissionStatus(status)
	if sub.ReceivedAt, err = parseSQLiteTime(received); err != nil {
		return nil, err
	}
	return &sub, nil
}
