package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/agencydir/internal/config"
	"github.com/JonMunkholm/agencydir/internal/core"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Postgres is the production core.Store.
type Postgres struct {
	pool *pgxpool.Pool
	db   DBTX
}

// Rebound statements, computed once.
var (
	pgUpsertAgency     = rebind(upsertAgencySQL)
	pgGetAgency        = rebind(getAgencySQL)
	pgListMovers       = rebind(listMoversSQL)
	pgInsertSubmission = rebind(insertSubmissionSQL)
	pgGetSubmission    = rebind(getSubmissionSQL)
	pgListPending      = rebind(listPendingSQL)
	pgMarkApproved     = rebind(markApprovedSQL)
	pgListAll          = rebind(listAgenciesSQL("ILIKE", false))
	pgListSearch       = rebind(listAgenciesSQL("ILIKE", true))
)

// ConnectPostgres opens a pgx pool using the configured limits, verifies the
// connection and applies the schema.
func ConnectPostgres(ctx context.Context, cfg config.DatabaseConfig) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Postgres{pool: pool, db: pool}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p *Postgres) Close() { p.pool.Close() }

func pgTS(t time.Time) any { return t.UTC() }

// =============================================================================
// Agencies
// =============================================================================

func (p *Postgres) UpsertAgency(ctx context.Context, a *core.Agency) error {
	if _, err := p.db.Exec(ctx, pgUpsertAgency, agencyArgs(a, pgTS)...); err != nil {
		return fmt.Errorf("upsert agency %s: %w", a.ID, err)
	}
	return nil
}

func (p *Postgres) GetAgency(ctx context.Context, id string) (*core.Agency, error) {
	a, err := scanPgAgency(p.db.QueryRow(ctx, pgGetAgency, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get agency %s: %w", id, err)
	}
	return a, nil
}

func (p *Postgres) ListAgencies(ctx context.Context, q core.ListQuery) ([]core.Agency, error) {
	query, args := pgListAll, []any{q.Limit}
	if q.Search != "" {
		pat := likePattern(q.Search)
		query, args = pgListSearch, []any{pat, pat, pat, q.Limit}
	}

	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list agencies: %w", err)
	}
	defer rows.Close()

	out := []core.Agency{}
	for rows.Next() {
		a, err := scanPgAgency(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agency: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (p *Postgres) ListMovers(ctx context.Context, limit int) ([]core.Mover, error) {
	rows, err := p.db.Query(ctx, pgListMovers, limit)
	if err != nil {
		return nil, fmt.Errorf("list movers: %w", err)
	}
	defer rows.Close()

	out := []core.Mover{}
	for rows.Next() {
		var (
			m       core.Mover
			updated pgtype.Timestamptz
		)
		if err := rows.Scan(&m.ID, &m.Name, &m.Score, &m.ScorePrev, &m.Delta, &updated); err != nil {
			return nil, fmt.Errorf("scan mover: %w", err)
		}
		if updated.Valid {
			t := updated.Time.UTC()
			m.ScoreUpdatedAt = &t
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (p *Postgres) CountAgencies(ctx context.Context) (int, error) {
	var n int
	if err := p.db.QueryRow(ctx, countAgenciesSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("count agencies: %w", err)
	}
	return n, nil
}

func scanPgAgency(row pgx.Row) (*core.Agency, error) {
	var (
		a                          core.Agency
		services, industries, high string
		scorePrev                  pgtype.Int4
		scoreUpdated               pgtype.Timestamptz
		confidence, verification   string
	)
	err := row.Scan(
		&a.ID, &a.Name, &a.Website, &a.Location, &a.PrimaryService,
		&services, &industries, &high,
		&a.Source, &a.Country, &a.City, &a.SourceURL, &a.Blurb, &a.Keywords,
		&a.Score, &scorePrev, &scoreUpdated, &confidence, &verification, &a.CreatedAt, &a.UpdatedAt,
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
		v := int(scorePrev.Int32)
		a.ScorePrev = &v
	}
	if scoreUpdated.Valid {
		t := scoreUpdated.Time.UTC()
		a.ScoreUpdatedAt = &t
	}
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return &a, nil
}

// =============================================================================
// Submissions
// =============================================================================

func (p *Postgres) InsertSubmission(ctx context.Context, s *core.Submission) error {
	if _, err := p.db.Exec(ctx, pgInsertSubmission, submissionArgs(s, pgTS)...); err != nil {
		return fmt.Errorf("insert submission %s: %w", s.ID, err)
	}
	return nil
}

func (p *Postgres) GetSubmission(ctx context.Context, id string) (*core.Submission, error) {
	s, err := scanPgSubmission(p.db.QueryRow(ctx, pgGetSubmission, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get submission %s: %w", id, err)
	}
	return s, nil
}

func (p *Postgres) ListPending(ctx context.Context, limit int) ([]core.Submission, error) {
	rows, err := p.db.Query(ctx, pgListPending, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer rows.Close()

	out := []core.Submission{}
	for rows.Next() {
		s, err := scanPgSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkApproved(ctx context.Context, id string) error {
	tag, err := p.db.Exec(ctx, pgMarkApproved, id)
	if err != nil {
		return fmt.Errorf("mark approved %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func scanPgSubmission(row pgx.Row) (*core.Submission, error) {
	var (
		s      core.Submission
		status string
	)
	f := &s.SubmissionFields
	err := row.Scan(
		&s.ID, &s.ReceivedAt, &status,
		&f.AgencyName, &f.AgencyWebsite, &f.AgencyLocation, &f.PrimaryService,
		&f.IndustryTheme, &f.Channel, &f.Timeframe, &f.BudgetBand, &f.Region,
		&f.Baseline, &f.Outcome, &f.Notes, &f.ContactEmail, &f.VerificationIntent,
		&s.EvidenceKey, &s.EvidenceContentType, &f.SubmittedFrom,
	)
	if err != nil {
		return nil, err
	}
	s.Status = core.SubmissionStatus(status)
	s.ReceivedAt = s.ReceivedAt.UTC()
	return &s, nil
}
