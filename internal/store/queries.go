package store

// queries.go holds the SQL shared by both stores. Statements use '?'
// placeholders; the Postgres store rebinds them to $n.

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/agencydir/internal/core"
)

const agencyColumns = `id, name, website, location, COALESCE(primary_service, ''),
    services_json, industries_json, highlights_json,
    COALESCE(source, ''), COALESCE(country, ''), COALESCE(city, ''),
    COALESCE(source_url, ''), COALESCE(blurb, ''), COALESCE(keywords, ''),
    score, score_prev, score_updated_at, confidence, verification, created_at, updated_at`

const upsertAgencySQL = `
INSERT INTO agencies (
    id, name, website, location, primary_service,
    services_json, industries_json, highlights_json,
    source, country, city, source_url, blurb, keywords,
    score, score_prev, score_updated_at, confidence, verification,
    created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    name = excluded.name,
    website = excluded.website,
    location = excluded.location,
    primary_service = excluded.primary_service,
    services_json = excluded.services_json,
    industries_json = excluded.industries_json,
    highlights_json = excluded.highlights_json,
    source = excluded.source,
    country = excluded.country,
    city = excluded.city,
    source_url = excluded.source_url,
    blurb = excluded.blurb,
    keywords = excluded.keywords,
    score = excluded.score,
    score_prev = COALESCE(excluded.score_prev, agencies.score_prev),
    score_updated_at = COALESCE(excluded.score_updated_at, agencies.score_updated_at),
    confidence = excluded.confidence,
    verification = excluded.verification,
    updated_at = excluded.updated_at`

const getAgencySQL = `SELECT ` + agencyColumns + ` FROM agencies WHERE id = ?`

const countAgenciesSQL = `SELECT COUNT(*) FROM agencies`

const listMoversSQL = `
SELECT id, name, score, score_prev, score - score_prev AS delta, score_updated_at
FROM agencies
WHERE score_prev IS NOT NULL
ORDER BY delta DESC, updated_at DESC
LIMIT ?`

const submissionColumns = `id, received_at, status,
    agency_name, agency_website, agency_location, primary_service,
    industry_theme, channel, timeframe, budget_band, region,
    baseline, outcome, notes, contact_email, verification_intent,
    COALESCE(evidence_key, ''), COALESCE(evidence_content_type, ''), submitted_from`

const insertSubmissionSQL = `
INSERT INTO submissions (
    id, received_at, status,
    agency_name, agency_website, agency_location, primary_service,
    industry_theme, channel, timeframe, budget_band, region,
    baseline, outcome, notes, contact_email, verification_intent,
    evidence_key, evidence_content_type, submitted_from
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const getSubmissionSQL = `SELECT ` + submissionColumns + ` FROM submissions WHERE id = ?`

const listPendingSQL = `SELECT ` + submissionColumns + `
FROM submissions
WHERE status = 'pending'
ORDER BY received_at DESC
LIMIT ?`

const markApprovedSQL = `UPDATE submissions SET status = 'approved' WHERE id = ?`

// listAgenciesSQL builds the public listing query. like is the dialect's
// case-insensitive match operator.
func listAgenciesSQL(like string, search bool) string {
	var b strings.Builder
	b.WriteString(`SELECT ` + agencyColumns + ` FROM agencies`)
	if search {
		b.WriteString(` WHERE name ` + like + ` ? ESCAPE '\' OR location ` + like + ` ? ESCAPE '\' OR primary_service ` + like + ` ? ESCAPE '\'`)
	}
	b.WriteString(` ORDER BY score DESC, updated_at DESC, id LIMIT ?`)
	return b.String()
}

// likePattern wraps s in % after escaping LIKE metacharacters.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// rebind rewrites '?' placeholders as $1..$n. Question marks inside
// single-quoted literals are left alone.
func rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	inQuote := false
	for _, ch := range query {
		switch {
		case ch == '\'':
			inQuote = !inQuote
			b.WriteRune(ch)
		case ch == '?' && !inQuote:
			n++
			b.WriteString("$" + strconv.Itoa(n))
		default:
			b.WriteRune(ch)
		}
	}
	return b.String()
}

// encodeList stores a list as a JSON array; nil becomes [].
func encodeList(v []string) string {
	if v == nil {
		v = []string{}
	}
	out, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(out)
}

// decodeList reads a stored JSON array, falling back to an empty list for
// NULL-ish or malformed values.
func decodeList(s string) []string {
	out := []string{}
	if s == "" {
		return out
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}

// nullIfEmpty maps "" to SQL NULL.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(p *int) any {
	if p == nil {
		return nil
	}
	return int64(*p)
}

// agencyArgs returns the upsert parameters in column order. ts renders
// timestamps for the dialect.
func agencyArgs(a *core.Agency, ts func(t time.Time) any) []any {
	var scoreUpdated any
	if a.ScoreUpdatedAt != nil {
		scoreUpdated = ts(*a.ScoreUpdatedAt)
	}
	return []any{
		a.ID, a.Name, a.Website, a.Location, nullIfEmpty(a.PrimaryService),
		encodeList(a.Services), encodeList(a.Industries), encodeList(a.Highlights),
		nullIfEmpty(a.Source), nullIfEmpty(a.Country), nullIfEmpty(a.City),
		nullIfEmpty(a.SourceURL), nullIfEmpty(a.Blurb), nullIfEmpty(a.Keywords),
		a.Score, nullableInt(a.ScorePrev), scoreUpdated,
		string(a.Confidence), string(a.Verification),
		ts(a.CreatedAt), ts(a.UpdatedAt),
	}
}

// submissionArgs returns the insert parameters in column order.
func submissionArgs(s *core.Submission, ts func(t time.Time) any) []any {
	f := s.SubmissionFields
	return []any{
		s.ID, ts(s.ReceivedAt), string(s.Status),
		f.AgencyName, f.AgencyWebsite, f.AgencyLocation, f.PrimaryService,
		f.IndustryTheme, f.Channel, f.Timeframe, f.BudgetBand, f.Region,
		f.Baseline, f.Outcome, f.Notes, f.ContactEmail, f.VerificationIntent,
		nullIfEmpty(s.EvidenceKey), nullIfEmpty(s.EvidenceContentType), f.SubmittedFrom,
	}
}
