package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/agencydir/internal/core"
)

func setupTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func testAgency(id, name string, score int, updated time.Time) *core.Agency {
	return &core.Agency{
		ID:             id,
		Name:           name,
		Website:        "https://" + id + ".example",
		Location:       "Berlin, Germany",
		PrimaryService: "SEO",
		Services:       []string{"SEO", "PPC"},
		Industries:     []string{"SaaS"},
		Highlights:     []string{"Seeded listing (Seeded)"},
		Source:         "Seeded",
		Score:          score,
		Confidence:     core.ConfidenceLow,
		Verification:   core.VerificationUnverified,
		CreatedAt:      updated,
		UpdatedAt:      updated,
	}
}

// =============================================================================
// Agencies
// =============================================================================

func TestSQLite_UpsertAndGet(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, s.UpsertAgency(ctx, testAgency("a1", "Acme", 10, created)))

	got, err := s.GetAgency(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)
	assert.Equal(t, []string{"SEO", "PPC"}, got.Services)
	assert.Equal(t, []string{"SaaS"}, got.Industries)
	assert.Equal(t, created, got.CreatedAt)
	assert.Nil(t, got.ScorePrev)
	assert.Empty(t, got.Country)
}

func TestSQLite_UpsertKeepsCreatedAtAndScorePrev(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)

	first := testAgency("a1", "Acme", 50, t0)
	prev := 10
	first.ScorePrev = &prev
	first.ScoreUpdatedAt = &t0
	require.NoError(t, s.UpsertAgency(ctx, first))

	second := testAgency("a1", "Acme Renamed", 10, t1)
	second.Services = nil
	require.NoError(t, s.UpsertAgency(ctx, second))

	got, err := s.GetAgency(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "Acme Renamed", got.Name)
	assert.Equal(t, 10, got.Score)
	assert.Equal(t, []string{}, got.Services)
	assert.Equal(t, t0, got.CreatedAt, "created_at survives the update")
	assert.Equal(t, t1, got.UpdatedAt)
	require.NotNil(t, got.ScorePrev, "score_prev kept when the update carries none")
	assert.Equal(t, 10, *got.ScorePrev)

	n, err := s.CountAgencies(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLite_GetAgencyNotFound(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.GetAgency(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSQLite_UpsertRejectsInvalidConfidence(t *testing.T) {
	s := setupTestStore(t)
	a := testAgency("a1", "Acme", 10, time.Now())
	a.Confidence = "High"

	err := s.UpsertAgency(context.Background(), a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a1")
}

func TestSQLite_ListAgenciesOrderAndSearch(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.UpsertAgency(ctx, testAgency("low", "Low Score Co", 10, base.Add(2*time.Hour))))
	require.NoError(t, s.UpsertAgency(ctx, testAgency("old", "Older Fifty", 50, base)))
	require.NoError(t, s.UpsertAgency(ctx, testAgency("new", "Newer Fifty", 50, base.Add(time.Hour))))
	pct := testAgency("pct", "100% Growth", 5, base)
	pct.Location = "Paris, France"
	require.NoError(t, s.UpsertAgency(ctx, pct))

	all, err := s.ListAgencies(ctx, core.ListQuery{Limit: 200})
	require.NoError(t, err)
	var ids []string
	for _, a := range all {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"new", "old", "low", "pct"}, ids)

	limited, err := s.ListAgencies(ctx, core.ListQuery{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	found, err := s.ListAgencies(ctx, core.ListQuery{Search: "fifty", Limit: 200})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	byLocation, err := s.ListAgencies(ctx, core.ListQuery{Search: "paris", Limit: 200})
	require.NoError(t, err)
	require.Len(t, byLocation, 1)
	assert.Equal(t, "pct", byLocation[0].ID)

	literal, err := s.ListAgencies(ctx, core.ListQuery{Search: "0%", Limit: 200})
	require.NoError(t, err)
	require.Len(t, literal, 1, "percent sign matched literally")
	assert.Equal(t, "pct", literal[0].ID)
}

func TestSQLite_ListAgenciesMalformedJSON(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertAgency(ctx, testAgency("a1", "Acme", 10, time.Now())))

	_, err := s.DB().ExecContext(ctx, `UPDATE agencies SET services_json = 'not json', highlights_json = ''`)
	require.NoError(t, err)

	got, err := s.ListAgencies(ctx, core.ListQuery{Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{}, got[0].Services)
	assert.Equal(t, []string{}, got[0].Highlights)
}

func TestSQLite_ListMovers(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	withPrev := func(id string, score, prev int) *core.Agency {
		a := testAgency(id, id, score, now)
		a.ScorePrev = &prev
		a.ScoreUpdatedAt = &now
		return a
	}
	require.NoError(t, s.UpsertAgency(ctx, withPrev("up", 50, 10)))
	require.NoError(t, s.UpsertAgency(ctx, withPrev("flat", 50, 50)))
	require.NoError(t, s.UpsertAgency(ctx, withPrev("down", 10, 50)))
	require.NoError(t, s.UpsertAgency(ctx, testAgency("none", "none", 99, now)))

	movers, err := s.ListMovers(ctx, 10)
	require.NoError(t, err)
	require.Len(t, movers, 3)
	assert.Equal(t, "up", movers[0].ID)
	assert.Equal(t, 40, movers[0].Delta)
	assert.Equal(t, "down", movers[2].ID)
	assert.Equal(t, -40, movers[2].Delta)
	require.NotNil(t, movers[0].ScoreUpdatedAt)
	assert.Equal(t, now, *movers[0].ScoreUpdatedAt)
}

// =============================================================================
// Submissions
// =============================================================================

func TestSQLite_Submissions(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	t0 := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	older := &core.Submission{
		ID: "s1", ReceivedAt: t0, Status: core.StatusPending,
		SubmissionFields: core.SubmissionFields{AgencyName: "Acme", VerificationIntent: "not_sure"},
	}
	newer := &core.Submission{
		ID: "s2", ReceivedAt: t0.Add(time.Minute), Status: core.StatusPending,
		SubmissionFields:    core.SubmissionFields{AgencyName: "Beta", VerificationIntent: "yes"},
		EvidenceKey:         "submissions/s2/evidence/proof.pdf",
		EvidenceContentType: "application/pdf",
	}
	require.NoError(t, s.InsertSubmission(ctx, older))
	require.NoError(t, s.InsertSubmission(ctx, newer))

	pending, err := s.ListPending(ctx, 200)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "s2", pending[0].ID, "newest first")
	assert.Equal(t, "submissions/s2/evidence/proof.pdf", pending[0].EvidenceKey)
	assert.Empty(t, pending[1].EvidenceKey)

	got, err := s.GetSubmission(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, t0, got.ReceivedAt)
	assert.Equal(t, "Acme", got.AgencyName)

	require.NoError(t, s.MarkApproved(ctx, "s1"))
	pending, err = s.ListPending(ctx, 200)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "s2", pending[0].ID)

	assert.ErrorIs(t, s.MarkApproved(ctx, "nope"), core.ErrNotFound)
	_, err = s.GetSubmission(ctx, "nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
