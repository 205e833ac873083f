package core

import (
	"context"
	"strings"
)

// Public listing limits.
const (
	MaxListLimit = 200
	MoversLimit  = 10
	PendingLimit = 200
)

// ListAgencies returns listings ordered by score then recency. Limit is
// clamped to 1..MaxListLimit, defaulting to the maximum.
func (s *Service) ListAgencies(ctx context.Context, q ListQuery) ([]Agency, error) {
	q.Search = strings.TrimSpace(q.Search)
	if q.Limit <= 0 || q.Limit > MaxListLimit {
		q.Limit = MaxListLimit
	}
	return s.store.ListAgencies(ctx, q)
}

// Movers returns the listings with the largest score change on their last
// approval.
func (s *Service) Movers(ctx context.Context) ([]Mover, error) {
	return s.store.ListMovers(ctx, MoversLimit)
}

// PendingSubmissions returns the newest submissions awaiting review.
func (s *Service) PendingSubmissions(ctx context.Context) ([]Submission, error) {
	return s.store.ListPending(ctx, PendingLimit)
}
