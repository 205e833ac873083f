package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned by stores when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Confidence grades how much a listing has been checked.
type Confidence string

const (
	ConfidenceLow Confidence = "Low"
	ConfidenceMed Confidence = "Med"
)

// Verification records what backs a listing.
type Verification string

const (
	VerificationUnverified Verification = "Unverified"
	VerificationEvidence   Verification = "Evidence"
)

// Agency is a directory listing.
type Agency struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Website        string       `json:"website"`
	Location       string       `json:"location"`
	PrimaryService string       `json:"primary_service"`
	Services       []string     `json:"services"`
	Industries     []string     `json:"industries"`
	Highlights     []string     `json:"highlights"`
	Source         string       `json:"source,omitempty"`
	Country        string       `json:"country,omitempty"`
	City           string       `json:"city,omitempty"`
	SourceURL      string       `json:"source_url,omitempty"`
	Blurb          string       `json:"blurb,omitempty"`
	Keywords       string       `json:"keywords,omitempty"`
	Score          int          `json:"score"`
	ScorePrev      *int         `json:"score_prev,omitempty"`
	ScoreUpdatedAt *time.Time   `json:"score_updated_at,omitempty"`
	Confidence     Confidence   `json:"confidence"`
	Verification   Verification `json:"verification"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// SubmissionStatus is the review state of a submission.
type SubmissionStatus string

const (
	StatusPending  SubmissionStatus = "pending"
	StatusApproved SubmissionStatus = "approved"
)

// DefaultVerificationIntent is stored when the form leaves the field empty.
const DefaultVerificationIntent = "not_sure"

// SubmissionFields are the free-text answers of the public form.
type SubmissionFields struct {
	AgencyName         string `json:"agency_name"`
	AgencyWebsite      string `json:"agency_website"`
	AgencyLocation     string `json:"agency_location"`
	PrimaryService     string `json:"primary_service"`
	IndustryTheme      string `json:"industry_theme"`
	Channel            string `json:"channel"`
	Timeframe          string `json:"timeframe"`
	BudgetBand         string `json:"budget_band"`
	Region             string `json:"region"`
	Baseline           string `json:"baseline"`
	Outcome            string `json:"outcome"`
	Notes              string `json:"notes"`
	ContactEmail       string `json:"contact_email"`
	VerificationIntent string `json:"verification_intent"`
	SubmittedFrom      string `json:"submitted_from"`
}

// Submission is an evidence-backed claim awaiting review.
type Submission struct {
	ID         string           `json:"id"`
	ReceivedAt time.Time        `json:"received_at"`
	Status     SubmissionStatus `json:"status"`
	SubmissionFields
	EvidenceKey         string `json:"evidence_key,omitempty"`
	EvidenceContentType string `json:"evidence_content_type,omitempty"`
}

// HasEvidence reports whether an evidence file was stored.
func (s *Submission) HasEvidence() bool { return s.EvidenceKey != "" }

// Mover is a listing whose score changed on its last approval.
type Mover struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Score          int        `json:"score"`
	ScorePrev      int        `json:"score_prev"`
	Delta          int        `json:"delta"`
	ScoreUpdatedAt *time.Time `json:"score_updated_at"`
}

// ListQuery filters the public listing.
type ListQuery struct {
	Search string
	Limit  int
}

// RowError is a row whose upsert failed. Row is 1-based and counts the header.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportOutcome is the result of one import batch.
type ImportOutcome struct {
	Imported int        `json:"imported"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors"`
}

// AgencyStore persists listings.
type AgencyStore interface {
	// UpsertAgency inserts a or, when the id exists, overwrites every field
	// except id and created_at. score_prev and score_updated_at are kept
	// when a leaves them nil.
	UpsertAgency(ctx context.Context, a *Agency) error
	GetAgency(ctx context.Context, id string) (*Agency, error)
	ListAgencies(ctx context.Context, q ListQuery) ([]Agency, error)
	ListMovers(ctx context.Context, limit int) ([]Mover, error)
	CountAgencies(ctx context.Context) (int, error)
}

// SubmissionStore persists submissions.
type SubmissionStore interface {
	InsertSubmission(ctx context.Context, s *Submission) error
	GetSubmission(ctx context.Context, id string) (*Submission, error)
	ListPending(ctx context.Context, limit int) ([]Submission, error)
	MarkApproved(ctx context.Context, id string) error
}

// Store is the full persistence surface used by Service.
type Store interface {
	AgencyStore
	SubmissionStore
	Ping(ctx context.Context) error
	Close()
}

// CaptchaVerifier checks a human-verification token.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

// EvidenceStore saves uploaded evidence files under a key.
type EvidenceStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
}
