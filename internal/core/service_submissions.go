package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/JonMunkholm/agencydir/internal/logging"
)

// ApprovalScore is the placeholder score given to approved submissions.
const ApprovalScore = 50

const maxFieldLength = 4000

// EvidenceUpload is an optional file attached to a submission.
type EvidenceUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// SubmitInput is one public form post.
type SubmitInput struct {
	Fields       SubmissionFields
	CaptchaToken string
	RemoteIP     string
	Evidence     *EvidenceUpload
}

// Submit verifies the captcha, stores any evidence file and records a
// pending submission.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*Submission, error) {
	token := strings.TrimSpace(in.CaptchaToken)
	if token == "" {
		return nil, ErrCaptchaMissing
	}
	ok, err := s.captcha.Verify(ctx, token, in.RemoteIP)
	if err != nil {
		return nil, fmt.Errorf("verify captcha: %w", err)
	}
	if !ok {
		return nil, ErrCaptchaFailed
	}

	sub := &Submission{
		ID:               s.newID(),
		ReceivedAt:       s.now().UTC(),
		Status:           StatusPending,
		SubmissionFields: in.Fields.clean(),
	}
	log := logging.WithFields(ctx, "submission_id", sub.ID)

	if ev := in.Evidence; ev != nil {
		name := SanitizeFilename(ev.Filename)
		if !IsAllowedEvidence(name) {
			return nil, ErrEvidenceType
		}
		sub.EvidenceKey = EvidenceKey(sub.ID, name)
		sub.EvidenceContentType = ev.ContentType
		if sub.EvidenceContentType == "" {
			sub.EvidenceContentType = "application/octet-stream"
		}
		if err := s.evidence.Put(ctx, sub.EvidenceKey, ev.Body, ev.Size, sub.EvidenceContentType); err != nil {
			return nil, fmt.Errorf("store evidence: %w", err)
		}
		log.Info("evidence stored", "key", sub.EvidenceKey, "bytes", ev.Size)
	}

	if err := s.store.InsertSubmission(ctx, sub); err != nil {
		return nil, fmt.Errorf("insert submission: %w", err)
	}
	log.Info("submission received", "agency", sub.AgencyName, "evidence", sub.HasEvidence())
	return sub, nil
}

// Approve publishes a submission as a listing keyed by the submission id
// and marks it approved. An existing listing's score becomes score_prev.
func (s *Service) Approve(ctx context.Context, submissionID string) (*Agency, error) {
	submissionID = strings.TrimSpace(submissionID)
	if submissionID == "" {
		return nil, ErrMissingSubmission
	}

	sub, err := s.store.GetSubmission(ctx, submissionID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load submission: %w", err)
	}

	var prev *int
	existing, err := s.store.GetAgency(ctx, sub.ID)
	switch {
	case err == nil:
		p := existing.Score
		prev = &p
	case !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("load agency: %w", err)
	}

	agency := approvedAgency(sub, prev, s.now().UTC())
	if err := s.store.UpsertAgency(ctx, agency); err != nil {
		return nil, fmt.Errorf("upsert agency: %w", err)
	}
	if err := s.store.MarkApproved(ctx, sub.ID); err != nil {
		return nil, fmt.Errorf("mark approved: %w", err)
	}

	logging.WithFields(ctx, "submission_id", sub.ID).Info("submission approved",
		"agency_id", agency.ID,
		"score", agency.Score,
		"evidence", sub.HasEvidence(),
	)
	return agency, nil
}

func approvedAgency(sub *Submission, prev *int, now time.Time) *Agency {
	website := NormalizeURL(sub.AgencyWebsite)
	if website == "" {
		website = sub.AgencyWebsite
	}

	a := &Agency{
		ID:             sub.ID,
		Name:           sub.AgencyName,
		Website:        website,
		Location:       sub.AgencyLocation,
		PrimaryService: sub.PrimaryService,
		Services:       nonEmpty(sub.PrimaryService),
		Industries:     nonEmpty(sub.IndustryTheme),
		Score:          ApprovalScore,
		ScorePrev:      prev,
		ScoreUpdatedAt: &now,
		Confidence:     ConfidenceLow,
		Verification:   VerificationUnverified,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if sub.HasEvidence() {
		a.Highlights = []string{"Submission received (MVP)", "Evidence uploaded (redacted)"}
		a.Confidence = ConfidenceMed
		a.Verification = VerificationEvidence
	} else {
		a.Highlights = []string{"Submission received (MVP)", "No evidence uploaded"}
	}
	return a
}

func nonEmpty(vals ...string) []string {
	out := []string{}
	for _, v := range vals {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// clean trims every answer, caps its length and applies the
// verification_intent default.
func (f SubmissionFields) clean() SubmissionFields {
	for _, p := range []*string{
		&f.AgencyName, &f.AgencyWebsite, &f.AgencyLocation, &f.PrimaryService,
		&f.IndustryTheme, &f.Channel, &f.Timeframe, &f.BudgetBand, &f.Region,
		&f.Baseline, &f.Outcome, &f.Notes, &f.ContactEmail, &f.VerificationIntent,
		&f.SubmittedFrom,
	} {
		v := strings.TrimSpace(*p)
		if len(v) > maxFieldLength {
			v = strings.ToValidUTF8(v[:maxFieldLength], "")
		}
		*p = v
	}
	if f.VerificationIntent == "" {
		f.VerificationIntent = DefaultVerificationIntent
	}
	return f
}
