package core

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/agencydir/internal/config"
	"github.com/JonMunkholm/agencydir/internal/logging"
)

// Service is the entry point for every directory operation. It owns no
// transport concerns and is shared by the HTTP handlers and tests.
type Service struct {
	store    Store
	importer *Importer
	limiter  *ImportLimiter
	captcha  CaptchaVerifier
	evidence EvidenceStore

	importTimeout time.Duration
	now           func() time.Time
	newID         func() string
}

// NewService wires the service to its collaborators.
func NewService(store Store, captcha CaptchaVerifier, evidence EvidenceStore, cfg *config.Config) *Service {
	return &Service{
		store:         store,
		importer:      NewImporter(store),
		limiter:       NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime),
		captcha:       captcha,
		evidence:      evidence,
		importTimeout: cfg.Import.Timeout,
		now:           time.Now,
		newID:         func() string { return uuid.NewString() },
	}
}

// ImportCSV parses comma-separated text from r and upserts every valid row.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (*ImportOutcome, error) {
	text, err := ReadText(r)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	if s.importTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.importTimeout)
		defer cancel()
	}

	rows := ParseCSV(text, ',')
	logging.FromContext(ctx).Info("import started", "rows", len(rows)-1)

	outcome, err := s.importer.Import(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}
	return outcome, nil
}

// ImportStatus reports import slot usage.
func (s *Service) ImportStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until running imports finish or ctx ends.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
