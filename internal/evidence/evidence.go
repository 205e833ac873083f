// Package evidence stores files attached to public submissions.
//
// Two backends exist: a local directory for development and an
// S3-compatible bucket (Cloudflare R2 in production) for deployments.
// Keys are slash-separated, e.g. "submissions/<id>/evidence/report.pdf".
package evidence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/JonMunkholm/agencydir/internal/config"
)

// ErrInvalidKey is returned for keys that would escape the store root.
var ErrInvalidKey = errors.New("invalid evidence key")

// Store saves an evidence body under key.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
}

// New returns the backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.EvidenceConfig) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "fs":
		return NewFS(cfg.Dir), nil
	case "s3":
		return NewS3(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown evidence backend %q", cfg.Backend)
	}
}

// cleanKey rejects empty, absolute and parent-relative keys.
func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	cleaned := path.Clean(key)
	if cleaned != key || cleaned == "." || strings.HasPrefix(cleaned, "../") || cleaned == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}
