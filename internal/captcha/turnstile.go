// Package captcha verifies Cloudflare Turnstile tokens for the public
// submission form.
package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JonMunkholm/agencydir/internal/config"
)

// maxResponseSize bounds the siteverify response body.
const maxResponseSize = 64 << 10

// Turnstile calls the siteverify endpoint.
type Turnstile struct {
	secret     string
	verifyURL  string
	httpClient *http.Client
}

type verifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// NewTurnstile returns a verifier for cfg.
func NewTurnstile(cfg config.CaptchaConfig) *Turnstile {
	return &Turnstile{
		secret:     cfg.Secret,
		verifyURL:  cfg.VerifyURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Verify posts token and the caller's IP to siteverify and reports the
// success flag. A transport failure or non-2xx answer is an error, not a
// failed verification.
func (t *Turnstile) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	form := url.Values{}
	form.Set("secret", t.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("siteverify: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return false, fmt.Errorf("siteverify: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("siteverify: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out verifyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return false, fmt.Errorf("siteverify: decode: %w", err)
	}
	return out.Success, nil
}

// Disabled accepts every non-empty token. It is selected when
// CAPTCHA_ENABLED=false for local development.
type Disabled struct{}

func (Disabled) Verify(context.Context, string, string) (bool, error) { return true, nil }

// Verifier is satisfied by Turnstile and Disabled.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

// New picks the verifier for cfg.
func New(cfg config.CaptchaConfig) Verifier {
	if !cfg.Enabled {
		return Disabled{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return NewTurnstile(cfg)
}
