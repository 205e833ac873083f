package captcha

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/agencydir/internal/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func newTestTurnstile(fn roundTripFunc) *Turnstile {
	ts := NewTurnstile(config.CaptchaConfig{
		Enabled:   true,
		Secret:    "shh",
		VerifyURL: "https://verify.example.test/siteverify",
		Timeout:   time.Second,
	})
	ts.httpClient = &http.Client{Transport: fn}
	return ts
}

func TestTurnstile_PostsForm(t *testing.T) {
	var form url.Values
	ts := newTestTurnstile(func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/siteverify", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		form, err = url.ParseQuery(string(body))
		require.NoError(t, err)
		return jsonResponse(http.StatusOK, `{"success":true}`), nil
	})

	ok, err := ts.Verify(context.Background(), "tok", "198.51.100.7")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "shh", form.Get("secret"))
	assert.Equal(t, "tok", form.Get("response"))
	assert.Equal(t, "198.51.100.7", form.Get("remoteip"))
}

func TestTurnstile_OmitsEmptyRemoteIP(t *testing.T) {
	ts := newTestTurnstile(func(r *http.Request) (*http.Response, error) {
		require.NoError(t, r.ParseForm())
		_, present := r.PostForm["remoteip"]
		assert.False(t, present)
		return jsonResponse(http.StatusOK, `{"success":true}`), nil
	})

	ok, err := ts.Verify(context.Background(), "tok", "")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTurnstile_Rejected(t *testing.T) {
	ts := newTestTurnstile(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"success":false,"error-codes":["invalid-input-response"]}`), nil
	})

	ok, err := ts.Verify(context.Background(), "bad", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTurnstile_Errors(t *testing.T) {
	tests := []struct {
		name string
		fn   roundTripFunc
	}{
		{"transport", func(*http.Request) (*http.Response, error) { return nil, errors.New("connection reset") }},
		{"status", func(*http.Request) (*http.Response, error) { return jsonResponse(http.StatusBadGateway, "oops"), nil }},
		{"body", func(*http.Request) (*http.Response, error) { return jsonResponse(http.StatusOK, "<html>"), nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := newTestTurnstile(tt.fn).Verify(context.Background(), "tok", "")
			assert.Error(t, err)
			assert.False(t, ok)
		})
	}
}

func TestNew(t *testing.T) {
	v := New(config.CaptchaConfig{Enabled: false})
	ok, err := v.Verify(context.Background(), "anything", "")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.IsType(t, &Turnstile{}, New(config.CaptchaConfig{Enabled: true, Secret: "s"}))
}
