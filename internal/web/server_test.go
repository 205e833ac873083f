package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/agencydir/internal/config"
	"github.com/JonMunkholm/agencydir/internal/core"
	"github.com/JonMunkholm/agencydir/internal/store"
)

const testToken = "test-admin-token-0123456789"

type stubCaptcha struct{ ok bool }

func (c stubCaptcha) Verify(context.Context, string, string) (bool, error) { return c.ok, nil }

type memEvidence struct {
	mu   sync.Mutex
	keys []string
}

func (m *memEvidence) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 10 * time.Second},
		Import: config.ImportConfig{
			MaxBodySize:   1 << 20,
			MaxConcurrent: 1,
			MaxWaitTime:   time.Second,
			Timeout:       time.Minute,
		},
		Security: config.SecurityConfig{AdminTokens: []string{testToken}, EnableCSP: true},
		Evidence: config.EvidenceConfig{MaxSize: 1 << 20},
	}
}

type testServer struct {
	*Server
	evidence *memEvidence
	store    *store.SQLite
}

func newTestServer(t *testing.T, cfg *config.Config, captchaOK bool) *testServer {
	t.Helper()
	st, err := store.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(st.Close)

	ev := &memEvidence{}
	srv := NewServer(core.NewService(st, stubCaptcha{ok: captchaOK}, ev, cfg), cfg)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testServer{Server: srv, evidence: ev, store: st}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, req)
	return rec
}

func adminRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+testToken)
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

const importCSV = "name,website,location,services\n" +
	"Acme,acme.io,Oslo,SEO;PPC\n" +
	",nameless.io,,\n" +
	"Beta,beta.dev,Berlin,Content\n"

func TestImportAgencies_RawBody(t *testing.T) {
	ts := newTestServer(t, testConfig(), true)

	rec := ts.do(adminRequest(http.MethodPost, "/api/admin/import-agencies", strings.NewReader(importCSV)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	got := decode[map[string]any](t, rec)
	assert.Equal(t, true, got["ok"])
	assert.Equal(t, float64(2), got["imported"])
	assert.Equal(t, float64(1), got["skipped"])
	assert.Equal(t, []any{}, got["errors"])
}

func TestImportAgencies_Multipart(t *testing.T) {
	ts := newTestServer(t, testConfig(), true)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "agencies.csv")
	require.NoError(t, err)
	_, _ = fw.Write([]byte(importCSV))
	require.NoError(t, mw.Close())

	req := adminRequest(http.MethodPost, "/api/admin/import-agencies", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := ts.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(2), decode[map[string]any](t, rec)["imported"])
}

func TestImportAgencies_Errors(t *testing.T) {
	ts := newTestServer(t, testConfig(), true)

	tests := []struct {
		name     string
		req      func() *http.Request
		status   int
		code     string
		contains string
	}{
		{
			name:   "unauthorized",
			req:    func() *http.Request { return httptest.NewRequest(http.MethodPost, "/api/admin/import-agencies", strings.NewReader(importCSV)) },
			status: http.StatusUnauthorized,
			code:   "AUTH001",
		},
		{
			name:     "missing columns",
			req:      func() *http.Request { return adminRequest(http.MethodPost, "/api/admin/import-agencies", strings.NewReader("name,city\nA,B\n")) },
			status:   http.StatusBadRequest,
			code:     "VAL001",
			contains: "website",
		},
		{
			name:   "empty body",
			req:    func() *http.Request { return adminRequest(http.MethodPost, "/api/admin/import-agencies", strings.NewReader(" \n")) },
			status: http.StatusBadRequest,
			code:   "FILE002",
		},
		{
			name: "multipart without file",
			req: func() *http.Request {
				var body bytes.Buffer
				mw := multipart.NewWriter(&body)
				_ = mw.WriteField("note", "hi")
				_ = mw.Close()
				req := adminRequest(http.MethodPost, "/api/admin/import-agencies", &body)
				req.Header.Set("Content-Type", mw.FormDataContentType())
				return req
			},
			status: http.StatusBadRequest,
			code:   "FILE003",
		},
		{
			name: "too large",
			req: func() *http.Request {
				big := "name,website\n" + strings.Repeat("x,y.io\n", 200_000)
				return adminRequest(http.MethodPost, "/api/admin/import-agencies", strings.NewReader(big))
			},
			status: http.StatusRequestEntityTooLarge,
			code:   "FILE001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(tt.req())
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			got := decode[map[string]any](t, rec)
			assert.Equal(t, tt.code, got["code"])
			if tt.contains != "" {
				assert.Contains(t, rec.Body.String(), tt.contains)
			}
		})
	}
}

func submitRequest(t *testing.T, fields map[string]string, evidenceName string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if evidenceName != "" {
		fw, err := mw.CreateFormFile("evidence", evidenceName)
		require.NoError(t, err)
		_, _ = fw.Write([]byte("%PDF-1.7"))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/submit", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestSubmitApproveFlow(t *testing.T) {
	ts := newTestServer(t, testConfig(), true)

	rec := ts.do(submitRequest(t, map[string]string{
		captchaField:      "tok",
		"agency_name":     "Gamma",
		"agency_website":  "gamma.example",
		"primary_service": "SEO",
	}, "case study.pdf"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	sub := decode[submitResponse](t, rec)
	assert.Equal(t, core.StatusPending, sub.Status)
	require.NotEmpty(t, sub.SubmissionID)
	assert.Equal(t, []string{"submissions/" + sub.SubmissionID + "/evidence/case_study.pdf"}, ts.evidence.keys)

	rec = ts.do(adminRequest(http.MethodGet, "/api/admin/pending", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	pending := decode[[]core.Submission](t, rec)
	require.Len(t, pending, 1)
	assert.Equal(t, "Gamma", pending[0].AgencyName)
	assert.Equal(t, "not_sure", pending[0].VerificationIntent)

	rec = ts.do(adminRequest(http.MethodPost, "/api/admin/approve", strings.NewReader(`{"submission_id":"`+sub.SubmissionID+`"}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"ok":true,"agency_id":"`+sub.SubmissionID+`"}`, rec.Body.String())

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/agencies", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	agencies := decode[[]core.Agency](t, rec)
	require.Len(t, agencies, 1)
	assert.Equal(t, core.VerificationEvidence, agencies[0].Verification)
	assert.Equal(t, []string{"SEO"}, agencies[0].Services)
	assert.Empty(t, agencies[0].Industries)
}

func TestSubmit_Rejections(t *testing.T) {
	ts := newTestServer(t, testConfig(), true)

	rec := ts.do(submitRequest(t, map[string]string{"agency_name": "x"}, ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing Turnstile token.", decode[ErrorResponse](t, rec).Error)

	rec = ts.do(submitRequest(t, map[string]string{captchaField: "tok"}, "payload.exe"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Evidence file type not allowed (use PDF/PNG/JPG).", decode[ErrorResponse](t, rec).Error)
	assert.Empty(t, ts.evidence.keys)

	failing := newTestServer(t, testConfig(), false)
	rec = failing.do(submitRequest(t, map[string]string{captchaField: "tok"}, ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Turnstile verification failed.", decode[ErrorResponse](t, rec).Error)
}

func TestSubmit_StoreFailureIsGeneric(t *testing.T) {
	ts := newTestServer(t, testConfig(), true)
	ts.store.Close()

	rec := ts.do(submitRequest(t, map[string]string{captchaField: "tok", "agency_name": "x"}, ""))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Submission failed.", decode[ErrorResponse](t, rec).Error)
}

func TestApprove_Errors(t *testing.T) {
	ts := newTestServer(t, testConfig(), true)

	rec := ts.do(adminRequest(http.MethodPost, "/api/admin/approve", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VAL003", decode[ErrorResponse](t, rec).Code)

	rec = ts.do(adminRequest(http.MethodPost, "/api/admin/approve", strings.NewReader(`not json`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(adminRequest(http.MethodPost, "/api/admin/approve", strings.NewReader(`{"submission_id":"missing"}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", decode[ErrorResponse](t, rec).Error)
}

func TestListAgencies_QueryAndLimit(t *testing.T) {
	ts := newTestServer(t, testConfig(), true)
	rec := ts.do(adminRequest(http.MethodPost, "/api/admin/import-agencies", strings.NewReader(importCSV)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/agencies?q=berlin", nil))
	got := decode[[]core.Agency](t, rec)
	require.Len(t, got, 1)
	assert.Equal(t, "Beta", got[0].Name)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/agencies?limit=1", nil))
	assert.Len(t, decode[[]core.Agency](t, rec), 1)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/agencies?limit=abc", nil))
	assert.Len(t, decode[[]core.Agency](t, rec), 2)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/movers", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, testConfig(), true)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[healthResponse](t, rec)
	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, 1, got.Imports.MaxConcurrent)

	ts.store.Close()
	rec = ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDirectoryPage(t *testing.T) {
	ts := newTestServer(t, testConfig(), true)
	csv := "name,website,location\n<script>alert(1)</script>,evil.example,Oslo\n"
	require.Equal(t, http.StatusOK, ts.do(adminRequest(http.MethodPost, "/api/admin/import-agencies", strings.NewReader(csv))).Code)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/?q=%22%3E", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.NotContains(t, rec.Body.String(), `value="">`)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/", nil))
	body := rec.Body.String()
	assert.Contains(t, body, "&lt;script&gt;alert(1)&lt;/script&gt;")
	assert.NotContains(t, body, "<script>alert(1)")
	assert.Contains(t, body, `href="https://evil.example"`)
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestSafeHref(t *testing.T) {
	assert.Equal(t, "https://a.example", safeHref("https://a.example"))
	assert.Equal(t, "#", safeHref("javascript:alert(1)"))
	assert.Equal(t, "#", safeHref(""))
}

func TestRateLimiter(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, SubmitLimit: 2}
	ts := newTestServer(t, cfg, false)

	for i := 0; i < 2; i++ {
		rec := ts.do(submitRequest(t, map[string]string{captchaField: "tok"}, ""))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "attempt %d", i+1)
	}
	rec := ts.do(submitRequest(t, map[string]string{captchaField: "tok"}, ""))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/agencies", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "other routes use the general limit")
}

func TestRateLimiter_WindowResets(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := &rateLimiter{visitors: map[string]*visitor{}, rate: 1, window: time.Minute, now: func() time.Time { return now }}

	assert.True(t, rl.allow("1.1.1.1"))
	assert.False(t, rl.allow("1.1.1.1"))
	assert.True(t, rl.allow("2.2.2.2"), "limits are per IP")

	now = now.Add(61 * time.Second)
	assert.True(t, rl.allow("1.1.1.1"))
}
