package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// TokenVerifier decides whether a bearer token grants admin access.
type TokenVerifier interface {
	VerifyToken(token string) bool
}

// TokenVerifierFunc adapts a function to TokenVerifier.
type TokenVerifierFunc func(token string) bool

func (f TokenVerifierFunc) VerifyToken(token string) bool { return f(token) }

// StaticTokens accepts any of a fixed set of shared secrets. Empty entries
// never match, so an empty set rejects everything.
type StaticTokens []string

func (s StaticTokens) VerifyToken(token string) bool { return isValidToken(token, s) }

// BearerAuth returns middleware that requires "Authorization: Bearer <token>"
// accepted by verifier. Anything else, including a missing header, is
// answered with 401.
func BearerAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok || !verifier.VerifyToken(token) {
				slog.Warn("auth: rejected admin request",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
					"header_present", r.Header.Get("Authorization") != "",
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="admin"`)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"Unauthorized","code":"AUTH001"}` + "\n"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// isValidToken checks token against every configured token in constant
// time, so timing does not reveal which one (if any) matched.
func isValidToken(token string, valid []string) bool {
	match := 0
	for _, v := range valid {
		if v == "" {
			continue
		}
		match |= subtle.ConstantTimeCompare([]byte(token), []byte(v))
	}
	return match == 1
}
