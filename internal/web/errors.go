package web

// errors.go turns service errors into JSON responses.
//
// Every error is logged server-side with the request id and the technical
// message. Clients get the catalog message from core.MapError, its code and
// a suggested action. Endpoints with a fixed failure message (the public
// form answers "Submission failed.") pass it as fallback; it replaces any
// server-side error and pins the status to 500.

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/agencydir/internal/core"
	"github.com/JonMunkholm/agencydir/internal/logging"
)

// errNoFile is returned when a multipart import has no file part.
var errNoFile = errors.New("no file provided")

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	Detail  string `json:"detail,omitempty"`
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var (
		missing  *core.MissingColumnsError
		dup      *core.DuplicateColumnError
		tooLarge *http.MaxBytesError
	)
	switch {
	case errors.As(err, &tooLarge), strings.Contains(err.Error(), "request body too large"):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &missing), errors.As(err, &dup),
		errors.Is(err, core.ErrNoRows),
		errors.Is(err, core.ErrMissingSubmission),
		errors.Is(err, core.ErrCaptchaMissing),
		errors.Is(err, core.ErrCaptchaFailed),
		errors.Is(err, core.ErrEvidenceType),
		errors.Is(err, errNoFile):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// detailFor exposes the parts of an error that are safe and useful to show,
// such as which header columns were missing.
func detailFor(err error) string {
	var (
		missing *core.MissingColumnsError
		dup     *core.DuplicateColumnError
	)
	switch {
	case errors.As(err, &missing):
		return missing.Error()
	case errors.As(err, &dup):
		return dup.Error()
	}
	return ""
}

// respondError logs err and writes the mapped response. A non-empty
// fallback replaces the message of every server-side failure.
func respondError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := statusFor(err)
	msg := core.MapError(err)
	if fallback != "" && status >= http.StatusInternalServerError {
		status = http.StatusInternalServerError
		msg = core.UserMessage{Message: fallback, Code: msg.Code}
	}

	log := logging.FromContext(r.Context())
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	log.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", msg.Code,
		"error", err.Error(),
	)

	resp := ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
		Detail:  detailFor(err),
	}
	writeJSONStatus(w, status, resp)
}
