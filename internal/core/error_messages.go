package core

// error_messages.go maps technical errors to user-facing messages with a
// stable code that can be quoted to support.
//
//	DB001-DB007    store constraints and connectivity
//	VAL001-VAL003  header and request validation
//	FILE001-FILE004 payload and evidence files
//	SUB001-SUB003  public submission and review
//	IMP001-IMP003  import capacity and cancellation
//	RATE001        throttling
//	ERR000         fallback; check the logs for the technical error
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns come before general ones.

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors raised by the service. Their text contains the pattern
// that maps them in errorPatterns.
var (
	ErrNoRows             = errors.New("empty file: no rows to import")
	ErrMissingSubmission  = errors.New("missing submission id")
	ErrCaptchaMissing     = errors.New("missing captcha token")
	ErrCaptchaFailed      = errors.New("captcha verification failed")
	ErrEvidenceType       = errors.New("evidence file type not allowed")
	ErrSubmissionNotFound = fmt.Errorf("submission %w", ErrNotFound)
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// =========================================================================
	// Store Errors (DB001-DB007)
	// =========================================================================
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this ID already exists",
			Action:  "Re-run the import; existing listings are updated in place",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check for duplicate entries in your file",
			Code:    "DB001",
		},
	},
	{
		pattern: "not null constraint",
		msg: UserMessage{
			Message: "A required value was missing",
			Action:  "Fill in the empty cells for this row",
			Code:    "DB002",
		},
	},
	{
		pattern: "check constraint",
		msg: UserMessage{
			Message: "A value was rejected by the directory",
			Action:  "Review this row for out-of-range values",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "database is locked",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},

	// =========================================================================
	// Validation Errors (VAL001-VAL003)
	// =========================================================================
	{
		pattern: "missing required columns",
		msg: UserMessage{
			Message: "CSV must include at least: name, website",
			Action:  "Add the missing columns to the header row",
			Code:    "VAL001",
		},
	},
	{
		pattern: "duplicate column",
		msg: UserMessage{
			Message: "A column appears more than once in the header",
			Action:  "Remove or rename the repeated column",
			Code:    "VAL002",
		},
	},
	{
		pattern: "missing submission id",
		msg: UserMessage{
			Message: "submission_id is required",
			Action:  `Send a JSON body like {"submission_id": "..."}`,
			Code:    "VAL003",
		},
	},

	// =========================================================================
	// File Errors (FILE001-FILE004)
	// =========================================================================
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "Upload exceeds the maximum size",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Upload a CSV with a header row and data rows",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was provided",
			Action:  "Attach the CSV as the file field or send it as the body",
			Code:    "FILE003",
		},
	},
	{
		pattern: "evidence file type not allowed",
		msg: UserMessage{
			Message: "Evidence file type not allowed (use PDF/PNG/JPG).",
			Action:  "Attach a PDF, PNG or JPG file",
			Code:    "FILE004",
		},
	},

	// =========================================================================
	// Submission Errors (SUB001-SUB003)
	// =========================================================================
	{
		pattern: "missing captcha token",
		msg: UserMessage{
			Message: "Missing Turnstile token.",
			Action:  "Complete the challenge and submit again",
			Code:    "SUB001",
		},
	},
	{
		pattern: "captcha verification failed",
		msg: UserMessage{
			Message: "Turnstile verification failed.",
			Action:  "Reload the form and complete the challenge again",
			Code:    "SUB002",
		},
	},
	{
		pattern: "submission not found",
		msg: UserMessage{
			Message: "Not found",
			Action:  "Refresh the pending list",
			Code:    "SUB003",
		},
	},

	// =========================================================================
	// Import Errors (IMP001-IMP003)
	// =========================================================================
	{
		pattern: "too many imports",
		msg: UserMessage{
			Message: "Another import is in progress",
			Action:  "Please wait a moment and try again",
			Code:    "IMP001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "IMP002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "IMP003",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "IMP003",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. Unknown
// errors map to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matched a specific pattern rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
