package core

import (
	"path"
	"regexp"
	"strings"
)

const maxEvidenceFilename = 120

var unsafeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

var allowedEvidenceExt = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// SanitizeFilename replaces every character outside [A-Za-z0-9._-] with '_'
// and truncates to 120 characters. An empty name becomes "evidence".
func SanitizeFilename(name string) string {
	if name == "" {
		name = "evidence"
	}
	name = unsafeFilenameRe.ReplaceAllString(name, "_")
	if len(name) > maxEvidenceFilename {
		name = name[:maxEvidenceFilename]
	}
	return name
}

// IsAllowedEvidence reports whether a sanitized filename has a PDF, PNG or
// JPEG extension.
func IsAllowedEvidence(name string) bool {
	return allowedEvidenceExt[strings.ToLower(path.Ext(name))]
}

// EvidenceKey is the bucket key for a submission's evidence file.
func EvidenceKey(submissionID, filename string) string {
	return "submissions/" + submissionID + "/evidence/" + filename
}
