package web

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/JonMunkholm/agencydir/internal/core"
)

// multipartMemory is the in-memory part of a parsed multipart form; larger
// files spill to temporary files.
const multipartMemory = 8 << 20

type importResponse struct {
	OK bool `json:"ok"`
	*core.ImportOutcome
}

// handleImportAgencies accepts a CSV either as the multipart field "file"
// or as the raw request body.
func (s *Server) handleImportAgencies(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxBodySize)

	body, err := importBody(r)
	if err != nil {
		respondError(w, r, err, "")
		return
	}
	defer body.Close()

	outcome, err := s.service.ImportCSV(r.Context(), body)
	if err != nil {
		respondError(w, r, err, "")
		return
	}
	writeJSON(w, importResponse{OK: true, ImportOutcome: outcome})
}

func importBody(r *http.Request) (io.ReadCloser, error) {
	if !isMultipart(r) {
		return r.Body, nil
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, err
	}
	f, _, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, errNoFile
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	subs, err := s.service.PendingSubmissions(r.Context())
	if err != nil {
		respondError(w, r, err, "")
		return
	}
	writeJSON(w, subs)
}

type approveRequest struct {
	SubmissionID string `json:"submission_id"`
}

type approveResponse struct {
	OK       bool   `json:"ok"`
	AgencyID string `json:"agency_id"`
}

// handleApprove publishes a pending submission. A body that is not JSON is
// treated like one without submission_id.
func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	_ = json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req)

	agency, err := s.service.Approve(r.Context(), strings.TrimSpace(req.SubmissionID))
	if err != nil {
		respondError(w, r, err, "")
		return
	}
	writeJSON(w, approveResponse{OK: true, AgencyID: agency.ID})
}

func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.ImportStatus())
}
