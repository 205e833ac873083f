package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/agencydir/internal/core"
	"github.com/JonMunkholm/agencydir/internal/web/middleware"
)

// captchaField is the form field the Turnstile widget fills in.
const captchaField = "cf-turnstile-response"

const submitFailed = "Submission failed."

type submitResponse struct {
	SubmissionID string                `json:"submission_id"`
	Status       core.SubmissionStatus `json:"status"`
}

// handleSubmit records a public claim. Only validation failures get their
// own message; everything else is answered with "Submission failed.".
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Evidence.MaxSize)

	err := r.ParseMultipartForm(multipartMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		respondError(w, r, err, submitFailed)
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	in := core.SubmitInput{
		Fields:       formFields(r),
		CaptchaToken: r.FormValue(captchaField),
		RemoteIP:     middleware.ClientIP(r),
	}

	file, header, err := r.FormFile("evidence")
	switch {
	case err == nil:
		defer file.Close()
		in.Evidence = &core.EvidenceUpload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Body:        file,
		}
	case !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart):
		respondError(w, r, err, submitFailed)
		return
	}

	sub, err := s.service.Submit(r.Context(), in)
	if err != nil {
		respondError(w, r, err, submitFailed)
		return
	}
	writeJSON(w, submitResponse{SubmissionID: sub.ID, Status: sub.Status})
}

func formFields(r *http.Request) core.SubmissionFields {
	return core.SubmissionFields{
		AgencyName:         r.FormValue("agency_name"),
		AgencyWebsite:      r.FormValue("agency_website"),
		AgencyLocation:     r.FormValue("agency_location"),
		PrimaryService:     r.FormValue("primary_service"),
		IndustryTheme:      r.FormValue("industry_theme"),
		Channel:            r.FormValue("channel"),
		Timeframe:          r.FormValue("timeframe"),
		BudgetBand:         r.FormValue("budget_band"),
		Region:             r.FormValue("region"),
		Baseline:           r.FormValue("baseline"),
		Outcome:            r.FormValue("outcome"),
		Notes:              r.FormValue("notes"),
		ContactEmail:       r.FormValue("contact_email"),
		VerificationIntent: r.FormValue("verification_intent"),
		SubmittedFrom:      r.FormValue("submitted_from"),
	}
}

// parseIntParam returns the positive integer query parameter name, or
// defaultVal when it is absent or invalid.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

func listQuery(r *http.Request) core.ListQuery {
	return core.ListQuery{
		Search: strings.TrimSpace(r.URL.Query().Get("q")),
		Limit:  parseIntParam(r, "limit", core.MaxListLimit),
	}
}

func (s *Server) handleListAgencies(w http.ResponseWriter, r *http.Request) {
	agencies, err := s.service.ListAgencies(r.Context(), listQuery(r))
	if err != nil {
		respondError(w, r, err, "")
		return
	}
	writeJSON(w, agencies)
}

func (s *Server) handleMovers(w http.ResponseWriter, r *http.Request) {
	movers, err := s.service.Movers(r.Context())
	if err != nil {
		respondError(w, r, err, "")
		return
	}
	writeJSON(w, movers)
}

type healthResponse struct {
	Status  string                   `json:"status"`
	Imports core.ImportLimiterStatus `json:"imports"`
	Error   string                   `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Imports: s.service.ImportStatus()}
	if err := s.service.Ping(r.Context()); err != nil {
		resp.Status, resp.Error = "unavailable", "store unreachable"
		writeJSONStatus(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, resp)
}
