package core

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Row skip reasons. They are counted, never reported as row errors.
var (
	ErrEmptyName      = errors.New("name is empty")
	ErrInvalidWebsite = errors.New("website is empty or not a URL")
)

// Import placeholders for unverified listings.
const (
	DefaultSource   = "Seeded"
	ImportScore     = 10
	unverifiedBlurb = "Unverified (claim to update / verify)"
)

var schemeRe = regexp.MustCompile(`(?i)^https?://`)

// NormalizeURL canonicalizes a website to scheme://host/path with a
// lowercase host, no port, no trailing slash, and no query or fragment. https:// is
// assumed when no http(s) scheme is given. Anything that does not parse as
// a URL with a host normalizes to "".
func NormalizeURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if !schemeRe.MatchString(s) {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" || u.Hostname() == "" {
		return ""
	}

	host := strings.ToLower(u.Hostname())
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	path := strings.TrimRight(u.EscapedPath(), "/")
	return strings.ToLower(u.Scheme) + "://" + host + path
}

// SplitList splits a semicolon-separated cell into trimmed, non-empty items
// in source order. It never returns nil.
func SplitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ";") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Record is one normalized directory row.
type Record struct {
	Name           string
	Website        string
	Location       string
	PrimaryService string
	Services       []string
	Industries     []string
	Source         string
	Country        string
	City           string
	SourceURL      string
	Blurb          string
	Keywords       string
}

// NormalizeRow maps a raw row through h into a Record. It returns
// ErrEmptyName or ErrInvalidWebsite when the row must be skipped.
// Missing optional columns yield empty values.
func NormalizeRow(h HeaderIndex, row []string) (Record, error) {
	rec := Record{
		Name:       h.Cell(row, ColName),
		Website:    NormalizeURL(h.Cell(row, ColWebsite)),
		Services:   SplitList(h.Cell(row, ColServices)),
		Industries: SplitList(h.Cell(row, ColIndustries)),
		Source:     h.Cell(row, ColSource),
		Country:    h.Cell(row, ColCountry),
		City:       h.Cell(row, ColCity),
		SourceURL:  h.Cell(row, ColSourceURL),
		Blurb:      h.Cell(row, ColBlurb),
		Keywords:   h.Cell(row, ColKeywords),
	}
	if rec.Name == "" {
		return Record{}, ErrEmptyName
	}
	if rec.Website == "" {
		return Record{}, ErrInvalidWebsite
	}

	rec.Location = h.Cell(row, ColLocation)
	if rec.Location == "" {
		rec.Location = joinNonEmpty(", ", rec.City, rec.Country)
	}

	rec.PrimaryService = h.Cell(row, ColPrimaryService)
	if rec.PrimaryService == "" && len(rec.Services) > 0 {
		rec.PrimaryService = rec.Services[0]
	}
	if len(rec.Services) == 0 && rec.PrimaryService != "" {
		rec.Services = []string{rec.PrimaryService}
	}

	return rec, nil
}

// Agency builds the unverified listing persisted for an imported record.
func (r Record) Agency(id string, now time.Time) *Agency {
	source := r.Source
	if source == "" {
		source = DefaultSource
	}
	return &Agency{
		ID:             id,
		Name:           r.Name,
		Website:        r.Website,
		Location:       r.Location,
		PrimaryService: r.PrimaryService,
		Services:       r.Services,
		Industries:     r.Industries,
		Highlights:     []string{"Seeded listing (" + source + ")", unverifiedBlurb},
		Source:         source,
		Country:        r.Country,
		City:           r.City,
		SourceURL:      r.SourceURL,
		Blurb:          r.Blurb,
		Keywords:       r.Keywords,
		Score:          ImportScore,
		Confidence:     ConfidenceLow,
		Verification:   VerificationUnverified,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
