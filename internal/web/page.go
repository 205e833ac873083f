package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/agencydir/internal/core"
	"github.com/JonMunkholm/agencydir/internal/logging"
)

// directoryPage is the public listing. It degrades to a plain table so the
// directory is readable without JavaScript.
func directoryPage(query string, agencies []core.Agency, movers []core.Mover) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Agency Directory</title>
<style>
body{font-family:system-ui,sans-serif;margin:2rem auto;max-width:64rem;padding:0 1rem;color:#1f2937}
table{border-collapse:collapse;width:100%}th,td{text-align:left;padding:.5rem;border-bottom:1px solid #e5e7eb;vertical-align:top}
.badge{font-size:.75rem;padding:.1rem .4rem;border-radius:.25rem;background:#f3f4f6}
.Med{background:#dcfce7}.muted{color:#6b7280}
</style>
</head>
<body>
<h1>Agency Directory</h1>
`); err != nil {
			return err
		}
		if err := searchForm(query).Render(ctx, w); err != nil {
			return err
		}
		if len(movers) > 0 && query == "" {
			if err := moversList(movers).Render(ctx, w); err != nil {
				return err
			}
		}
		if err := agencyTable(agencies).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</body>\n</html>\n")
		return err
	})
}

func searchForm(query string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<form method="get" action="/">
<input type="search" name="q" value="%s" placeholder="Search name, location or service">
<button type="submit">Search</button>
</form>
`, templ.EscapeString(query))
		return err
	})
}

func moversList(movers []core.Mover) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString("<h2>Movers</h2>\n<ul>\n")
		for _, m := range movers {
			fmt.Fprintf(&b, "<li>%s <span class=\"muted\">%d → %d (%+d)</span></li>\n",
				templ.EscapeString(m.Name), m.ScorePrev, m.Score, m.Delta)
		}
		b.WriteString("</ul>\n")
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func agencyTable(agencies []core.Agency) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if len(agencies) == 0 {
			_, err := io.WriteString(w, "<p class=\"muted\">No agencies found.</p>\n")
			return err
		}

		var b strings.Builder
		b.WriteString("<table>\n<thead><tr><th>Agency</th><th>Location</th><th>Services</th><th>Score</th><th>Verification</th></tr></thead>\n<tbody>\n")
		for _, a := range agencies {
			fmt.Fprintf(&b, "<tr><td><a href=\"%s\" rel=\"nofollow noopener\">%s</a>",
				templ.EscapeString(safeHref(a.Website)), templ.EscapeString(a.Name))
			for _, h := range a.Highlights {
				fmt.Fprintf(&b, "<br><small class=\"muted\">%s</small>", templ.EscapeString(h))
			}
			fmt.Fprintf(&b, "</td><td>%s</td><td>%s</td><td>%d</td><td><span class=\"badge %s\">%s · %s</span></td></tr>\n",
				templ.EscapeString(a.Location),
				templ.EscapeString(strings.Join(a.Services, ", ")),
				a.Score,
				templ.EscapeString(string(a.Confidence)),
				templ.EscapeString(string(a.Confidence)),
				templ.EscapeString(string(a.Verification)),
			)
		}
		b.WriteString("</tbody>\n</table>\n")
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// safeHref only links http(s) URLs; anything else renders as "#".
func safeHref(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "#"
	}
	return u.String()
}

func (s *Server) handleDirectoryPage(w http.ResponseWriter, r *http.Request) {
	q := listQuery(r)
	agencies, err := s.service.ListAgencies(r.Context(), q)
	if err != nil {
		respondError(w, r, err, "")
		return
	}

	var movers []core.Mover
	if q.Search == "" {
		if movers, err = s.service.Movers(r.Context()); err != nil {
			respondError(w, r, err, "")
			return
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := directoryPage(q.Search, agencies, movers).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render directory page", "error", err)
	}
}
