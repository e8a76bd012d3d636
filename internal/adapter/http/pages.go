package http

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/couchcryptid/quake-felt-service/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

type pages struct {
	mapPage      *template.Template
	reportForm   *template.Template
	confirmation *template.Template
}

type mapData struct {
	Region       domain.Region
	CenterLat    float64
	CenterLon    float64
	DefaultQuery domain.EventQuery
}

func mustParsePages() *pages {
	parse := func(name string) *template.Template {
		return template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/"+name))
	}
	return &pages{
		mapPage:      parse("map.html"),
		reportForm:   parse("report.html"),
		confirmation: parse("confirmation.html"),
	}
}

func (s *Server) handleMap(w http.ResponseWriter, _ *http.Request) {
	lat, lon := domain.Albania.Center()
	s.render(w, s.pages.mapPage, mapData{
		Region:       domain.Albania,
		CenterLat:    lat,
		CenterLon:    lon,
		DefaultQuery: domain.DefaultEventQuery(),
	})
}

func (s *Server) handleReportForm(w http.ResponseWriter, _ *http.Request) {
	s.render(w, s.pages.reportForm, domain.PerceptionFields)
}

// render executes into a buffer first so a template error still yields a
// clean 500.
func (s *Server) render(w http.ResponseWriter, t *template.Template, data any) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		writeError(w, s.logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
