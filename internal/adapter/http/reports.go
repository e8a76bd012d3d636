package http

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"

	"github.com/couchcryptid/quake-felt-service/internal/domain"
	"github.com/couchcryptid/quake-felt-service/internal/estimator"
	"github.com/couchcryptid/quake-felt-service/internal/service"
)

const maxBodyBytes = 64 << 10

type submitResponse struct {
	Message            string  `json:"message"`
	PredictedMagnitude float64 `json:"predicted_magnitude"`
}

type estimateResponse struct {
	Strategy           estimator.Strategy `json:"strategy"`
	PredictedMagnitude float64            `json:"predicted_magnitude"`
}

// handleReportJSON accepts a JSON report and estimates with the regression
// model.
func (s *Server) handleReportJSON(w http.ResponseWriter, r *http.Request) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		writeError(w, s.logger, badRequest("Content-Type must be application/json"))
		return
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		writeError(w, s.logger, badRequest("invalid JSON body"))
		return
	}

	p, err := domain.ParsePerception(jsonLookup(body), s.reports.Strict())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	location, _ := body["location"].(string)

	report, err := s.reports.Submit(r.Context(), service.Submission{
		Location:   location,
		Perception: p,
		Strategy:   estimator.StrategyRegression,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{
		Message:            "Report submitted successfully",
		PredictedMagnitude: report.PredictedMagnitude,
	})
}

// handleSubmitForm accepts the form-encoded report page and estimates with
// the formula.
func (s *Server) handleSubmitForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		writeError(w, s.logger, badRequest("invalid form body"))
		return
	}

	p, err := domain.ParsePerception(formLookup(r.PostForm), s.reports.Strict())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	report, err := s.reports.Submit(r.Context(), service.Submission{
		Location:   r.PostForm.Get("location"),
		Perception: p,
		Strategy:   estimator.StrategyFormula,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	s.render(w, s.pages.confirmation, report)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.reports.List(r.Context())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// handleEstimate is a dry run: it estimates from query parameters and
// stores nothing.
func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()

	strategy := estimator.StrategyFormula
	if name := v.Get("strategy"); name != "" {
		parsed, err := estimator.ParseStrategy(name)
		if err != nil {
			writeError(w, s.logger, badRequest(err.Error()))
			return
		}
		strategy = parsed
	}

	p, err := domain.ParsePerception(formLookup(v), s.reports.Strict())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	mag, err := s.reports.Estimate(p, strategy)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, estimateResponse{Strategy: strategy, PredictedMagnitude: mag})
}

func formLookup(v url.Values) func(string) (string, bool) {
	return func(name string) (string, bool) {
		vals, ok := v[name]
		if !ok || len(vals) == 0 {
			return "", false
		}
		return vals[0], true
	}
}

func jsonLookup(body map[string]any) func(string) (string, bool) {
	return func(name string) (string, bool) {
		raw, ok := body[name]
		if !ok || raw == nil {
			return "", false
		}
		switch v := raw.(type) {
		case json.Number:
			return v.String(), true
		case string:
			return v, true
		default:
			return fmt.Sprint(v), true
		}
	}
}
