package http

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/quake-felt-service/internal/adapter/seismic"
	"github.com/couchcryptid/quake-felt-service/internal/domain"
)

const dateLayout = "2006-01-02"

func (s *Server) handleEarthquakes(w http.ResponseWriter, r *http.Request) {
	events, err := s.queryEvents(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleEarthquakesGeoJSON(w http.ResponseWriter, r *http.Request) {
	events, err := s.queryEvents(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	data, err := seismic.EventsGeoJSON(events).MarshalJSON()
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) queryEvents(r *http.Request) ([]domain.EarthquakeEvent, error) {
	q, err := parseEventQuery(r.URL.Query())
	if err != nil {
		return nil, err
	}
	return s.events.QueryEvents(r.Context(), q)
}

// parseEventQuery reads startdate, enddate, and minmagnitude, falling back
// to the defaults for anything omitted. Date order is only checked when the
// caller sent both dates.
func parseEventQuery(v url.Values) (domain.EventQuery, error) {
	q := domain.DefaultEventQuery()

	if d := v.Get("startdate"); d != "" {
		if _, err := time.Parse(dateLayout, d); err != nil {
			return q, badRequest("startdate must be YYYY-MM-DD")
		}
		q.StartDate = d
	}
	if d := v.Get("enddate"); d != "" {
		if _, err := time.Parse(dateLayout, d); err != nil {
			return q, badRequest("enddate must be YYYY-MM-DD")
		}
		q.EndDate = d
	}
	if v.Get("startdate") != "" && v.Get("enddate") != "" && q.EndDate < q.StartDate {
		return q, badRequest("enddate is before startdate")
	}
	if m := v.Get("minmagnitude"); m != "" {
		mag, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return q, badRequest("minmagnitude must be a number")
		}
		q.MinMagnitude = mag
	}
	return q, nil
}
