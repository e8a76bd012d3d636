package domain

import (
	"time"

	"github.com/paulmach/orb"
)

// EarthquakeEvent is a single upstream feature flattened for the map.
// It is rebuilt on every query and never stored.
type EarthquakeEvent struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Magnitude float64 `json:"magnitude"`
	Timestamp int64   `json:"timestamp"` // epoch milliseconds
	Depth     float64 `json:"depth"`
}

// Point returns the event epicenter in orb (lon, lat) order.
func (e EarthquakeEvent) Point() orb.Point {
	return orb.Point{e.Longitude, e.Latitude}
}

// Time returns the event origin time in UTC.
func (e EarthquakeEvent) Time() time.Time {
	return time.UnixMilli(e.Timestamp).UTC()
}

// EventQuery selects events inside the service region.
type EventQuery struct {
	StartDate    string
	EndDate      string
	MinMagnitude float64
}

// Query defaults applied when a parameter is omitted.
const (
	DefaultStartDate    = "2024-01-01"
	DefaultEndDate      = "2025-12-31"
	DefaultMinMagnitude = 3.0
)

// DefaultEventQuery returns the query used when no parameters are given.
func DefaultEventQuery() EventQuery {
	return EventQuery{
		StartDate:    DefaultStartDate,
		EndDate:      DefaultEndDate,
		MinMagnitude: DefaultMinMagnitude,
	}
}

// FeltReport is a stored "felt it" submission.
type FeltReport struct {
	ID       int    `json:"id"`
	Location string `json:"location,omitempty"`
	Perception
	PredictedMagnitude float64 `json:"predicted_magnitude"`
	SubmissionTime     string  `json:"submission_time"`
	Strategy           string  `json:"strategy,omitempty"`
}

// NewFeltReport builds an unnumbered report stamped with submitted in UTC.
// The store assigns the ID on append.
func NewFeltReport(location string, p Perception, magnitude float64, strategy string, submitted time.Time) FeltReport {
	return FeltReport{
		Location:           location,
		Perception:         p,
		PredictedMagnitude: magnitude,
		SubmissionTime:     submitted.UTC().Format(time.RFC3339),
		Strategy:           strategy,
	}
}

// WithDefaults fills empty dates with the package defaults.
func (q EventQuery) WithDefaults() EventQuery {
	if q.StartDate == "" {
		q.StartDate = DefaultStartDate
	}
	if q.EndDate == "" {
		q.EndDate = DefaultEndDate
	}
	return q
}
