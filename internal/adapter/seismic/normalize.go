package seismic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/quake-felt-service/internal/domain"
)

// NormalizeError reports the first feature that lacks a required key.
type NormalizeError struct {
	Index int
	Field string
	Err   error
}

func (e *NormalizeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("feature %d: invalid %s: %v", e.Index, e.Field, e.Err)
	}
	return fmt.Sprintf("feature %d: missing %s", e.Index, e.Field)
}

func (e *NormalizeError) Unwrap() error { return e.Err }

// Provider response types.

type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	Geometry   *geometry                  `json:"geometry"`
	Properties map[string]json.RawMessage `json:"properties"`
}

type geometry struct {
	Coordinates []*float64 `json:"coordinates"` // [lon, lat, ...]; nil marks a JSON null
}

// timeLayouts are tried in order for string timestamps.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// Normalize flattens a provider payload into events, one per feature.
// A missing features key means no events. Any feature missing geometry
// coordinates or properties mag, time, or depth fails the whole payload.
func Normalize(payload []byte) ([]domain.EarthquakeEvent, error) {
	var fc featureCollection
	if err := json.Unmarshal(payload, &fc); err != nil {
		return nil, fmt.Errorf("decode event payload: %w", err)
	}

	events := make([]domain.EarthquakeEvent, 0, len(fc.Features))
	for i, f := range fc.Features {
		e, err := normalizeFeature(i, f)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

func normalizeFeature(i int, f feature) (domain.EarthquakeEvent, error) {
	if f.Geometry == nil {
		return domain.EarthquakeEvent{}, &NormalizeError{Index: i, Field: "geometry"}
	}
	coords := f.Geometry.Coordinates
	if len(coords) < 2 || coords[0] == nil || coords[1] == nil {
		return domain.EarthquakeEvent{}, &NormalizeError{Index: i, Field: "geometry.coordinates"}
	}
	if f.Properties == nil {
		return domain.EarthquakeEvent{}, &NormalizeError{Index: i, Field: "properties"}
	}

	mag, err := floatProperty(i, f.Properties, "mag")
	if err != nil {
		return domain.EarthquakeEvent{}, err
	}
	depth, err := floatProperty(i, f.Properties, "depth")
	if err != nil {
		return domain.EarthquakeEvent{}, err
	}
	ts, err := timeProperty(i, f.Properties)
	if err != nil {
		return domain.EarthquakeEvent{}, err
	}

	return domain.EarthquakeEvent{
		Latitude:  *coords[1],
		Longitude: *coords[0],
		Magnitude: mag,
		Timestamp: ts,
		Depth:     depth,
	}, nil
}

func rawProperty(i int, props map[string]json.RawMessage, key string) (json.RawMessage, error) {
	raw, ok := props[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, &NormalizeError{Index: i, Field: "properties." + key}
	}
	return raw, nil
}

func floatProperty(i int, props map[string]json.RawMessage, key string) (float64, error) {
	raw, err := rawProperty(i, props, key)
	if err != nil {
		return 0, err
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, &NormalizeError{Index: i, Field: "properties." + key, Err: err}
	}
	return v, nil
}

// timeProperty accepts epoch milliseconds or an ISO-8601 string.
func timeProperty(i int, props map[string]json.RawMessage) (int64, error) {
	raw, err := rawProperty(i, props, "time")
	if err != nil {
		return 0, err
	}

	var ms float64
	if err := json.Unmarshal(raw, &ms); err == nil {
		return int64(ms), nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, &NormalizeError{Index: i, Field: "properties.time", Err: err}
	}
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, &NormalizeError{Index: i, Field: "properties.time", Err: fmt.Errorf("unrecognised timestamp %q", s)}
}
