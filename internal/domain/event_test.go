package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFeltReport_StampsUTC(t *testing.T) {
	submitted := time.Date(2024, 11, 3, 9, 30, 0, 0, time.FixedZone("CET", 3600))

	r := NewFeltReport("Durrës", Perception{Shaking: 3, Duration: 2, Objects: 1, Reaction: 2, Damage: 1}, 3.1, "formula", submitted)

	assert.Equal(t, "2024-11-03T08:30:00Z", r.SubmissionTime)
	assert.Zero(t, r.ID)
	assert.Equal(t, "Durrës", r.Location)
	assert.Equal(t, 3.1, r.PredictedMagnitude)
}

func TestFeltReport_JSONShape(t *testing.T) {
	r := FeltReport{
		ID:                 7,
		Perception:         Perception{Shaking: 5, Duration: 4, Objects: 5, Reaction: 5, Damage: 5},
		PredictedMagnitude: 4.6,
		SubmissionTime:     "2024-11-03T08:30:00Z",
	}

	data, err := json.Marshal(r)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"id": 7,
		"shaking": 5, "duration": 4, "objects": 5, "reaction": 5, "damage": 5,
		"predicted_magnitude": 4.6,
		"submission_time": "2024-11-03T08:30:00Z"
	}`, string(data))
}

func TestEarthquakeEvent_PointAndTime(t *testing.T) {
	e := EarthquakeEvent{Latitude: 41.33, Longitude: 19.82, Timestamp: 1709377452300}

	assert.Equal(t, 19.82, e.Point().Lon())
	assert.Equal(t, 41.33, e.Point().Lat())
	assert.Equal(t, time.Date(2024, 3, 2, 11, 4, 12, 300_000_000, time.UTC), e.Time())
}

func TestRegion_Albania(t *testing.T) {
	assert.True(t, Albania.Contains(41.33, 19.82), "Tirana")
	assert.True(t, Albania.Contains(39.5, 19.2), "corner is inclusive")
	assert.False(t, Albania.Contains(44.8, 20.46), "Belgrade")

	lat, lon := Albania.Center()
	assert.InDelta(t, 41.1, lat, 1e-9)
	assert.InDelta(t, 20.15, lon, 1e-9)
}
