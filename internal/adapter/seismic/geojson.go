package seismic

import (
	"github.com/couchcryptid/quake-felt-service/internal/domain"
	"github.com/paulmach/orb/geojson"
)

// EventsGeoJSON renders events as a feature collection for the map page.
func EventsGeoJSON(events []domain.EarthquakeEvent) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, e := range events {
		f := geojson.NewFeature(e.Point())
		f.Properties["mag"] = e.Magnitude
		f.Properties["time"] = e.Timestamp
		f.Properties["depth"] = e.Depth
		fc.Append(f)
	}
	return fc
}
