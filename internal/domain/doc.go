// Package domain models earthquake events for the Albania map and the
// "felt it" reports users submit about them.
//
// # Data Source
//
// Events come from an FDSN event web service (by default the EMSC
// seismic portal at https://www.seismicportal.eu/fdsnws/event/1/query)
// queried with a fixed bounding box around Albania. The provider answers
// with a GeoJSON feature collection:
//
//	{"features": [{"geometry": {"coordinates": [lon, lat, -depth]},
//	               "properties": {"mag": 3.4, "time": "...", "depth": 10.0}}]}
//
// Coordinates follow GeoJSON order, longitude first. Depth is read from
// properties.depth, not from the third coordinate.
//
// Time format:
//
//	EMSC returns ISO-8601 strings ("2024-03-02T11:04:12.3Z"); USGS-style
//	providers return epoch milliseconds. Both normalize to epoch millis.
//
// An HTTP 204 from the provider means "no events for this query" and is
// reported as [ErrNoData], never as an empty list.
//
// # Felt Reports
//
// A report carries five ordinal perception scores, each 1 (barely) to
// 5 (violent):
//
//	shaking   how strong the ground motion felt
//	duration  how long it lasted
//	objects   whether things fell or moved
//	reaction  how people around reacted
//	damage    visible structural damage
//
// The scores feed a magnitude estimator (see package estimator). Reports
// are append-only and numbered from 1 in submission order.
package domain
