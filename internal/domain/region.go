package domain

import "github.com/paulmach/orb"

// Region is a named WGS-84 bounding box that events are queried within.
type Region struct {
	Name  string
	Bound orb.Bound
}

// Albania is the only region the service covers.
var Albania = Region{
	Name: "Albania",
	Bound: orb.Bound{
		Min: orb.Point{19.2, 39.5},
		Max: orb.Point{21.1, 42.7},
	},
}

// Contains reports whether the point lies inside the region, edges included.
func (r Region) Contains(lat, lon float64) bool {
	return r.Bound.Contains(orb.Point{lon, lat})
}

// Center returns the region midpoint as (lat, lon) for map initialisation.
func (r Region) Center() (lat, lon float64) {
	c := r.Bound.Center()
	return c.Lat(), c.Lon()
}
