// Package region holds the immutable geographic reference data and the
// percentile scoring used to annotate the regions surrounding a point.
package region

import "github.com/twpayne/go-geom"

// DefaultOffsetDeg is the half-width, in degrees, of the square search box
// used by RegionsNear. 0.4 degrees is roughly 10 km of longitude at Texas
// latitudes; the frontend recomputes its viewing bound with the same figure.
const DefaultOffsetDeg = 0.4

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// BBox is a geographic bounding box, inclusive on all edges.
type BBox struct {
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
}

// Around returns the square box of half-width offsetDeg centered on c.
func Around(c Coordinate, offsetDeg float64) BBox {
	return BBox{
		MinLat: c.Lat - offsetDeg,
		MinLon: c.Lon - offsetDeg,
		MaxLat: c.Lat + offsetDeg,
		MaxLon: c.Lon + offsetDeg,
	}
}

// Contains reports whether the point lies inside the box.
func (b BBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Region is one geo-ID area: boundary polygon, administrative label, and the
// raw crime statistic when one is known. Regions are reference data, loaded
// once per process and never mutated afterwards.
type Region struct {
	GeoID    string
	County   string
	Geometry *geom.MultiPolygon
	RepPoint Coordinate // representative interior point
	Stat     *float64   // raw crime statistic; nil when unknown
}

// Area pairs a region with its normalized crime percentile.
type Area struct {
	Region          *Region
	CrimePercentile float64
}
