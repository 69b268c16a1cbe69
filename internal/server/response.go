package server

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/mapsignal/crimegrid/internal/region"
)

// geocodeResponse is the /geocode response body. Center is omitted entirely
// when the address did not resolve.
type geocodeResponse struct {
	Center *region.Coordinate `json:"center,omitempty"`
	Areas  []areaPayload      `json:"areas"`
}

// areaPayload is one scored region in the response. Geometry is the boundary
// as a GeoJSON MultiPolygon.
type areaPayload struct {
	GeoID           string          `json:"geo_id"`
	County          string          `json:"county"`
	CrimePercentile float64         `json:"crime_percentile"`
	Geometry        json.RawMessage `json:"geometry"`
}

func encodeAreas(areas []region.Area) ([]areaPayload, error) {
	out := make([]areaPayload, 0, len(areas))
	for _, a := range areas {
		geometry, err := geojson.Marshal(a.Region.Geometry)
		if err != nil {
			return nil, eris.Wrapf(err, "server: encode geometry for %s", a.Region.GeoID)
		}
		out = append(out, areaPayload{
			GeoID:           a.Region.GeoID,
			County:          a.Region.County,
			CrimePercentile: a.CrimePercentile,
			Geometry:        geometry,
		})
	}
	return out, nil
}
