package dataset

import (
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/mapsignal/crimegrid/internal/region"
)

// ParseCountyShapefile reads a TIGER/Line county shapefile into regions.
// GEOID becomes the geo_id, NAMELSAD (falling back to NAME) the county label,
// and INTPTLAT/INTPTLON the representative interior point.
func ParseCountyShapefile(shpPath string) ([]*region.Region, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	// Build field name → index map.
	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	attr := func(name string) string {
		idx, ok := fieldIdx[name]
		if !ok {
			return ""
		}
		return strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
	}

	var regions []*region.Region
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		geoID := attr("geoid")
		if geoID == "" {
			skipped++
			continue
		}

		county := attr("namelsad")
		if county == "" {
			county = attr("name")
		}

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		mp := polygonToMultiPolygon(poly)
		if mp == nil {
			skipped++
			continue
		}

		r := &region.Region{
			GeoID:    geoID,
			County:   county,
			Geometry: mp,
			RepPoint: interiorPoint(attr("intptlat"), attr("intptlon"), mp),
		}
		regions = append(regions, r)
	}

	if skipped > 0 {
		zap.L().Debug("dataset: skipped shapefile records",
			zap.String("path", shpPath),
			zap.Int("skipped", skipped),
		)
	}

	return regions, nil
}

// interiorPoint parses the TIGER INTPTLAT/INTPTLON attributes (signed decimal
// strings like "+29.8577590"), falling back to the first boundary vertex.
func interiorPoint(latStr, lonStr string, mp *geom.MultiPolygon) region.Coordinate {
	lat, latErr := strconv.ParseFloat(strings.TrimPrefix(latStr, "+"), 64)
	lon, lonErr := strconv.ParseFloat(strings.TrimPrefix(lonStr, "+"), 64)
	if latErr == nil && lonErr == nil {
		return region.Coordinate{Lat: lat, Lon: lon}
	}

	fc := mp.FlatCoords()
	if len(fc) >= 2 {
		return region.Coordinate{Lat: fc[1], Lon: fc[0]}
	}
	return region.Coordinate{}
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		coords := make([]geom.Coord, 0, end-start)
		for j := start; j < end; j++ {
			coords = append(coords, geom.Coord{p.Points[j].X, p.Points[j].Y})
		}

		ring := geom.NewLinearRingFlat(geom.XY, flatCoords(coords))
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("dataset: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}

		if err := mp.Push(poly); err != nil {
			zap.L().Debug("dataset: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

func flatCoords(coords []geom.Coord) []float64 {
	flat := make([]float64, 0, len(coords)*2)
	for _, c := range coords {
		flat = append(flat, c[0], c[1])
	}
	return flat
}
