package region

// Selector assembles the scored areas surrounding a center point: spatial
// candidates from the snapshot, percentile annotation from the normalizer.
type Selector struct {
	snap      *Snapshot
	norm      *Normalizer
	offsetDeg float64
}

// NewSelector creates a Selector. offsetDeg <= 0 falls back to DefaultOffsetDeg.
func NewSelector(snap *Snapshot, norm *Normalizer, offsetDeg float64) *Selector {
	if offsetDeg <= 0 {
		offsetDeg = DefaultOffsetDeg
	}
	return &Selector{snap: snap, norm: norm, offsetDeg: offsetDeg}
}

// OffsetDeg returns the search box half-width in degrees.
func (s *Selector) OffsetDeg() float64 { return s.offsetDeg }

// Select returns the scored areas near center, ordered by geo_id ascending.
// Each geo_id appears at most once; the result may be empty.
func (s *Selector) Select(center Coordinate) []Area {
	candidates := s.snap.RegionsNear(center, s.offsetDeg)

	areas := make([]Area, 0, len(candidates))
	for _, r := range candidates {
		areas = append(areas, Area{
			Region:          r,
			CrimePercentile: s.norm.Percentile(r.GeoID),
		})
	}
	return areas
}
