package region

import (
	"sort"

	"go.uber.org/zap"
)

// Snapshot is the read-only region store. It is built once at startup and
// shared by reference across concurrent request handlers; nothing mutates it
// after construction, so no locking is needed.
type Snapshot struct {
	regions []*Region // sorted by GeoID ascending
	byID    map[string]*Region
}

// NewSnapshot builds a snapshot from the given regions. Duplicate geo_ids keep
// the first occurrence; regions are ordered by geo_id ascending so downstream
// results are deterministic.
func NewSnapshot(regions []*Region) *Snapshot {
	byID := make(map[string]*Region, len(regions))
	deduped := make([]*Region, 0, len(regions))
	for _, r := range regions {
		if _, ok := byID[r.GeoID]; ok {
			zap.L().Warn("region: duplicate geo_id dropped", zap.String("geo_id", r.GeoID))
			continue
		}
		byID[r.GeoID] = r
		deduped = append(deduped, r)
	}

	sort.Slice(deduped, func(i, j int) bool { return deduped[i].GeoID < deduped[j].GeoID })

	return &Snapshot{regions: deduped, byID: byID}
}

// Len returns the number of regions in the snapshot.
func (s *Snapshot) Len() int { return len(s.regions) }

// Regions returns all regions in geo_id order. Callers must not modify the
// returned slice or the regions it points to.
func (s *Snapshot) Regions() []*Region { return s.regions }

// StatisticFor returns the raw crime statistic for a geo_id, or false when
// the region is unknown or carries no statistic.
func (s *Snapshot) StatisticFor(geoID string) (float64, bool) {
	r, ok := s.byID[geoID]
	if !ok || r.Stat == nil {
		return 0, false
	}
	return *r.Stat, true
}

// RegionsNear returns the regions whose representative point or any boundary
// vertex falls inside the square box of half-width offsetDeg centered on
// center, in geo_id order. This is a deliberate approximation of proximity,
// not true polygon intersection: it matches the fixed-bound recentring the
// map frontend performs, and it distorts at high latitudes the same way.
// An empty result is valid.
func (s *Snapshot) RegionsNear(center Coordinate, offsetDeg float64) []*Region {
	box := Around(center, offsetDeg)

	var out []*Region
	for _, r := range s.regions {
		if regionTouchesBox(box, r) {
			out = append(out, r)
		}
	}
	return out
}

// regionTouchesBox reports whether the region's representative point or any
// boundary vertex lies inside the box.
func regionTouchesBox(box BBox, r *Region) bool {
	if box.Contains(r.RepPoint.Lat, r.RepPoint.Lon) {
		return true
	}
	if r.Geometry == nil {
		return false
	}

	// Flat coords are [lon lat lon lat ...] for XY layouts.
	fc := r.Geometry.FlatCoords()
	stride := r.Geometry.Stride()
	for i := 0; i+1 < len(fc); i += stride {
		if box.Contains(fc[i+1], fc[i]) {
			return true
		}
	}
	return false
}
