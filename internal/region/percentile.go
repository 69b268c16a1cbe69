package region

import "sort"

// NeutralPercentile is the score assigned to regions with no crime statistic.
// Mid-scale was inherited from the reference dataset so that unknown regions
// still render in the overlay; note it makes "unknown" look like "average".
const NeutralPercentile = 50.0

// Normalizer converts raw crime statistics into 0-100 percentile ranks over
// the full population of regions with a known statistic. It is deterministic
// for a given snapshot and safe for concurrent use.
type Normalizer struct {
	snap   *Snapshot
	sorted []float64 // known statistics, ascending
}

// NewNormalizer precomputes the statistic population for the snapshot.
func NewNormalizer(snap *Snapshot) *Normalizer {
	var stats []float64
	for _, r := range snap.Regions() {
		if r.Stat != nil {
			stats = append(stats, *r.Stat)
		}
	}
	sort.Float64s(stats)
	return &Normalizer{snap: snap, sorted: stats}
}

// Percentile returns 100 x (count of statistics <= this region's statistic) /
// population size. A region without a statistic gets NeutralPercentile rather
// than failing; a strictly higher statistic never yields a lower percentile.
func (n *Normalizer) Percentile(geoID string) float64 {
	s, ok := n.snap.StatisticFor(geoID)
	if !ok || len(n.sorted) == 0 {
		return NeutralPercentile
	}

	// Index of the first statistic strictly greater than s = count of <= s.
	le := sort.Search(len(n.sorted), func(i int) bool { return n.sorted[i] > s })
	return 100 * float64(le) / float64(len(n.sorted))
}
