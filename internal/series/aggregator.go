// Package series turns per-cycle price snapshots into bounded series that
// share one time axis.
//
// Alignment rule: only one timestamp sequence is kept. A series with n points
// is right-aligned against it, so point i belongs to timestamp
// len(timestamps) - n + i. An identifier that started reporting later simply
// has fewer points; its last point is always the latest timestamp it reported
// for. Left-aligning would silently shift late joiners onto old timestamps.
package series

import (
	"math"
	"slices"
	"sync"
	"time"
)

// DefaultMaxPoints is the window kept per series and for the shared axis.
const DefaultMaxPoints = 60

// Series is a right-aligned, read-only copy of one identifier's history.
// len(Points) == len(Timestamps); a NaN point marks a cycle where the
// provider returned no usable price.
type Series struct {
	Points     []float64   `json:"points"`
	Timestamps []time.Time `json:"timestamps"`
}

// Aggregator owns the series. Series are never pruned when an identifier is
// no longer followed; they only age out of the window or go away on Reset.
type Aggregator struct {
	mu         sync.RWMutex
	maxPoints  int
	timestamps []time.Time
	points     map[string][]float64
}

func NewAggregator(maxPoints int) *Aggregator {
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}
	return &Aggregator{
		maxPoints: maxPoints,
		points:    make(map[string][]float64),
	}
}

// MaxPoints is the window size, in cycles, of the axis and every series.
func (a *Aggregator) MaxPoints() int { return a.maxPoints }

// RecordCycle appends one polling cycle. Every call appends, so recording
// the same snapshot twice produces two points. Identifiers missing from
// snapshot do not grow this cycle. Non-finite values are kept as a NaN gap.
func (a *Aggregator) RecordCycle(snapshot map[string]float64, at time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.timestamps = appendBounded(a.timestamps, at, a.maxPoints)

	for id, v := range snapshot {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = math.NaN()
		}
		a.points[id] = appendBounded(a.points[id], v, a.maxPoints)
	}
}

// CurrentSeries returns a copy of every series with its slice of the axis.
func (a *Aggregator) CurrentSeries() map[string]Series {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make(map[string]Series, len(a.points))
	for id, pts := range a.points {
		n := min(len(pts), len(a.timestamps))
		offset := len(a.timestamps) - n
		out[id] = Series{
			Points:     slices.Clone(pts[len(pts)-n:]),
			Timestamps: slices.Clone(a.timestamps[offset:]),
		}
	}
	return out
}

// Timestamps returns a copy of the shared axis, oldest first.
func (a *Aggregator) Timestamps() []time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.timestamps)
}

// Len is the number of timestamps currently on the axis.
func (a *Aggregator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.timestamps)
}

// Reset drops every series and the axis.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.timestamps = nil
	a.points = make(map[string][]float64)
}

// DisplayRange is the min and max over all finite points, for chart scaling.
// ok is false when there is no finite point at all.
func DisplayRange(all map[string]Series) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, s := range all {
		for _, v := range s.Points {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		return 0, 0, false
	}
	return lo, hi, true
}

// appendBounded appends v and drops from the front past limit. The backing
// array is reallocated when it is shifted so it cannot grow without bound.
func appendBounded[T any](s []T, v T, limit int) []T {
	s = append(s, v)
	if over := len(s) - limit; over > 0 {
		s = append(make([]T, 0, limit), s[over:]...)
	}
	return s
}
