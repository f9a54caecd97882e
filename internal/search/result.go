package search

import (
	"math"
	"sync/atomic"

	"github.com/woozymasta/farpoint/internal/geo"
)

// Result is the outcome of a pass. When Found is false no water cell beat
// the lower bound and DistanceKm echoes that bound.
type Result struct {
	Best       geo.GeoPoint `json:"best" yaml:"best"`
	Nearest    geo.GeoPoint `json:"nearest" yaml:"nearest"`
	DistanceKm float64      `json:"distance_km" yaml:"distance_km"`
	Step       float64      `json:"step" yaml:"step"`
	Found      bool         `json:"found" yaml:"found"`
}

// candidate is one water cell together with its nearest reference.
type candidate struct {
	point geo.GeoPoint
	ref   geo.GeoPoint
	dist  float64
	found bool
}

// better keeps acc unless c is a water cell strictly farther away.
// Folding rows in sweep order with it keeps the earliest cell on ties.
func better(acc, c candidate) candidate {
	if c.found && c.dist > acc.dist {
		return c
	}
	return acc
}

// fold reduces per-row winners in row order.
func fold(rows []candidate, floor float64) candidate {
	acc := candidate{dist: floor}
	for _, c := range rows {
		acc = better(acc, c)
	}
	return acc
}

// sharedMax is the largest water distance confirmed by any row so far.
type sharedMax struct {
	bits atomic.Uint64
}

func newSharedMax(v float64) *sharedMax {
	m := &sharedMax{}
	m.bits.Store(math.Float64bits(v))
	return m
}

func (m *sharedMax) Load() float64 {
	return math.Float64frombits(m.bits.Load())
}

// Raise lifts the value to v if v is larger.
func (m *sharedMax) Raise(v float64) {
	for {
		old := m.bits.Load()
		if math.Float64frombits(old) >= v {
			return
		}
		if m.bits.CompareAndSwap(old, math.Float64bits(v)) {
			return
		}
	}
}
