package dem

import (
	"log/slog"
	"slices"
	"strconv"
	"strings"
)

// Mechanism is one flattened error mechanism: a probability plus the sets
// of detectors and observables it flips. Repeated ids cancel (XOR).
type Mechanism struct {
	Probability float64
	Detectors   []int
	Observables []int
}

// Hyperedge is a canonical decoding-graph edge.
//
// Within one canonical set at most one Hyperedge exists per detector set.
type Hyperedge struct {
	Detectors   []int   // sorted, distinct
	Observables []int   // sorted, distinct
	Probability float64 // never zero
}

// Key returns the detector set key of the hyperedge.
func (h Hyperedge) Key() string {
	return DetectorSetKey(h.Detectors)
}

// ObservableMask returns the observables as a bitmask (bit k = L k).
// Observables beyond 63 are not representable and are dropped.
func (h Hyperedge) ObservableMask() uint64 {
	return ObservableMask(h.Observables)
}

// ObservableMask packs sorted observable ids into a bitmask.
func ObservableMask(observables []int) uint64 {
	var m uint64
	for _, k := range observables {
		if k < 64 {
			m |= 1 << uint(k)
		}
	}
	return m
}

// DetectorSetKey returns a map key for a sorted detector set.
func DetectorSetKey(sorted []int) string {
	var b strings.Builder
	for i, d := range sorted {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(d))
	}
	return b.String()
}

// xorSet returns the sorted set of ids that occur an odd number of times.
func xorSet(ids []int) []int {
	odd := make(map[int]bool, len(ids))
	for _, id := range ids {
		odd[id] = !odd[id]
	}
	out := make([]int, 0, len(odd))
	for id, in := range odd {
		if in {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// Canonicalize folds mechanisms into at most one hyperedge per detector set,
// in order of first occurrence, and returns the detector-set-key to index
// map alongside.
//
// A repeated detector set with the same observables is logged as a
// duplicate mechanism and otherwise ignored. With different observables,
// the record with the strictly higher probability wins and the other's
// observable set is discarded: for a fixed detector set a cost-minimizing
// decoder only ever selects the most probable mechanism.
//
// Zero-probability mechanisms are skipped; they can never be selected.
func Canonicalize(mechanisms []Mechanism, logger *slog.Logger) ([]Hyperedge, map[string]int) {
	if logger == nil {
		logger = slog.Default()
	}
	var edges []Hyperedge
	index := make(map[string]int)
	for _, m := range mechanisms {
		if m.Probability == 0 {
			continue
		}
		dets := xorSet(m.Detectors)
		obs := xorSet(m.Observables)
		key := DetectorSetKey(dets)

		i, seen := index[key]
		if !seen {
			index[key] = len(edges)
			edges = append(edges, Hyperedge{Detectors: dets, Observables: obs, Probability: m.Probability})
			continue
		}
		if slices.Equal(edges[i].Observables, obs) {
			logger.Warn("duplicate error mechanism",
				"detectors", dets,
				"observables", obs,
				"probability", m.Probability)
		}
		if m.Probability > edges[i].Probability {
			edges[i].Probability = m.Probability
			edges[i].Observables = obs
		}
	}
	return edges, index
}
