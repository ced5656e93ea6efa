// Package solver defines the contract between the decoding hypergraph and a
// minimum-weight parity solver, and provides an exact reference solver.
//
// A solver is built once from an Initializer and reused across shots:
//
//	s, _ := solver.NewExhaustive(init, solver.Config{})
//	for each shot {
//	    if err := s.Solve(ctx, pattern); err != nil { ... }
//	    edges, _ := s.Subgraph()
//	    s.Clear()
//	}
//
// Solvers hold per-shot state and are not safe for concurrent use. Run one
// solver per goroutine; the Initializer they are built from is read-only.
package solver

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/roach88/hyperdem/internal/weight"
)

// DefaultMaxNullity bounds the null-space dimension the exhaustive solver
// enumerates per connected component (2^24 candidate subgraphs).
const DefaultMaxNullity = 24

// HyperEdge is a weighted set of vertices. An edge flips every vertex it
// contains.
type HyperEdge struct {
	Vertices []int   `json:"vertices"`
	Weight   float64 `json:"weight"`
}

// Initializer describes the decoding hypergraph.
//
// Heralds[h] maps edge index to the weight herald h contributes when it
// fires. Herald ids are positions in this slice.
type Initializer struct {
	VertexNum     int               `json:"vertex_num"`
	WeightedEdges []HyperEdge       `json:"weighted_edges"`
	Heralds       []map[int]float64 `json:"heralds,omitempty"`
}

// Validate checks that every edge and herald entry is in range and that
// static weights are finite.
func (in *Initializer) Validate() error {
	if in.VertexNum < 0 {
		return fmt.Errorf("negative vertex count %d", in.VertexNum)
	}
	for i, e := range in.WeightedEdges {
		if math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0) {
			return fmt.Errorf("edge %d has non-finite weight %v", i, e.Weight)
		}
		seen := make(map[int]bool, len(e.Vertices))
		for _, v := range e.Vertices {
			if v < 0 || v >= in.VertexNum {
				return fmt.Errorf("edge %d vertex %d out of range (%d vertices)", i, v, in.VertexNum)
			}
			if seen[v] {
				return fmt.Errorf("edge %d repeats vertex %d", i, v)
			}
			seen[v] = true
		}
	}
	for h, m := range in.Heralds {
		for e, w := range m {
			if e < 0 || e >= len(in.WeightedEdges) {
				return fmt.Errorf("herald %d edge %d out of range (%d edges)", h, e, len(in.WeightedEdges))
			}
			if math.IsNaN(w) {
				return fmt.Errorf("herald %d edge %d has NaN weight", h, e)
			}
		}
	}
	return nil
}

// SyndromePattern is one shot's input to the solver.
//
// Defects are fired vertices. Heralds are fired herald ids. Erasures are
// edge indices known to have been erased; their weight is set to zero.
type SyndromePattern struct {
	Defects  []int `json:"defects"`
	Heralds  []int `json:"heralds,omitempty"`
	Erasures []int `json:"erasures,omitempty"`
}

// Config tunes a solver.
type Config struct {
	// MaxNullity caps the null-space dimension enumerated per component.
	// Zero means DefaultMaxNullity.
	MaxNullity int `json:"max_nullity"`

	// Timeout bounds a single Solve. Zero means no limit beyond the context.
	Timeout time.Duration `json:"timeout"`
}

func (c Config) maxNullity() int {
	if c.MaxNullity <= 0 {
		return DefaultMaxNullity
	}
	return c.MaxNullity
}

// Solver finds a minimum-weight edge set whose boundary equals the defects.
type Solver interface {
	// Solve runs one shot. A *Failure is returned when no subgraph can be
	// produced.
	Solve(ctx context.Context, syndrome SyndromePattern) error

	// Subgraph returns the chosen edge indices in ascending order. It is
	// only valid after a successful Solve and before Clear.
	Subgraph() ([]int, error)

	// Weight returns the total weight of the chosen subgraph.
	Weight() float64

	// Clear resets per-shot state.
	Clear()

	Initializer() Initializer
	Config() Config
}

// Factory builds a solver. Decoders call it once per worker.
type Factory func(init Initializer, cfg Config) (Solver, error)

// FailureReason categorizes solver failures.
type FailureReason string

const (
	ReasonInfeasible FailureReason = "INFEASIBLE"
	ReasonNullity    FailureReason = "NULLITY_EXCEEDED"
	ReasonCancelled  FailureReason = "CANCELLED"
	ReasonInvalid    FailureReason = "INVALID_SYNDROME"
)

// Failure is returned by Solve when the solver cannot produce a subgraph.
type Failure struct {
	Reason   FailureReason
	Message  string
	Syndrome SyndromePattern
	Err      error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("solver %s: %s: %v", f.Reason, f.Message, f.Err)
	}
	return fmt.Sprintf("solver %s: %s", f.Reason, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// EffectiveWeights returns the per-edge weights for one shot: fired heralds
// combine their entries into the static weight in the order given, then
// erased edges drop to zero.
func EffectiveWeights(in *Initializer, syndrome SyndromePattern, dst []float64) ([]float64, error) {
	dst = dst[:0]
	for _, e := range in.WeightedEdges {
		dst = append(dst, e.Weight)
	}
	for _, h := range syndrome.Heralds {
		if h < 0 || h >= len(in.Heralds) {
			return nil, fmt.Errorf("herald %d out of range (%d heralds)", h, len(in.Heralds))
		}
		for e, hw := range in.Heralds[h] {
			dst[e] = weight.CombineIndependent(dst[e], hw)
		}
	}
	for _, e := range syndrome.Erasures {
		if e < 0 || e >= len(dst) {
			return nil, fmt.Errorf("erasure %d out of range (%d edges)", e, len(dst))
		}
		dst[e] = 0
	}
	return dst, nil
}
