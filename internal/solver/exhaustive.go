package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/bits"
	"slices"
)

// component is one connected piece of the hypergraph, pre-eliminated over
// GF(2) so that each shot only needs a matrix-vector product.
type component struct {
	vertices []int
	edges    []int

	// pivotT[r] is the row combination producing pivot row r, so the
	// reduced syndrome bit r is pivotT[r]·s.
	pivotCols []int
	pivotT    []bitset

	// zeroT rows must have even overlap with the syndrome for a solution
	// to exist.
	zeroT []bitset

	// null is a basis of edge sets with empty boundary.
	null []bitset
}

// Exhaustive is an exact solver: it eliminates the vertex-edge incidence
// matrix once per connected component, and for each shot enumerates every
// solution of the parity equations with a Gray code over the null space.
//
// Ties between equal-weight solutions go to fewer edges, then to the lower
// edge indices.
type Exhaustive struct {
	init       Initializer
	cfg        Config
	components []component
	vertexComp []int
	localIndex []int
	isolated   []int

	weights  []float64
	subgraph []int
	weight   float64
	solved   bool
}

var _ Solver = (*Exhaustive)(nil)

// NewExhaustive builds an exhaustive solver.
func NewExhaustive(init Initializer, cfg Config) (*Exhaustive, error) {
	if err := init.Validate(); err != nil {
		return nil, fmt.Errorf("invalid initializer: %w", err)
	}
	s := &Exhaustive{
		init:       init,
		cfg:        cfg,
		vertexComp: make([]int, init.VertexNum),
		localIndex: make([]int, init.VertexNum),
	}
	s.partition()
	for i := range s.components {
		s.components[i].eliminate(s.init.WeightedEdges, s.localIndex)
	}
	return s, nil
}

// ExhaustiveFactory adapts NewExhaustive to Factory.
func ExhaustiveFactory(init Initializer, cfg Config) (Solver, error) {
	return NewExhaustive(init, cfg)
}

func (s *Exhaustive) Initializer() Initializer { return s.init }
func (s *Exhaustive) Config() Config           { return s.cfg }

// partition groups vertices into connected components with union-find.
func (s *Exhaustive) partition() {
	n := s.init.VertexNum
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	find := func(v int) int {
		for parent[v] != v {
			parent[v] = parent[parent[v]]
			v = parent[v]
		}
		return v
	}
	touched := make([]bool, n)
	for i, e := range s.init.WeightedEdges {
		if len(e.Vertices) == 0 {
			s.isolated = append(s.isolated, i)
			continue
		}
		for _, v := range e.Vertices {
			touched[v] = true
			if a, b := find(e.Vertices[0]), find(v); a != b {
				parent[b] = a
			}
		}
	}

	compOf := make(map[int]int)
	for v := 0; v < n; v++ {
		s.vertexComp[v] = -1
		if !touched[v] {
			continue
		}
		root := find(v)
		c, ok := compOf[root]
		if !ok {
			c = len(s.components)
			compOf[root] = c
			s.components = append(s.components, component{})
		}
		s.vertexComp[v] = c
		s.localIndex[v] = len(s.components[c].vertices)
		s.components[c].vertices = append(s.components[c].vertices, v)
	}
	for i, e := range s.init.WeightedEdges {
		if len(e.Vertices) == 0 {
			continue
		}
		c := s.vertexComp[e.Vertices[0]]
		s.components[c].edges = append(s.components[c].edges, i)
	}
}

// eliminate reduces the component's incidence matrix to row echelon form,
// recording the row transform and a null-space basis.
func (c *component) eliminate(edges []HyperEdge, localIndex []int) {
	nv, ne := len(c.vertices), len(c.edges)
	m := make([]bitset, nv)
	t := make([]bitset, nv)
	for r := range m {
		m[r] = newBitset(ne)
		t[r] = newBitset(nv)
		t[r].set(r)
	}
	for col, e := range c.edges {
		for _, v := range edges[e].Vertices {
			m[localIndex[v]].set(col)
		}
	}

	rank := 0
	for col := 0; col < ne && rank < nv; col++ {
		pivot := -1
		for r := rank; r < nv; r++ {
			if m[r].get(col) {
				pivot = r
				break
			}
		}
		if pivot < 0 {
			continue
		}
		m[rank], m[pivot] = m[pivot], m[rank]
		t[rank], t[pivot] = t[pivot], t[rank]
		for r := 0; r < nv; r++ {
			if r != rank && m[r].get(col) {
				m[r].xor(m[rank])
				t[r].xor(t[rank])
			}
		}
		c.pivotCols = append(c.pivotCols, col)
		rank++
	}
	c.pivotT = t[:rank]
	c.zeroT = t[rank:]

	isPivot := make([]bool, ne)
	for _, p := range c.pivotCols {
		isPivot[p] = true
	}
	for f := 0; f < ne; f++ {
		if isPivot[f] {
			continue
		}
		v := newBitset(ne)
		v.set(f)
		for r, p := range c.pivotCols {
			if m[r].get(f) {
				v.set(p)
			}
		}
		c.null = append(c.null, v)
	}
}

// Solve implements Solver.
func (s *Exhaustive) Solve(ctx context.Context, syndrome SyndromePattern) error {
	s.Clear()
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	fail := func(reason FailureReason, msg string, err error) error {
		return &Failure{Reason: reason, Message: msg, Syndrome: syndrome, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return fail(ReasonCancelled, "solve not started", err)
	}

	w, err := EffectiveWeights(&s.init, syndrome, s.weights)
	if err != nil {
		return fail(ReasonInvalid, "bad syndrome", err)
	}
	s.weights = w

	local := make(map[int]bitset)
	seen := make(map[int]bool, len(syndrome.Defects))
	for _, d := range syndrome.Defects {
		if d < 0 || d >= s.init.VertexNum {
			return fail(ReasonInvalid, fmt.Sprintf("defect %d out of range (%d vertices)", d, s.init.VertexNum), nil)
		}
		if seen[d] {
			return fail(ReasonInvalid, fmt.Sprintf("defect %d repeated", d), nil)
		}
		seen[d] = true
		c := s.vertexComp[d]
		if c < 0 {
			return fail(ReasonInfeasible, fmt.Sprintf("defect %d is on no edge", d), nil)
		}
		if local[c] == nil {
			local[c] = newBitset(len(s.components[c].vertices))
		}
		local[c].set(s.localIndex[d])
	}

	var chosen []int
	for ci := range s.components {
		comp := &s.components[ci]
		syn := local[ci]
		if syn == nil {
			if !comp.hasNegative(w) {
				continue
			}
			syn = newBitset(len(comp.vertices))
		}
		edges, err := comp.solve(ctx, syn, w, s.cfg.maxNullity())
		if err != nil {
			var f *Failure
			if errors.As(err, &f) {
				f.Syndrome = syndrome
				return f
			}
			return err
		}
		chosen = append(chosen, edges...)
	}
	for _, e := range s.isolated {
		if w[e] < 0 {
			chosen = append(chosen, e)
		}
	}
	slices.Sort(chosen)

	var total float64
	for _, e := range chosen {
		total += w[e]
	}
	s.subgraph = chosen
	s.weight = total
	s.solved = true
	return nil
}

func (c *component) hasNegative(w []float64) bool {
	for _, e := range c.edges {
		if w[e] < 0 {
			return true
		}
	}
	return false
}

func (c *component) solve(ctx context.Context, syn bitset, w []float64, maxNullity int) ([]int, error) {
	for _, row := range c.zeroT {
		if row.dot(syn) {
			return nil, &Failure{Reason: ReasonInfeasible, Message: "syndrome has odd parity on a component"}
		}
	}
	k := len(c.null)
	if k > maxNullity {
		return nil, &Failure{
			Reason:  ReasonNullity,
			Message: fmt.Sprintf("null space dimension %d exceeds limit %d", k, maxNullity),
		}
	}

	ne := len(c.edges)
	lw := make([]float64, ne)
	for i, e := range c.edges {
		lw[i] = w[e]
	}

	cur := newBitset(ne)
	for r, p := range c.pivotCols {
		if c.pivotT[r].dot(syn) {
			cur.set(p)
		}
	}
	var curW float64
	var curN int
	cur.each(func(i int) {
		curW += lw[i]
		curN++
	})
	best, bestW, bestN := cur.clone(), curW, curN

	for i := uint64(1); i < 1<<uint(k); i++ {
		if i&4095 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, &Failure{Reason: ReasonCancelled, Message: "null space enumeration interrupted", Err: err}
			}
		}
		b := c.null[bits.TrailingZeros64(i)]
		b.each(func(e int) {
			if cur.get(e) {
				curW -= lw[e]
				curN--
			} else {
				curW += lw[e]
				curN++
			}
		})
		cur.xor(b)
		if better(cur, curW, curN, best, bestW, bestN) {
			copy(best, cur)
			bestW, bestN = curW, curN
		}
	}

	var out []int
	best.each(func(i int) {
		out = append(out, c.edges[i])
	})
	return out, nil
}

func better(cur bitset, curW float64, curN int, best bitset, bestW float64, bestN int) bool {
	eps := 1e-9 * math.Max(1, math.Abs(bestW))
	switch {
	case curW < bestW-eps:
		return true
	case curW > bestW+eps:
		return false
	case curN != bestN:
		return curN < bestN
	}
	d := cur.lowestDiff(best)
	return d >= 0 && cur.get(d)
}

// Subgraph implements Solver.
func (s *Exhaustive) Subgraph() ([]int, error) {
	if !s.solved {
		return nil, errors.New("no solved syndrome")
	}
	return slices.Clone(s.subgraph), nil
}

// Weight implements Solver.
func (s *Exhaustive) Weight() float64 {
	return s.weight
}

// Clear implements Solver.
func (s *Exhaustive) Clear() {
	s.subgraph = nil
	s.weight = 0
	s.solved = false
}
