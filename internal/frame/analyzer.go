// Package frame extracts a detector error model from a native circuit by
// propagating the Pauli frame of every error branch forward to the
// measurements it flips.
//
// It is a reference implementation of the dem.Analyzer contract: every
// noise channel is decomposed into branches, each branch is pushed through
// the Clifford gates that follow it, and the resulting measurement flips
// are mapped to detector and observable symptoms. Branches with identical
// symptoms are merged with the independent combination law.
//
// Supported: single- and two-qubit Clifford gates listed in pauli.go, Z/X/Y
// measurements, resets and measure-resets, every noise channel of the
// native format, heralded erasure and heralded Pauli channels. Pair and
// product measurements (MXX, MPP) are not supported.
package frame

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/roach88/hyperdem/internal/dem"
	"github.com/roach88/hyperdem/internal/native"
	"github.com/roach88/hyperdem/internal/weight"
)

// Analyzer implements dem.Analyzer.
type Analyzer struct{}

// New returns an analyzer.
func New() *Analyzer {
	return &Analyzer{}
}

var _ dem.Analyzer = (*Analyzer)(nil)

// branch is one error branch: a Pauli product applied after an instruction
// plus measurement results flipped directly.
type branch struct {
	probability float64
	paulis      []qubitPauli
	flips       []int
}

type qubitPauli struct {
	qubit int
	p     pauli
}

// layout is the measurement and detector structure of a flat circuit.
type layout struct {
	instrs        []*native.Instruction
	measBase      []int
	detectors     [][]int
	coords        [][]float64
	detectorsOf   map[int][]int
	observablesOf map[int][]int
}

// lookback resolves a rec target against the n measurements produced so far.
func lookback(pos, n int, t native.Target) (int, error) {
	m := n + t.Value
	switch {
	case !t.IsRec():
		return 0, &AnalysisError{Code: ErrCodeInvalidReference, Position: pos,
			Message: fmt.Sprintf("%s is not a measurement record", t)}
	case m < 0:
		return 0, &AnalysisError{Code: ErrCodeInvalidReference, Position: pos,
			Message: fmt.Sprintf("%s looks back before the first measurement", t)}
	case m >= n:
		return 0, &AnalysisError{Code: ErrCodeInvalidReference, Position: pos,
			Message: fmt.Sprintf("%s refers to a measurement not yet produced", t)}
	}
	return m, nil
}

func buildLayout(c *native.Circuit) (*layout, error) {
	l := &layout{
		instrs:        c.Instructions(),
		detectorsOf:   make(map[int][]int),
		observablesOf: make(map[int][]int),
	}
	l.measBase = make([]int, len(l.instrs))
	n := 0
	for pos, in := range l.instrs {
		g, ok := native.LookupGate(in.Name)
		if !ok || !supported(g) {
			return nil, &AnalysisError{Code: ErrCodeIncompleteFeature, Position: pos,
				Message: fmt.Sprintf("no propagation rule for %s", in.Name)}
		}
		l.measBase[pos] = n
		switch in.Name {
		case "DETECTOR":
			det := len(l.detectors)
			var meas []int
			for _, t := range in.Targets {
				m, err := lookback(pos, n, t)
				if err != nil {
					return nil, err
				}
				meas = append(meas, m)
				l.detectorsOf[m] = append(l.detectorsOf[m], det)
			}
			l.detectors = append(l.detectors, meas)
			l.coords = append(l.coords, in.Args)
		case "OBSERVABLE_INCLUDE":
			obs := int(in.Args[0])
			for _, t := range in.Targets {
				if !t.IsRec() {
					return nil, &AnalysisError{Code: ErrCodeIncompleteFeature, Position: pos,
						Message: "observables over Pauli targets are not supported"}
				}
				m, err := lookback(pos, n, t)
				if err != nil {
					return nil, err
				}
				l.observablesOf[m] = append(l.observablesOf[m], obs)
			}
		}
		n += in.NumMeasurements()
	}
	return l, nil
}

// ErrorModel implements dem.Analyzer.
func (a *Analyzer) ErrorModel(c *native.Circuit, opts dem.AnalyzeOptions) (*dem.Model, error) {
	l, err := buildLayout(c)
	if err != nil {
		return nil, err
	}

	type merged struct {
		probability float64
		detectors   []int
		observables []int
	}
	var order []string
	mechanisms := make(map[string]*merged)

	var chain float64
	for pos, in := range l.instrs {
		branches, err := branchesOf(pos, in, l.measBase[pos], opts, &chain)
		if err != nil {
			return nil, err
		}
		for _, b := range branches {
			if b.probability == 0 {
				continue
			}
			dets, obs := l.symptoms(pos, b)
			if len(dets) == 0 && len(obs) == 0 {
				continue
			}
			key := dem.DetectorSetKey(dets) + "|" + dem.DetectorSetKey(obs)
			if m, ok := mechanisms[key]; ok {
				m.probability = weight.CombineProbabilities(m.probability, b.probability)
				continue
			}
			order = append(order, key)
			mechanisms[key] = &merged{probability: b.probability, detectors: dets, observables: obs}
		}
	}

	out := &dem.Model{}
	for _, key := range order {
		m := mechanisms[key]
		targets := make([]dem.Target, 0, len(m.detectors)+len(m.observables))
		for _, d := range m.detectors {
			targets = append(targets, dem.D(d))
		}
		for _, o := range m.observables {
			targets = append(targets, dem.L(o))
		}
		out.AppendError(m.probability, targets...)
	}
	for d, coords := range l.coords {
		if len(coords) > 0 {
			out.Append(&dem.Instruction{
				Type:    dem.TypeDetector,
				Args:    append([]float64(nil), coords...),
				Targets: []dem.Target{dem.D(d)},
			})
		}
	}
	return out, nil
}

// symptoms propagates b from just after position pos and returns the sorted
// detectors and observables it flips.
func (l *layout) symptoms(pos int, b branch) ([]int, []int) {
	flipped := make(map[int]bool)
	for _, m := range b.flips {
		flipped[m] = !flipped[m]
	}
	f := make(frame)
	for _, qp := range b.paulis {
		f.mul(qp.qubit, qp.p)
	}
	for i := pos + 1; i < len(l.instrs) && len(f) > 0; i++ {
		propagate(f, l.instrs[i], l.measBase[i], flipped)
	}

	detParity := make(map[int]bool)
	obsParity := make(map[int]bool)
	for m, on := range flipped {
		if !on {
			continue
		}
		for _, d := range l.detectorsOf[m] {
			detParity[d] = !detParity[d]
		}
		for _, o := range l.observablesOf[m] {
			obsParity[o] = !obsParity[o]
		}
	}
	return oddKeys(detParity), oddKeys(obsParity)
}

func oddKeys(parity map[int]bool) []int {
	out := make([]int, 0, len(parity))
	for k, on := range parity {
		if on {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

// propagate pushes frame f through one instruction, recording flipped
// measurement results.
func propagate(f frame, in *native.Instruction, base int, flipped map[int]bool) {
	g, _ := native.LookupGate(in.Name)
	switch g.Kind {
	case native.KindGate1:
		rule := gate1Rules[in.Name]
		for _, t := range in.Targets {
			f.set(t.Value, rule(f.get(t.Value)))
		}
	case native.KindGate2:
		rule := gate2Rules[in.Name]
		for i := 0; i+1 < len(in.Targets); i += 2 {
			c, t := in.Targets[i].Value, in.Targets[i+1].Value
			pc, pt := rule(f.get(c), f.get(t))
			f.set(c, pc)
			f.set(t, pt)
		}
	case native.KindMeasurement, native.KindMeasureReset:
		b := basis(in.Name)
		for i, t := range in.Targets {
			p := f.get(t.Value)
			if anticommutes(p, b) {
				flipped[base+i] = !flipped[base+i]
			}
			if g.Kind == native.KindMeasureReset {
				f.set(t.Value, pauliI)
			} else {
				f.set(t.Value, collapse(p, b))
			}
		}
	case native.KindReset:
		for _, t := range in.Targets {
			f.set(t.Value, pauliI)
		}
	}
}

// collapse drops the component of p that stabilizes a fresh measurement
// outcome in basis b.
func collapse(p, b pauli) pauli {
	switch b {
	case pauliZ:
		p.z = false
	case pauliX:
		p.x = false
	default:
		if p == pauliY {
			p = pauliI
		}
	}
	return p
}

// independentBranch returns the per-branch probability q of n independent
// branches reproducing a depolarizing channel whose non-trivial characters
// equal 1-x: (1-2q)^n = 1-x.
func independentBranch(x float64, n float64) float64 {
	return -0.5 * math.Expm1(math.Log1p(-x)/n)
}

func branchesOf(pos int, in *native.Instruction, base int, opts dem.AnalyzeOptions, chain *float64) ([]branch, error) {
	invalid := func(format string, args ...any) error {
		return &AnalysisError{Code: ErrCodeInvalidProbability, Position: pos, Message: fmt.Sprintf(format, args...)}
	}
	requireDisjoint := func(nonZero int) error {
		if nonZero > 1 && !opts.ApproximateDisjointErrors {
			return &AnalysisError{Code: ErrCodeDisjointRequired, Position: pos,
				Message: in.Name + " has disjoint branches; enable approximate disjoint errors"}
		}
		return nil
	}

	var out []branch
	switch in.Name {
	case "X_ERROR", "Y_ERROR", "Z_ERROR":
		p := pauliOf(in.Name[0])
		for _, t := range in.Targets {
			out = append(out, branch{probability: in.Args[0], paulis: []qubitPauli{{t.Value, p}}})
		}

	case "DEPOLARIZE1":
		if in.Args[0] > 0.75 {
			return nil, invalid("DEPOLARIZE1(%s) exceeds 3/4", native.FormatArg(in.Args[0]))
		}
		q := independentBranch(4*in.Args[0]/3, 2)
		for _, t := range in.Targets {
			for _, p := range pauliOrder[1:] {
				out = append(out, branch{probability: q, paulis: []qubitPauli{{t.Value, p}}})
			}
		}

	case "DEPOLARIZE2":
		if in.Args[0] > 15.0/16 {
			return nil, invalid("DEPOLARIZE2(%s) exceeds 15/16", native.FormatArg(in.Args[0]))
		}
		q := independentBranch(16*in.Args[0]/15, 8)
		for i := 0; i+1 < len(in.Targets); i += 2 {
			for k := 1; k < 16; k++ {
				out = append(out, branch{probability: q, paulis: []qubitPauli{
					{in.Targets[i].Value, pauliOrder[k>>2]},
					{in.Targets[i+1].Value, pauliOrder[k&3]},
				}})
			}
		}

	case "PAULI_CHANNEL_1":
		if err := requireDisjoint(countNonZero(in.Args)); err != nil {
			return nil, err
		}
		for _, t := range in.Targets {
			for k, p := range in.Args {
				out = append(out, branch{probability: p, paulis: []qubitPauli{{t.Value, pauliOrder[k+1]}}})
			}
		}

	case "PAULI_CHANNEL_2":
		if err := requireDisjoint(countNonZero(in.Args)); err != nil {
			return nil, err
		}
		for i := 0; i+1 < len(in.Targets); i += 2 {
			for k, p := range in.Args {
				idx := k + 1
				out = append(out, branch{probability: p, paulis: []qubitPauli{
					{in.Targets[i].Value, pauliOrder[idx>>2]},
					{in.Targets[i+1].Value, pauliOrder[idx&3]},
				}})
			}
		}

	case "E", "CORRELATED_ERROR":
		*chain = in.Args[0]
		out = append(out, branch{probability: in.Args[0], paulis: productOf(in.Targets)})

	case "ELSE_CORRELATED_ERROR":
		if err := requireDisjoint(2); err != nil {
			return nil, err
		}
		p := (1 - *chain) * in.Args[0]
		*chain += p
		out = append(out, branch{probability: p, paulis: productOf(in.Targets)})

	case "HERALDED_ERASE":
		p := in.Args[0]
		if err := requireDisjoint(boolToInt(p > 0) * 4); err != nil {
			return nil, err
		}
		for i, t := range in.Targets {
			for _, pl := range pauliOrder {
				out = append(out, branch{probability: p / 4, paulis: []qubitPauli{{t.Value, pl}}, flips: []int{base + i}})
			}
		}

	case "HERALDED_PAULI_CHANNEL_1":
		if err := requireDisjoint(countNonZero(in.Args)); err != nil {
			return nil, err
		}
		for i, t := range in.Targets {
			for k, p := range in.Args {
				out = append(out, branch{probability: p, paulis: []qubitPauli{{t.Value, pauliOrder[k]}}, flips: []int{base + i}})
			}
		}

	default:
		g, _ := native.LookupGate(in.Name)
		if (g.Kind == native.KindMeasurement || g.Kind == native.KindMeasureReset) && len(in.Args) > 0 {
			for i := range in.Targets {
				out = append(out, branch{probability: in.Args[0], flips: []int{base + i}})
			}
		}
	}
	return out, nil
}

func productOf(targets []native.Target) []qubitPauli {
	out := make([]qubitPauli, 0, len(targets))
	for _, t := range targets {
		if t.Kind == native.TargetPauli {
			out = append(out, qubitPauli{t.Value, pauliOf(t.Pauli)})
		}
	}
	return out
}

func countNonZero(xs []float64) int {
	n := 0
	for _, x := range xs {
		if x != 0 {
			n++
		}
	}
	return n
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Describe renders a one-line summary of the flattened circuit the analyzer
// sees, or the layout error when it cannot be built.
func Describe(c *native.Circuit) string {
	l, err := buildLayout(c)
	if err != nil {
		return err.Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "instructions=%d measurements=%d detectors=%d", len(l.instrs), c.NumMeasurements(), len(l.detectors))
	return b.String()
}
