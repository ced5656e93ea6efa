// Package weight converts between error probabilities and log-likelihood
// edge weights, and combines independent mechanisms.
//
// A weight w = ln((1-p)/p) is positive for p < 0.5, zero at p = 0.5 and
// negative above. p = 0 maps to +Inf and p = 1 to -Inf.
package weight

import "math"

// DefaultProbabilityFloor is the smallest probability kept distinct from
// zero when building decoding graphs. Smaller non-zero probabilities are
// clamped up to it so that every structurally possible edge stays present.
const DefaultProbabilityFloor = 1e-15

// ProbabilityToWeight returns ln((1-p)/p).
func ProbabilityToWeight(p float64) float64 {
	return math.Log((1 - p) / p)
}

// WeightToProbability returns 1/(1+e^w), the inverse of ProbabilityToWeight.
func WeightToProbability(w float64) float64 {
	return 1 / (1 + math.Exp(w))
}

// CombineIndependent returns the weight of "exactly one of two independent
// mechanisms fires", i.e. ProbabilityToWeight(p1(1-p2) + p2(1-p1)).
//
// It is evaluated as ln((1 + e^(w1+w2)) / (e^w1 + e^w2)) in a form that does
// not overflow for large weights. The result is exactly commutative and
// exactly zero when either argument is zero.
func CombineIndependent(w1, w2 float64) float64 {
	switch {
	case math.IsInf(w1, 1):
		return w2
	case math.IsInf(w2, 1):
		return w1
	case math.IsInf(w1, -1):
		return -w2
	case math.IsInf(w2, -1):
		return -w1
	}
	return softplus(w1+w2) - logAddExp(w1, w2)
}

// CombineProbabilities returns p1(1-p2) + p2(1-p1).
func CombineProbabilities(p1, p2 float64) float64 {
	return p1*(1-p2) + p2*(1-p1)
}

// ClampProbability raises a non-zero probability below floor up to floor.
// Zero stays zero: an impossible mechanism must not become possible.
func ClampProbability(p, floor float64) float64 {
	if p == 0 {
		return 0
	}
	return math.Max(floor, p)
}

// softplus returns ln(1 + e^x).
func softplus(x float64) float64 {
	return math.Max(x, 0) + math.Log1p(math.Exp(-math.Abs(x)))
}

// logAddExp returns ln(e^a + e^b).
func logAddExp(a, b float64) float64 {
	return math.Max(a, b) + math.Log1p(math.Exp(-math.Abs(a-b)))
}
