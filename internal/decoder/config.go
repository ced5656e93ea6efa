package decoder

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/roach88/hyperdem/internal/herald"
	"github.com/roach88/hyperdem/internal/solver"
	"github.com/roach88/hyperdem/internal/weight"
)

// FailurePolicy selects what happens to a shot the solver cannot decode.
type FailurePolicy string

const (
	// FailureRaise aborts the batch with a *SolverFailure.
	FailureRaise FailurePolicy = "raise"
	// FailureRandom replaces the prediction with a uniformly random mask.
	FailureRandom FailurePolicy = "random"
)

// DefaultCacheSize is the number of compiled models a Decoder keeps.
const DefaultCacheSize = 16

// Config tunes compilation and decoding.
type Config struct {
	Solver            string        `json:"solver"`
	MaxNullity        int           `json:"max_nullity"`
	Timeout           time.Duration `json:"timeout"`
	FalsePositiveRate float64       `json:"false_positive_rate"`
	ProbabilityFloor  float64       `json:"probability_floor"`
	FailurePolicy     FailurePolicy `json:"failure_policy"`
	Workers           int           `json:"workers"`
	Seed              uint64        `json:"seed"`
	CacheSize         int           `json:"cache_size"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Solver:            "exhaustive",
		MaxNullity:        solver.DefaultMaxNullity,
		FalsePositiveRate: herald.DefaultFalsePositiveRate,
		ProbabilityFloor:  weight.DefaultProbabilityFloor,
		FailurePolicy:     FailureRaise,
		Workers:           1,
		CacheSize:         DefaultCacheSize,
	}
}

var solvers = map[string]solver.Factory{
	"exhaustive": solver.ExhaustiveFactory,
}

// Solvers returns the registered solver names in sorted order.
func Solvers() []string {
	names := make([]string, 0, len(solvers))
	for name := range solvers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if _, ok := solvers[c.Solver]; !ok {
		return fmt.Errorf("unknown solver %q (known: %v)", c.Solver, Solvers())
	}
	if c.MaxNullity < 0 {
		return fmt.Errorf("max_nullity %d is negative", c.MaxNullity)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout %v is negative", c.Timeout)
	}
	if c.FalsePositiveRate < 0 || c.FalsePositiveRate > 1 {
		return fmt.Errorf("false_positive_rate %v outside [0, 1]", c.FalsePositiveRate)
	}
	if c.ProbabilityFloor < 0 || c.ProbabilityFloor >= 0.5 {
		return fmt.Errorf("probability_floor %v outside [0, 0.5)", c.ProbabilityFloor)
	}
	if !slices.Contains([]FailurePolicy{FailureRaise, FailureRandom}, c.FailurePolicy) {
		return fmt.Errorf("failure_policy %q is not %q or %q", c.FailurePolicy, FailureRaise, FailureRandom)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers %d is less than 1", c.Workers)
	}
	if c.CacheSize < 1 {
		return fmt.Errorf("cache_size %d is less than 1", c.CacheSize)
	}
	return nil
}

// SolverConfig returns the per-solver part of the configuration.
func (c Config) SolverConfig() solver.Config {
	return solver.Config{MaxNullity: c.MaxNullity, Timeout: c.Timeout}
}

func (c Config) factory() solver.Factory {
	return solvers[c.Solver]
}
