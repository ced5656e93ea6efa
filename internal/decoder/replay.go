package decoder

import (
	"context"
	"fmt"

	"github.com/roach88/hyperdem/internal/store"
)

// ReplayResult is the outcome of re-solving one captured failure.
type ReplayResult struct {
	Failure  store.FailureRecord
	Subgraph []int
	Weight   float64

	// Err is the solve error; nil means the shot now decodes.
	Err error
}

// Replay re-solves captured failures against their stored model with the
// named solver. Each failure runs with the solver configuration it was
// captured under.
func Replay(ctx context.Context, solverName string, model store.ModelRecord, failures []store.FailureRecord) ([]ReplayResult, error) {
	factory, ok := solvers[solverName]
	if !ok {
		return nil, fmt.Errorf("unknown solver %q (known: %v)", solverName, Solvers())
	}
	results := make([]ReplayResult, 0, len(failures))
	for _, f := range failures {
		if f.Fingerprint != model.Fingerprint {
			return nil, fmt.Errorf("failure %s belongs to model %s, not %s", f.ID, f.Fingerprint, model.Fingerprint)
		}
		s, err := factory(model.Initializer, f.Config)
		if err != nil {
			return nil, fmt.Errorf("replay %s: %w", f.ID, err)
		}
		res := ReplayResult{Failure: f}
		if res.Err = s.Solve(ctx, f.Syndrome); res.Err == nil {
			if res.Subgraph, res.Err = s.Subgraph(); res.Err == nil {
				res.Weight = s.Weight()
			}
		}
		results = append(results, res)
	}
	return results, nil
}
