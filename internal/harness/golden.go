package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/hyperdem/internal/ir"
)

// Snapshot is the golden form of a result: the model shape and every shot,
// as canonical JSON. The fingerprint is left out so that snapshots survive
// format version bumps.
func Snapshot(name string, result *Result) ([]byte, error) {
	shots := make(ir.Array, len(result.Shots))
	for i, s := range result.Shots {
		obj := ir.Object{
			"name":        ir.String(s.Name),
			"detectors":   ir.Ints(s.Detectors),
			"defects":     ir.Ints(s.Defects),
			"heralds":     ir.Ints(s.Heralds),
			"observables": ir.Ints(s.Observables),
		}
		if s.Failure != "" {
			obj["failure"] = ir.String(s.Failure)
			obj["record"] = ir.String(s.Record)
		}
		shots[i] = obj
	}
	return ir.MarshalCanonical(ir.Object{
		"name":            ir.String(name),
		"kind":            ir.String(result.Kind),
		"num_detectors":   ir.Int(result.NumDetectors),
		"num_observables": ir.Int(result.NumObservables),
		"num_heralds":     ir.Int(result.NumHeralds),
		"shots":           shots,
	})
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/<name>.golden. Use -update to regenerate.
func RunWithGolden(t *testing.T, scenario *Scenario) *Result {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		t.Fatalf("scenario %s failed to run: %v", scenario.Name, err)
	}
	if !result.Pass {
		t.Errorf("scenario %s failed: %v", scenario.Name, result.Errors)
	}

	AssertGolden(t, scenario.Name, result)
	return result
}

// AssertGolden compares a result snapshot against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	snapshot, err := Snapshot(name, result)
	if err != nil {
		t.Fatalf("failed to marshal snapshot: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, snapshot)
}
