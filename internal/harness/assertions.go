package harness

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/hyperdem/internal/decoder"
	"github.com/roach88/hyperdem/internal/store"
)

// AssertionError provides detailed information about assertion failures.
type AssertionError struct {
	Type     string
	Expected any
	Actual   any
	Message  string
}

func (e *AssertionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s assertion failed: expected %v, got %v", e.Type, e.Expected, e.Actual)
}

type assertionContext struct {
	ctx      context.Context
	compiled *decoder.Compiled
	store    *store.Store
}

// evaluateAssertion dispatches to the appropriate assertion handler.
func evaluateAssertion(actx *assertionContext, a Assertion) error {
	switch a.Type {
	case AssertModel:
		return assertModel(actx.compiled, a)
	case AssertEdge:
		return assertEdge(actx.compiled, a)
	case AssertHeraldEdge:
		return assertHeraldEdge(actx.compiled, a)
	case AssertFailuresRecorded:
		return assertFailuresRecorded(actx, a)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

func assertModel(c *decoder.Compiled, a Assertion) error {
	if a.Kind != "" && a.Kind != c.Kind() {
		return &AssertionError{Type: "kind", Expected: a.Kind, Actual: c.Kind()}
	}
	checks := []struct {
		name   string
		want   *int
		actual int
	}{
		{"num_detectors", a.NumDetectors, c.NumDetectors()},
		{"num_observables", a.NumObservables, c.NumObservables()},
		{"num_edges", a.NumEdges, len(c.Initializer().WeightedEdges)},
		{"num_heralds", a.NumHeralds, len(c.Initializer().Heralds)},
	}
	for _, check := range checks {
		if check.want != nil && *check.want != check.actual {
			return &AssertionError{Type: check.name, Expected: *check.want, Actual: check.actual}
		}
	}
	return nil
}

// findEdge returns the index of the edge on exactly dets, or -1.
func findEdge(c *decoder.Compiled, dets []int) int {
	want := slices.Sorted(slices.Values(dets))
	for i, e := range c.Initializer().WeightedEdges {
		if slices.Equal(slices.Sorted(slices.Values(e.Vertices)), want) {
			return i
		}
	}
	return -1
}

func assertEdge(c *decoder.Compiled, a Assertion) error {
	if findEdge(c, a.Detectors) < 0 {
		return &AssertionError{Message: fmt.Sprintf("no edge on detectors %v", a.Detectors)}
	}
	return nil
}

func assertHeraldEdge(c *decoder.Compiled, a Assertion) error {
	heralds := c.Initializer().Heralds
	h := *a.Herald
	if h < 0 || h >= len(heralds) {
		return &AssertionError{Message: fmt.Sprintf("herald %d out of range (%d heralds)", h, len(heralds))}
	}
	e := findEdge(c, a.Detectors)
	if e < 0 {
		return &AssertionError{Message: fmt.Sprintf("no edge on detectors %v", a.Detectors)}
	}
	if _, ok := heralds[h][e]; !ok {
		return &AssertionError{Message: fmt.Sprintf("herald %d does not change edge %d on detectors %v", h, e, a.Detectors)}
	}
	return nil
}

func assertFailuresRecorded(actx *assertionContext, a Assertion) error {
	failures, err := actx.store.ReadFailures(actx.ctx, actx.compiled.Fingerprint())
	if err != nil {
		return fmt.Errorf("failed to read failures: %w", err)
	}
	if len(failures) != *a.Count {
		return &AssertionError{Type: "failures_recorded", Expected: *a.Count, Actual: len(failures)}
	}
	return nil
}
