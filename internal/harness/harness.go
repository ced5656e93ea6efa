package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/roach88/hyperdem/internal/config"
	"github.com/roach88/hyperdem/internal/decoder"
	"github.com/roach88/hyperdem/internal/dem"
	"github.com/roach88/hyperdem/internal/predict"
	"github.com/roach88/hyperdem/internal/refcircuit"
	"github.com/roach88/hyperdem/internal/store"
	"github.com/roach88/hyperdem/internal/testutil"
)

// Run executes a scenario and returns the result.
//
// Expectation and assertion mismatches are reported in Result.Errors;
// the returned error is reserved for scenarios that cannot run at all.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	cfg := config.Default()
	if scenario.Config != "" {
		loaded, err := config.Load(scenario.Config)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	// Fresh in-memory store with deterministic failure ids per run
	st, err := store.Open(":memory:", store.WithIDGenerator(testutil.NewSequentialIDGenerator("failure")))
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	defer st.Close()

	quietLogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d, err := decoder.New(cfg, decoder.WithRecorder(st), decoder.WithLogger(quietLogger))
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	compiled, err := compileScenario(d, scenario)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	result.Kind = compiled.Kind()
	result.Fingerprint = compiled.Fingerprint()
	result.NumDetectors = compiled.NumDetectors()
	result.NumObservables = compiled.NumObservables()
	result.NumEdges = compiled.Predictor().NumEdges()
	result.NumHeralds = len(compiled.Initializer().Heralds)

	for i, shot := range scenario.Shots {
		sr, err := runShot(ctx, compiled, i, shot)
		if err != nil {
			return nil, fmt.Errorf("shot %q: %w", shot.Name, err)
		}
		result.Shots = append(result.Shots, sr)
		checkExpect(result, shot, sr)
	}

	actx := &assertionContext{ctx: ctx, compiled: compiled, store: st}
	for i, a := range scenario.Assertions {
		if err := evaluateAssertion(actx, a); err != nil {
			result.AddError(fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}

	return result, nil
}

func compileScenario(d *decoder.Decoder, s *Scenario) (*decoder.Compiled, error) {
	switch {
	case s.Circuit != "" || s.CircuitText != "":
		text, err := sourceText(s.Circuit, s.CircuitText)
		if err != nil {
			return nil, err
		}
		circuit, err := refcircuit.ParseNative(text)
		if err != nil {
			return nil, fmt.Errorf("failed to parse circuit: %w", err)
		}
		return d.CompileForCircuit(circuit)
	default:
		text, err := sourceText(s.Model, s.ModelText)
		if err != nil {
			return nil, err
		}
		model, err := dem.Parse(text)
		if err != nil {
			return nil, fmt.Errorf("failed to parse error model: %w", err)
		}
		return d.CompileForErrorModel(model)
	}
}

func sourceText(path, inline string) (string, error) {
	if path == "" {
		return inline, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func runShot(ctx context.Context, c *decoder.Compiled, index int, shot Shot) (ShotResult, error) {
	for _, det := range shot.Detectors {
		if det >= c.NumDetectors() {
			return ShotResult{}, fmt.Errorf("detector %d out of range (%d detectors)", det, c.NumDetectors())
		}
	}
	record := predict.PackBits(shot.Detectors, c.NumDetectors())
	syndrome, err := c.Predictor().SyndromeOf(record)
	if err != nil {
		return ShotResult{}, err
	}

	sr := ShotResult{
		Name:      shot.Name,
		Detectors: predict.UnpackBits(record, c.NumDetectors()),
		Defects:   syndrome.Defects,
		Heralds:   syndrome.Heralds,
	}

	out, err := c.DecodeShot(ctx, index, record)
	var sf *decoder.SolverFailure
	switch {
	case errors.As(err, &sf):
		sr.Failure = string(sf.Reason())
		sr.Record = sf.RecordID
	case err != nil:
		return ShotResult{}, err
	default:
		sr.Observables = predict.UnpackBits(out, c.NumObservables())
	}
	return sr, nil
}

func checkExpect(result *Result, shot Shot, sr ShotResult) {
	if shot.Expect == nil {
		return
	}
	if shot.Expect.Failure != "" {
		if sr.Failure != shot.Expect.Failure {
			result.AddError(fmt.Sprintf("shot %q: expected failure %s, got %q", shot.Name, shot.Expect.Failure, sr.Failure))
		}
		return
	}
	if sr.Failure != "" {
		result.AddError(fmt.Sprintf("shot %q: unexpected solver failure %s", shot.Name, sr.Failure))
		return
	}
	want := slices.Sorted(slices.Values(shot.Expect.Observables))
	if !slices.Equal(sr.Observables, want) {
		result.AddError(fmt.Sprintf("shot %q: expected observables %v, got %v", shot.Name, want, sr.Observables))
	}
}
