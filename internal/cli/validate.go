package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/hyperdem/internal/frame"
	"github.com/roach88/hyperdem/internal/herald"
	"github.com/roach88/hyperdem/internal/refcircuit"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid             bool  `json:"valid"`
	Instructions      int   `json:"instructions"`
	Measurements      int   `json:"measurements"`
	Detectors         int   `json:"detectors"`
	Observables       int   `json:"observables"`
	Heralds           int   `json:"heralds"`
	SkeletonEdges     int   `json:"skeleton_edges"`
	UndetectedHeralds []int `json:"undetected_heralds,omitempty"` // absolute measurement indices
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <circuit>",
		Short: "Check that a circuit can be compiled into a heralded model",
		Long: `Check a circuit without writing anything.

Resolves every measurement reference, checks the herald preconditions
(each heralded measurement observed by at most one detector, which observes
nothing else) and runs the error model analysis.

Heralded measurements that no detector observes are reported as warnings:
they never fire a herald. Use render --add-herald-detectors to fix them.

Exit codes:
  0 - Circuit is valid
  1 - Circuit is invalid
  2 - Command error (file not found, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, input string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	c, err := loadCircuit(input)
	if err != nil {
		exit := ExitFailure
		if errorCode(err) == ErrCodeReadFailed {
			exit = ExitCommandError
		}
		return formatter.Fail(exit, errorCode(err), err)
	}
	formatter.VerboseLog("Resolved %d instruction(s), %d measurement(s)", c.Len(), c.NumMeasurements())
	formatter.VerboseLog("Analyzer layout: %s", frame.Describe(c.ToNative()))

	result, err := validateCircuit(c)
	if err != nil {
		return formatter.Fail(ExitFailure, errorCode(err), err)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintln(w, "✓ Circuit is valid")
	fmt.Fprintf(w, "  %d instruction(s), %d measurement(s), %d detector(s), %d observable(s)\n",
		result.Instructions, result.Measurements, result.Detectors, result.Observables)
	fmt.Fprintf(w, "  %d herald(s), %d skeleton edge(s)\n", result.Heralds, result.SkeletonEdges)
	for _, abs := range result.UndetectedHeralds {
		fmt.Fprintf(w, "  warning: heralded measurement abs[%d] is not observed by any detector\n", abs)
	}
	return nil
}

func validateCircuit(c *refcircuit.Circuit) (*ValidationResult, error) {
	m, err := herald.New(c, herald.WithLogger(slog.Default()))
	if err != nil {
		return nil, err
	}
	edges, err := m.SkeletonHyperedges()
	if err != nil {
		return nil, err
	}
	// Isolating every herald surfaces UNKNOWN_HERALD_HYPEREDGE.
	if _, err := m.FaultMap(); err != nil {
		return nil, err
	}
	numObservables, err := m.NumObservables()
	if err != nil {
		return nil, err
	}

	result := &ValidationResult{
		Valid:         true,
		Instructions:  c.Len(),
		Measurements:  c.NumMeasurements(),
		Detectors:     c.NumDetectors(),
		Observables:   numObservables,
		Heralds:       m.NumHeralds(),
		SkeletonEdges: len(edges),
	}
	for _, rec := range m.UndetectedHeraldedMeasurements() {
		abs, _ := c.RecIndex(rec)
		result.UndetectedHeralds = append(result.UndetectedHeralds, abs)
	}
	return result, nil
}
