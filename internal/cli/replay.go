package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/hyperdem/internal/decoder"
	"github.com/roach88/hyperdem/internal/solver"
	"github.com/roach88/hyperdem/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database    string
	Fingerprint string // optional - specific model only
	Solver      string
}

// ReplayFailureResult is the replay of one captured failure.
type ReplayFailureResult struct {
	ID          string `json:"id"`
	Fingerprint string `json:"fingerprint"`
	Shot        int    `json:"shot"`
	Reason      string `json:"reason"`

	// Outcome is the reason the replay failed with, or "DECODED".
	Outcome    string `json:"outcome"`
	Reproduced bool   `json:"reproduced"`
	Subgraph   []int  `json:"subgraph,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Failures      []ReplayFailureResult `json:"failures"`
	Total         int                   `json:"total"`
	AllReproduced bool                  `json:"all_reproduced"`
}

// outcomeDecoded marks a replayed failure that now decodes.
const outcomeDecoded = "DECODED"

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-solve captured solver failures",
		Long: `Re-solve every solver failure captured by "hyperdem decode --db" against
its stored model and configuration, and report whether each failure
reproduces with the same reason.

Exit codes:
  0 - Every failure reproduced
  1 - At least one failure did not reproduce
  2 - Command error (database not found, unknown model, etc.)

Examples:
  hyperdem replay --db ./failures.db
  hyperdem replay --db ./failures.db --model 3f2a...
  hyperdem replay --db ./failures.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Fingerprint, "model", "", "replay failures of this model fingerprint only")
	cmd.Flags().StringVar(&opts.Solver, "solver", decoder.DefaultConfig().Solver, "solver to replay with")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	// Open database
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	// Get model fingerprints to process
	var fingerprints []string
	if opts.Fingerprint != "" {
		fingerprints = []string{opts.Fingerprint}
	} else {
		fingerprints, err = st.ListModels(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list models", err)
		}
	}

	result := ReplayResult{
		Failures:      []ReplayFailureResult{},
		AllReproduced: true,
	}
	for _, fp := range fingerprints {
		replayed, err := replayModel(ctx, st, fp, opts.Solver)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay model %s", fp), err)
		}
		for _, r := range replayed {
			formatter.VerboseLog("Replayed %s (shot %d): %s -> %s", r.ID, r.Shot, r.Reason, r.Outcome)
			result.Failures = append(result.Failures, r)
			if !r.Reproduced {
				result.AllReproduced = false
			}
		}
	}
	result.Total = len(result.Failures)

	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		outputReplayText(formatter, result)
	}

	if !result.AllReproduced {
		return NewExitError(ExitFailure, "some captured failures did not reproduce")
	}
	return nil
}

func replayModel(ctx context.Context, st *store.Store, fingerprint, solverName string) ([]ReplayFailureResult, error) {
	model, err := st.ReadModel(ctx, fingerprint)
	if err != nil {
		return nil, err
	}
	failures, err := st.ReadFailures(ctx, fingerprint)
	if err != nil {
		return nil, err
	}
	replayed, err := decoder.Replay(ctx, solverName, model, failures)
	if err != nil {
		return nil, err
	}

	out := make([]ReplayFailureResult, len(replayed))
	for i, r := range replayed {
		outcome := outcomeDecoded
		var f *solver.Failure
		switch {
		case errors.As(r.Err, &f):
			outcome = string(f.Reason)
		case r.Err != nil:
			outcome = r.Err.Error()
		}
		out[i] = ReplayFailureResult{
			ID:          r.Failure.ID,
			Fingerprint: r.Failure.Fingerprint,
			Shot:        r.Failure.Shot,
			Reason:      string(r.Failure.Reason),
			Outcome:     outcome,
			Reproduced:  outcome == string(r.Failure.Reason),
			Subgraph:    r.Subgraph,
		}
	}
	return out, nil
}

func outputReplayText(formatter *OutputFormatter, result ReplayResult) {
	w := formatter.Writer
	if result.Total == 0 {
		fmt.Fprintln(w, "No captured failures found in database.")
		return
	}

	for _, r := range result.Failures {
		mark := "✓"
		if !r.Reproduced {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s  model %.12s  shot %d  %s -> %s\n", mark, r.ID, r.Fingerprint, r.Shot, r.Reason, r.Outcome)
	}
	fmt.Fprintln(w)

	if result.AllReproduced {
		fmt.Fprintf(w, "✓ All %d failure(s) reproduced\n", result.Total)
		return
	}
	fmt.Fprintln(w, "✗ Some failures did not reproduce")
}
