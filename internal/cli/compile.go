package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/hyperdem/internal/decoder"
	"github.com/roach88/hyperdem/internal/herald"
	"github.com/roach88/hyperdem/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	ErrorModel bool   // input is a native error model, not a circuit
	Config     string // CUE decoder configuration
	Output     string // output file path
}

// CompileSummary describes a compiled decoding model.
type CompileSummary struct {
	Kind           string `json:"kind"`
	Fingerprint    string `json:"fingerprint"`
	NumDetectors   int    `json:"num_detectors"`
	NumObservables int    `json:"num_observables"`
	NumEdges       int    `json:"num_edges"`
	NumHeralds     int    `json:"num_heralds"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <input>",
		Short: "Compile a circuit into a decoding hypergraph",
		Long: `Compile a noisy circuit (or, with --dem, a native error model) into the
canonical decoding hypergraph and print its summary.

For circuits with heralded channels the summary lists the skeleton
hypergraph and the hypergraph each herald switches on.

With --output the solver initializer is written as canonical JSON.

Examples:
  hyperdem compile ./surface.stim
  hyperdem compile --dem ./surface.dem --format json
  hyperdem compile ./erasure.stim --config decoder.cue -o model.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.ErrorModel, "dem", false, "input is a native error model")
	cmd.Flags().StringVar(&opts.Config, "config", "", "CUE decoder configuration file")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, input string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := loadConfig(opts.Config)
	if err != nil {
		return formatter.Fail(ExitCommandError, errorCode(err), err)
	}
	d, err := decoder.New(cfg, decoder.WithLogger(slog.Default()))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err)
	}

	formatter.VerboseLog("Compiling %s", input)
	compiled, err := compileInput(d, input, opts.ErrorModel)
	if err != nil {
		return formatter.Fail(ExitCommandError, errorCode(err), err)
	}

	init := compiled.Initializer()
	summary := CompileSummary{
		Kind:           compiled.Kind(),
		Fingerprint:    compiled.Fingerprint(),
		NumDetectors:   compiled.NumDetectors(),
		NumObservables: compiled.NumObservables(),
		NumEdges:       len(init.WeightedEdges),
		NumHeralds:     len(init.Heralds),
	}

	// Write to file if --output specified
	if opts.Output != "" {
		data, err := ir.MarshalCanonical(ir.Object{
			"kind":            ir.String(summary.Kind),
			"fingerprint":     ir.String(summary.Fingerprint),
			"num_detectors":   ir.Int(summary.NumDetectors),
			"num_observables": ir.Int(summary.NumObservables),
			"initializer":     init.Canonical(),
		})
		if err == nil {
			err = os.WriteFile(opts.Output, data, 0644)
		}
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Errorf("writing output file: %w", err))
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(summary)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %s model %.12s\n", summary.Kind, summary.Fingerprint)
	fmt.Fprintf(w, "  %d detector(s), %d observable(s), %d edge(s), %d herald(s)\n",
		summary.NumDetectors, summary.NumObservables, summary.NumEdges, summary.NumHeralds)

	if summary.Kind == decoder.KindHeralded {
		text, err := heraldSummary(input, cfg)
		if err != nil {
			return formatter.Fail(ExitCommandError, errorCode(err), err)
		}
		fmt.Fprintf(w, "\n%s\n", text)
	}

	if opts.Output != "" {
		fmt.Fprintf(w, "\nWrote initializer to %s\n", opts.Output)
	}
	return nil
}

// heraldSummary renders the skeleton and per-herald hypergraphs of a
// circuit with the probabilities the decoder compiled.
func heraldSummary(path string, cfg decoder.Config) (string, error) {
	c, err := loadCircuit(path)
	if err != nil {
		return "", err
	}
	m, err := herald.New(c,
		herald.WithFalsePositiveRate(cfg.FalsePositiveRate),
		herald.WithProbabilityFloor(cfg.ProbabilityFloor),
		herald.WithLogger(slog.Default()),
	)
	if err != nil {
		return "", err
	}
	return m.Summary()
}
