package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"

	"github.com/roach88/hyperdem/internal/decoder"
	"github.com/roach88/hyperdem/internal/store"
)

// DecodeOptions holds flags for the decode command.
type DecodeOptions struct {
	*RootOptions
	ErrorModel  bool
	Config      string
	DetsIn      string
	ObsOut      string
	Shots       int
	Database    string
	MetricsFile string
}

// DecodeResult summarizes a decode run.
type DecodeResult struct {
	Fingerprint      string  `json:"fingerprint"`
	Kind             string  `json:"kind"`
	Shots            int     `json:"shots"`
	Failures         int64   `json:"failures"`
	MeanSolveSeconds float64 `json:"mean_solve_seconds"`
	Output           string  `json:"output"`
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DecodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "decode <input>",
		Short: "Decode bit-packed detection events",
		Long: `Compile a circuit (or, with --dem, a native error model) and decode a file
of bit-packed detection records into bit-packed observable predictions.

Records are little-endian bit-packed, ceil(detectors/8) bytes per shot in
and ceil(observables/8) bytes per shot out. Paths ending in .zst are
zstd-compressed.

Solver failures follow the configured failure_policy. With --db every
failure is stored with its model and syndrome for "hyperdem replay".

Exit codes:
  0 - All shots decoded
  1 - A shot failed under the raise policy
  2 - Command error (invalid paths, unparsable input, etc.)

Examples:
  hyperdem decode ./erasure.stim --in dets.b8 --out obs.b8
  hyperdem decode --dem ./surface.dem --in dets.b8.zst --out obs.b8 --shots 100000 \
    --config decoder.cue --db failures.db --metrics decode.prom`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.ErrorModel, "dem", false, "input is a native error model")
	cmd.Flags().StringVar(&opts.Config, "config", "", "CUE decoder configuration file")
	cmd.Flags().StringVar(&opts.DetsIn, "in", "", "detection events file (required)")
	cmd.Flags().StringVar(&opts.ObsOut, "out", "", "predictions file (required)")
	cmd.Flags().IntVar(&opts.Shots, "shots", 0, "number of shots (default: inferred from an uncompressed input)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database capturing solver failures")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics", "", "write Prometheus metrics to this file")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func runDecode(opts *DecodeOptions, input string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := loadConfig(opts.Config)
	if err != nil {
		return formatter.Fail(ExitCommandError, errorCode(err), err)
	}

	reg := prometheus.NewRegistry()
	decoderOpts := []decoder.Option{
		decoder.WithMetrics(decoder.NewMetrics(reg)),
		decoder.WithLogger(slog.Default()),
	}
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Errorf("failed to open database: %w", err))
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
		decoderOpts = append(decoderOpts, decoder.WithRecorder(st))
	}

	d, err := decoder.New(cfg, decoderOpts...)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err)
	}

	compiled, err := compileInput(d, input, opts.ErrorModel)
	if err != nil {
		return formatter.Fail(ExitCommandError, errorCode(err), err)
	}

	shots := opts.Shots
	if shots <= 0 {
		if shots, err = inferShots(opts.DetsIn, compiled.Predictor().DetectorBytes()); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeReadFailed, err)
		}
	}
	formatter.VerboseLog("Decoding %d shot(s) with model %.12s (%d worker(s))", shots, compiled.Fingerprint(), cfg.Workers)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	decodeErr := compiled.DecodeViaFiles(ctx, shots, opts.DetsIn, opts.ObsOut)

	if opts.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.MetricsFile, reg); err != nil {
			slog.Error("failed to write metrics", "path", opts.MetricsFile, "error", err)
		}
	}

	var sf *decoder.SolverFailure
	switch {
	case errors.As(decodeErr, &sf):
		_ = formatter.Error(decoder.ErrCodeSolverFailure, sf.Error(), map[string]any{
			"shot":        sf.Shot,
			"reason":      sf.Reason(),
			"record":      sf.RecordID,
			"fingerprint": sf.Fingerprint,
		})
		return WrapExitError(ExitFailure, decoder.ErrCodeSolverFailure, decodeErr)
	case decodeErr != nil:
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, decodeErr)
	}

	families, err := reg.Gather()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Errorf("gather metrics: %w", err))
	}
	result := DecodeResult{
		Fingerprint:      compiled.Fingerprint(),
		Kind:             compiled.Kind(),
		Shots:            shots,
		Failures:         int64(counterTotal(families, "hyperdem_solver_failures_total")),
		MeanSolveSeconds: histogramMean(families, "hyperdem_solve_seconds"),
		Output:           opts.ObsOut,
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Decoded %d shot(s) into %s\n", result.Shots, result.Output)
	if result.Failures > 0 {
		fmt.Fprintf(formatter.Writer, "  %d solver failure(s) replaced by random guesses\n", result.Failures)
	}
	return nil
}

// counterTotal sums a counter family across its label values.
func counterTotal(families []*dto.MetricFamily, name string) float64 {
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

// histogramMean is the mean observation of an unlabelled histogram, or 0
// when nothing was observed.
func histogramMean(families []*dto.MetricFamily, name string) float64 {
	for _, mf := range families {
		if mf.GetName() != name || len(mf.GetMetric()) == 0 {
			continue
		}
		h := mf.GetMetric()[0].GetHistogram()
		if h.GetSampleCount() == 0 {
			return 0
		}
		return h.GetSampleSum() / float64(h.GetSampleCount())
	}
	return 0
}

// inferShots divides the size of an uncompressed record file by the
// record size.
func inferShots(path string, recordBytes int) (int, error) {
	if strings.HasSuffix(path, ".zst") {
		return 0, fmt.Errorf("--shots is required for compressed input %s", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if recordBytes == 0 {
		return 0, fmt.Errorf("--shots is required for a model without detectors")
	}
	if info.Size()%int64(recordBytes) != 0 {
		return 0, fmt.Errorf("%s has %d bytes, not a multiple of the %d-byte record", path, info.Size(), recordBytes)
	}
	return int(info.Size() / int64(recordBytes)), nil
}
