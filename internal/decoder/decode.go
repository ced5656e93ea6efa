package decoder

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/hyperdem/internal/predict"
	"github.com/roach88/hyperdem/internal/solver"
	"github.com/roach88/hyperdem/internal/store"
)

// FailureRecorder stores captured solver failures for offline replay.
// *store.Store implements it.
type FailureRecorder interface {
	RecordFailure(ctx context.Context, model store.ModelRecord, failure store.FailureRecord) (store.FailureRecord, error)
}

var _ FailureRecorder = (*store.Store)(nil)

// DecodeShotsBitPacked decodes numShots detection records laid out back to
// back and returns the prediction records in the same order.
//
// Shots are split into contiguous ranges over cfg.Workers goroutines, each
// with its own solver.
func (c *Compiled) DecodeShotsBitPacked(ctx context.Context, data []byte, numShots int) ([]byte, error) {
	db, ob := c.predictor.DetectorBytes(), c.predictor.ObservableBytes()
	if numShots < 0 {
		return nil, fmt.Errorf("negative shot count %d", numShots)
	}
	if len(data) != numShots*db {
		return nil, fmt.Errorf("%d bytes of detection data for %d shots of %d bytes", len(data), numShots, db)
	}
	out := make([]byte, numShots*ob)
	workers := min(c.cfg.Workers, numShots)
	if workers == 0 {
		return out, nil
	}
	chunk := (numShots + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < numShots; start += chunk {
		end := min(start+chunk, numShots)
		g.Go(func() error {
			s, err := c.acquire()
			if err != nil {
				return err
			}
			defer c.release(s)
			for shot := start; shot < end; shot++ {
				mask, err := c.decodeShot(gctx, s, shot, data[shot*db:(shot+1)*db])
				if err != nil {
					return err
				}
				// Appending to a zero-length window writes in place.
				predict.AppendMask(out[shot*ob:shot*ob], mask, c.NumObservables())
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeShot decodes a single detection record. shot labels a captured
// failure and seeds its random guess.
func (c *Compiled) DecodeShot(ctx context.Context, shot int, record []byte) ([]byte, error) {
	s, err := c.acquire()
	if err != nil {
		return nil, err
	}
	defer c.release(s)
	mask, err := c.decodeShot(ctx, s, shot, record)
	if err != nil {
		return nil, err
	}
	return predict.PackPrediction(mask, c.NumObservables()), nil
}

// DecodeStream reads numShots detection records from r and writes one
// prediction record per shot to w, using a single solver.
func (c *Compiled) DecodeStream(ctx context.Context, numShots int, r io.Reader, w io.Writer) error {
	s, err := c.acquire()
	if err != nil {
		return err
	}
	defer c.release(s)

	record := make([]byte, c.predictor.DetectorBytes())
	buf := make([]byte, 0, c.predictor.ObservableBytes())
	for shot := 0; shot < numShots; shot++ {
		if _, err := io.ReadFull(r, record); err != nil {
			return fmt.Errorf("read shot %d: %w", shot, err)
		}
		mask, err := c.decodeShot(ctx, s, shot, record)
		if err != nil {
			return err
		}
		buf = predict.AppendMask(buf[:0], mask, c.NumObservables())
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("write shot %d: %w", shot, err)
		}
	}
	return nil
}

// DecodeViaFiles streams numShots records from detsIn to obsOut. Paths
// ending in ".zst" are read or written zstd compressed.
func (c *Compiled) DecodeViaFiles(ctx context.Context, numShots int, detsIn, obsOut string) (err error) {
	in, err := openRecords(detsIn)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := createRecords(obsOut)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", obsOut, cerr)
		}
	}()

	return c.DecodeStream(ctx, numShots, in, out)
}

// decodeShot runs one shot on s and leaves s cleared.
func (c *Compiled) decodeShot(ctx context.Context, s solver.Solver, shot int, record []byte) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	syn, err := c.predictor.SyndromeOf(record)
	if err != nil {
		return 0, fmt.Errorf("shot %d: %w", shot, err)
	}
	pattern := solver.SyndromePattern{Defects: syn.Defects, Heralds: syn.Heralds}

	start := time.Now()
	solveErr := s.Solve(ctx, pattern)
	c.metrics.observeSolve(time.Since(start))

	var mask uint64
	if solveErr == nil {
		var edges []int
		if edges, solveErr = s.Subgraph(); solveErr == nil {
			mask, err = c.predictor.Predict(syn, edges)
		}
	}
	s.Clear()
	if err != nil {
		return 0, fmt.Errorf("shot %d: %w", shot, err)
	}
	c.metrics.shot(c.kind)
	if solveErr == nil {
		return mask, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return c.handleFailure(ctx, shot, pattern, solveErr)
}

func (c *Compiled) handleFailure(ctx context.Context, shot int, pattern solver.SyndromePattern, cause error) (uint64, error) {
	failure := &SolverFailure{
		Fingerprint: c.fingerprint,
		Shot:        shot,
		Initializer: c.init,
		Config:      c.cfg.SolverConfig(),
		Syndrome:    pattern,
		Err:         cause,
	}
	reason := failure.Reason()
	if reason == "" {
		reason = "UNKNOWN"
	}
	c.metrics.failure(string(reason))

	if c.recorder != nil {
		rec, err := c.recorder.RecordFailure(ctx, c.ModelRecord(), store.FailureRecord{
			Shot:     shot,
			Reason:   reason,
			Message:  cause.Error(),
			Syndrome: pattern,
			Config:   failure.Config,
		})
		if err != nil {
			return 0, fmt.Errorf("record solver failure for shot %d: %w", shot, err)
		}
		failure.RecordID = rec.ID
	}
	c.logger.Warn("solver failure captured",
		"shot", shot,
		"fingerprint", c.fingerprint,
		"reason", reason,
		"record", failure.RecordID,
		"policy", c.cfg.FailurePolicy,
	)

	if c.cfg.FailurePolicy == FailureRandom {
		return c.randomMask(shot), nil
	}
	return 0, failure
}

// randomMask is uniform over the observable bits and depends only on the
// seed and the shot index, not on how shots were split across workers.
func (c *Compiled) randomMask(shot int) uint64 {
	r := rand.New(rand.NewPCG(c.cfg.Seed, uint64(shot)))
	mask := r.Uint64()
	if n := c.NumObservables(); n < 64 {
		mask &= 1<<uint(n) - 1
	}
	return mask
}
