package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/hyperdem/internal/ir"
	"github.com/roach88/hyperdem/internal/solver"
)

// FailureRecord is one captured solver failure.
type FailureRecord struct {
	ID           string
	Fingerprint  string
	Shot         int
	Reason       solver.FailureReason
	Message      string
	Syndrome     solver.SyndromePattern
	SyndromeHash string
	Config       solver.Config
	Seq          int64
}

// WriteFailure stores a failure. ID, Seq and SyndromeHash are assigned
// when empty; the stored record is returned. The referenced model must
// already be stored.
func (s *Store) WriteFailure(ctx context.Context, rec FailureRecord) (FailureRecord, error) {
	return writeFailure(ctx, s.db, s, rec)
}

func writeFailure(ctx context.Context, db execer, s *Store, rec FailureRecord) (FailureRecord, error) {
	syndrome, err := ir.MarshalCanonical(rec.Syndrome.Canonical())
	if err != nil {
		return FailureRecord{}, fmt.Errorf("write failure: %w", err)
	}
	if rec.ID == "" {
		rec.ID = s.ids.Generate()
	}
	if rec.SyndromeHash == "" {
		rec.SyndromeHash, err = ir.SyndromeHash(rec.Syndrome.Defects, rec.Syndrome.Heralds, rec.Syndrome.Erasures)
		if err != nil {
			return FailureRecord{}, fmt.Errorf("write failure: %w", err)
		}
	}
	if rec.Seq == 0 {
		rec.Seq = s.clock.Next()
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO solver_failures
		(id, fingerprint, shot, reason, message, syndrome, syndrome_hash, max_nullity, timeout_ns, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.Fingerprint,
		rec.Shot,
		string(rec.Reason),
		rec.Message,
		string(syndrome),
		rec.SyndromeHash,
		rec.Config.MaxNullity,
		int64(rec.Config.Timeout),
		rec.Seq,
	)
	if err != nil {
		return FailureRecord{}, fmt.Errorf("write failure: %w", err)
	}
	return rec, nil
}

// RecordFailure stores the model and the failure in one transaction.
// The model write is idempotent, so a batch may record many failures
// against the same model.
func (s *Store) RecordFailure(ctx context.Context, model ModelRecord, failure FailureRecord) (FailureRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return FailureRecord{}, fmt.Errorf("record failure: %w", err)
	}
	defer tx.Rollback()

	if err := writeModel(ctx, tx, s.clock, model.Fingerprint, model.Initializer, model.NumDetectors, model.NumObservables); err != nil {
		return FailureRecord{}, fmt.Errorf("record failure: %w", err)
	}
	failure.Fingerprint = model.Fingerprint
	rec, err := writeFailure(ctx, tx, s, failure)
	if err != nil {
		return FailureRecord{}, fmt.Errorf("record failure: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return FailureRecord{}, fmt.Errorf("record failure: commit: %w", err)
	}
	return rec, nil
}

// ReadFailures returns the failures captured for a model, ordered by
// seq ASC, id ASC COLLATE BINARY. An empty fingerprint returns every
// failure. Returns an empty slice (not nil) when there are none.
func (s *Store) ReadFailures(ctx context.Context, fingerprint string) ([]FailureRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, fingerprint, shot, reason, message, syndrome, syndrome_hash, max_nullity, timeout_ns, seq
		FROM solver_failures
		WHERE ? = '' OR fingerprint = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, fingerprint, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	failures := []FailureRecord{}
	for rows.Next() {
		var (
			rec       FailureRecord
			reason    string
			syndrome  string
			timeoutNS int64
		)
		if err := rows.Scan(&rec.ID, &rec.Fingerprint, &rec.Shot, &reason, &rec.Message,
			&syndrome, &rec.SyndromeHash, &rec.Config.MaxNullity, &timeoutNS, &rec.Seq); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		rec.Reason = solver.FailureReason(reason)
		rec.Config.Timeout = time.Duration(timeoutNS)
		rec.Syndrome, err = solver.ParseSyndrome([]byte(syndrome))
		if err != nil {
			return nil, fmt.Errorf("failure %s: %w", rec.ID, err)
		}
		failures = append(failures, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failures: %w", err)
	}
	return failures, nil
}
