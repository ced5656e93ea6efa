package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/hyperdem/internal/ir"
	"github.com/roach88/hyperdem/internal/solver"
)

// ModelRecord is a stored decoding model.
type ModelRecord struct {
	Fingerprint    string
	Initializer    solver.Initializer
	NumDetectors   int
	NumObservables int
	FormatVersion  string
	ToolVersion    string
	Seq            int64
}

// WriteModel stores a model under its fingerprint. Writing a fingerprint
// that already exists is a no-op.
func (s *Store) WriteModel(ctx context.Context, fingerprint string, init solver.Initializer, numDetectors, numObservables int) error {
	return writeModel(ctx, s.db, s.clock, fingerprint, init, numDetectors, numObservables)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func writeModel(ctx context.Context, db execer, clock *Clock, fingerprint string, init solver.Initializer, numDetectors, numObservables int) error {
	if fingerprint == "" {
		return fmt.Errorf("write model: empty fingerprint")
	}
	data, err := ir.MarshalCanonical(init.Canonical())
	if err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO models
		(fingerprint, initializer, num_detectors, num_observables, format_version, tool_version, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO NOTHING
	`,
		fingerprint,
		string(data),
		numDetectors,
		numObservables,
		ir.FormatVersion,
		ir.ToolVersion,
		clock.Next(),
	)
	if err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	return nil
}

// ReadModel returns the model stored under fingerprint, or an error
// wrapping ErrNotFound.
func (s *Store) ReadModel(ctx context.Context, fingerprint string) (ModelRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT fingerprint, initializer, num_detectors, num_observables, format_version, tool_version, seq
		FROM models
		WHERE fingerprint = ?
	`, fingerprint)

	var (
		rec  ModelRecord
		data string
	)
	err := row.Scan(&rec.Fingerprint, &data, &rec.NumDetectors, &rec.NumObservables,
		&rec.FormatVersion, &rec.ToolVersion, &rec.Seq)
	if errors.Is(err, sql.ErrNoRows) {
		return ModelRecord{}, fmt.Errorf("model %s: %w", fingerprint, ErrNotFound)
	}
	if err != nil {
		return ModelRecord{}, fmt.Errorf("read model: %w", err)
	}
	rec.Initializer, err = solver.ParseInitializer([]byte(data))
	if err != nil {
		return ModelRecord{}, fmt.Errorf("read model %s: %w", fingerprint, err)
	}
	return rec, nil
}

// ListModels returns the fingerprints of all stored models in write order.
func (s *Store) ListModels(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fingerprint FROM models
		ORDER BY seq ASC, fingerprint COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query models: %w", err)
	}
	defer rows.Close()

	fingerprints := []string{}
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		fingerprints = append(fingerprints, fp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate models: %w", err)
	}
	return fingerprints, nil
}
