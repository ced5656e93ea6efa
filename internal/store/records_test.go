package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hyperdem/internal/ir"
	"github.com/roach88/hyperdem/internal/solver"
)

func TestWriteReadModel(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	init := testInitializer()

	require.NoError(t, s.WriteModel(ctx, "fp-1", init, 3, 1))

	rec, err := s.ReadModel(ctx, "fp-1")
	require.NoError(t, err)
	assert.Equal(t, "fp-1", rec.Fingerprint)
	assert.Equal(t, init, rec.Initializer)
	assert.Equal(t, 3, rec.NumDetectors)
	assert.Equal(t, 1, rec.NumObservables)
	assert.Equal(t, ir.FormatVersion, rec.FormatVersion)
	assert.Equal(t, ir.ToolVersion, rec.ToolVersion)
	assert.Equal(t, int64(1), rec.Seq)
}

func TestWriteModel_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteModel(ctx, "fp-1", testInitializer(), 3, 1))
	require.NoError(t, s.WriteModel(ctx, "fp-1", solver.Initializer{VertexNum: 9}, 9, 0))

	rec, err := s.ReadModel(ctx, "fp-1")
	require.NoError(t, err)
	assert.Equal(t, 3, rec.NumDetectors, "first write wins")

	fps, err := s.ListModels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"fp-1"}, fps)
}

func TestWriteModel_EmptyFingerprint(t *testing.T) {
	s := createTestStore(t)
	assert.Error(t, s.WriteModel(context.Background(), "", testInitializer(), 3, 1))
}

func TestReadModel_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadModel(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordAndReadFailures(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	model := ModelRecord{Fingerprint: "fp-1", Initializer: testInitializer(), NumDetectors: 3, NumObservables: 1}
	cfg := solver.Config{MaxNullity: 4, Timeout: 250 * time.Millisecond}

	first, err := s.RecordFailure(ctx, model, FailureRecord{
		Shot:     7,
		Reason:   solver.ReasonInfeasible,
		Message:  "defects have odd parity",
		Syndrome: solver.SyndromePattern{Defects: []int{0}},
		Config:   cfg,
	})
	require.NoError(t, err)
	assert.Equal(t, "failure-0001", first.ID)
	assert.Equal(t, "fp-1", first.Fingerprint)
	assert.NotEmpty(t, first.SyndromeHash)

	second, err := s.RecordFailure(ctx, model, FailureRecord{
		Shot:     9,
		Reason:   solver.ReasonNullity,
		Syndrome: solver.SyndromePattern{Defects: []int{1, 2}, Heralds: []int{0}},
		Config:   cfg,
	})
	require.NoError(t, err)
	assert.Greater(t, second.Seq, first.Seq)

	failures, err := s.ReadFailures(ctx, "fp-1")
	require.NoError(t, err)
	require.Len(t, failures, 2)
	assert.Equal(t, first, failures[0])
	assert.Equal(t, second, failures[1])
	assert.Equal(t, cfg, failures[1].Config)
	assert.Equal(t, []int{0}, failures[1].Syndrome.Heralds)

	fps, err := s.ListModels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"fp-1"}, fps)
}

func TestReadFailures_FilterAndEmpty(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	none, err := s.ReadFailures(ctx, "fp-1")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	for _, fp := range []string{"fp-a", "fp-b"} {
		model := ModelRecord{Fingerprint: fp, Initializer: testInitializer(), NumDetectors: 3}
		_, err := s.RecordFailure(ctx, model, FailureRecord{
			Reason:   solver.ReasonInfeasible,
			Syndrome: solver.SyndromePattern{Defects: []int{2}},
		})
		require.NoError(t, err)
	}

	onlyA, err := s.ReadFailures(ctx, "fp-a")
	require.NoError(t, err)
	require.Len(t, onlyA, 1)
	assert.Equal(t, "fp-a", onlyA[0].Fingerprint)

	all, err := s.ReadFailures(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestWriteFailure_UnknownModel(t *testing.T) {
	s := createTestStore(t)
	_, err := s.WriteFailure(context.Background(), FailureRecord{
		Fingerprint: "missing",
		Reason:      solver.ReasonInfeasible,
		Syndrome:    solver.SyndromePattern{Defects: []int{0}},
	})
	assert.Error(t, err)
}

func TestOpen_ResumesClock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.WriteModel(ctx, "fp-1", testInitializer(), 3, 1))
	require.NoError(t, s1.WriteModel(ctx, "fp-2", testInitializer(), 3, 1))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	assert.Equal(t, int64(2), s2.Clock().Current())

	rec, err := s2.WriteFailure(ctx, FailureRecord{
		Fingerprint: "fp-2",
		Reason:      solver.ReasonCancelled,
		Syndrome:    solver.SyndromePattern{Defects: []int{0}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), rec.Seq)

	parsed, err := uuid.Parse(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}
