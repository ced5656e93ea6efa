package store

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/roach88/hyperdem/internal/solver"
)

// createTestStore creates a new store in a temp dir with sequential ids.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithIDGenerator(&sequentialIDs{}))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

type sequentialIDs struct {
	n atomic.Int64
}

func (g *sequentialIDs) Generate() string {
	return fmt.Sprintf("failure-%04d", g.n.Add(1))
}

// testInitializer is a three-vertex path with one herald.
func testInitializer() solver.Initializer {
	return solver.Initializer{
		VertexNum: 3,
		WeightedEdges: []solver.HyperEdge{
			{Vertices: []int{0, 1}, Weight: 2.5},
			{Vertices: []int{1, 2}, Weight: 0.75},
			{Vertices: []int{2}, Weight: 1},
		},
		Heralds: []map[int]float64{{1: 0}},
	}
}
