package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/hyperdem/internal/store"
)

var _ store.IDGenerator = (*SequentialIDGenerator)(nil)

func TestSequentialIDGenerator(t *testing.T) {
	gen := NewSequentialIDGenerator("failure")

	assert.Equal(t, "failure-0001", gen.Generate())
	assert.Equal(t, "failure-0002", gen.Generate())

	gen.Reset()
	assert.Equal(t, "failure-0001", gen.Generate())
}

func TestSequentialIDGenerator_DefaultPrefix(t *testing.T) {
	assert.Equal(t, "test-0001", NewSequentialIDGenerator("").Generate())
}

func TestSequentialIDGenerator_ThreadSafe(t *testing.T) {
	gen := NewSequentialIDGenerator("t")

	var wg sync.WaitGroup
	seen := make(chan string, 1000)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				seen <- gen.Generate()
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[string]bool)
	for id := range seen {
		unique[id] = true
	}
	assert.Len(t, unique, 1000)
}
