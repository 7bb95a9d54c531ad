package ids

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerator_UniqueUnderConcurrency(t *testing.T) {
	g := NewGenerator(7)
	const workers, per = 8, 500

	var (
		mu   sync.Mutex
		seen = make(map[int64]struct{}, workers*per)
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < per; i++ {
				id := g.Next()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, workers*per)
}

func TestGenerator_EncodesNode(t *testing.T) {
	id := NewGenerator(42).Next()
	require.Equal(t, int64(42), (id>>seqBits)&maxNode)
}

func TestNodeIDFromString(t *testing.T) {
	require.Equal(t, int64(12), NodeIDFromString("12"))
	n := NodeIDFromString("gateway_01")
	require.GreaterOrEqual(t, n, int64(0))
	require.LessOrEqual(t, n, int64(maxNode))
	require.Equal(t, n, NodeIDFromString("gateway_01"))
}
