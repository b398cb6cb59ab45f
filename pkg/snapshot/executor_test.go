package snapshot

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestPoolExecutorRunsTasks(t *testing.T) {
	executor := NewPoolExecutor(zaptest.NewLogger(t), 2)

	var (
		counter atomic.Int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		executor.Execute(func() {
			defer wg.Done()
			counter.Add(1)
		})
	}
	wg.Wait()

	assert.Equal(t, int32(16), counter.Load())
	require.NoError(t, executor.Close())
}

func TestPoolExecutorCloseWaitsForTasks(t *testing.T) {
	executor := NewPoolExecutor(zaptest.NewLogger(t), 1)

	var done atomic.Bool
	started := make(chan struct{})
	executor.Execute(func() {
		close(started)
		done.Store(true)
	})
	<-started

	require.NoError(t, executor.Close())
	assert.True(t, done.Load())
}

func TestPoolExecutorMinimumSize(t *testing.T) {
	executor := NewPoolExecutor(zaptest.NewLogger(t), 0)

	ran := make(chan struct{})
	executor.Execute(func() {
		close(ran)
	})
	<-ran
	require.NoError(t, executor.Close())
}
