package snapshot

import (
	"sync"

	"go.uber.org/zap"
)

// Executor runs the compression stage of a save off the calling goroutine
type Executor interface {
	Execute(fn func())
}

// PoolExecutor is a bounded worker pool. Compression is CPU and I/O heavy
// and must never run on the goroutine that initiated the save, which may be
// a latency sensitive consensus routine.
type PoolExecutor struct {
	l     *zap.Logger
	tasks chan func()
	wg    sync.WaitGroup
}

// NewPoolExecutor starts size workers draining the task queue.
func NewPoolExecutor(l *zap.Logger, size int) *PoolExecutor {
	if size < 1 {
		size = 1
	}
	inst := &PoolExecutor{
		l:     l.Named("executor"),
		tasks: make(chan func()),
	}
	for i := 0; i < size; i++ {
		inst.wg.Add(1)
		go inst.worker()
	}
	return inst
}

// Execute submits a task. It blocks until a worker accepts the task.
func (e *PoolExecutor) Execute(fn func()) {
	e.tasks <- fn
}

// Close stops accepting tasks and waits for the running ones to finish.
func (e *PoolExecutor) Close() error {
	close(e.tasks)
	e.wg.Wait()
	return nil
}

func (e *PoolExecutor) worker() {
	defer e.wg.Done()
	for fn := range e.tasks {
		fn()
	}
	e.l.Debug("worker stopped")
}
