// Package parallel runs the independent rule variants of one evaluation
// round on a bounded set of goroutines.
package parallel

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// WorkerPool manages a fixed set of goroutines. Submit blocks when every
// worker is busy and the queue is full, which bounds the work in flight.
type WorkerPool struct {
	maxWorkers   int
	taskChan     chan func()
	workerWg     sync.WaitGroup
	shutdownChan chan struct{}
	once         sync.Once
}

// NewWorkerPool creates a pool with maxWorkers goroutines.
// If maxWorkers is 0 or negative, it defaults to the number of CPU cores.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}

	pool := &WorkerPool{
		maxWorkers:   maxWorkers,
		taskChan:     make(chan func(), maxWorkers*2),
		shutdownChan: make(chan struct{}),
	}

	for i := 0; i < maxWorkers; i++ {
		pool.workerWg.Add(1)
		go pool.worker()
	}

	return pool
}

// Size returns the number of workers.
func (wp *WorkerPool) Size() int { return wp.maxWorkers }

func (wp *WorkerPool) worker() {
	defer wp.workerWg.Done()

	for {
		select {
		case task, ok := <-wp.taskChan:
			if !ok {
				return
			}
			if task != nil {
				task()
			}
		case <-wp.shutdownChan:
			return
		}
	}
}

// Submit hands task to a worker, blocking while the queue is full.
func (wp *WorkerPool) Submit(ctx context.Context, task func()) error {
	select {
	case <-wp.shutdownChan:
		return ErrPoolShutdown
	default:
	}
	select {
	case wp.taskChan <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-wp.shutdownChan:
		return ErrPoolShutdown
	}
}

// RunAll runs every task on the pool and waits for all submitted tasks to
// finish. Task errors are combined; a submission failure stops further
// submissions but still waits for the tasks already running.
func (wp *WorkerPool) RunAll(ctx context.Context, tasks ...func() error) error {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		result *multierror.Error
	)
	record := func(err error) {
		mu.Lock()
		result = multierror.Append(result, err)
		mu.Unlock()
	}

	for _, task := range tasks {
		wg.Add(1)
		err := wp.Submit(ctx, func() {
			defer wg.Done()
			if err := task(); err != nil {
				record(err)
			}
		})
		if err != nil {
			wg.Done()
			record(err)
			break
		}
	}
	wg.Wait()
	return result.ErrorOrNil()
}

// Shutdown stops the workers after the tasks they are running complete.
// Calling it more than once is safe.
func (wp *WorkerPool) Shutdown() {
	wp.once.Do(func() {
		close(wp.shutdownChan)
		wp.workerWg.Wait()
	})
}

// ErrPoolShutdown is returned when trying to submit tasks to a shutdown pool.
var ErrPoolShutdown = errors.New("parallel: worker pool has been shut down")
