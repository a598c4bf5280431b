// Package engine supplies the two execution primitives the transfer stages are
// built on: a blocking parallel-for over an index domain and an atomic
// scatter-add into float64 fields.
package engine

import (
	"runtime"
	"sync"
)

// SerialThreshold is the minimum item count to use parallel processing.
// Below this, running inline is faster due to goroutine overhead.
const SerialThreshold = 64

// Executor runs fn over contiguous sub-ranges covering [0, n) and returns
// only after every sub-range has completed.
type Executor interface {
	ParallelFor(n int, fn func(lo, hi int))
}

// serial runs every range inline on the calling goroutine.
type serial struct{}

// Serial is an Executor that never spawns goroutines. Iteration order is
// fixed, so results are bitwise reproducible.
var Serial Executor = serial{}

func (serial) ParallelFor(n int, fn func(lo, hi int)) {
	if n > 0 {
		fn(0, n)
	}
}

// workChunk represents a range of items for a worker to process.
type workChunk struct {
	start, end int
	fn         func(lo, hi int)
}

// Pool is a persistent worker pool. Workers are started lazily on the first
// parallel call and stay parked on the work channel between calls.
type Pool struct {
	numWorkers int
	threshold  int

	mu       sync.Mutex // serializes ParallelFor calls
	workChan chan workChunk
	doneChan chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

// New creates a pool with the given worker count (0 = GOMAXPROCS).
func New(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{
		numWorkers: workers,
		threshold:  SerialThreshold,
	}
}

// Workers returns the number of workers.
func (p *Pool) Workers() int {
	return p.numWorkers
}

// SetThreshold overrides the inline cutoff. Tests use 0 to force dispatch.
func (p *Pool) SetThreshold(n int) {
	p.threshold = n
}

// startWorkers launches persistent worker goroutines.
func (p *Pool) startWorkers() {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// worker runs in a goroutine, processing chunks until stopped.
func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			chunk.fn(chunk.start, chunk.end)
			p.doneChan <- struct{}{}
		}
	}
}

// ParallelFor splits [0, n) into at most Workers() contiguous chunks and
// blocks until all of them are done.
func (p *Pool) ParallelFor(n int, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}
	if n < p.threshold || p.numWorkers == 1 {
		fn(0, n)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		p.startWorkers()
	}

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers

	chunksDispatched := 0
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}

		p.workChan <- workChunk{start: start, end: end, fn: fn}
		chunksDispatched++
	}

	// Barrier
	for i := 0; i < chunksDispatched; i++ {
		<-p.doneChan
	}
}

// Close signals all workers to exit and waits for them.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}
