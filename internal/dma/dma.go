package dma

import "sync"

// Completion signals that an issued transfer has finished. It replaces the
// hardware's sentinel-word poll: Wait blocks until the last byte has landed.
// There is deliberately no way to cancel or time out a completion.
type Completion struct {
	done chan struct{}
}

// Wait blocks until the transfer has finished. Safe to call more than once.
func (c *Completion) Wait() {
	<-c.done
}

// Done returns a channel closed when the transfer has finished.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

type job struct {
	dst, src []byte
	c        *Completion
}

// Engine executes bulk copies on a single background worker, preserving
// issue order. One engine serves one core.
type Engine struct {
	jobs chan job

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewEngine starts the copy worker.
func NewEngine() *Engine {
	e := &Engine{jobs: make(chan job, 4)}
	e.wg.Add(1)
	go e.run()
	return e
}

func (e *Engine) run() {
	defer e.wg.Done()
	for j := range e.jobs {
		copy(j.dst, j.src)
		close(j.c.done)
	}
}

// Transfer issues an asynchronous copy of src into dst and returns its
// Completion. dst and src must not overlap: transfers run against staged
// bytes, never in place. Issuing on a closed engine panics; the engine
// outlives every issuer by construction.
func (e *Engine) Transfer(dst, src []byte) *Completion {
	if len(dst) < len(src) {
		panic("dma: destination shorter than source")
	}
	c := &Completion{done: make(chan struct{})}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		panic("dma: transfer on closed engine")
	}
	e.jobs <- job{dst: dst, src: src, c: c}
	e.mu.Unlock()

	return c
}

// Close drains outstanding transfers and stops the worker.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.jobs)
	e.mu.Unlock()
	e.wg.Wait()
}
