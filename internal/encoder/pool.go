package encoder

import (
	"context"
	"sync"
)

// Pool runs render functions on a fixed set of worker goroutines so image
// generation never blocks the transport loop.
type Pool struct {
	jobs chan job
	wg   sync.WaitGroup
}

type job struct {
	render func() ([]byte, error)
	done   chan result
}

type result struct {
	png []byte
	err error
}

// NewPool starts workers goroutines reading from a queue of the given size.
func NewPool(workers, queue int) *Pool {
	p := &Pool{jobs: make(chan job, queue)}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		png, err := j.render()
		j.done <- result{png: png, err: err}
	}
}

// Render submits a render function and waits for its result. The context is
// honored both while queued and while waiting for a worker to finish.
func (p *Pool) Render(ctx context.Context, render func() ([]byte, error)) ([]byte, error) {
	j := job{render: render, done: make(chan result, 1)}

	select {
	case p.jobs <- j:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-j.done:
		return r.png, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close drains the queue and stops all workers. Render must not be called
// after Close.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
}
