package worker

import (
	"context"
	"sync"
)

// Runner is a background loop that returns once ctx is cancelled.
type Runner interface {
	Run(ctx context.Context)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context)

func (f RunnerFunc) Run(ctx context.Context) { f(ctx) }

// Pool manages the lifecycle of the background loops: the queue drain
// consumer, the retry ticker and the connectivity prober.
type Pool struct {
	runners []Runner
	wg      sync.WaitGroup
}

func NewPool(runners ...Runner) *Pool {
	return &Pool{runners: runners}
}

// Start launches every runner as a goroutine. Cancelling ctx triggers a
// graceful shutdown of all of them.
func (p *Pool) Start(ctx context.Context) {
	for _, r := range p.runners {
		p.wg.Add(1)
		go func(r Runner) {
			defer p.wg.Done()
			r.Run(ctx)
		}(r)
	}
}

// Wait blocks until every runner has returned after ctx is cancelled.
// An in-flight drain finishes its current item first.
func (p *Pool) Wait() {
	p.wg.Wait()
}
