package engine

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Dispatcher serializes every state mutation onto one goroutine, in
// callback-arrival order. Handlers therefore always read the live active-room
// reference at dispatch time, never a value captured when the event source was
// wired up.
type Dispatcher struct {
	jobs chan func()
	done chan struct{}
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		jobs: make(chan func(), 256),
		done: make(chan struct{}),
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	go func() {
		defer close(d.done)
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("dispatcher stopping")
				return
			case fn := <-d.jobs:
				fn()
			}
		}
	}()
}

// Do enqueues a mutation. Blocks only if the buffer is full.
func (d *Dispatcher) Do(fn func()) {
	select {
	case d.jobs <- fn:
	case <-d.done:
		// engine already stopped, mutation discarded
	}
}

// Sync blocks until every previously enqueued mutation has run. Used by tests
// and shutdown.
func (d *Dispatcher) Sync() {
	barrier := make(chan struct{})
	d.Do(func() { close(barrier) })
	select {
	case <-barrier:
	case <-d.done:
	}
}
