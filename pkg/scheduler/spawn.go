package scheduler

import (
	"context"
	"sync"

	"github.com/jdziat/cronloop/pkg/core"
)

// GoSpawner runs functions on a new goroutine. Kill cancels the context the
// function receives; a panic is recovered into the handle's error.
type GoSpawner struct{}

// Spawn starts fn on its own goroutine.
func (GoSpawner) Spawn(ctx context.Context, fn func(ctx context.Context) error) core.Handle {
	runCtx, cancel := context.WithCancel(ctx)
	h := &goHandle{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(h.done)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				h.err = &core.PanicError{Value: r}
			}
		}()
		h.err = fn(runCtx)
	}()

	return h
}

type goHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
	once   sync.Once
}

func (h *goHandle) Wait() error {
	<-h.done
	return h.err
}

func (h *goHandle) Kill() {
	h.once.Do(h.cancel)
}

// Done is closed when the goroutine has exited.
func (h *goHandle) Done() <-chan struct{} { return h.done }
