package websocket

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Detacher runs work that no caller waits for. Errors and panics are caught
// at the task boundary and logged; Stop cancels the shared context and Wait
// blocks until every task has returned.
type Detacher struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    *slog.Logger

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

func NewDetacher(log *slog.Logger) *Detacher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Detacher{ctx: ctx, cancel: cancel, log: log}
}

// Go starts fn in its own goroutine. It returns false, and runs nothing,
// once Stop has been called.
func (d *Detacher) Go(name string, fn func(ctx context.Context) error) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return false
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		err := func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: %v", ErrTaskPanic, r)
				}
			}()
			return fn(d.ctx)
		}()

		if err != nil && d.ctx.Err() == nil {
			d.log.Warn("Detached task failed", "task", name, "error", err)
		}
	}()
	return true
}

func (d *Detacher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.cancel()
}

// Wait returns when every task has finished or ctx is done.
func (d *Detacher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
