package llm

import "context"

// Future is the pending outcome of a non-blocking generation.
type Future struct {
	done   chan struct{}
	result *Result
	err    error
}

// Go runs fn on its own goroutine and returns a Future for its outcome.
func Go(ctx context.Context, fn func(context.Context) (*Result, error)) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.result, f.err = fn(ctx)
	}()
	return f
}

// Resolved returns an already completed Future.
func Resolved(result *Result, err error) *Future {
	f := &Future{done: make(chan struct{}), result: result, err: err}
	close(f.done)
	return f
}

// Done is closed once the outcome is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await suspends until the outcome is available or ctx is done.
// Abandoning a Future does not cancel the work behind it.
func (f *Future) Await(ctx context.Context) (*Result, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
