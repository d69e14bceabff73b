package outcome

import (
	"context"
	"fmt"
)

// A Resolver publishes the outcome of a deferred call. Only the first
// invocation has any effect.
type Resolver[V any] func(value V, err error)

// A Handle represents the outcome of a deferred call that will be resolved
// exactly once, by exactly one goroutine. It is associated with a context:
// when the parent context is canceled before resolution, waiters observe the
// cancellation cause instead of a value.
type Handle[V any] struct {
	ctx context.Context
}

// New creates an unresolved Handle and the Resolver that completes it.
func New[V any](parent context.Context) (*Handle[V], Resolver[V]) {
	ctx, cancel := context.WithCancelCause(parent)
	handle := &Handle[V]{
		ctx: ctx,
	}
	return handle, func(value V, err error) {
		cancel(&resolution[V]{
			value: value,
			err:   err,
		})
	}
}

// Resolved creates a Handle that already carries the given outcome.
func Resolved[V any](value V, err error) *Handle[V] {
	handle, resolve := New[V](context.Background())
	resolve(value, err)
	return handle
}

// Done returns a channel that is closed once the outcome is available.
// It never blocks and is safe to use in a select statement, so a caller
// multiplexing many pending calls stays responsive while workers resolve
// them.
func (h *Handle[V]) Done() <-chan struct{} {
	return h.ctx.Done()
}

// Wait blocks until the outcome is available and returns it. Calling Wait
// multiple times returns the identical value and error every time.
func (h *Handle[V]) Wait() (V, error) {
	<-h.ctx.Done()

	cause := context.Cause(h.ctx)
	if res, ok := cause.(*resolution[V]); ok {
		return res.value, res.err
	}

	// Parent context was canceled before the handle was resolved.
	var zero V
	return zero, cause
}

// resolution carries a published outcome through the context cancellation
// cause. It implements error because context.CancelCauseFunc requires one.
type resolution[V any] struct {
	value V
	err   error
}

func (r *resolution[V]) Error() string {
	if r.err != nil {
		return r.err.Error()
	}
	return fmt.Sprintf("resolved: %v", r.value)
}
