package awaits

import (
	"context"
	"fmt"

	"github.com/chillerno1/awaits/internal/outcome"
)

// Task represents a queued call that can be waited on. If the call fails,
// the error can be retrieved.
type Task interface {

	// Done returns a channel that is closed when the call has completed or
	// failed. It is safe to use in a select statement, so an event loop can
	// keep running other work while a worker resolves the task.
	Done() <-chan struct{}

	// Wait blocks until the call has completed and returns any error that
	// occurred, including errors recovered from a panic. Wait may be called
	// any number of times; it always returns the same outcome.
	Wait() error
}

// Result represents a queued call that yields a value of type R.
type Result[R any] interface {

	// Done returns a channel that is closed when the call has completed or
	// failed.
	Done() <-chan struct{}

	// Wait blocks until the call has completed and returns its value and
	// any error that occurred. Idempotent, like Task.Wait.
	Wait() (R, error)
}

// VoidFunc enumerates the function shapes accepted by the untyped entry
// points (Room.Go, Room.Submit, Shoot, ShootAny).
type VoidFunc interface {
	func() | func(context.Context) | func() error | func(context.Context) error
}

// ResultFunc enumerates the function shapes accepted by the typed entry
// points (SubmitTyped, ShootResult and friends).
type ResultFunc[R any] interface {
	func() R | func(context.Context) R | func() (R, error) | func(context.Context) (R, error)
}

// voidTask adapts an outcome handle to the Task interface.
type voidTask struct {
	handle *outcome.Handle[struct{}]
}

func (t voidTask) Done() <-chan struct{} {
	return t.handle.Done()
}

func (t voidTask) Wait() error {
	_, err := t.handle.Wait()
	return err
}

// failedTask returns a Task that is already resolved with err.
func failedTask(err error) Task {
	return voidTask{handle: outcome.Resolved(struct{}{}, err)}
}

// failedResult returns a Result that is already resolved with err.
func failedResult[R any](err error) Result[R] {
	var zero R
	return outcome.Resolved(zero, err)
}

func validateVoidTask(task any) {
	switch task.(type) {
	case func():
	case func(context.Context):
	case func() error:
	case func(context.Context) error:
	default:
		panic(fmt.Errorf("%w: %#v", ErrInvalidTaskFunc, task))
	}
}

// invokeVoidTask calls task with the room context and captures any panic as
// an ErrPanic-wrapped error.
func invokeVoidTask(task any, ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, p)
		}
	}()

	switch t := task.(type) {
	case func():
		t()
	case func(context.Context):
		t(ctx)
	case func() error:
		err = t()
	case func(context.Context) error:
		err = t(ctx)
	default:
		err = fmt.Errorf("%w: %#v", ErrInvalidTaskFunc, task)
	}
	return
}

// invokeResultTask calls task with the room context and captures any panic
// as an ErrPanic-wrapped error.
func invokeResultTask[R any](task any, ctx context.Context) (output R, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, p)
		}
	}()

	switch t := task.(type) {
	case func() R:
		output = t()
	case func(context.Context) R:
		output = t(ctx)
	case func() (R, error):
		output, err = t()
	case func(context.Context) (R, error):
		output, err = t(ctx)
	default:
		err = fmt.Errorf("%w: %#v", ErrInvalidTaskFunc, task)
	}
	return
}

// SubmitTypedIn submits a value-returning task to the given room and returns
// a handle that can be used to wait for its value.
func SubmitTypedIn[R any, T ResultFunc[R]](room *Room, task T) Result[R] {
	if room.Stopped() {
		return failedResult[R](ErrRoomClosed)
	}

	handle, resolve := outcome.New[R](room.Context())

	// output is written by invoke and read by resolve, both on the same
	// worker goroutine.
	var output R

	run := taskRun{
		invoke: func() (err error) {
			output, err = invokeResultTask[R](task, room.Context())
			return
		},
		resolve: func(err error) {
			resolve(output, err)
		},
	}

	if err := room.enqueue(run); err != nil {
		return failedResult[R](err)
	}

	return handle
}
