package awaits

import "errors"

var (
	// ErrRoomClosed is returned when attempting to submit a task to a room
	// that has been stopped and is no longer accepting tasks.
	ErrRoomClosed = errors.New("room has been stopped and is no longer accepting tasks")

	// ErrPanic wraps the panic value recovered from a task function. It is
	// delivered through the task's handle, never thrown on the worker.
	ErrPanic = errors.New("task panicked")

	// ErrInvalidTaskFunc is the cause of the panic raised when a value with
	// an unsupported function shape is passed to one of the untyped
	// entry points. The panic happens at wrap time, before any room or
	// task exists.
	ErrInvalidTaskFunc = errors.New("unsupported task function")
)
