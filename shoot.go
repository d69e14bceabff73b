package awaits

// Shoot wraps task into a callable that, when invoked, queues task to the
// base room of the default keeper and returns a handle the caller can wait
// on whenever it chooses. The wrapped callable itself never blocks.
//
//	warm := awaits.Shoot(cache.Warm)
//	task := warm() // runs on a worker of the base room
//	...
//	err := task.Wait()
func Shoot[T VoidFunc](task T) func() Task {
	return ShootIn(defaultKeeper, BaseRoom, task)
}

// ShootTo is Shoot with an explicit room name. The room is resolved each
// time the wrapped callable is invoked, so it always reflects the keeper's
// current registry. ShootTo(BaseRoom, task) and Shoot(task) route to the
// identical room.
func ShootTo[T VoidFunc](room string, task T) func() Task {
	return ShootIn(defaultKeeper, room, task)
}

// ShootIn is ShootTo against an explicitly constructed keeper.
func ShootIn[T VoidFunc](keeper *Keeper, room string, task T) func() Task {
	return func() Task {
		return keeper.Room(room).Submit(task)
	}
}

// ShootResult wraps a value-returning task into a callable producing a
// Result handle, queued to the base room of the default keeper. The result
// type cannot be inferred from the task shape and must be stated:
//
//	fetch := awaits.ShootResult[string](func() (string, error) { ... })
func ShootResult[R any, T ResultFunc[R]](task T) func() Result[R] {
	return ShootResultIn[R](defaultKeeper, BaseRoom, task)
}

// ShootResultTo is ShootResult with an explicit room name.
func ShootResultTo[R any, T ResultFunc[R]](room string, task T) func() Result[R] {
	return ShootResultIn[R](defaultKeeper, room, task)
}

// ShootResultIn is ShootResultTo against an explicitly constructed keeper.
func ShootResultIn[R any, T ResultFunc[R]](keeper *Keeper, room string, task T) func() Result[R] {
	return func() Result[R] {
		return SubmitTypedIn[R](keeper.Room(room), task)
	}
}

// ShootAny is the untyped variant of ShootTo for callers holding a task as
// an opaque value. The task's shape is validated here, at wrap time: an
// unsupported shape panics with ErrInvalidTaskFunc before any room or task
// is ever created.
func ShootAny(room string, task any) func() Task {
	validateVoidTask(task)

	return func() Task {
		return defaultKeeper.Room(room).Submit(task)
	}
}
