package awaits

// defaultKeeper backs the package-level functions.
var defaultKeeper = NewKeeper()

// Default returns the keeper used by the package-level functions.
func Default() *Keeper {
	return defaultKeeper
}

// Base returns the default room of the default keeper.
func Base() *Room {
	return defaultKeeper.Room(BaseRoom)
}

// In returns the named room of the default keeper, creating it on first use.
func In(name string) *Room {
	return defaultKeeper.Room(name)
}

// Go queues task on the base room and discards its outcome.
func Go(task any) error {
	return Base().Go(task)
}

// Submit queues task on the base room and returns a handle that can be used
// to wait for its completion.
func Submit(task any) Task {
	return Base().Submit(task)
}

// SubmitTyped queues a value-returning task on the base room and returns a
// handle that can be used to wait for its value.
func SubmitTyped[R any, T ResultFunc[R]](task T) Result[R] {
	return SubmitTypedIn[R](Base(), task)
}
