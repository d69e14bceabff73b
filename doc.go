// Package awaits turns ordinary blocking function calls into queued tasks
// executed by named worker pools ("rooms"), with the outcome delivered back
// through an awaitable handle.
//
// A room is one FIFO task queue drained by a fixed set of worker goroutines.
// Rooms are resolved by name through a Keeper; the reserved name "base" is
// the default room and always exists. Submitting never blocks the caller:
// it appends the task to the room's intake and returns a Task or Result
// handle immediately. The handle's Done channel makes it awaitable from a
// select-based event loop without blocking it, and Wait retrieves the value
// or re-raises the captured failure, however many times it is called.
//
// The simplest entry point wraps a function once and calls it many times:
//
//	fetch := awaits.ShootResultTo[[]byte]("io", func() ([]byte, error) {
//		return os.ReadFile("payload.bin")
//	})
//
//	res := fetch() // queued to room "io", does not block
//	data, err := res.Wait()
//
// Errors returned by a task, and panics raised inside it, are captured and
// surface only at Wait; a failing task never terminates its worker.
package awaits
