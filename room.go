package awaits

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/chillerno1/awaits/internal/feed"
	"github.com/chillerno1/awaits/internal/outcome"
)

const (
	// maxTasksChanLength caps the buffer of the channel between the intake
	// and the workers.
	maxTasksChanLength = 2048
)

// defaultPanicHandler reports anomalies recovered at the worker-loop level.
// Panics raised by task functions themselves never reach it; those are
// captured and delivered through the task's handle.
func defaultPanicHandler(p any) {
	fmt.Printf("Worker recovered from a panic: %v\nStack trace: %s\n", p, string(debug.Stack()))
}

// RoomOption customizes a room at creation time.
type RoomOption func(*Room)

// WithContext sets the parent context of a room. Canceling it force-stops
// the room: pending tasks are discarded and their handles resolve with the
// cancellation cause.
func WithContext(parent context.Context) RoomOption {
	return func(room *Room) {
		room.ctx, room.cancel = context.WithCancel(parent)
	}
}

// WithPanicHandler replaces the function invoked when a worker recovers from
// a panic that escaped task execution.
func WithPanicHandler(handler func(any)) RoomOption {
	return func(room *Room) {
		room.panicHandler = handler
	}
}

// taskRun is the unit handed from the intake to a worker. invoke executes
// the wrapped call and captures its panics; resolve, when present,
// publishes the outcome to the caller's handle. Workers always update the
// room counters between the two, so by the time a handle resolves the
// counters already reflect the task.
type taskRun struct {
	invoke  func() error
	resolve func(err error)
}

// A Room is a named unit of concurrency: one FIFO task queue drained by a
// fixed set of worker goroutines. The worker count is fixed at creation.
// Tasks submitted to a room are started in submission order; with more than
// one worker, completion order is not guaranteed.
type Room struct {
	name         string
	workers      int
	ctx          context.Context
	cancel       context.CancelFunc
	panicHandler func(any)

	intake *feed.Feed[taskRun]
	tasks  chan taskRun

	workerGroup sync.WaitGroup
	taskGroup   sync.WaitGroup
	stopped     atomic.Bool
	stopOnce    sync.Once

	submittedCount  atomic.Uint64
	waitingCount    atomic.Uint64
	successfulCount atomic.Uint64
	failedCount     atomic.Uint64
}

// NewRoom creates a room with the given name and worker count and starts its
// workers. A worker count below 1 is treated as 1.
func NewRoom(name string, workers int, options ...RoomOption) *Room {
	room := &Room{
		name:         name,
		workers:      workers,
		panicHandler: defaultPanicHandler,
	}

	for _, option := range options {
		option(room)
	}

	if room.workers < 1 {
		room.workers = 1
	}
	if room.ctx == nil {
		WithContext(context.Background())(room)
	}

	tasksLen := room.workers
	if tasksLen > maxTasksChanLength {
		tasksLen = maxTasksChanLength
	}
	room.tasks = make(chan taskRun, tasksLen)
	room.intake = feed.New(room.ctx, room.dispatch, room.discardIntake, tasksLen)

	for i := 0; i < room.workers; i++ {
		room.workerGroup.Add(1)
		go room.worker()
	}

	return room
}

// Name returns the room's name.
func (r *Room) Name() string {
	return r.name
}

// Workers returns the number of worker goroutines owned by the room.
func (r *Room) Workers() int {
	return r.workers
}

// Context returns the room's context. It is canceled once the room stops.
func (r *Room) Context() context.Context {
	return r.ctx
}

// Stopped reports whether the room has stopped accepting tasks.
func (r *Room) Stopped() bool {
	return r.stopped.Load() || r.ctx.Err() != nil
}

// SubmittedTasks returns the total number of tasks accepted since the room
// was created.
func (r *Room) SubmittedTasks() uint64 {
	return r.submittedCount.Load()
}

// WaitingTasks returns the number of accepted tasks that have not started
// executing yet.
func (r *Room) WaitingTasks() uint64 {
	return r.waitingCount.Load()
}

// SuccessfulTasks returns the total number of tasks that completed without
// an error.
func (r *Room) SuccessfulTasks() uint64 {
	return r.successfulCount.Load()
}

// FailedTasks returns the total number of tasks that completed with an
// error or a captured panic, plus tasks discarded by a forced stop.
func (r *Room) FailedTasks() uint64 {
	return r.failedCount.Load()
}

// CompletedTasks returns the total number of tasks that finished, either
// successfully or not.
func (r *Room) CompletedTasks() uint64 {
	return r.SuccessfulTasks() + r.FailedTasks()
}

// RoomStats is a point-in-time snapshot of a room's counters.
type RoomStats struct {
	Name       string
	Workers    int
	Submitted  uint64
	Waiting    uint64
	Successful uint64
	Failed     uint64
	Stopped    bool
}

// Stats returns a snapshot of the room's counters.
func (r *Room) Stats() RoomStats {
	return RoomStats{
		Name:       r.name,
		Workers:    r.workers,
		Submitted:  r.SubmittedTasks(),
		Waiting:    r.WaitingTasks(),
		Successful: r.SuccessfulTasks(),
		Failed:     r.FailedTasks(),
		Stopped:    r.Stopped(),
	}
}

// Go queues task for execution and returns immediately, discarding its
// outcome. It returns ErrRoomClosed if the room has stopped. Task panics are
// recovered and counted as failures; they never kill a worker.
//
// Accepted shapes are those of VoidFunc. Anything else panics with
// ErrInvalidTaskFunc before the task is queued.
func (r *Room) Go(task any) error {
	validateVoidTask(task)

	return r.enqueue(taskRun{
		invoke: func() error {
			return invokeVoidTask(task, r.ctx)
		},
	})
}

// Submit queues task for execution and returns a handle that can be used to
// wait for its completion. Submit never blocks the caller; if the room has
// stopped, the returned handle is already resolved with ErrRoomClosed.
//
// Accepted shapes are those of VoidFunc. Anything else panics with
// ErrInvalidTaskFunc before the task is queued.
func (r *Room) Submit(task any) Task {
	validateVoidTask(task)

	if r.Stopped() {
		return failedTask(ErrRoomClosed)
	}

	handle, resolve := outcome.New[struct{}](r.ctx)

	run := taskRun{
		invoke: func() error {
			return invokeVoidTask(task, r.ctx)
		},
		resolve: func(err error) {
			resolve(struct{}{}, err)
		},
	}

	if err := r.enqueue(run); err != nil {
		return failedTask(err)
	}

	return voidTask{handle: handle}
}

// Stop stops the room asynchronously and returns a handle that resolves
// once every queued task has completed and all workers have exited.
func (r *Room) Stop() Task {
	handle, resolve := outcome.New[struct{}](context.Background())
	go func() {
		r.StopAndWait()
		resolve(struct{}{}, nil)
	}()
	return voidTask{handle: handle}
}

// StopAndWait stops the room and waits for every queued task to complete and
// all workers to exit. Tasks submitted while stopping are rejected with
// ErrRoomClosed. If the room's context was canceled beforehand, queued tasks
// are discarded instead of executed.
func (r *Room) StopAndWait() {
	r.stopOnce.Do(r.stop)
}

func (r *Room) stop() {
	r.stopped.Store(true)

	if r.ctx.Err() == nil {
		// Graceful path: flush the intake, run everything, then shut down.
		r.intake.CloseAndDrain()
		close(r.tasks)
		if r.ctx.Err() != nil {
			// Canceled while draining: workers may already have exited,
			// leaving handed-over tasks buffered with nobody to take them.
			r.drainAbandoned()
		}
		r.taskGroup.Wait()
		r.cancel()
	} else {
		// Forced path: the context is gone, discard whatever is left.
		r.intake.CloseAndDrain()
		close(r.tasks)
	}

	r.workerGroup.Wait()
}

// enqueue appends run to the room's FIFO intake, maintaining the task
// counters.
func (r *Room) enqueue(run taskRun) error {
	if r.Stopped() {
		return ErrRoomClosed
	}

	r.submittedCount.Add(1)
	r.waitingCount.Add(1)
	r.taskGroup.Add(1)

	if err := r.intake.Put(run); err != nil {
		// Lost the race against a concurrent stop
		r.submittedCount.Add(^uint64(0))
		r.waitingCount.Add(^uint64(0))
		r.taskGroup.Done()
		return ErrRoomClosed
	}

	return nil
}

// discardIntake accounts for tasks still queued in the intake when the
// room's context is canceled. Their handles resolve through the context
// cause.
func (r *Room) discardIntake(batch []taskRun) {
	for range batch {
		r.abandonTask()
	}
}

// dispatch moves a batch of tasks from the intake to the workers' channel,
// preserving order.
func (r *Room) dispatch(batch []taskRun) {
	for i, run := range batch {
		select {
		case r.tasks <- run:
		case <-r.ctx.Done():
			// Room was force-stopped, discard the rest of the batch. Their
			// handles resolve through the context cause.
			for range batch[i:] {
				r.abandonTask()
			}
			return
		}
	}
}

// worker is the loop run by each of the room's worker goroutines.
func (r *Room) worker() {
	defer r.workerGroup.Done()

	for {
		select {
		case <-r.ctx.Done():
			r.drainAbandoned()
			return
		case run, ok := <-r.tasks:
			if !ok {
				return
			}

			// Prioritize cancellation over executing a task that was
			// already handed over.
			select {
			case <-r.ctx.Done():
				r.abandonTask()
				r.drainAbandoned()
				return
			default:
			}

			r.executeTask(run)
		}
	}
}

// executeTask runs one task, updates the counters and then publishes the
// outcome. A panic escaping the bookkeeping itself (the task's own panics
// are captured inside invoke) is recovered so a single misbehaving task can
// never take down the worker.
func (r *Room) executeTask(run taskRun) {
	defer func() {
		if p := recover(); p != nil {
			r.failedCount.Add(1)
			r.panicHandler(p)
		}
		r.taskGroup.Done()
	}()

	r.waitingCount.Add(^uint64(0))

	err := run.invoke()

	if err != nil {
		r.failedCount.Add(1)
	} else {
		r.successfulCount.Add(1)
	}

	if run.resolve != nil {
		run.resolve(err)
	}
}

// abandonTask accounts for a task discarded by a forced stop.
func (r *Room) abandonTask() {
	r.waitingCount.Add(^uint64(0))
	r.failedCount.Add(1)
	r.taskGroup.Done()
}

// drainAbandoned empties whatever is immediately available on the tasks
// channel after a forced stop.
func (r *Room) drainAbandoned() {
	for {
		select {
		case _, ok := <-r.tasks:
			if !ok {
				return
			}
			r.abandonTask()
		default:
			return
		}
	}
}
