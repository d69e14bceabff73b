package awaits

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chillerno1/awaits/internal/assert"
)

func TestNewRoom(t *testing.T) {

	room := NewRoom("io", 4)
	defer room.StopAndWait()

	assert.Equal(t, "io", room.Name())
	assert.Equal(t, 4, room.Workers())
	assert.Equal(t, false, room.Stopped())
}

func TestNewRoomWithInconsistentWorkerCount(t *testing.T) {

	room := NewRoom("tiny", -3)
	defer room.StopAndWait()

	assert.Equal(t, 1, room.Workers())
}

func TestRoomSubmitAndWait(t *testing.T) {

	room := NewRoom("test", 2)
	defer room.StopAndWait()

	var done int32
	task := room.Submit(func() {
		atomic.AddInt32(&done, 1)
	})

	assert.Equal(t, nil, task.Wait())
	assert.Equal(t, int32(1), atomic.LoadInt32(&done))
}

func TestRoomSubmitPropagatesTaskError(t *testing.T) {

	room := NewRoom("test", 1)
	defer room.StopAndWait()

	sampleErr := errors.New("sample error")

	task := room.Submit(func() error {
		return sampleErr
	})

	assert.Equal(t, sampleErr, task.Wait())
}

func TestRoomSubmitPropagatesPanicAsError(t *testing.T) {

	room := NewRoom("test", 1)
	defer room.StopAndWait()

	task := room.Submit(func() {
		panic("boom")
	})

	err := task.Wait()
	assert.ErrorIs(t, ErrPanic, err)
}

func TestRoomWorkerSurvivesFailingTasks(t *testing.T) {

	room := NewRoom("test", 1)
	defer room.StopAndWait()

	room.Submit(func() {
		panic("boom")
	}).Wait()

	// The same worker must still execute subsequent tasks
	task := room.Submit(func() {})

	assert.Equal(t, nil, task.Wait())
	assert.Equal(t, uint64(1), room.FailedTasks())
	assert.Equal(t, uint64(1), room.SuccessfulTasks())
}

func TestRoomTaskWaitIsIdempotent(t *testing.T) {

	room := NewRoom("test", 1)
	defer room.StopAndWait()

	sampleErr := errors.New("sample error")
	task := room.Submit(func() error { return sampleErr })

	for i := 0; i < 3; i++ {
		assert.Equal(t, sampleErr, task.Wait())
	}
}

func TestRoomStartsTasksInFIFOOrderWithSingleWorker(t *testing.T) {

	room := NewRoom("test", 1)
	defer room.StopAndWait()

	count := 100
	order := make([]int, 0, count)
	var mutex sync.Mutex

	tasks := make([]Task, 0, count)
	for i := 0; i < count; i++ {
		i := i
		tasks = append(tasks, room.Submit(func() {
			mutex.Lock()
			order = append(order, i)
			mutex.Unlock()
		}))
	}

	for _, task := range tasks {
		task.Wait()
	}

	assert.Equal(t, count, len(order))
	for i, got := range order {
		assert.Equal(t, i, got)
	}
}

func TestRoomNeverRunsMoreTasksThanWorkers(t *testing.T) {

	room := NewRoom("test", 3)
	defer room.StopAndWait()

	var running, max int32

	group := room.Group()
	for i := 0; i < 50; i++ {
		group.Submit(func() {
			n := atomic.AddInt32(&running, 1)
			for {
				m := atomic.LoadInt32(&max)
				if n <= m || atomic.CompareAndSwapInt32(&max, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&running, -1)
		})
	}

	assert.Equal(t, nil, group.Wait())
	assert.True(t, atomic.LoadInt32(&max) <= 3)
}

func TestRoomIsolation(t *testing.T) {

	roomA := NewRoom("a", 1)
	defer roomA.StopAndWait()
	roomB := NewRoom("b", 1)
	defer roomB.StopAndWait()

	// Park room B's only worker so its tasks cannot leak to room A
	release := make(chan struct{})
	parked := roomB.Submit(func() {
		<-release
	})

	done := roomA.Submit(func() {})
	assert.Equal(t, nil, done.Wait())

	assert.Equal(t, uint64(1), roomA.CompletedTasks())
	assert.Equal(t, uint64(0), roomB.CompletedTasks())

	close(release)
	parked.Wait()
}

func TestRoomConcurrentSubmissionsRunExactlyOnce(t *testing.T) {

	room := NewRoom("stress", 8)
	defer room.StopAndWait()

	submitters := 100
	perSubmitter := 100

	var executed int32
	var wg sync.WaitGroup

	for i := 0; i < submitters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perSubmitter; j++ {
				err := room.Go(func() {
					atomic.AddInt32(&executed, 1)
				})
				assert.Equal(t, nil, err)
			}
		}()
	}

	wg.Wait()
	room.StopAndWait()

	total := submitters * perSubmitter
	assert.Equal(t, int32(total), atomic.LoadInt32(&executed))
	assert.Equal(t, uint64(total), room.SubmittedTasks())
	assert.Equal(t, uint64(total), room.SuccessfulTasks())
	assert.Equal(t, uint64(0), room.FailedTasks())
	assert.Equal(t, uint64(0), room.WaitingTasks())
}

func TestRoomStopAndWaitDrainsQueuedTasks(t *testing.T) {

	room := NewRoom("drain", 1)

	var executed int32
	for i := 0; i < 20; i++ {
		room.Go(func() {
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&executed, 1)
		})
	}

	room.StopAndWait()

	assert.Equal(t, int32(20), atomic.LoadInt32(&executed))
	assert.Equal(t, true, room.Stopped())
}

func TestRoomRejectsSubmissionsAfterStop(t *testing.T) {

	room := NewRoom("closed", 1)
	room.StopAndWait()

	assert.ErrorIs(t, ErrRoomClosed, room.Go(func() {}))

	task := room.Submit(func() {})
	assert.ErrorIs(t, ErrRoomClosed, task.Wait())

	_, err := SubmitTypedIn[int](room, func() int { return 1 }).Wait()
	assert.ErrorIs(t, ErrRoomClosed, err)
}

func TestRoomStopReturnsAwaitableHandle(t *testing.T) {

	room := NewRoom("async-stop", 2)

	var executed int32
	for i := 0; i < 10; i++ {
		room.Go(func() {
			atomic.AddInt32(&executed, 1)
		})
	}

	assert.Equal(t, nil, room.Stop().Wait())
	assert.Equal(t, int32(10), atomic.LoadInt32(&executed))
}

func TestRoomStopAndWaitIsIdempotent(t *testing.T) {

	room := NewRoom("twice", 1)

	room.StopAndWait()
	room.StopAndWait()

	assert.Equal(t, true, room.Stopped())
}

func TestRoomForcedStopResolvesPendingHandles(t *testing.T) {

	ctx, cancel := context.WithCancel(context.Background())
	room := NewRoom("forced", 1, WithContext(ctx))

	blocked := make(chan struct{})
	room.Go(func() {
		<-blocked
	})

	// Queued behind the blocked task, will never start
	pending := room.Submit(func() {})

	cancel()

	err := pending.Wait()
	assert.Equal(t, context.Canceled, err)

	close(blocked)
	room.StopAndWait()
}

func TestRoomStopAndWaitReturnsWhenCanceledWhileDraining(t *testing.T) {

	ctx, cancel := context.WithCancel(context.Background())
	room := NewRoom("draining", 1, WithContext(ctx))

	release := make(chan struct{})
	running := make(chan struct{})
	parked := room.Submit(func() {
		close(running)
		<-release
	})
	<-running

	// The single worker is parked, so these pile up behind it
	var queued []Task
	for i := 0; i < 50; i++ {
		queued = append(queued, room.Submit(func() {}))
	}

	stopped := make(chan struct{})
	go func() {
		room.StopAndWait()
		close(stopped)
	}()

	cancel()
	close(release)

	// Must not hang even though the cancellation landed mid-stop
	<-stopped

	err := parked.Wait()
	assert.True(t, err == nil || errors.Is(err, context.Canceled))

	// Every handle resolves: executed before the cancellation took effect,
	// or discarded with the cancellation cause
	for _, task := range queued {
		err := task.Wait()
		assert.True(t, err == nil || errors.Is(err, context.Canceled))
	}

	assert.Equal(t, uint64(51), room.SubmittedTasks())
	assert.Equal(t, uint64(0), room.WaitingTasks())
	assert.Equal(t, uint64(51), room.CompletedTasks())
}

func TestRoomPanicHandlerReceivesWorkerAnomalies(t *testing.T) {

	var recovered any
	var mutex sync.Mutex

	room := NewRoom("anomaly", 1, WithPanicHandler(func(p any) {
		mutex.Lock()
		recovered = p
		mutex.Unlock()
	}))
	defer room.StopAndWait()

	// A resolver that panics escapes invoke and hits the worker-loop recover
	room.enqueue(taskRun{
		invoke:  func() error { return nil },
		resolve: func(error) { panic("resolver broke") },
	})

	room.Stop().Wait()

	mutex.Lock()
	defer mutex.Unlock()
	assert.Equal(t, "resolver broke", recovered)
}

func TestRoomStats(t *testing.T) {

	room := NewRoom("stats", 2)

	group := room.Group()
	group.Submit(func() {}, func() {}, func() error { return errors.New("nope") })
	group.Wait()

	stats := room.Stats()
	assert.Equal(t, "stats", stats.Name)
	assert.Equal(t, 2, stats.Workers)
	assert.Equal(t, uint64(3), stats.Submitted)
	assert.Equal(t, uint64(2), stats.Successful)
	assert.Equal(t, uint64(1), stats.Failed)
	assert.Equal(t, uint64(0), stats.Waiting)
	assert.Equal(t, false, stats.Stopped)

	room.StopAndWait()
	assert.Equal(t, true, room.Stats().Stopped)
}

func TestSubmitTypedIn(t *testing.T) {

	room := NewRoom("typed", 2)
	defer room.StopAndWait()

	res := SubmitTypedIn[int](room, func() (int, error) {
		return 21 * 2, nil
	})

	out, err := res.Wait()
	assert.Equal(t, 42, out)
	assert.Equal(t, nil, err)
}

func TestSubmitTypedInPropagatesError(t *testing.T) {

	room := NewRoom("typed", 1)
	defer room.StopAndWait()

	sampleErr := errors.New("sample error")

	res := SubmitTypedIn[string](room, func() (string, error) {
		return "", sampleErr
	})

	out, err := res.Wait()
	assert.Equal(t, "", out)
	assert.Equal(t, sampleErr, err)
}

func TestRoomSubmitRejectsUnsupportedShape(t *testing.T) {

	room := NewRoom("invalid", 1)
	defer room.StopAndWait()

	assert.PanicsWithErrorIs(t, ErrInvalidTaskFunc, func() {
		room.Submit("not a function")
	})

	assert.Equal(t, uint64(0), room.SubmittedTasks())
}
