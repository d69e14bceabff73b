package feed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
)

var ErrClosed = errors.New("feed has been closed")

// A Feed is an unbounded FIFO intake that can receive elements from many
// goroutines and hands them, in arrival order, to a single sink function.
// Putting never blocks the producer; the sink runs on the feed's own
// goroutine.
type Feed[T any] struct {
	ctx         context.Context
	mutex       sync.Mutex
	pending     *queue.Queue
	hasElements chan struct{}
	sink        func([]T)
	discard     func([]T)
	waitGroup   sync.WaitGroup
	batchSize   int
	closed      atomic.Bool
	accepted    atomic.Uint64
	delivered   atomic.Uint64
	discarded   atomic.Uint64
}

// New creates a feed that delivers batches of at most batchSize elements to
// sink. The feed stops delivering when ctx is canceled; anything still
// pending at that point is handed to discard instead of sink, so every
// accepted element reaches exactly one of the two. A nil discard drops the
// remainder silently.
func New[T any](ctx context.Context, sink func([]T), discard func([]T), batchSize int) *Feed[T] {
	feed := &Feed[T]{
		ctx:         ctx,
		pending:     queue.New(),
		hasElements: make(chan struct{}, 1),
		sink:        sink,
		discard:     discard,
		batchSize:   batchSize,
	}

	feed.waitGroup.Add(1)
	go feed.run()

	return feed
}

// Put appends values to the tail of the feed. It returns ErrClosed once the
// feed has been closed or its context canceled.
func (f *Feed[T]) Put(values ...T) error {
	f.mutex.Lock()

	if f.closed.Load() || f.ctx.Err() != nil {
		f.mutex.Unlock()
		return ErrClosed
	}

	for _, value := range values {
		f.pending.Add(value)
	}
	f.accepted.Add(uint64(len(values)))

	// Signal the delivery goroutine. The channel is closed by Close while
	// holding the mutex, so this send cannot race the close.
	select {
	case f.hasElements <- struct{}{}:
	default:
	}

	f.mutex.Unlock()
	return nil
}

// Accepted returns the number of elements written to the feed.
func (f *Feed[T]) Accepted() uint64 {
	return f.accepted.Load()
}

// Delivered returns the number of elements handed to the sink.
func (f *Feed[T]) Delivered() uint64 {
	return f.delivered.Load()
}

// Discarded returns the number of elements dropped because the feed's
// context was canceled before they could be delivered.
func (f *Feed[T]) Discarded() uint64 {
	return f.discarded.Load()
}

// Len returns the number of elements not yet handed to the sink or the
// discard callback.
func (f *Feed[T]) Len() uint64 {
	accepted := f.accepted.Load()
	settled := f.delivered.Load() + f.discarded.Load()

	if accepted < settled {
		return 0
	}
	return accepted - settled
}

// Close stops the feed from accepting new elements. Elements already
// accepted are still delivered.
func (f *Feed[T]) Close() {
	f.mutex.Lock()
	if f.closed.CompareAndSwap(false, true) {
		close(f.hasElements)
	}
	f.mutex.Unlock()
}

// CloseAndDrain closes the feed and waits until every accepted element has
// been handed to the sink and the delivery goroutine has exited.
func (f *Feed[T]) CloseAndDrain() {
	f.Close()
	f.waitGroup.Wait()
}

// next moves up to len(batch) pending elements into batch and reports how
// many were moved.
func (f *Feed[T]) next(batch []T) int {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	n := 0
	for n < len(batch) && f.pending.Length() > 0 {
		batch[n] = f.pending.Remove().(T)
		n++
	}
	return n
}

func (f *Feed[T]) run() {
	defer f.waitGroup.Done()

	batch := make([]T, f.batchSize)

	// Whatever is still pending when this goroutine exits was accepted but
	// will never reach the sink; account for it through discard.
	defer f.discardPending(batch)

	for {
		// Prioritize context cancellation over delivery
		select {
		case <-f.ctx.Done():
			return
		default:
		}

		select {
		case <-f.ctx.Done():
			return
		case _, ok := <-f.hasElements:
			f.flush(batch)

			if !ok || f.closed.Load() {
				// Feed was closed, deliver stragglers and exit
				f.flush(batch)
				return
			}
		}
	}
}

func (f *Feed[T]) flush(batch []T) {
	for {
		if f.ctx.Err() != nil {
			// Canceled mid-flush, leave the remainder to discardPending
			return
		}
		n := f.next(batch)
		if n == 0 {
			return
		}
		f.delivered.Add(uint64(n))
		f.sink(batch[:n])
	}
}

// discardPending hands every element still queued to the discard callback.
// It holds the mutex across the drain so it cannot race a Put that passed
// its closed check just before the context was canceled.
func (f *Feed[T]) discardPending(batch []T) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	for {
		n := 0
		for n < len(batch) && f.pending.Length() > 0 {
			batch[n] = f.pending.Remove().(T)
			n++
		}
		if n == 0 {
			return
		}
		f.discarded.Add(uint64(n))
		if f.discard != nil {
			f.discard(batch[:n])
		}
	}
}
