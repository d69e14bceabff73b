package awaits

import (
	"sync"
)

// A Group is a set of related tasks submitted to one room that can be
// awaited together.
type Group struct {
	room  *Room
	mutex sync.Mutex
	tasks []Task
}

// Group creates a new task group backed by the room.
func (r *Room) Group() *Group {
	return &Group{
		room: r,
	}
}

// Submit queues the given tasks on the group's room. It returns the group so
// calls can be chained. Accepted shapes are those of VoidFunc; anything else
// panics with ErrInvalidTaskFunc.
func (g *Group) Submit(tasks ...any) *Group {
	for _, task := range tasks {
		handle := g.room.Submit(task)

		g.mutex.Lock()
		g.tasks = append(g.tasks, handle)
		g.mutex.Unlock()
	}
	return g
}

// Wait blocks until every task in the group has completed and returns the
// first error encountered, if any.
func (g *Group) Wait() error {
	g.mutex.Lock()
	tasks := make([]Task, len(g.tasks))
	copy(tasks, g.tasks)
	g.mutex.Unlock()

	var firstErr error
	for _, task := range tasks {
		if err := task.Wait(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
