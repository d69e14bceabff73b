package awaits

import (
	"context"
	"sort"
	"sync"
)

const (
	// BaseRoom is the reserved name of the default room. It always exists:
	// a keeper creates it on first use even when no configuration names it.
	BaseRoom = "base"

	// DefaultRoomWorkers is the worker count used for rooms whose size was
	// not configured.
	DefaultRoomWorkers = 10
)

// KeeperOption customizes a keeper at creation time.
type KeeperOption func(*Keeper)

// WithDefaultWorkers sets the worker count used for rooms created without an
// explicit size.
func WithDefaultWorkers(workers int) KeeperOption {
	return func(keeper *Keeper) {
		keeper.defaultWorkers = workers
	}
}

// WithRoom configures a named room with the given worker count. The room is
// created eagerly when the keeper is constructed.
func WithRoom(name string, workers int) KeeperOption {
	return func(keeper *Keeper) {
		keeper.sizes[name] = workers
	}
}

// WithKeeperContext sets the parent context for every room owned by the
// keeper. Canceling it force-stops all of them.
func WithKeeperContext(parent context.Context) KeeperOption {
	return func(keeper *Keeper) {
		keeper.parent = parent
	}
}

// A Keeper is a registry resolving room names to rooms. A name, once
// created, always resolves to the same room. Keepers are explicitly
// constructed so they can be injected and torn down in tests; the
// package-level functions operate on a shared default keeper.
type Keeper struct {
	mutex          sync.Mutex
	parent         context.Context
	ctx            context.Context
	cancel         context.CancelFunc
	rooms          map[string]*Room
	sizes          map[string]int
	defaultWorkers int
}

// NewKeeper creates a keeper. Rooms configured via WithRoom are created
// immediately; any other room, including "base", is created on first use.
func NewKeeper(options ...KeeperOption) *Keeper {
	keeper := &Keeper{
		rooms:          make(map[string]*Room),
		sizes:          make(map[string]int),
		defaultWorkers: DefaultRoomWorkers,
	}

	for _, option := range options {
		option(keeper)
	}

	if keeper.defaultWorkers < 1 {
		keeper.defaultWorkers = 1
	}
	if keeper.parent == nil {
		keeper.parent = context.Background()
	}
	keeper.ctx, keeper.cancel = context.WithCancel(keeper.parent)

	for name := range keeper.sizes {
		keeper.rooms[name] = keeper.newRoom(name)
	}

	return keeper
}

// Room resolves name to its room, creating the room on first use. An empty
// name resolves to BaseRoom. Concurrent first access creates exactly one
// room per name.
func (k *Keeper) Room(name string) *Room {
	if name == "" {
		name = BaseRoom
	}

	k.mutex.Lock()
	defer k.mutex.Unlock()

	if room, ok := k.rooms[name]; ok {
		return room
	}

	room := k.newRoom(name)
	k.rooms[name] = room
	return room
}

// Rooms returns a snapshot of all rooms, sorted by name.
func (k *Keeper) Rooms() []*Room {
	k.mutex.Lock()
	rooms := make([]*Room, 0, len(k.rooms))
	for _, room := range k.rooms {
		rooms = append(rooms, room)
	}
	k.mutex.Unlock()

	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].Name() < rooms[j].Name()
	})
	return rooms
}

// StopAndWait stops every room, waiting for their queued tasks to complete,
// and then cancels the keeper's context. Rooms requested afterwards are
// created closed and reject submissions with ErrRoomClosed.
func (k *Keeper) StopAndWait() {
	for _, room := range k.Rooms() {
		room.StopAndWait()
	}
	k.cancel()
}

func (k *Keeper) newRoom(name string) *Room {
	workers := k.defaultWorkers
	if n, ok := k.sizes[name]; ok {
		workers = n
	}
	return NewRoom(name, workers, WithContext(k.ctx))
}
