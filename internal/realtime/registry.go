// README: Connection registry: identity -> connections and room -> connections.
package realtime

import (
	"sync"

	"charterhub/internal/types"
)

// Conn is a live client connection as seen by the registry and hub.
type Conn interface {
	ID() string
	UserID() types.ID
	// Send enqueues payload without blocking; false means it was dropped.
	Send(payload []byte) bool
}

// Registry is process-local and owned by the realtime server; it is never persisted.
type Registry struct {
	mu     sync.RWMutex
	byUser map[types.ID]map[string]Conn
	byRoom map[types.ID]map[string]Conn
	rooms  map[string]map[types.ID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[types.ID]map[string]Conn),
		byRoom: make(map[types.ID]map[string]Conn),
		rooms:  make(map[string]map[types.ID]struct{}),
	}
}

// Register maps the connection to its identity. Join calls it implicitly.
func (r *Registry) Register(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registerLocked(c)
}

func (r *Registry) registerLocked(c Conn) {
	set, ok := r.byUser[c.UserID()]
	if !ok {
		set = make(map[string]Conn)
		r.byUser[c.UserID()] = set
	}
	set[c.ID()] = c
}

func (r *Registry) Join(c Conn, room types.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registerLocked(c)

	set, ok := r.byRoom[room]
	if !ok {
		set = make(map[string]Conn)
		r.byRoom[room] = set
	}
	set[c.ID()] = c

	joined, ok := r.rooms[c.ID()]
	if !ok {
		joined = make(map[types.ID]struct{})
		r.rooms[c.ID()] = joined
	}
	joined[room] = struct{}{}
}

func (r *Registry) Leave(c Conn, room types.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(c.ID(), room)
}

func (r *Registry) leaveLocked(connID string, room types.ID) {
	if set, ok := r.byRoom[room]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(r.byRoom, room)
		}
	}
	if joined, ok := r.rooms[connID]; ok {
		delete(joined, room)
		if len(joined) == 0 {
			delete(r.rooms, connID)
		}
	}
}

// Remove purges the connection from every room and identity set, pruning empty sets.
func (r *Registry) Remove(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for room := range r.rooms[c.ID()] {
		r.leaveLocked(c.ID(), room)
	}
	if set, ok := r.byUser[c.UserID()]; ok {
		delete(set, c.ID())
		if len(set) == 0 {
			delete(r.byUser, c.UserID())
		}
	}
}

func (r *Registry) InRoom(c Conn, room types.ID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byRoom[room][c.ID()]
	return ok
}

func (r *Registry) ConnsForUser(userID types.ID) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return snapshot(r.byUser[userID])
}

func (r *Registry) ConnsInRoom(room types.ID) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return snapshot(r.byRoom[room])
}

// Stats reports the number of identities, rooms and connections currently tracked.
func (r *Registry) Stats() (users, rooms, conns int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, set := range r.byUser {
		conns += len(set)
	}
	return len(r.byUser), len(r.byRoom), conns
}

func snapshot(set map[string]Conn) []Conn {
	out := make([]Conn, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}
