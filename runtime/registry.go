// Package runtime owns the in-memory session state: which users hold
// live connections, which groups they belong to, and how broadcasts are
// addressed. It orchestrates without containing ledger business rules.
package runtime

import (
	"sync"
	"time"

	"tab-live/contract"

	"github.com/google/uuid"
)

type Set map[uuid.UUID]struct{}

func (s Set) Contains(id uuid.UUID) bool {
	_, ok := s[id]
	return ok
}

// Connection is the registry's record of one live session. The registry
// owns the record for the lifetime of the connection; Handle is borrowed
// from the transport layer.
type Connection struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Handle   contract.Conn
	LastPong time.Time
}

// Registry maintains four co-maintained indices under one lock:
//
//  1. connection id -> Connection
//  2. user id       -> set of connection ids (one user, many devices)
//  3. user id       -> set of group ids (topology cache)
//  4. group id      -> set of connection ids (derived from 2 and 3)
//
// Every mutation updates all four as one atomic unit; no caller can
// observe a connection present in one index and absent from another.
// No I/O happens while the lock is held.
type Registry struct {
	mu         sync.RWMutex
	conns      map[uuid.UUID]*Connection
	userConns  map[uuid.UUID]Set
	userGroups map[uuid.UUID]Set
	groupConns map[uuid.UUID]Set

	// evictTopology drops a user's cached topology when their last
	// connection closes. Off by default: the cache stays warm for
	// reconnection and is only mutated by membership events.
	evictTopology bool
	now           func() time.Time
}

type Option func(*Registry)

// WithTopologyEviction purges a user's topology cache when their last
// connection closes, trading reconnect latency for bounded memory.
func WithTopologyEviction() Option {
	return func(r *Registry) { r.evictTopology = true }
}

// WithClock overrides the pong timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		conns:      make(map[uuid.UUID]*Connection),
		userConns:  make(map[uuid.UUID]Set),
		userGroups: make(map[uuid.UUID]Set),
		groupConns: make(map[uuid.UUID]Set),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Admit registers a freshly authenticated connection. The groups slice
// is only consulted when the user has no cached topology yet; it is
// merged into the cache and the connection is indexed under every group
// of the resulting topology.
func (r *Registry) Admit(connID, userID uuid.UUID, handle contract.Conn, groups []uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[connID] = &Connection{
		ID:       connID,
		UserID:   userID,
		Handle:   handle,
		LastPong: r.now(),
	}

	if _, ok := r.userConns[userID]; !ok {
		r.userConns[userID] = make(Set)
	}
	r.userConns[userID][connID] = struct{}{}

	if _, ok := r.userGroups[userID]; !ok {
		cached := make(Set)
		for _, groupID := range groups {
			cached[groupID] = struct{}{}
		}
		r.userGroups[userID] = cached
	}

	for groupID := range r.userGroups[userID] {
		r.addGroupConn(groupID, connID)
	}
}

// HasTopology reports whether the user's group set is already cached,
// letting the caller resolve the authoritative set without holding the lock.
func (r *Registry) HasTopology(userID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.userGroups[userID]
	return ok
}

// Remove evicts a connection from every index. Removing an unknown id is
// a no-op, so close paths may race without double-decrementing anything.
func (r *Registry) Remove(connID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return
	}
	delete(r.conns, connID)

	for groupID := range r.userGroups[conn.UserID] {
		r.removeGroupConn(groupID, connID)
	}

	if conns, ok := r.userConns[conn.UserID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(r.userConns, conn.UserID)
			if r.evictTopology {
				delete(r.userGroups, conn.UserID)
			}
		}
	}
}

// TouchPong records a liveness proof for the connection.
func (r *Registry) TouchPong(connID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conn, ok := r.conns[connID]; ok {
		conn.LastPong = r.now()
	}
}

// ConnectionsForGroup snapshots the transport handles of every
// connection currently indexed under the group. Sends happen against
// the snapshot, outside the lock.
func (r *Registry) ConnectionsForGroup(groupID uuid.UUID) []contract.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var handles []contract.Conn
	for connID := range r.groupConns[groupID] {
		if conn, ok := r.conns[connID]; ok {
			handles = append(handles, conn.Handle)
		}
	}
	return handles
}

// ConnectionsForUser snapshots the transport handles of every live
// connection held by one user.
func (r *Registry) ConnectionsForUser(userID uuid.UUID) []contract.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var handles []contract.Conn
	for connID := range r.userConns[userID] {
		if conn, ok := r.conns[connID]; ok {
			handles = append(handles, conn.Handle)
		}
	}
	return handles
}

// GroupsForUser returns a copy of the user's cached topology. The second
// result is false when the user has never been resolved.
func (r *Registry) GroupsForUser(userID uuid.UUID) (Set, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cached, ok := r.userGroups[userID]
	if !ok {
		return nil, false
	}
	groups := make(Set, len(cached))
	for groupID := range cached {
		groups[groupID] = struct{}{}
	}
	return groups, true
}

// MergeTopology adds the group to every named user's cached topology and
// indexes each user's already-live connections under the group.
func (r *Registry) MergeTopology(groupID uuid.UUID, userIDs []uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, userID := range userIDs {
		if _, ok := r.userGroups[userID]; !ok {
			r.userGroups[userID] = make(Set)
		}
		r.userGroups[userID][groupID] = struct{}{}

		for connID := range r.userConns[userID] {
			r.addGroupConn(groupID, connID)
		}
	}
}

// ApplyMembershipDelta mutates the topology after a committed membership
// change. joined=false detaches every connection of the named users from
// the group and drops the group from their cached topology.
func (r *Registry) ApplyMembershipDelta(groupID uuid.UUID, userIDs []uuid.UUID, joined bool) {
	if joined {
		r.MergeTopology(groupID, userIDs)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, userID := range userIDs {
		if groups, ok := r.userGroups[userID]; ok {
			delete(groups, groupID)
			if len(groups) == 0 {
				delete(r.userGroups, userID)
			}
		}
		for connID := range r.userConns[userID] {
			r.removeGroupConn(groupID, connID)
		}
	}
}

// DropGroup removes a deleted group from the group index and from every
// user's cached topology.
func (r *Registry) DropGroup(groupID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.groupConns, groupID)
	for userID, groups := range r.userGroups {
		delete(groups, groupID)
		if len(groups) == 0 {
			delete(r.userGroups, userID)
		}
	}
}

// Snapshot returns a point-in-time copy of every open connection for the
// liveness scan. The scan must not mutate the registry through it;
// removal happens in each connection's own close path.
func (r *Registry) Snapshot() []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		sessions = append(sessions, *conn)
	}
	return sessions
}

// Len reports the number of open connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// addGroupConn and removeGroupConn keep index 4 consistent with 2 and 3.
// Callers must hold the write lock.
func (r *Registry) addGroupConn(groupID, connID uuid.UUID) {
	if _, ok := r.groupConns[groupID]; !ok {
		r.groupConns[groupID] = make(Set)
	}
	r.groupConns[groupID][connID] = struct{}{}
}

func (r *Registry) removeGroupConn(groupID, connID uuid.UUID) {
	if conns, ok := r.groupConns[groupID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(r.groupConns, groupID)
		}
	}
}
