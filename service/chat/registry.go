package chat

import (
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Registry is the authoritative user -> live connections index.
// A user entry exists iff the user has at least one registered connection.
type Registry struct {
	mu       sync.RWMutex
	byUser   map[string]map[string]*Conn // user -> conn_id -> conn
	byConn   map[string]*Conn            // conn_id -> conn
	lastSeen map[string]time.Time        // user -> time the last connection went away
	now      func() time.Time
}

type RegistryStats struct {
	Users       int `json:"users"`
	Connections int `json:"connections"`
}

func NewRegistry() *Registry {
	return &Registry{
		byUser:   make(map[string]map[string]*Conn),
		byConn:   make(map[string]*Conn),
		lastSeen: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Register adds c under its user. first reports that the user had no live
// connection before; added is false when c was already registered.
func (r *Registry) Register(c *Conn) (first, added bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byConn[c.ID()]; ok {
		return false, false
	}
	m := r.byUser[c.UserID()]
	if m == nil {
		m = make(map[string]*Conn)
		r.byUser[c.UserID()] = m
		first = true
	}
	m[c.ID()] = c
	r.byConn[c.ID()] = c
	return first, true
}

// Unregister removes c. last reports that the user entry became empty and was
// deleted; removed is false when c was not registered.
func (r *Registry) Unregister(c *Conn) (last, removed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byConn[c.ID()]; !ok {
		return false, false
	}
	delete(r.byConn, c.ID())
	if m := r.byUser[c.UserID()]; m != nil {
		delete(m, c.ID())
		if len(m) == 0 {
			delete(r.byUser, c.UserID())
			r.lastSeen[c.UserID()] = r.now()
			last = true
		}
	}
	return last, true
}

// ConnectionsFor yields a point-in-time snapshot of the user's connections.
// The sequence is never nil; an offline user yields nothing.
func (r *Registry) ConnectionsFor(userID string) iter.Seq[*Conn] {
	r.mu.RLock()
	snap := lo.Values(r.byUser[userID])
	r.mu.RUnlock()
	return slices.Values(snap)
}

// All yields a snapshot of every live connection.
func (r *Registry) All() iter.Seq[*Conn] {
	r.mu.RLock()
	snap := lo.Values(r.byConn)
	r.mu.RUnlock()
	return slices.Values(snap)
}

func (r *Registry) Online(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// LastSeen returns when the user's last connection went away on this node.
func (r *Registry) LastSeen(userID string) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.lastSeen[userID]
	return t, ok
}

func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return RegistryStats{Users: len(r.byUser), Connections: len(r.byConn)}
}
