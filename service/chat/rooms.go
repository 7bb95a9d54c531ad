package chat

import (
	"iter"
	"slices"
	"sort"
	"sync"

	"PPChat/tools/errs"

	"github.com/samber/lo"
)

// ErrConnClosed is returned when a closing connection tries to subscribe.
var ErrConnClosed = errs.NewCodeError(errs.BadRequestError, "connection closed")

// Rooms tracks live room subscriptions. Subscriptions belong to a connection,
// not to a user, and are unrelated to the persisted room member list.
type Rooms struct {
	mu     sync.RWMutex
	subs   map[string]map[string]*Conn    // room -> conn_id -> conn
	byConn map[string]map[string]struct{} // conn_id -> rooms
}

func NewRooms() *Rooms {
	return &Rooms{
		subs:   make(map[string]map[string]*Conn),
		byConn: make(map[string]map[string]struct{}),
	}
}

// Join subscribes c to roomID; the caller has already authorized the join.
// It reports whether the subscription is new.
func (r *Rooms) Join(c *Conn, roomID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Checked under the lock: teardown closes c before DropAll takes the lock,
	// so a join can never survive DropAll.
	if c.Closed() {
		return false, ErrConnClosed.WrapMsg("join", "conn", c.ID(), "room", roomID)
	}
	m := r.subs[roomID]
	if m == nil {
		m = make(map[string]*Conn)
		r.subs[roomID] = m
	}
	if _, ok := m[c.ID()]; ok {
		return false, nil
	}
	m[c.ID()] = c

	rs := r.byConn[c.ID()]
	if rs == nil {
		rs = make(map[string]struct{})
		r.byConn[c.ID()] = rs
	}
	rs[roomID] = struct{}{}
	return true, nil
}

// Leave reports whether c was subscribed.
func (r *Rooms) Leave(c *Conn, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(c.ID(), roomID)
}

func (r *Rooms) leaveLocked(connID, roomID string) bool {
	m := r.subs[roomID]
	if _, ok := m[connID]; !ok {
		return false
	}
	delete(m, connID)
	if len(m) == 0 {
		delete(r.subs, roomID)
	}
	if rs := r.byConn[connID]; rs != nil {
		delete(rs, roomID)
		if len(rs) == 0 {
			delete(r.byConn, connID)
		}
	}
	return true
}

// DropAll removes c from every room and returns the rooms it left, sorted.
func (r *Rooms) DropAll(c *Conn) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	left := lo.Keys(r.byConn[c.ID()])
	for _, roomID := range left {
		r.leaveLocked(c.ID(), roomID)
	}
	sort.Strings(left)
	return left
}

// SubscribersOf yields a point-in-time snapshot of the room's connections.
func (r *Rooms) SubscribersOf(roomID string) iter.Seq[*Conn] {
	r.mu.RLock()
	snap := lo.Values(r.subs[roomID])
	r.mu.RUnlock()
	return slices.Values(snap)
}

func (r *Rooms) RoomsOf(c *Conn) []string {
	r.mu.RLock()
	out := lo.Keys(r.byConn[c.ID()])
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

func (r *Rooms) IsSubscribed(c *Conn, roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.subs[roomID][c.ID()]
	return ok
}

func (r *Rooms) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}
