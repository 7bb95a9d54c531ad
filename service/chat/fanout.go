package chat

import (
	"iter"

	"go.uber.org/zap"
)

// Target selects the live connections an event goes to.
type Target interface {
	conns(f *Fanout) iter.Seq[*Conn]
	String() string
}

// ToUser: every live connection of one user.
type ToUser struct{ UserID string }

// ToRoom: every subscriber of a room, optionally minus one connection.
type ToRoom struct {
	RoomID    string
	Excluding *Conn
}

// Broadcast: every live connection, optionally minus one.
type Broadcast struct{ Excluding *Conn }

// ToConn: only the originating connection (replies and errors).
type ToConn struct{ Conn *Conn }

func (t ToUser) conns(f *Fanout) iter.Seq[*Conn] { return f.registry.ConnectionsFor(t.UserID) }
func (t ToRoom) conns(f *Fanout) iter.Seq[*Conn] {
	return excluding(f.rooms.SubscribersOf(t.RoomID), t.Excluding)
}
func (t Broadcast) conns(f *Fanout) iter.Seq[*Conn] { return excluding(f.registry.All(), t.Excluding) }
func (t ToConn) conns(*Fanout) iter.Seq[*Conn] {
	return func(yield func(*Conn) bool) {
		if t.Conn != nil {
			yield(t.Conn)
		}
	}
}

func (t ToUser) String() string    { return "user:" + t.UserID }
func (t ToRoom) String() string    { return "room:" + t.RoomID }
func (t Broadcast) String() string { return "broadcast" }
func (t ToConn) String() string {
	if t.Conn == nil {
		return "conn:<nil>"
	}
	return "conn:" + t.Conn.ID()
}

func excluding(seq iter.Seq[*Conn], skip *Conn) iter.Seq[*Conn] {
	if skip == nil {
		return seq
	}
	return func(yield func(*Conn) bool) {
		for c := range seq {
			if c.ID() == skip.ID() {
				continue
			}
			if !yield(c) {
				return
			}
		}
	}
}

// Delivery summarises one Dispatch call.
type Delivery struct {
	Targets   int
	Delivered int
	Dropped   int
}

// Fanout resolves targets against the registry and room table and enqueues
// the encoded event on each connection. Enqueue happens in the caller's
// goroutine so events from one caller keep their order on every connection.
type Fanout struct {
	registry *Registry
	rooms    *Rooms
	log      *zap.Logger
}

func NewFanout(registry *Registry, rooms *Rooms, log *zap.Logger) *Fanout {
	return &Fanout{registry: registry, rooms: rooms, log: log}
}

// Dispatch encodes ev once and enqueues it without blocking. A full or closed
// queue is logged and counted; it never stops delivery to the other targets.
func (f *Fanout) Dispatch(t Target, ev Event) Delivery {
	var d Delivery
	payload, err := ev.Encode()
	if err != nil {
		f.log.Error("encode event", zap.String("event", ev.Name), zap.Error(err))
		return d
	}
	for c := range t.conns(f) {
		d.Targets++
		if c.enqueue(payload) {
			d.Delivered++
			continue
		}
		d.Dropped++
		f.log.Warn("drop event",
			zap.String("event", ev.Name),
			zap.String("target", t.String()),
			zap.String("conn", c.ID()),
			zap.String("user", c.UserID()),
			zap.Bool("closed", c.Closed()))
	}
	if d.Targets > 0 {
		f.log.Debug("dispatch",
			zap.String("event", ev.Name),
			zap.String("target", t.String()),
			zap.Int("delivered", d.Delivered),
			zap.Int("dropped", d.Dropped))
	}
	return d
}
