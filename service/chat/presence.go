package chat

import (
	"context"
	"sync"
	"time"

	"PPChat/global"
	"PPChat/module/chat/contract"
	"PPChat/module/chat/model"

	"go.uber.org/zap"
)

const presenceStripes = 64

// Presence turns registry transitions into persisted status and status
// broadcasts. A striped lock per user serializes register/unregister and the
// broadcast, so broadcasts for a user follow registry order. Persistence runs
// after the lock is released; each transition takes a ticket and only the
// newest ticket of a user is written.
type Presence struct {
	registry  *Registry
	rooms     *Rooms
	fanout    *Fanout
	users     contract.UserStore
	mirror    contract.PresenceMirror  // optional
	publisher contract.StatusPublisher // optional
	nodeID    string
	log       *zap.Logger
	now       func() time.Time

	locks [presenceStripes]sync.Mutex
	// held across store and side channel I/O, never together with locks
	writeLocks [presenceStripes]sync.Mutex

	ticketMu sync.Mutex
	seq      uint64
	latest   map[string]uint64 // user -> newest unwritten ticket
}

type PresenceDeps struct {
	Registry  *Registry
	Rooms     *Rooms
	Fanout    *Fanout
	Users     contract.UserStore
	Mirror    contract.PresenceMirror
	Publisher contract.StatusPublisher
	NodeID    string
	Log       *zap.Logger
}

func NewPresence(d PresenceDeps) *Presence {
	return &Presence{
		registry:  d.Registry,
		rooms:     d.Rooms,
		fanout:    d.Fanout,
		users:     d.Users,
		mirror:    d.Mirror,
		publisher: d.Publisher,
		nodeID:    d.NodeID,
		log:       d.Log,
		now:       time.Now,
		latest:    make(map[string]uint64),
	}
}

func (p *Presence) lockFor(userID string) *sync.Mutex {
	return &p.locks[global.HashPartition(userID, presenceStripes)]
}

func (p *Presence) writeLockFor(userID string) *sync.Mutex {
	return &p.writeLocks[global.HashPartition(userID, presenceStripes)]
}

// Connect registers c and reports whether it is the user's first live
// connection, in which case every other connection is told the user is online.
func (p *Presence) Connect(ctx context.Context, c *Conn) bool {
	ticket, ok := p.connect(c)
	if !ok {
		return false
	}
	p.persist(ctx, c.UserID(), model.StatusOnline, ticket)
	return true
}

func (p *Presence) connect(c *Conn) (uint64, bool) {
	mu := p.lockFor(c.UserID())
	mu.Lock()
	defer mu.Unlock()

	first, added := p.registry.Register(c)
	if !added || !first {
		return 0, false
	}
	p.fanout.Dispatch(Broadcast{Excluding: c}, Event{
		Name: EventStatus,
		Data: StatusPayload{UserID: c.UserID(), Status: model.StatusOnline},
	})
	return p.issue(c.UserID()), true
}

// Disconnect tears c down: close, unregister, drop every room subscription.
// It reports whether this was the user's last connection, in which case
// everyone is told the user is offline. Safe to call more than once.
func (p *Presence) Disconnect(ctx context.Context, c *Conn) bool {
	c.Close()

	ticket, ok := p.disconnect(c)
	if !ok {
		return false
	}
	p.persist(ctx, c.UserID(), model.StatusOffline, ticket)
	return true
}

func (p *Presence) disconnect(c *Conn) (uint64, bool) {
	mu := p.lockFor(c.UserID())
	mu.Lock()
	defer mu.Unlock()

	last, removed := p.registry.Unregister(c)
	left := p.rooms.DropAll(c)
	if !removed {
		return 0, false
	}
	p.log.Debug("conn removed",
		zap.String("conn", c.ID()),
		zap.String("user", c.UserID()),
		zap.Strings("rooms", left),
		zap.Bool("last", last))
	if !last {
		return 0, false
	}
	p.fanout.Dispatch(Broadcast{}, Event{
		Name: EventStatus,
		Data: StatusPayload{UserID: c.UserID(), Status: model.StatusOffline},
	})
	return p.issue(c.UserID()), true
}

// issue hands out the ticket of a new transition of userID.
func (p *Presence) issue(userID string) uint64 {
	p.ticketMu.Lock()
	defer p.ticketMu.Unlock()
	p.seq++
	p.latest[userID] = p.seq
	return p.seq
}

func (p *Presence) isLatest(userID string, ticket uint64) bool {
	p.ticketMu.Lock()
	defer p.ticketMu.Unlock()
	return p.latest[userID] == ticket
}

func (p *Presence) settle(userID string, ticket uint64) {
	p.ticketMu.Lock()
	defer p.ticketMu.Unlock()
	if p.latest[userID] == ticket {
		delete(p.latest, userID)
	}
}

// Touch renews the shared presence entry; called on every pong.
func (p *Presence) Touch(ctx context.Context, userID string) {
	if p.mirror == nil {
		return
	}
	if err := p.mirror.Touch(ctx, userID); err != nil {
		p.log.Debug("presence touch failed", zap.String("user", userID), zap.Error(err))
	}
}

// persist writes the durable status and the optional side channels. A ticket
// overtaken by a newer transition is skipped; the newer one writes instead.
// Failures are logged only.
func (p *Presence) persist(ctx context.Context, userID, status string, ticket uint64) {
	mu := p.writeLockFor(userID)
	mu.Lock()
	defer mu.Unlock()
	if !p.isLatest(userID, ticket) {
		p.log.Debug("stale status skipped", zap.String("user", userID), zap.String("status", status))
		return
	}
	defer p.settle(userID, ticket)

	at := p.now()
	if status == model.StatusOffline {
		if seen, ok := p.registry.LastSeen(userID); ok {
			at = seen
		}
	}
	if err := p.users.SetStatus(ctx, userID, status, at); err != nil {
		p.log.Warn("persist status failed", zap.String("user", userID), zap.String("status", status), zap.Error(err))
	}
	if p.mirror != nil {
		var err error
		if status == model.StatusOnline {
			err = p.mirror.SetOnline(ctx, userID, p.nodeID)
		} else {
			err = p.mirror.SetOffline(ctx, userID)
		}
		if err != nil {
			p.log.Warn("presence mirror failed", zap.String("user", userID), zap.Error(err))
		}
	}
	if p.publisher != nil {
		if err := p.publisher.PublishStatus(ctx, userID, status, at); err != nil {
			p.log.Warn("publish status failed", zap.String("user", userID), zap.Error(err))
		}
	}
}
