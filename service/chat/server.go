package chat

import (
	"context"
	"net/http"
	"sync"

	"PPChat/global"
	"PPChat/middleware"
	"PPChat/middleware/security"
	"PPChat/module/chat/contract"
	"PPChat/tools/safe"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Deps are the collaborators of the gateway. Mirror and Publisher are
// optional and must be left nil (not typed nil) when unused.
type Deps struct {
	Resolver      contract.IdentityResolver
	Rooms         contract.RoomStore
	Messages      contract.MessageStore
	Notifications contract.NotificationStore
	Users         contract.UserStore
	Mirror        contract.PresenceMirror
	Publisher     contract.StatusPublisher
	Log           *zap.Logger
}

// Server wires the connection registry, room table, fanout and the command
// handlers behind one websocket endpoint.
type Server struct {
	opts     Options
	log      *zap.Logger
	resolver contract.IdentityResolver
	upgrader websocket.Upgrader

	registry      *Registry
	rooms         *Rooms
	fanout        *Fanout
	presence      *Presence
	receipts      *Receipts
	notifications *Notifications
	messages      *Messages
	roomStore     contract.RoomStore

	// base context of every connection; cancelled by Shutdown
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	closing bool
}

func NewServer(opts Options, d Deps) *Server {
	safe.MustNotNil(d.Resolver, "resolver")
	safe.MustNotNil(d.Rooms, "room store")
	safe.MustNotNil(d.Messages, "message store")
	safe.MustNotNil(d.Notifications, "notification store")
	safe.MustNotNil(d.Users, "user store")

	opts.setDefaults()
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	registry := NewRegistry()
	rooms := NewRooms()
	fanout := NewFanout(registry, rooms, log.Named("fanout"))
	notifications := NewNotifications(d.Notifications, registry, fanout, log.Named("notification"))

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		opts:     opts,
		log:      log,
		resolver: d.Resolver,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     middleware.OriginAllowed(opts.AllowedOrigins),
		},
		registry: registry,
		rooms:    rooms,
		fanout:   fanout,
		presence: NewPresence(PresenceDeps{
			Registry:  registry,
			Rooms:     rooms,
			Fanout:    fanout,
			Users:     d.Users,
			Mirror:    d.Mirror,
			Publisher: d.Publisher,
			NodeID:    opts.NodeID,
			Log:       log.Named("presence"),
		}),
		receipts:      NewReceipts(d.Messages, fanout, log.Named("receipt")),
		notifications: notifications,
		messages: NewMessages(MessagesDeps{
			RoomStore:     d.Rooms,
			MessageStore:  d.Messages,
			UserStore:     d.Users,
			Notifications: notifications,
			Subscriptions: rooms,
			Fanout:        fanout,
			Log:           log.Named("message"),
		}),
		roomStore: d.Rooms,
		ctx:       ctx,
		cancel:    cancel,
	}
	return s
}

// RegisterRoutes mounts /ws (authenticated before the upgrade) and /healthz.
func (s *Server) RegisterRoutes(r gin.IRoutes) {
	auth := security.Middleware(security.DefaultOptions(), s.resolver)
	middleware.GET(r, "/ws", s.HandleWS, middleware.RouteOpt{IsAuth: true, Auth: auth})
	middleware.GET(r, "/healthz", s.HandleHealth, middleware.RouteOpt{})
}

func (s *Server) HandleHealth(c *gin.Context) {
	st := s.registry.Stats()
	c.JSON(http.StatusOK, global.Sucess(gin.H{
		"node":        s.opts.NodeID,
		"connections": st.Connections,
		"users":       st.Users,
		"rooms":       s.rooms.Count(),
	}))
}

// Notifications is used by external producers (Kafka) to push unread counts.
func (s *Server) Notifications() *Notifications { return s.notifications }

func (s *Server) Registry() *Registry { return s.registry }

// track admits one more connection unless Shutdown has started.
func (s *Server) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.wg.Add(1)
	return true
}

func (s *Server) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// Shutdown refuses new connections, closes every live one and waits for
// their teardown. A connection registering after the snapshot closes itself.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	for c := range s.registry.All() {
		c.Close()
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	defer s.cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
