package chat

import (
	"errors"
	"net"
	"net/http"
	"time"

	"PPChat/global"
	"PPChat/middleware/security"
	"PPChat/tools/errs"
	"PPChat/tools/ids"
	"PPChat/tools/safe"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// HandleWS upgrades an authenticated request and runs the connection until
// either side goes away. The identity was resolved by the auth middleware.
func (s *Server) HandleWS(c *gin.Context) {
	user, ok := security.IdentityFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, global.Fail(errs.UnauthenticatedError, "Authentication error"))
		return
	}
	if !s.track() {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, global.Fail(errs.TransientError, "Server is shutting down."))
		return
	}
	defer s.wg.Done()

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader already replied with an HTTP error
		s.log.Info("upgrade websocket failed", zap.String("user", user.ID), zap.Error(err))
		return
	}

	conn := NewConn(ids.GenerateString(), user, ws, s.opts.SendQueueSize)
	log := s.log.With(zap.String("conn", conn.ID()), zap.String("user", user.ID))
	log.Info("ws connected", zap.String("username", user.Username), zap.String("remote", c.Request.RemoteAddr))

	writerDone := make(chan struct{})
	safe.SafeGo("ws-writer", func() { s.writeLoop(conn, writerDone) })

	s.presence.Connect(s.ctx, conn)
	if s.isClosing() {
		conn.Close()
	}
	s.readLoop(conn, log)
	s.presence.Disconnect(s.ctx, conn)

	<-writerDone
	log.Info("ws disconnected", zap.Int64("dropped", conn.Dropped()))
}

// readLoop is the only reader of ws. Commands run one at a time in arrival
// order; a missing pong lets the read deadline expire and ends the loop.
func (s *Server) readLoop(conn *Conn, log *zap.Logger) {
	ws := conn.ws
	ws.SetReadLimit(s.opts.MaxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(s.opts.PongWait))
	ws.SetPongHandler(func(string) error {
		s.presence.Touch(s.ctx, conn.UserID())
		return ws.SetReadDeadline(time.Now().Add(s.opts.PongWait))
	})

	sess := newSession(s, conn)
	for {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			var ne net.Error
			switch {
			case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
				log.Debug("peer closed", zap.Error(err))
			case errors.As(err, &ne) && ne.Timeout():
				log.Info("read timeout", zap.Error(err))
			case conn.Closed():
				log.Debug("read after close", zap.Error(err))
			default:
				log.Info("read error", zap.Error(err))
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		sess.Handle(s.ctx, data)
	}
}

// writeLoop is the only writer of ws: it drains the outbound queue and sends
// pings. It owns closing the socket, which also unblocks readLoop.
func (s *Server) writeLoop(conn *Conn, done chan<- struct{}) {
	ws := conn.ws
	ticker := time.NewTicker(s.opts.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
		_ = ws.Close()
		close(done)
	}()

	for {
		select {
		case payload := <-conn.send:
			_ = ws.SetWriteDeadline(time.Now().Add(s.opts.WriteWait))
			if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.log.Debug("ws write failed", zap.String("conn", conn.ID()), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.opts.WriteWait)); err != nil {
				s.log.Debug("ws ping failed", zap.String("conn", conn.ID()), zap.Error(err))
				return
			}
		case <-conn.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.opts.WriteWait))
			return
		}
	}
}
