package server

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zeusync/arcade/internal/core/observability/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// spectators are read-only; any origin may watch
	CheckOrigin: func(*http.Request) bool { return true },
}

// ClientSession is a connected spectator.
type ClientSession struct {
	ID          ClientID
	RemoteAddr  string
	ConnectedAt time.Time
	LastSeen    int64 // atomic, unix seconds

	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	writeMu   sync.Mutex
}

func newClientSession(conn *websocket.Conn, buffer int) *ClientSession {
	now := time.Now()
	return &ClientSession{
		ID:          newClientID(),
		RemoteAddr:  conn.RemoteAddr().String(),
		ConnectedAt: now,
		LastSeen:    now.Unix(),
		conn:        conn,
		send:        make(chan []byte, buffer),
		done:        make(chan struct{}),
	}
}

// enqueue reports false when the frame was dropped.
func (c *ClientSession) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *ClientSession) ping(timeout time.Duration) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(timeout))
}

func (c *ClientSession) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		_ = c.conn.Close()
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.config.MaxClients > 0 && int(atomic.LoadInt64(&s.clientCount)) >= s.config.MaxClients {
		s.logger.Warn("Maximum clients reached, rejecting connection",
			log.String("remote_addr", r.RemoteAddr))
		http.Error(w, ErrMaxClientsReached.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", log.Error(err))
		return
	}

	session := newClientSession(conn, s.config.SendBuffer)
	if !s.register(session) {
		s.logger.Warn("Maximum clients reached, rejecting connection",
			log.String("remote_addr", session.RemoteAddr))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, ErrMaxClientsReached.Error()),
			time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}

	s.logger.Info("Client connected",
		log.String("client_id", string(session.ID)),
		log.String("remote_addr", session.RemoteAddr),
		log.Int64("total_clients", atomic.LoadInt64(&s.clientCount)))

	if latest := s.latest.Load(); latest != nil {
		session.enqueue(*latest)
	}

	go s.writePump(session)
	s.readPump(session)
}

// readPump discards client messages and tracks liveness until the
// connection fails.
func (s *Server) readPump(session *ClientSession) {
	defer func() {
		s.unregister(session)
		session.close()
		s.logger.Info("Client disconnected",
			log.String("client_id", string(session.ID)),
			log.Int64("total_clients", atomic.LoadInt64(&s.clientCount)))
	}()

	session.conn.SetReadLimit(512)
	session.conn.SetPongHandler(func(string) error {
		atomic.StoreInt64(&session.LastSeen, time.Now().Unix())
		return nil
	})

	for {
		if _, _, err := session.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("Client read failed",
					log.String("client_id", string(session.ID)),
					log.Error(err))
			}
			return
		}
		atomic.StoreInt64(&session.LastSeen, time.Now().Unix())
	}
}

func (s *Server) writePump(session *ClientSession) {
	for {
		select {
		case frame := <-session.send:
			session.writeMu.Lock()
			_ = session.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			err := session.conn.WriteMessage(websocket.TextMessage, frame)
			session.writeMu.Unlock()
			if err != nil {
				s.logger.Debug("Client write failed",
					log.String("client_id", string(session.ID)),
					log.Error(err))
				session.close()
				return
			}
		case <-session.done:
			return
		}
	}
}
