package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/zeusync/arcade/internal/core/config"
	"github.com/zeusync/arcade/internal/core/observability/log"
)

// ClientID identifies a spectator connection.
type ClientID string

// Server streams world snapshots to read-only spectators over websocket.
type Server struct {
	// Client management
	clients     sync.Map // map[ClientID]*ClientSession
	clientCount int64    // atomic

	// Latest frame, sent to spectators as soon as they join
	latest atomic.Pointer[[]byte]

	// Server state
	running int32 // atomic bool
	closed  int32 // atomic bool

	httpServer *http.Server
	addr       atomic.Pointer[string]

	// Configuration and logging
	config Config
	logger log.Log

	// Background workers
	workerGroup sync.WaitGroup
	stopChan    chan struct{}

	dropped atomic.Uint64
}

// Config holds server configuration
type Config struct {
	ListenAddr string
	Path       string
	MaxClients int

	// SendBuffer is the number of frames queued per client before frames are dropped.
	SendBuffer   int
	WriteTimeout time.Duration
	PingInterval time.Duration
	// ClientTimeout closes clients that stopped answering pings.
	ClientTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() Config {
	return Config{
		ListenAddr:    "127.0.0.1:8080",
		Path:          "/ws",
		MaxClients:    64,
		SendBuffer:    8,
		WriteTimeout:  2 * time.Second,
		PingInterval:  15 * time.Second,
		ClientTimeout: 45 * time.Second,
	}
}

// ConfigFrom applies the spectator section on top of the defaults.
func ConfigFrom(cfg config.SpectatorConfig) Config {
	c := DefaultServerConfig()
	if cfg.ListenAddr != "" {
		c.ListenAddr = cfg.ListenAddr
	}
	if cfg.Path != "" {
		c.Path = cfg.Path
	}
	if cfg.MaxClients > 0 {
		c.MaxClients = cfg.MaxClients
	}
	return c
}

// Stats contains server statistics
type Stats struct {
	ClientCount   int64
	DroppedFrames uint64
	Running       bool
}

func NewServer(config Config, logger log.Log) *Server {
	if logger == nil {
		logger = log.NewNop()
	}
	if config.SendBuffer <= 0 {
		config.SendBuffer = 1
	}
	if config.PingInterval <= 0 {
		config.PingInterval = DefaultServerConfig().PingInterval
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultServerConfig().WriteTimeout
	}
	if config.Path == "" {
		config.Path = "/ws"
	}

	server := &Server{
		config: config,
		logger: logger.With(log.String("component", "spectator_server")),
	}

	server.logger.Info("Server created",
		log.String("listen_addr", config.ListenAddr),
		log.String("path", config.Path),
		log.Int("max_clients", config.MaxClients))

	return server
}

// Handler serves the websocket endpoint at the configured path.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.config.Path, s.handleWebSocket)
	return mux
}

// Start listens on ListenAddr and serves in the background.
func (s *Server) Start(_ context.Context) error {
	if atomic.LoadInt32(&s.closed) == 1 {
		return ErrServerClosed
	}

	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return ErrServerAlreadyRunning
	}

	listener, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		atomic.StoreInt32(&s.running, 0)
		s.logger.Error("Failed to create listener", log.Error(err))
		return fmt.Errorf("%w: %v", ErrListenerFailed, err)
	}
	bound := listener.Addr().String()
	s.addr.Store(&bound)
	s.stopChan = make(chan struct{})
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.Info("Server listening", log.String("addr", bound))

	s.startWorkers()

	s.workerGroup.Add(1)
	go func() {
		defer s.workerGroup.Done()
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Serve failed", log.Error(err))
		}
	}()

	return nil
}

// Addr returns the address of the latest Start, or "" before it.
func (s *Server) Addr() string {
	if addr := s.addr.Load(); addr != nil {
		return *addr
	}
	return ""
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.running, 1, 0) {
		return ErrServerNotRunning
	}

	s.logger.Info("Stopping server")

	close(s.stopChan)

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	// Hijacked websocket connections are not tracked by http.Server
	s.clients.Range(func(_, value any) bool {
		value.(*ClientSession).close()
		return true
	})

	s.workerGroup.Wait()

	s.logger.Info("Server stopped")
	return err
}

// Close closes the server and releases all resources
func (s *Server) Close() error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return nil
	}

	if atomic.LoadInt32(&s.running) == 1 {
		_ = s.Stop(context.Background())
	}
	s.clients.Range(func(_, value any) bool {
		value.(*ClientSession).close()
		return true
	})

	s.logger.Info("Server closed")
	return nil
}

// Broadcast queues frame for every connected client. Clients whose queue is
// full skip the frame.
func (s *Server) Broadcast(frame []byte) {
	s.latest.Store(&frame)
	s.clients.Range(func(_, value any) bool {
		session := value.(*ClientSession)
		if !session.enqueue(frame) {
			s.dropped.Add(1)
		}
		return true
	})
}

// GetStats returns server statistics
func (s *Server) GetStats() Stats {
	return Stats{
		ClientCount:   atomic.LoadInt64(&s.clientCount),
		DroppedFrames: s.dropped.Load(),
		Running:       atomic.LoadInt32(&s.running) == 1,
	}
}

func (s *Server) register(session *ClientSession) bool {
	if s.config.MaxClients > 0 && int(atomic.AddInt64(&s.clientCount, 1)) > s.config.MaxClients {
		atomic.AddInt64(&s.clientCount, -1)
		return false
	}
	if s.config.MaxClients <= 0 {
		atomic.AddInt64(&s.clientCount, 1)
	}
	s.clients.Store(session.ID, session)
	return true
}

func (s *Server) unregister(session *ClientSession) {
	if _, loaded := s.clients.LoadAndDelete(session.ID); loaded {
		atomic.AddInt64(&s.clientCount, -1)
	}
}

func newClientID() ClientID {
	return ClientID("spectator-" + uuid.NewString())
}

// startWorkers starts background worker goroutines
func (s *Server) startWorkers() {
	s.workerGroup.Add(1)

	go func() {
		defer s.workerGroup.Done()
		s.healthMonitor()
	}()
}

// healthMonitor pings clients and drops the ones that stopped answering.
func (s *Server) healthMonitor() {
	s.logger.Debug("Health monitor started")

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.performHealthChecks()
		case <-s.stopChan:
			s.logger.Debug("Health monitor stopped")
			return
		}
	}
}

func (s *Server) performHealthChecks() {
	now := time.Now().Unix()
	timeout := int64(s.config.ClientTimeout.Seconds())

	var stale int
	s.clients.Range(func(_, value any) bool {
		session := value.(*ClientSession)
		if timeout > 0 && now-atomic.LoadInt64(&session.LastSeen) > timeout {
			stale++
			s.logger.Info("Disconnecting inactive client", log.String("client_id", string(session.ID)))
			session.close()
			return true
		}
		session.ping(s.config.WriteTimeout)
		return true
	})

	if stale > 0 {
		s.logger.Info("Health check completed",
			log.Int("disconnected_clients", stale),
			log.Int64("active_clients", atomic.LoadInt64(&s.clientCount)))
	}
}
