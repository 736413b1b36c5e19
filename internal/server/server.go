package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/echoserver/internal/logging"
	"github.com/muurk/echoserver/internal/middleware"
	"github.com/muurk/echoserver/internal/shutdown"
)

const (
	// DefaultHost keeps the server on loopback unless told otherwise.
	DefaultHost = "127.0.0.1"

	// DefaultMaxMessageSize bounds one WebSocket message held in memory.
	DefaultMaxMessageSize = 16 << 20

	// DefaultCloseGracePeriod bounds the close handshake of a session.
	DefaultCloseGracePeriod = time.Second

	// DefaultShutdownTimeout bounds the whole drain after the shutdown signal.
	DefaultShutdownTimeout = 10 * time.Second
)

// ErrAlreadyStarted is returned when a setting that must be fixed before
// the server accepts connections is changed afterwards, or when Run is
// called twice.
var ErrAlreadyStarted = errors.New("server already started")

// Config holds the server configuration
type Config struct {
	Host string // empty = DefaultHost
	Port int    // 0 = auto-assigned

	HTTPLogLevel logging.HTTPLevel
	WSLogging    bool
	LogBackend   middleware.Backend

	PingInterval     time.Duration // 0 disables keepalive pings
	MaxMessageSize   int64         // 0 = DefaultMaxMessageSize
	CloseGracePeriod time.Duration // 0 = DefaultCloseGracePeriod
	ShutdownTimeout  time.Duration // 0 = DefaultShutdownTimeout

	CertPath string // TLS is enabled when both CertPath and KeyPath are set
	KeyPath  string

	Logger *zap.Logger // nil = global logger
}

// Server accepts connections on one port and serves HTTP echo and
// WebSocket echo sessions on it.
type Server struct {
	config     Config
	listener   net.Listener
	httpServer *http.Server
	upgrader   websocket.Upgrader
	log        *zap.Logger
	tls        bool

	nextID   atomic.Uint64
	sessions sync.WaitGroup

	mu           sync.Mutex
	started      bool
	pingInterval time.Duration
	signal       *shutdown.Signal
	activeConns  map[net.Conn]logging.Conn
}

// New creates a Server and binds its listener. A bind failure is returned
// here; the server never starts.
func New(config *Config) (*Server, error) {
	cfg := *config
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = DefaultMaxMessageSize
	}
	if cfg.CloseGracePeriod <= 0 {
		cfg.CloseGracePeriod = DefaultCloseGracePeriod
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.PingInterval < 0 {
		return nil, fmt.Errorf("invalid ping interval %s", cfg.PingInterval)
	}

	log := cfg.Logger
	if log == nil {
		log = logging.GetLogger()
	}

	mw, err := middleware.New(cfg.LogBackend, cfg.HTTPLogLevel, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logging middleware: %w", err)
	}

	var tlsConfig *tls.Config
	if cfg.CertPath != "" || cfg.KeyPath != "" {
		tlsConfig, err = NewTLSConfig(cfg.CertPath, cfg.KeyPath, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if tlsConfig != nil {
		listener = tls.NewListener(listener, tlsConfig)
	}

	s := &Server{
		config:       cfg,
		listener:     listener,
		log:          log,
		tls:          tlsConfig != nil,
		pingInterval: cfg.PingInterval,
		activeConns:  make(map[net.Conn]logging.Conn),
	}
	s.upgrader = newUpgrader()

	errorLog, err := zap.NewStdLogAt(log.Named("http"), zap.WarnLevel)
	if err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("failed to create HTTP error log: %w", err)
	}
	s.httpServer = &http.Server{
		Handler:     mw(http.HandlerFunc(s.dispatch)),
		ConnContext: s.connContext,
		ConnState:   s.connState,
		ErrorLog:    errorLog,
	}

	return s, nil
}

// LocalAddr returns the address the server is bound to.
func (s *Server) LocalAddr() net.Addr {
	return s.listener.Addr()
}

// Port returns the bound TCP port.
func (s *Server) Port() int {
	if tcp, ok := s.listener.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}

// URL returns the base URL for scheme "http" or "ws", honouring TLS.
func (s *Server) URL(scheme string) string {
	if s.tls {
		scheme += "s"
	}
	return scheme + "://" + s.listener.Addr().String()
}

// SetPingInterval changes the keepalive interval. It may only be called
// before Run; afterwards it returns ErrAlreadyStarted. Zero disables pings.
func (s *Server) SetPingInterval(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("invalid ping interval %s", d)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	s.pingInterval = d
	return nil
}

// Start runs the server until SIGINT or SIGTERM.
func (s *Server) Start() error {
	sig := shutdown.New()
	stop := shutdown.NotifyOnSignal(sig, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.Run(sig)
}

// Run serves until sig fires, then stops accepting, lets in-flight requests
// finish, gives every WebSocket session its bounded close handshake and
// returns. If serving fails Run fires sig itself so sessions wind down.
func (s *Server) Run(sig *shutdown.Signal) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.signal = sig
	s.mu.Unlock()

	s.log.Info("Starting echo server",
		zap.String("addr", s.listener.Addr().String()),
		zap.Bool("tls", s.tls),
		zap.Stringer("http_log_level", s.config.HTTPLogLevel),
		zap.Bool("ws_logging", s.config.WSLogging),
		zap.Duration("ws_ping_interval", s.pingInterval),
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.httpServer.Serve(s.listener)
	}()

	var serveErr error
	select {
	case <-sig.Done():
		s.log.Info("Shutdown signal received, stopping server...")
	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Server stopped accepting connections", zap.Error(err))
			serveErr = fmt.Errorf("serve: %w", err)
		}
		sig.Fire()
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	s.drain(ctx)

	_ = s.log.Sync()
	return serveErr
}

// drain closes the listener and waits for connections to finish.
// net/http does not track hijacked connections, so WebSocket sessions are
// waited for separately; they observe the signal and close themselves.
func (s *Server) drain(ctx context.Context) {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.Warn("HTTP connections did not finish in time, forcing close", zap.Error(err))
		_ = s.httpServer.Close()
	}

	done := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("All connections closed gracefully")
	case <-ctx.Done():
		s.log.Warn("Shutdown timeout, forcing close of remaining sessions")
		s.mu.Lock()
		for conn, id := range s.activeConns {
			s.log.Info("Closing active connection", id.Fields()...)
			_ = conn.Close()
		}
		s.mu.Unlock()
		<-done
	}
}

// ActiveConnections returns the number of open connections, upgraded
// sessions included.
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

// connContext assigns the connection identity once per accepted socket.
func (s *Server) connContext(ctx context.Context, c net.Conn) context.Context {
	id := logging.NewConn(c.RemoteAddr(), s.nextID.Add(1)-1)

	s.mu.Lock()
	s.activeConns[c] = id
	s.mu.Unlock()

	return logging.WithConn(ctx, id)
}

func (s *Server) connState(c net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.mu.Lock()
		id := s.activeConns[c]
		s.mu.Unlock()
		s.log.Debug("Connection event", append(id.Fields(), zap.String("event", "connection_accepted"))...)
	case http.StateClosed:
		s.untrack(c)
	}
}

func (s *Server) untrack(c net.Conn) {
	s.mu.Lock()
	id, ok := s.activeConns[c]
	delete(s.activeConns, c)
	s.mu.Unlock()
	if ok {
		s.log.Debug("Connection event", append(id.Fields(), zap.String("event", "connection_closed"))...)
	}
}

// settings returns what a new session needs, read under the lock.
func (s *Server) settings() (time.Duration, *shutdown.Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pingInterval, s.signal
}
