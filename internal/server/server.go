package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tcam/gwcfg/internal/logging"
	"github.com/tcam/gwcfg/internal/session"
)

// Config holds the server configuration
type Config struct {
	Host     string
	Port     int
	CertPath string // Serve HTTPS when both CertPath and KeyPath are set
	KeyPath  string
	LogLevel string

	// Empty starts without the built-in models and devices
	Empty bool
}

// Server is a mock gateway configuration service
type Server struct {
	config      *Config
	store       *Store
	users       []session.User
	tlsConfig   *tls.Config
	httpServer  *http.Server
	listener    net.Listener
	closing     chan struct{}
	closeOnce   sync.Once
	mu          sync.Mutex
	activeConns map[string]*websocket.Conn
	tokens      map[string]*session.User
}

// New creates a new Server instance. A nil store gets one built from
// config.
func New(config *Config, store *Store) (*Server, error) {
	if config.LogLevel != "" {
		if err := logging.Initialize(config.LogLevel); err != nil {
			return nil, fmt.Errorf("failed to initialize logging: %w", err)
		}
	}

	var tlsConfig *tls.Config
	if config.CertPath != "" && config.KeyPath != "" {
		var err error
		tlsConfig, err = NewTLSConfig(config.CertPath, config.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	}

	if store == nil {
		if config.Empty {
			store = NewStore()
		} else {
			store = NewFixtureStore()
		}
	}

	s := &Server{
		config:      config,
		store:       store,
		users:       session.DefaultUsers(),
		tlsConfig:   tlsConfig,
		closing:     make(chan struct{}),
		activeConns: make(map[string]*websocket.Conn),
		tokens:      make(map[string]*session.User),
	}
	s.httpServer = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		TLSConfig:         tlsConfig,
	}
	return s, nil
}

// Handler returns the HTTP handler, for mounting in tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Store returns the backing store.
func (s *Server) Store() *Store {
	return s.store
}

// Start starts the server and blocks until shutdown
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	logging.Info("Starting mock gateway",
		zap.String("addr", listener.Addr().String()),
		zap.Any("tls", GetTLSInfo(s.tlsConfig)),
		zap.String("log_level", s.config.LogLevel),
	)

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Serve(listener)
	}()

	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(ctx)
	case err := <-errChan:
		return err
	}
}

// Serve accepts connections on l until Shutdown.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()

	var err error
	if s.tlsConfig != nil {
		err = s.httpServer.ServeTLS(l, "", "")
	} else {
		err = s.httpServer.Serve(l)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	// Event streams are hijacked connections; http.Server does not track them.
	s.closeOnce.Do(func() { close(s.closing) })

	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		logging.Warn("Shutdown timeout, forcing close", zap.Error(err))
		_ = s.httpServer.Close()
	}

	s.mu.Lock()
	for addr, conn := range s.activeConns {
		logging.Info("Closing active connection", zap.String("remote_addr", addr))
		_ = conn.Close()
	}
	s.mu.Unlock()

	logging.Sync()
	return err
}

// GetActiveConnections returns the number of open event streams
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}
