package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/yndnr/herdsman/internal/telemetry/logger"
)

// unixPrefix marks a Unix domain socket address.
const unixPrefix = "unix:"

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	socketPath string
	logger     logger.Logger
	done       chan struct{}
}

// New creates a new HTTP server.
func New(addr string, handler http.Handler, log logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: log,
		done:   make(chan struct{}),
	}
}

// Start binds the address and serves in the background. A bind failure
// is returned; later serve errors are logged. An address of the form
// unix:/path listens on a Unix domain socket, replacing a stale one.
func (s *Server) Start() error {
	network, address := "tcp", s.httpServer.Addr
	if path, ok := strings.CutPrefix(address, unixPrefix); ok {
		network, address = "unix", path
		s.socketPath = path
		if err := removeStaleSocket(path); err != nil {
			return err
		}
	}

	ln, err := net.Listen(network, address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.httpServer.Addr, err)
	}
	s.listener = ln

	go func() {
		defer close(s.done)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server failed", "addr", s.Addr(), "error", err)
		}
	}()

	s.logger.Info("http server listening", "addr", s.Addr())
	return nil
}

// Addr returns the bound address, or the configured one before Start.
// Socket addresses keep their unix: prefix.
func (s *Server) Addr() string {
	if s.listener == nil || s.socketPath != "" {
		return s.httpServer.Addr
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	<-s.done
	return nil
}

// removeStaleSocket deletes a socket file nobody is listening on.
func removeStaleSocket(path string) error {
	fi, err := os.Lstat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat socket %s: %w", path, err)
	}
	if fi.Mode()&os.ModeSocket == 0 {
		return fmt.Errorf("socket %s: file exists and is not a socket", path)
	}
	if conn, err := net.Dial("unix", path); err == nil {
		conn.Close()
		return fmt.Errorf("socket %s: already in use", path)
	}
	return os.Remove(path)
}
