package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Listener runs an [http.Server] with a synchronous bind and a synchronous stop.
type Listener struct {
	addr    string
	handler http.Handler
	logger  *log.Logger

	mu     sync.Mutex
	srv    *http.Server
	ln     net.Listener
	served chan struct{}
}

// NewListener creates a listener for addr. Nothing is bound until [Listener.Start].
func NewListener(addr string, handler http.Handler, logger *log.Logger) *Listener {
	return &Listener{addr: addr, handler: handler, logger: logger}
}

// Start binds the address and serves in the background.
//
// A bind failure is returned directly, the caller decides whether it is fatal.
func (l *Listener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.srv != nil {
		return fmt.Errorf("listener on %s already started", l.addr)
	}

	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.addr, err)
	}

	srv := &http.Server{Handler: l.handler, ReadHeaderTimeout: 10 * time.Second}
	served := make(chan struct{})
	l.srv, l.ln, l.served = srv, ln, served

	go func() {
		defer close(served)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.logger.Error("http server stopped", "addr", l.addr, "error", err)
		}
	}()

	l.logger.Debug("listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (l *Listener) Addr() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln != nil {
		return l.ln.Addr().String()
	}
	return l.addr
}

// Stop shuts the server down and waits for the serve loop to exit. Stopping twice is a no-op.
func (l *Listener) Stop(ctx context.Context) error {
	l.mu.Lock()
	srv, served := l.srv, l.served
	l.srv, l.ln, l.served = nil, nil, nil
	l.mu.Unlock()

	if srv == nil {
		return nil
	}

	err := srv.Shutdown(ctx)
	if err != nil {
		srv.Close()
	}
	<-served
	return err
}
