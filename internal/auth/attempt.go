package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/chatdj/internal/locale"
	"github.com/desertthunder/chatdj/internal/server"
	"github.com/desertthunder/chatdj/internal/shared"
	"github.com/desertthunder/chatdj/internal/ui"
)

// Attempt is one in-flight authorization.
type Attempt struct {
	// URL is the Spotify consent page the user must visit.
	URL string
	// CallbackAddr is the bound address of the local callback listener.
	CallbackAddr string

	done chan struct{}
	once sync.Once
	err  error
}

func (a *Attempt) finish(err error) {
	a.once.Do(func() {
		a.err = err
		close(a.done)
	})
}

// Done is closed once the attempt has resolved.
func (a *Attempt) Done() <-chan struct{} { return a.done }

// Wait blocks until the attempt resolves or ctx ends and returns the outcome.
func (a *Attempt) Wait(ctx context.Context) error {
	select {
	case <-a.done:
		return a.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StartAuthorization binds the callback listener, opens the consent page and resolves the returned
// [Attempt] with exactly one outcome: connected, denied, exchange failure or timeout.
//
// Only one attempt may run at a time. A bind failure is returned and also shown to the user.
func (s *Session) StartAuthorization(ctx context.Context) (*Attempt, error) {
	s.mu.Lock()
	if s.attempt != nil {
		s.mu.Unlock()
		return nil, shared.ErrAuthInProgress
	}

	state := shared.GenerateID()
	handler := server.NewCallbackHandler(s.callbackPath, state)
	router := server.Mount(handler, nil, s.logger, false)
	listener := server.NewListener(s.listenAddr, router, s.logger)
	if err := listener.Start(); err != nil {
		s.mu.Unlock()
		s.logger.Error("authorization listener failed", "addr", s.listenAddr, "error", err)
		s.notifier.Notify(s.tr.T(locale.KeyAuthListenFailed, locale.Params{"ADDR": s.listenAddr, "REASON": err.Error()}), ui.Error)
		return nil, err
	}

	a := &Attempt{
		URL:          s.config.AuthCodeURL(state),
		CallbackAddr: listener.Addr(),
		done:         make(chan struct{}),
	}
	s.attempt = a
	s.mu.Unlock()

	s.notifier.Notify(s.tr.T(locale.KeyAuthOpenBrowser, locale.Params{"URL": a.URL}), ui.Info)
	if err := s.openBrowser(a.URL); err != nil {
		s.logger.Warn("failed to open browser, visit the URL manually", "url", a.URL, "error", err)
	}

	go s.await(ctx, a, handler, listener)
	return a, nil
}

func (s *Session) await(ctx context.Context, a *Attempt, handler *server.CallbackHandler, listener *server.Listener) {
	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	var code string
	var err error
	select {
	case res := <-handler.Result():
		if res.Error() != nil {
			err = fmt.Errorf("%w: %v", shared.ErrAuthFailed, res.Error())
		} else {
			code = res.Code
		}
	case <-timer.C:
		err = fmt.Errorf("%w: no authorization callback within %v", shared.ErrTimeout, s.timeout)
	case <-ctx.Done():
		err = ctx.Err()
	case <-s.closeCtx.Done():
		err = fmt.Errorf("%w: session closed", shared.ErrAuthFailed)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if stopErr := listener.Stop(stopCtx); stopErr != nil {
		s.logger.Warn("authorization listener did not stop cleanly", "error", stopErr)
	}
	cancel()

	if err == nil {
		err = s.Exchange(ctx, code)
	}

	s.mu.Lock()
	s.attempt = nil
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("authorization failed", "error", err)
		s.notifier.Notify(s.tr.T(locale.KeyAuthFailed, locale.Params{"REASON": err.Error()}), ui.Error)
	}
	a.finish(err)
}
