package auth

import (
	"context"
	"time"
)

// minRefreshWait keeps a token that is already inside the margin from being refreshed in a tight loop.
const minRefreshWait = time.Second

// startRefresher replaces any running refresher with one armed for the current token.
func (s *Session) startRefresher() {
	s.rmu.Lock()
	defer s.rmu.Unlock()

	if s.refreshCancel != nil {
		s.refreshCancel()
	}
	if s.closeCtx.Err() != nil {
		s.refreshCancel, s.refreshDone = nil, nil
		return
	}

	ctx, cancel := context.WithCancel(s.closeCtx)
	done := make(chan struct{})
	s.refreshCancel, s.refreshDone = cancel, done
	go s.runRefresher(ctx, done)
}

// stopRefresher cancels the refresher. With wait set it blocks until the goroutine has exited,
// which must never be requested from the refresher itself.
func (s *Session) stopRefresher(wait bool) {
	s.rmu.Lock()
	cancel, done := s.refreshCancel, s.refreshDone
	s.refreshCancel, s.refreshDone = nil, nil
	s.rmu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if wait {
		<-done
	}
}

func (s *Session) runRefresher(ctx context.Context, done chan struct{}) {
	defer close(done)

	tok, ok := s.Current()
	if !ok {
		return
	}

	wait := tok.Expiry().Add(-s.margin).Sub(s.now())
	if wait < minRefreshWait {
		wait = minRefreshWait
	}
	s.logger.Debug("refresh scheduled", "in", wait.Round(time.Second))

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	if ctx.Err() != nil {
		return
	}
	// A successful refresh installs the new token, which arms a fresh refresher and cancels this one.
	s.refresh(ctx, "scheduled")
}
