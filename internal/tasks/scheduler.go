package tasks

import (
	"context"
	"sync"
	"time"
)

// Scheduler runs a function on a fixed interval, one call at a time.
//
// The first call happens immediately. A call that overruns the interval delays the next one
// instead of overlapping it.
type Scheduler struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Start launches the loop. It reports false when the loop is already running.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration, fn func(context.Context)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return false
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done

	go func() {
		defer close(done)

		fn(ctx)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if ctx.Err() != nil {
					return
				}
				fn(ctx)
			}
		}
	}()
	return true
}

// Stop cancels the loop and waits for the current call to return. It must not be called from fn.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done != nil
}
