package tasks

import (
	"sync"

	"github.com/desertthunder/chatdj/internal/models"
	"github.com/desertthunder/chatdj/internal/telemetry"
)

// PendingRequestMap remembers who queued a track until the poller first sees it playing.
type PendingRequestMap struct {
	mu     sync.Mutex
	claims map[string]string
}

func NewPendingRequestMap() *PendingRequestMap {
	return &PendingRequestMap{claims: make(map[string]string)}
}

// Claim records requester for trackID, replacing an older claim for the same track.
func (m *PendingRequestMap) Claim(trackID, requester string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims[trackID] = requester
	telemetry.SetPending(len(m.claims))
}

// Consume removes and returns the claim for trackID, or [models.AutoplayRequester] when there is none.
func (m *PendingRequestMap) Consume(trackID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	requester, ok := m.claims[trackID]
	if !ok {
		return models.AutoplayRequester
	}
	delete(m.claims, trackID)
	telemetry.SetPending(len(m.claims))
	return requester
}

// Peek returns the claim for trackID without consuming it.
func (m *PendingRequestMap) Peek(trackID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	requester, ok := m.claims[trackID]
	return requester, ok
}

func (m *PendingRequestMap) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.claims)
}
