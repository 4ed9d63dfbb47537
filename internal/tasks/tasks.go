// package tasks holds the background work of the bot: gating queue submissions, tracking who requested
// what, and reconciling Spotify playback with the published now-playing state.
package tasks

import (
	"context"
	"time"

	"github.com/desertthunder/chatdj/internal/models"
)

// Blacklist is the read side of the blacklist store used by the queue policy.
type Blacklist interface {
	IsTrackBlacklisted(id string) bool
	IsArtistBlacklisted(id string) bool
}

// Queuer submits a track to the player queue.
type Queuer interface {
	Queue(ctx context.Context, trackID string) error
}

// HistoryRecorder appends played tracks to the playback history.
type HistoryRecorder interface {
	Record(track models.Track, requestedBy string, at time.Time) (models.PlaybackHistoryEntry, error)
}

// SnapshotPublisher receives now-playing changes.
type SnapshotPublisher interface {
	Update(snapshot models.NowPlayingSnapshot) error
	Clear() error
}

// Connectivity reports whether the Spotify session can make calls.
type Connectivity interface {
	Connected() bool
}

// sendEvent delivers ev without blocking. Listeners that fall behind miss events.
func sendEvent(events chan<- PlaybackEvent, ev PlaybackEvent) {
	if events == nil {
		return
	}
	select {
	case events <- ev:
	default:
	}
}
