// package services wraps the HTTP APIs chatdj talks to: the Spotify Web API and the Twitch Helix user directory.
package services

import (
	"context"

	"github.com/desertthunder/chatdj/internal/models"
)

// Catalog resolves chat input into tracks and artists.
type Catalog interface {
	// ResolveTrack accepts a track URL, a track URI or free text and returns the matching track.
	ResolveTrack(ctx context.Context, input string) (models.Track, error)

	// LookupTrack fetches a track by ID.
	LookupTrack(ctx context.Context, id string) (models.Track, error)

	// LookupArtist fetches an artist by ID.
	LookupArtist(ctx context.Context, id string) (models.Artist, error)
}

// Player submits tracks to the broadcaster's queue and reports what is playing.
type Player interface {
	// Queue appends the track to the active device's queue.
	Queue(ctx context.Context, trackID string) error

	// CurrentlyPlaying returns the current item, or nil when nothing is loaded.
	CurrentlyPlaying(ctx context.Context) (*models.Track, error)

	// IsPlaying reports whether playback is running (false when paused or idle).
	IsPlaying(ctx context.Context) (bool, error)
}

// UserDirectory answers whether a chat login belongs to a real account.
type UserDirectory interface {
	Exists(ctx context.Context, login string) (bool, error)
}

// Retrier runs an API call, typically refreshing credentials and replaying it once when the token is rejected.
//
// [auth.Session] implements it.
type Retrier interface {
	Do(ctx context.Context, fn func(context.Context) error) error
}

type directRetrier struct{}

func (directRetrier) Do(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) }
