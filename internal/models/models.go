// package models defines the value types shared by the chat, playback and persistence layers
package models

import (
	"encoding/json"
	"strings"
	"time"
)

// AutoplayRequester is recorded for tracks that started without a chat request.
const AutoplayRequester = "autoplay"

// Artist is the primary artist of a [Track].
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Track is built from a Spotify API response and treated as an immutable value.
type Track struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Explicit    bool   `json:"explicit"`
	Artist      Artist `json:"artist"`
	AlbumArtURL string `json:"album_art_url,omitempty"`
}

// Label renders the track as "{title} - {artist}".
func (t Track) Label() string {
	return t.Name + " - " + t.Artist.Name
}

// PlaybackHistoryEntry records a track observed as now playing.
type PlaybackHistoryEntry struct {
	TrackID     string    `json:"trackId" csv:"track_id"`
	TrackName   string    `json:"trackName" csv:"track_name"`
	ArtistName  string    `json:"artistName" csv:"artist_name"`
	ArtistID    string    `json:"artistId" csv:"artist_id"`
	AlbumArtURL string    `json:"albumArtUrl" csv:"album_art_url"`
	IsExplicit  bool      `json:"isExplicit" csv:"is_explicit"`
	Timestamp   time.Time `json:"timestamp" csv:"timestamp"`
	RequestedBy string    `json:"requestedBy" csv:"requested_by"`
}

// NewPlaybackHistoryEntry builds an entry for track at the given time, stored in UTC.
//
// An empty requester is recorded as [AutoplayRequester].
func NewPlaybackHistoryEntry(track Track, requestedBy string, at time.Time) PlaybackHistoryEntry {
	if strings.TrimSpace(requestedBy) == "" {
		requestedBy = AutoplayRequester
	}
	return PlaybackHistoryEntry{
		TrackID:     track.ID,
		TrackName:   track.Name,
		ArtistName:  track.Artist.Name,
		ArtistID:    track.Artist.ID,
		AlbumArtURL: track.AlbumArtURL,
		IsExplicit:  track.Explicit,
		Timestamp:   at.UTC(),
		RequestedBy: requestedBy,
	}
}

// CommandSpec is the verb and permission flags of one chat command.
type CommandSpec struct {
	Verb     string `toml:"verb" json:"verb"`
	AllowVIP bool   `toml:"allow_vip" json:"allow_vip"`
	AllowSub bool   `toml:"allow_sub" json:"allow_sub"`
	AllowMod bool   `toml:"allow_mod" json:"allow_mod"`
}

// AllowEveryone is true when no role restriction is set.
func (c CommandSpec) AllowEveryone() bool {
	return !c.AllowVIP && !c.AllowSub && !c.AllowMod
}

// NowPlayingSnapshot is the published view of the current track.
//
// The zero value means nothing is playing.
type NowPlayingSnapshot struct {
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	CoverURL  string `json:"coverUrl"`
	IsPlaying bool   `json:"isPlaying"`
}

type snapshotJSON NowPlayingSnapshot

// MarshalJSON encodes the zero snapshot as {} and every other snapshot with all fields.
func (s NowPlayingSnapshot) MarshalJSON() ([]byte, error) {
	if s.IsZero() {
		return []byte("{}"), nil
	}
	return json.Marshal(snapshotJSON(s))
}

// SnapshotOf builds the published view of track.
func SnapshotOf(track Track, isPlaying bool) NowPlayingSnapshot {
	return NowPlayingSnapshot{
		Title:     track.Name,
		Artist:    track.Artist.Name,
		CoverURL:  track.AlbumArtURL,
		IsPlaying: isPlaying,
	}
}

// IsZero reports whether the snapshot is empty.
func (s NowPlayingSnapshot) IsZero() bool {
	return s == NowPlayingSnapshot{}
}

// Text renders the plain text mirror, empty for the zero snapshot.
func (s NowPlayingSnapshot) Text() string {
	if s.IsZero() {
		return ""
	}
	return s.Title + " - " + s.Artist
}

// AuthToken is the Spotify credential owned by the auth session.
type AuthToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int       `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
}

// Expiry returns the instant the access token stops being valid.
func (t AuthToken) Expiry() time.Time {
	return t.IssuedAt.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// ExpiresWithin reports whether the token expires within d of now.
func (t AuthToken) ExpiresWithin(now time.Time, d time.Duration) bool {
	return !now.Add(d).Before(t.Expiry())
}
