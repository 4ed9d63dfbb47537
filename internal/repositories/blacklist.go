package repositories

import (
	"fmt"
	"strings"

	"github.com/desertthunder/chatdj/internal/shared"
)

// BlacklistKind selects one of the three blacklists.
type BlacklistKind string

const (
	TrackBlacklist  BlacklistKind = "track"
	ArtistBlacklist BlacklistKind = "artist"
	UserBlacklist   BlacklistKind = "user"
)

// ParseBlacklistKind accepts track/song, artist/band and user, case-insensitively.
func ParseBlacklistKind(s string) (BlacklistKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "track", "song":
		return TrackBlacklist, nil
	case "artist", "band":
		return ArtistBlacklist, nil
	case "user":
		return UserBlacklist, nil
	default:
		return "", fmt.Errorf("%w: unknown blacklist type %q", shared.ErrInvalidArgument, s)
	}
}

// BlacklistPaths locates the snapshot file of each set.
type BlacklistPaths struct {
	Tracks  string
	Artists string
	Users   string
}

// DefaultBlacklistPaths returns the standard file names under the storage directory.
func DefaultBlacklistPaths(storage shared.StorageConfig) BlacklistPaths {
	return BlacklistPaths{
		Tracks:  storage.Path(shared.TrackBlacklistFile),
		Artists: storage.Path(shared.ArtistBlacklistFile),
		Users:   storage.Path(shared.UserBlacklistFile),
	}
}

// BlacklistStore holds the track, artist and user blacklists.
//
// The sets lock independently, so a ban never waits on a track being blacklisted.
type BlacklistStore struct {
	tracks  *IDSet
	artists *IDSet
	users   *IDSet
}

// OpenBlacklistStore loads all three sets, creating missing files.
func OpenBlacklistStore(paths BlacklistPaths) (*BlacklistStore, error) {
	tracks, err := OpenIDSet("track blacklist", paths.Tracks, nil)
	if err != nil {
		return nil, err
	}
	artists, err := OpenIDSet("artist blacklist", paths.Artists, nil)
	if err != nil {
		return nil, err
	}
	users, err := OpenIDSet("user blacklist", paths.Users, normalizeUser)
	if err != nil {
		return nil, err
	}
	return &BlacklistStore{tracks: tracks, artists: artists, users: users}, nil
}

func normalizeUser(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "@"))
}

// Set returns the set for kind.
func (b *BlacklistStore) Set(kind BlacklistKind) (*IDSet, error) {
	switch kind {
	case TrackBlacklist:
		return b.tracks, nil
	case ArtistBlacklist:
		return b.artists, nil
	case UserBlacklist:
		return b.users, nil
	default:
		return nil, fmt.Errorf("%w: unknown blacklist type %q", shared.ErrInvalidArgument, kind)
	}
}

// IsTrackBlacklisted reports whether the track id is blacklisted.
func (b *BlacklistStore) IsTrackBlacklisted(id string) bool { return b.tracks.Contains(id) }

// IsArtistBlacklisted reports whether the artist id is blacklisted.
func (b *BlacklistStore) IsArtistBlacklisted(id string) bool { return b.artists.Contains(id) }

// IsUserBlacklisted reports whether the chat user is banned from commands.
func (b *BlacklistStore) IsUserBlacklisted(name string) bool { return b.users.Contains(name) }

func (b *BlacklistStore) AddTrack(id string) (bool, error)     { return b.tracks.Add(id) }
func (b *BlacklistStore) RemoveTrack(id string) (bool, error)  { return b.tracks.Remove(id) }
func (b *BlacklistStore) AddArtist(id string) (bool, error)    { return b.artists.Add(id) }
func (b *BlacklistStore) RemoveArtist(id string) (bool, error) { return b.artists.Remove(id) }

// BanUser adds name, lowercased, to the user blacklist.
func (b *BlacklistStore) BanUser(name string) (bool, error) { return b.users.Add(name) }

// UnbanUser removes name from the user blacklist.
func (b *BlacklistStore) UnbanUser(name string) (bool, error) { return b.users.Remove(name) }

// List returns the sorted members of the kind's set, or nil for an unknown kind.
func (b *BlacklistStore) List(kind BlacklistKind) []string {
	set, err := b.Set(kind)
	if err != nil {
		return nil
	}
	return set.List()
}
