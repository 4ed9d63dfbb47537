package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/chatdj/internal/models"
	"github.com/desertthunder/chatdj/internal/shared"
	"github.com/desertthunder/chatdj/internal/telemetry"
	"github.com/zmb3/spotify/v2"
	"go.opentelemetry.io/otel/attribute"
)

// SpotifyAPIBaseURL is the Web API root used when no override is configured.
const SpotifyAPIBaseURL = "https://api.spotify.com/v1/"

var spotifyIDPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// SpotifyRef is a resource named by a Spotify link or URI.
type SpotifyRef struct {
	Kind string // track, artist, album, playlist, ...
	ID   string
}

// ParseSpotifyURL recognises open.spotify.com links and spotify: URIs.
//
// ok is true for anything that looks like a Spotify reference, including links to non-track
// resources and links whose ID cannot be read; callers decide whether the kind is acceptable.
func ParseSpotifyURL(input string) (ref SpotifyRef, ok bool) {
	input = strings.TrimSpace(input)

	if rest, found := strings.CutPrefix(input, "spotify:"); found {
		parts := strings.Split(rest, ":")
		if len(parts) >= 2 {
			ref = SpotifyRef{Kind: strings.ToLower(parts[0]), ID: parts[len(parts)-1]}
		}
		return validRef(ref), true
	}

	u, err := url.Parse(input)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return SpotifyRef{}, false
	}
	host := strings.ToLower(u.Hostname())
	if host != "spotify.com" && !strings.HasSuffix(host, ".spotify.com") && host != "spotify.link" {
		return SpotifyRef{}, false
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	// Localised links look like /intl-de/track/<id>.
	if len(segments) > 0 && strings.HasPrefix(segments[0], "intl-") {
		segments = segments[1:]
	}
	if len(segments) >= 2 {
		ref = SpotifyRef{Kind: strings.ToLower(segments[0]), ID: segments[1]}
	}
	return validRef(ref), true
}

func validRef(ref SpotifyRef) SpotifyRef {
	if !spotifyIDPattern.MatchString(ref.ID) {
		return SpotifyRef{Kind: ref.Kind}
	}
	return ref
}

// SpotifyOptions configures a [SpotifyService].
type SpotifyOptions struct {
	// HTTPClient must authorize requests, usually [auth.Session.Client].
	HTTPClient *http.Client
	// BaseURL overrides [SpotifyAPIBaseURL]; it must end with a slash.
	BaseURL string
	Retrier Retrier
	Logger  *log.Logger
}

// SpotifyService implements [Catalog] and [Player] over the Spotify Web API.
type SpotifyService struct {
	client  *spotify.Client
	retrier Retrier
	logger  *log.Logger
}

// NewSpotifyService creates the client. No request is made until the first call.
func NewSpotifyService(opts SpotifyOptions) *SpotifyService {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.BaseURL == "" {
		opts.BaseURL = SpotifyAPIBaseURL
	}
	if !strings.HasSuffix(opts.BaseURL, "/") {
		opts.BaseURL += "/"
	}
	if opts.Retrier == nil {
		opts.Retrier = directRetrier{}
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &SpotifyService{
		client:  spotify.New(opts.HTTPClient, spotify.WithBaseURL(opts.BaseURL)),
		retrier: opts.Retrier,
		logger:  shared.WithLogger(opts.Logger, "component", "spotify"),
	}
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// call runs fn through the retrier with Spotify errors translated, so a 401 reaches the retrier as
// [shared.ErrTokenExpired].
func (s *SpotifyService) call(ctx context.Context, op string, notFound error, fn func(context.Context) error) error {
	ctx, span := telemetry.StartSpan(ctx, "spotify."+op, attribute.String("spotify.op", op))
	start := time.Now()

	err := s.retrier.Do(ctx, func(ctx context.Context) error {
		return mapSpotifyError(fn(ctx), notFound)
	})

	telemetry.ObserveSpotifyCall(time.Since(start).Seconds())
	telemetry.End(span, err)
	if err != nil {
		s.logger.Debug("spotify call failed", "op", op, "error", err)
	}
	return err
}

// LookupTrack fetches a track by ID.
func (s *SpotifyService) LookupTrack(ctx context.Context, id string) (models.Track, error) {
	if id == "" {
		return models.Track{}, fmt.Errorf("%w: empty track id", shared.ErrTrackNotFound)
	}

	var track models.Track
	err := s.call(ctx, "track", shared.ErrTrackNotFound, func(ctx context.Context) error {
		t, err := s.client.GetTrack(ctx, spotify.ID(id))
		if err != nil {
			return err
		}
		track = toTrack(t)
		return nil
	})
	return track, err
}

// LookupArtist fetches an artist by ID.
func (s *SpotifyService) LookupArtist(ctx context.Context, id string) (models.Artist, error) {
	if id == "" {
		return models.Artist{}, fmt.Errorf("%w: empty artist id", shared.ErrArtistNotFound)
	}

	var artist models.Artist
	err := s.call(ctx, "artist", shared.ErrArtistNotFound, func(ctx context.Context) error {
		a, err := s.client.GetArtist(ctx, spotify.ID(id))
		if err != nil {
			return err
		}
		artist = models.Artist{ID: string(a.ID), Name: a.Name}
		return nil
	})
	return artist, err
}

// SearchTrack returns the first track matching query.
func (s *SpotifyService) SearchTrack(ctx context.Context, query string) (models.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return models.Track{}, fmt.Errorf("%w: empty search query", shared.ErrMissingArgument)
	}

	var track models.Track
	err := s.call(ctx, "search", nil, func(ctx context.Context) error {
		res, err := s.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(1))
		if err != nil {
			return err
		}
		if res == nil || res.Tracks == nil || len(res.Tracks.Tracks) == 0 {
			return fmt.Errorf("%w: no results for %q", shared.ErrTrackNotFound, query)
		}
		track = toTrack(&res.Tracks.Tracks[0])
		return nil
	})
	return track, err
}

// ResolveTrack looks up track links and URIs directly and searches for anything else.
//
// A Spotify link to something other than a track is reported as [shared.ErrTrackNotFound].
func (s *SpotifyService) ResolveTrack(ctx context.Context, input string) (models.Track, error) {
	ref, ok := ParseSpotifyURL(input)
	if !ok {
		return s.SearchTrack(ctx, input)
	}
	if ref.Kind != "track" || ref.ID == "" {
		return models.Track{}, fmt.Errorf("%w: %q is not a track link", shared.ErrTrackNotFound, input)
	}
	return s.LookupTrack(ctx, ref.ID)
}

// Queue adds the track to the user's playback queue.
func (s *SpotifyService) Queue(ctx context.Context, trackID string) error {
	return s.call(ctx, "queue", nil, func(ctx context.Context) error {
		return s.client.QueueSong(ctx, spotify.ID(trackID))
	})
}

// CurrentlyPlaying returns the loaded track or nil when the player is empty or playing something
// that is not a track.
func (s *SpotifyService) CurrentlyPlaying(ctx context.Context) (*models.Track, error) {
	var track *models.Track
	err := s.call(ctx, "currently_playing", nil, func(ctx context.Context) error {
		cp, err := s.client.PlayerCurrentlyPlaying(ctx)
		if err != nil {
			return err
		}
		track = nil
		if cp != nil && cp.Item != nil && cp.Item.ID != "" {
			t := toTrack(cp.Item)
			track = &t
		}
		return nil
	})
	return track, err
}

// IsPlaying reports the player's is_playing flag. An idle player is not playing.
func (s *SpotifyService) IsPlaying(ctx context.Context) (bool, error) {
	var playing bool
	err := s.call(ctx, "player_state", nil, func(ctx context.Context) error {
		state, err := s.client.PlayerState(ctx)
		if err != nil {
			return err
		}
		playing = state != nil && state.Playing
		return nil
	})
	return playing, err
}

func toTrack(t *spotify.FullTrack) models.Track {
	track := models.Track{
		ID:       string(t.ID),
		Name:     t.Name,
		Explicit: t.Explicit,
	}
	if len(t.Artists) > 0 {
		track.Artist = models.Artist{ID: string(t.Artists[0].ID), Name: t.Artists[0].Name}
	}
	if len(t.Album.Images) > 0 {
		track.AlbumArtURL = t.Album.Images[0].URL
	}
	return track
}

func mapSpotifyError(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, shared.ErrNotAuthenticated) {
		return err
	}
	// Already classified inside fn.
	if shared.IsNotFound(err) || errors.Is(err, shared.ErrAPIRequest) || errors.Is(err, shared.ErrServiceUnavailable) {
		return err
	}

	status, message, ok := spotifyStatus(err)
	if !ok {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	switch {
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", shared.ErrTokenExpired, message)
	case notFound != nil && (status == http.StatusNotFound || status == http.StatusBadRequest):
		return fmt.Errorf("%w: %s", notFound, message)
	case status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("%w: spotify responded %d: %s", shared.ErrServiceUnavailable, status, message)
	default:
		return fmt.Errorf("%w: spotify responded %d: %s", shared.ErrAPIRequest, status, message)
	}
}

func spotifyStatus(err error) (int, string, bool) {
	var se spotify.Error
	if errors.As(err, &se) {
		return se.Status, se.Message, true
	}
	var sp *spotify.Error
	if errors.As(err, &sp) && sp != nil {
		return sp.Status, sp.Message, true
	}
	return 0, "", false
}
