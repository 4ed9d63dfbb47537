// Package services implements the outbound API clients.
//
// # Spotify
//
// [SpotifyService] drives github.com/zmb3/spotify/v2 over an HTTP client built by the auth session,
// so every request carries the live bearer token. Each call runs through a [Retrier]; the session's
// implementation refreshes once and replays the call when Spotify answers 401.
//
// Spotify errors are mapped onto the shared sentinels:
//   - 401: [shared.ErrTokenExpired]
//   - 400 and 404 on lookups: [shared.ErrTrackNotFound] or [shared.ErrArtistNotFound]
//   - 429 and 5xx: [shared.ErrServiceUnavailable]
//   - anything else: [shared.ErrAPIRequest]
//
// Chat input is classified by [ParseSpotifyURL]: open.spotify.com links and spotify: URIs are
// looked up directly, anything else is treated as a search query.
//
// # Twitch
//
// [TwitchDirectory] checks ban targets against the Helix users endpoint using an app access token.
package services
