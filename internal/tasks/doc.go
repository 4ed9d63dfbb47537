// Package tasks runs the work between chat and Spotify.
//
// # Queue policy
//
// [QueueGateway.Enqueue] rejects blacklisted tracks, then tracks by blacklisted artists, then explicit
// tracks when the explicit policy is on. A blacklisted explicit track is therefore reported as
// blacklisted. Accepted tracks are submitted to Spotify and the requester is stored in the
// [PendingRequestMap] under the track ID.
//
// # Playback polling
//
// [Poller] samples the player every [DefaultPollInterval] through a [Scheduler] and feeds each sample
// to [Transition]:
//
//	Idle      + nothing loaded    -> Idle       (no event)
//	Idle      + track             -> Observing  TrackChanged
//	Observing + nothing loaded    -> Idle       TrackCleared
//	Observing + different track   -> Observing  TrackChanged
//	Observing + same, flag flips  -> Observing  PlayStateToggled
//	Observing + same              -> Observing  (no event)
//
// TrackChanged consumes the pending claim (falling back to the autoplay requester), appends to the
// history and publishes the new snapshot. PlayStateToggled only republishes. TrackCleared clears
// the publisher.
//
// Transitions are emitted as [PlaybackEvent] on an optional channel using a non-blocking send.
// Ticks are skipped while the Spotify session is disconnected.
package tasks
