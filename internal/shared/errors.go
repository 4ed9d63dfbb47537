package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")
	ErrAuthInProgress   = fmt.Errorf("authorization already in progress")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrQueueFailed        = fmt.Errorf("failed to queue track")

	// Lookup errors
	ErrTrackNotFound  = fmt.Errorf("track not found")
	ErrArtistNotFound = fmt.Errorf("artist not found")
	ErrUserNotFound   = fmt.Errorf("user not found")

	// Policy rejections
	ErrTrackBlacklisted  = fmt.Errorf("track is blacklisted")
	ErrArtistBlacklisted = fmt.Errorf("artist is blacklisted")
	ErrExplicitBlocked   = fmt.Errorf("explicit tracks are not allowed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// IsPolicyRejection reports whether err is one of the queue policy rejections.
func IsPolicyRejection(err error) bool {
	return isAny(err, ErrTrackBlacklisted, ErrArtistBlacklisted, ErrExplicitBlocked)
}

// IsNotFound reports whether err is a lookup miss.
func IsNotFound(err error) bool {
	return isAny(err, ErrTrackNotFound, ErrArtistNotFound, ErrUserNotFound)
}

// IsAuthFailure reports whether err means the Spotify session is not usable.
func IsAuthFailure(err error) bool {
	return isAny(err, ErrAuthFailed, ErrNotAuthenticated, ErrTokenExpired, ErrRefreshFailed, ErrNoRefreshToken)
}

// IsTransient reports whether err is an API failure that may succeed on a later attempt.
func IsTransient(err error) bool {
	return isAny(err, ErrAPIRequest, ErrServiceUnavailable, ErrTimeout)
}

func isAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
