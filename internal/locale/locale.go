// package locale translates chat replies and notifications.
//
// Messages use {PLACEHOLDER} parameters. English is built in and extra languages, or overrides of individual
// keys, load from a JSON object of key to text.
package locale

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// Message keys
const (
	KeyQueueMissingArgument = "chat.queue.missing_argument"
	KeyQueueSuccess         = "chat.queue.success"
	KeyQueueFailure         = "chat.queue.failure"
	KeyTrackNotFound        = "chat.track.not_found"
	KeyArtistNotFound       = "chat.artist.not_found"
	KeyTrackBlacklisted     = "chat.track.blacklisted"
	KeyArtistBlacklisted    = "chat.artist.blacklisted"
	KeyExplicitBlocked      = "chat.track.explicit"
	KeyNotAuthenticated     = "chat.spotify.not_authenticated"

	KeyBlacklistUsage          = "chat.blacklist.usage"
	KeyUnblacklistUsage        = "chat.unblacklist.usage"
	KeyBlacklistTrackSuccess   = "chat.blacklist.track.success"
	KeyBlacklistTrackExists    = "chat.blacklist.track.exists"
	KeyBlacklistArtistSuccess  = "chat.blacklist.artist.success"
	KeyBlacklistArtistExists   = "chat.blacklist.artist.exists"
	KeyUnblacklistTrack        = "chat.unblacklist.track.success"
	KeyUnblacklistTrackAbsent  = "chat.unblacklist.track.not_found"
	KeyUnblacklistArtist       = "chat.unblacklist.artist.success"
	KeyUnblacklistArtistAbsent = "chat.unblacklist.artist.not_found"

	KeyBanUsage       = "chat.ban.usage"
	KeyUnbanUsage     = "chat.unban.usage"
	KeyBanStreamer    = "chat.ban.streamer"
	KeyBanExists      = "chat.ban.exists"
	KeyBanSuccess     = "chat.ban.success"
	KeyBanUnknownUser = "chat.ban.unknown_user"
	KeyUnbanNotFound  = "chat.unban.not_found"
	KeyUnbanSuccess   = "chat.unban.success"

	KeyInternalError = "chat.internal_error"

	KeyAuthOpenBrowser   = "auth.open_browser"
	KeyAuthSuccess       = "auth.success"
	KeyAuthFailed        = "auth.failed"
	KeyAuthRefreshFailed = "auth.refresh_failed"
	KeyAuthListenFailed  = "auth.listen_failed"

	KeyNowPlaying   = "playback.now_playing"
	KeyPlaybackIdle = "playback.idle"
	KeyChatJoined   = "chat.joined"
)

var english = map[string]string{
	KeyQueueMissingArgument: "Please provide a Spotify track link or a search term. Usage: {PREFIX}{VERB} <link or search>",
	KeyQueueSuccess:         "Queued {SONG} by {ARTIST}",
	KeyQueueFailure:         "Could not add the track to the queue, please try again later",
	KeyTrackNotFound:        "Could not find that track",
	KeyArtistNotFound:       "Could not find that artist",
	KeyTrackBlacklisted:     "That track is blacklisted",
	KeyArtistBlacklisted:    "That artist is blacklisted",
	KeyExplicitBlocked:      "Explicit tracks are not allowed",
	KeyNotAuthenticated:     "Spotify is not connected right now",

	KeyBlacklistUsage:          "Usage: {PREFIX}{VERB} <track|artist> <spotify link>",
	KeyUnblacklistUsage:        "Usage: {PREFIX}{VERB} <track|artist> <spotify link>",
	KeyBlacklistTrackSuccess:   "Blacklisted track {SONG}",
	KeyBlacklistTrackExists:    "Track {SONG} is already blacklisted",
	KeyBlacklistArtistSuccess:  "Blacklisted artist {ARTIST}",
	KeyBlacklistArtistExists:   "Artist {ARTIST} is already blacklisted",
	KeyUnblacklistTrack:        "Removed track {SONG} from the blacklist",
	KeyUnblacklistTrackAbsent:  "Track {SONG} is not blacklisted",
	KeyUnblacklistArtist:       "Removed artist {ARTIST} from the blacklist",
	KeyUnblacklistArtistAbsent: "Artist {ARTIST} is not blacklisted",

	KeyBanUsage:       "Usage: {PREFIX}{VERB} <username>",
	KeyUnbanUsage:     "Usage: {PREFIX}{VERB} <username>",
	KeyBanStreamer:    "The streamer cannot be banned",
	KeyBanExists:      "{TARGET} is already banned",
	KeyBanSuccess:     "{TARGET} can no longer use commands",
	KeyBanUnknownUser: "No Twitch user named {TARGET}",
	KeyUnbanNotFound:  "{TARGET} is not banned",
	KeyUnbanSuccess:   "{TARGET} can use commands again",

	KeyInternalError: "Something went wrong, please try again",

	KeyAuthOpenBrowser:   "Open this URL to connect Spotify: {URL}",
	KeyAuthSuccess:       "Spotify connected",
	KeyAuthFailed:        "Spotify authorization failed: {REASON}",
	KeyAuthRefreshFailed: "Spotify session expired, please authorize again",
	KeyAuthListenFailed:  "Could not start the authorization listener on {ADDR}: {REASON}",

	KeyNowPlaying:   "Now playing: {SONG} by {ARTIST} (requested by {REQUESTER})",
	KeyPlaybackIdle: "Playback stopped",
	KeyChatJoined:   "Joined chat channel {CHANNEL}",
}

// Params fills {KEY} placeholders.
type Params map[string]string

// Translator resolves message keys for one language.
type Translator interface {
	T(key string, params Params) string
}

// Catalog holds messages per language with English as the fallback.
type Catalog struct {
	mu       sync.RWMutex
	language string
	texts    map[string]map[string]string
}

// NewCatalog builds a catalog with the built-in English messages selected.
func NewCatalog() *Catalog {
	en := make(map[string]string, len(english))
	for k, v := range english {
		en[k] = v
	}
	return &Catalog{language: "en", texts: map[string]map[string]string{"en": en}}
}

// Load merges a JSON object of key to text into lang.
func (c *Catalog) Load(lang, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	var texts map[string]string
	if err := json.Unmarshal(data, &texts); err != nil {
		return fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}

	c.Add(lang, texts)
	return nil
}

// Add merges texts into lang.
func (c *Catalog) Add(lang string, texts map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.texts[lang]
	if !ok {
		m = map[string]string{}
		c.texts[lang] = m
	}
	for k, v := range texts {
		m[k] = v
	}
}

// SetLanguage selects lang when it is known and reports whether it was.
func (c *Catalog) SetLanguage(lang string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.texts[lang]; !ok {
		return false
	}
	c.language = lang
	return true
}

// Language returns the selected language.
func (c *Catalog) Language() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.language
}

// Languages returns the known languages, sorted.
func (c *Catalog) Languages() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	langs := make([]string, 0, len(c.texts))
	for l := range c.texts {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}

// T returns the message for key with params substituted.
//
// Missing keys fall back to English, then to the key itself.
func (c *Catalog) T(key string, params Params) string {
	c.mu.RLock()
	text, ok := c.texts[c.language][key]
	if !ok {
		text, ok = c.texts["en"][key]
	}
	c.mu.RUnlock()

	if !ok {
		text = key
	}
	if len(params) == 0 {
		return text
	}

	pairs := make([]string, 0, len(params)*2)
	for k, v := range params {
		pairs = append(pairs, "{"+strings.ToUpper(k)+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
